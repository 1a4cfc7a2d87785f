package pgwork

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// defaultDriver backs Connect. pgconn owns the socket, the authentication
// handshake, and the wire encoding; this layer only asks it to send query
// text and hand back rows.
var defaultDriver Driver = pgDriver{}

// pgDriver implements Driver over github.com/jackc/pgx/v5/pgconn.
type pgDriver struct{}

// Connect implements Driver. pgconn resolves the connection string (URL or
// DSN form) together with the libpq environment variables.
func (pgDriver) Connect(ctx context.Context, connString string) (Session, error) {
	conn, err := pgconn.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &pgSession{conn: conn}, nil
}

// pgSession implements Session over a single *pgconn.PgConn.
type pgSession struct {
	conn *pgconn.PgConn
}

// Send implements Session. Results are requested in text format so the
// conversion engine sees the server's textual representation.
func (s *pgSession) Send(ctx context.Context, query string, params [][]byte) Exchange {
	rr := s.conn.ExecParams(ctx, query, params, nil, nil, nil)
	return &pgExchange{rr: rr}
}

// Close implements Session.
func (s *pgSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// Closed implements Session.
func (s *pgSession) Closed() bool {
	return s.conn.IsClosed()
}

// pgExchange implements Exchange over a *pgconn.ResultReader.
type pgExchange struct {
	rr *pgconn.ResultReader
}

// Fields implements Exchange.
func (e *pgExchange) Fields() []Column {
	return columnsFromDescriptions(e.rr.FieldDescriptions())
}

// ReadAll implements Exchange. pgconn's Read buffers the complete reply and
// finishes the reader; the returned rows are copies safe to retain.
func (e *pgExchange) ReadAll() (*Reply, error) {
	res := e.rr.Read()
	if res.Err != nil {
		return nil, wrapPgError(res.Err)
	}
	return &Reply{
		Fields: columnsFromDescriptions(res.FieldDescriptions),
		Rows:   res.Rows,
		Tag:    CommandTag(res.CommandTag.String()),
	}, nil
}

// Next implements Exchange.
func (e *pgExchange) Next() bool {
	return e.rr.NextRow()
}

// Values implements Exchange. Per pgconn's contract the returned memory is
// owned by the reader and valid only until the next NextRow or Close.
func (e *pgExchange) Values() [][]byte {
	return e.rr.Values()
}

// Close implements Exchange. pgconn drains unread rows before returning, so
// the connection is resynchronized afterwards.
func (e *pgExchange) Close() (CommandTag, error) {
	tag, err := e.rr.Close()
	if err != nil {
		return "", wrapPgError(err)
	}
	return CommandTag(tag.String()), nil
}

// wrapPgError converts a server-reported pgconn error into a *ServerError,
// leaving transport errors untouched.
func wrapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &ServerError{
			Severity: pgErr.Severity,
			Code:     pgErr.Code,
			Message:  pgErr.Message,
			Detail:   pgErr.Detail,
			Hint:     pgErr.Hint,
			Position: int(pgErr.Position),
		}
	}
	return err
}

func columnsFromDescriptions(fds []pgconn.FieldDescription) []Column {
	if len(fds) == 0 {
		return nil
	}
	cols := make([]Column, len(fds))
	for i, fd := range fds {
		cols[i] = Column{
			Name:    fd.Name,
			TypeOID: fd.DataTypeOID,
			Type:    typeNameForOID(fd.DataTypeOID),
		}
	}
	return cols
}
