// Package pgworktest provides an in-memory scripted protocol server for
// testing code built on pgwork without a running PostgreSQL instance. It
// implements pgwork.Driver; plug it in with pgwork.ConnectDriver.
package pgworktest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flyarong/pgwork"
)

// Result is the scripted reply for one SQL statement. It acts as an
// immutable template: every execution of the statement replays it.
type Result struct {
	// Columns describes the reply's result set, in order.
	Columns []pgwork.Column

	// Rows holds the reply's cells. Each cell is either nil (NULL) or a
	// string with the cell's text form.
	Rows [][]any

	// Tag overrides the command completion tag. When empty, a tag is
	// derived from the statement and row count ("SELECT 3", "BEGIN", ...).
	Tag pgwork.CommandTag

	// Err simulates a server-reported query error. It is returned instead
	// of data; script a *pgwork.ServerError for realistic behavior.
	Err error

	// ErrAfter, when > 0, delays Err on the streaming path: the first
	// ErrAfter rows are delivered, then Err surfaces, as a server does when
	// a query fails per-row (division by zero, ...). The buffered path
	// still fails outright.
	ErrAfter int

	// FailAfter, when > 0, simulates a transport failure on the streaming
	// path: FailErr surfaces after FailAfter rows have been delivered.
	FailAfter int

	// FailErr is the transport error injected by FailAfter. It should NOT
	// be a *pgwork.ServerError, since it represents a lost connection.
	FailErr error
}

// Server is an in-memory protocol endpoint. Script statements with Script,
// or install a Handler for dynamic behavior; unscripted statements succeed
// with an empty reply, so transaction directives (BEGIN, COMMIT, ROLLBACK)
// work out of the box.
type Server struct {
	mu         sync.Mutex
	scripts    map[string]*Result
	statements []string
	open       int

	// ConnectErr, when set, makes every Connect attempt fail with it.
	ConnectErr error

	// Handler, when set, is consulted for statements that have no script.
	// Returning a nil Result falls through to the default empty reply.
	Handler func(sql string) (*Result, error)
}

var _ pgwork.Driver = (*Server)(nil)

// NewServer creates an empty scripted server.
func NewServer() *Server {
	return &Server{scripts: make(map[string]*Result)}
}

// Script registers the reply for an exact SQL string.
func (s *Server) Script(sql string, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[sql] = res
}

// Statements returns every statement received so far, in order.
func (s *Server) Statements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.statements))
	copy(out, s.statements)
	return out
}

// Count returns how many times the exact statement was received.
func (s *Server) Count(sql string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.statements {
		if st == sql {
			n++
		}
	}
	return n
}

// OpenSessions returns the number of sessions connected and not yet closed.
func (s *Server) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Connect implements pgwork.Driver.
func (s *Server) Connect(_ context.Context, _ string) (pgwork.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ConnectErr != nil {
		return nil, s.ConnectErr
	}
	s.open++
	return &session{srv: s}, nil
}

// lookup records the statement and resolves its scripted reply.
func (s *Server) lookup(sql string) (*Result, error) {
	s.mu.Lock()
	res, ok := s.scripts[sql]
	handler := s.Handler
	s.statements = append(s.statements, sql)
	s.mu.Unlock()

	if ok {
		return res, nil
	}
	if handler != nil {
		res, err := handler(sql)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return &Result{}, nil
}

// defaultTag derives a plausible command tag from the statement.
func defaultTag(sql string, rows int) pgwork.CommandTag {
	word := sql
	if i := strings.IndexAny(word, " \t\n"); i >= 0 {
		word = word[:i]
	}
	word = strings.ToUpper(word)
	switch word {
	case "SELECT":
		return pgwork.CommandTag(fmt.Sprintf("SELECT %d", rows))
	case "INSERT":
		return pgwork.CommandTag(fmt.Sprintf("INSERT 0 %d", rows))
	case "UPDATE", "DELETE":
		return pgwork.CommandTag(fmt.Sprintf("%s %d", word, rows))
	default:
		return pgwork.CommandTag(word)
	}
}

// session implements pgwork.Session.
type session struct {
	srv    *Server
	closed bool
}

// Send implements pgwork.Session.
func (c *session) Send(_ context.Context, query string, _ [][]byte) pgwork.Exchange {
	if c.closed {
		return &exchange{err: errors.New("pgworktest: session is closed")}
	}
	res, err := c.srv.lookup(query)
	if err != nil {
		return &exchange{err: err}
	}
	tag := res.Tag
	if tag == "" {
		tag = defaultTag(query, len(res.Rows))
	}
	return &exchange{sess: c, res: res, tag: tag}
}

// Close implements pgwork.Session.
func (c *session) Close(_ context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.srv.mu.Lock()
	c.srv.open--
	c.srv.mu.Unlock()
	return nil
}

// Closed implements pgwork.Session.
func (c *session) Closed() bool {
	return c.closed
}

// drop marks the session lost, as a dropped socket would.
func (c *session) drop() {
	if c.closed {
		return
	}
	c.closed = true
	c.srv.mu.Lock()
	c.srv.open--
	c.srv.mu.Unlock()
}

// exchange implements pgwork.Exchange over a scripted Result. The streaming
// path reuses a single row buffer on every Next, matching the real protocol
// client's contract that Values is valid only until the next step.
type exchange struct {
	sess     *session
	res      *Result
	tag      pgwork.CommandTag
	err      error
	pos      int
	buf      [][]byte
	finished bool
}

// Fields implements pgwork.Exchange.
func (e *exchange) Fields() []pgwork.Column {
	if e.res == nil || (e.res.Err != nil && e.res.ErrAfter == 0) {
		return nil
	}
	cols := make([]pgwork.Column, len(e.res.Columns))
	copy(cols, e.res.Columns)
	return cols
}

// ReadAll implements pgwork.Exchange.
func (e *exchange) ReadAll() (*pgwork.Reply, error) {
	e.finished = true
	if e.err != nil {
		return nil, e.err
	}
	if e.res.Err != nil {
		return nil, e.res.Err
	}
	rows := make([][][]byte, len(e.res.Rows))
	for i, row := range e.res.Rows {
		cells := make([][]byte, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			cells[j] = []byte(cell.(string))
		}
		rows[i] = cells
	}
	return &pgwork.Reply{Fields: e.Fields(), Rows: rows, Tag: e.tag}, nil
}

// Next implements pgwork.Exchange.
func (e *exchange) Next() bool {
	if e.finished || e.scriptedErr() != nil {
		return false
	}
	if e.res.FailAfter > 0 && e.pos >= e.res.FailAfter {
		e.err = e.failErr()
		e.sess.drop()
		return false
	}
	if e.pos >= len(e.res.Rows) {
		return false
	}
	row := e.res.Rows[e.pos]
	if e.buf == nil {
		e.buf = make([][]byte, len(row))
	}
	for j, cell := range row {
		if cell == nil {
			e.buf[j] = nil
			continue
		}
		if e.buf[j] == nil {
			e.buf[j] = []byte{}
		}
		e.buf[j] = append(e.buf[j][:0], cell.(string)...)
	}
	e.pos++
	return true
}

// Values implements pgwork.Exchange.
func (e *exchange) Values() [][]byte {
	return e.buf
}

// Close implements pgwork.Exchange.
func (e *exchange) Close() (pgwork.CommandTag, error) {
	e.finished = true
	if e.err != nil {
		return "", e.err
	}
	if err := e.scriptedErr(); err != nil {
		return "", err
	}
	return e.tag, nil
}

func (e *exchange) scriptedErr() error {
	if e.err != nil {
		return e.err
	}
	if e.res != nil && e.res.Err != nil && e.pos >= e.res.ErrAfter {
		return e.res.Err
	}
	return nil
}

func (e *exchange) failErr() error {
	if e.res.FailErr != nil {
		return e.res.FailErr
	}
	return errors.New("pgworktest: connection lost")
}
