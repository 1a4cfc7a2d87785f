package pgwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a transaction.
type Status int

const (
	// StatusActive means the transaction accepts queries.
	StatusActive Status = iota
	// StatusCommitted is terminal: the transaction committed successfully.
	StatusCommitted
	// StatusAborted is terminal: the transaction rolled back, explicitly or
	// implicitly.
	StatusAborted
)

// String returns the state name.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommitted:
		return "committed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Tx is one unit of work on a connection. It is created by Conn.Begin,
// which issues BEGIN atomically with construction, and ends in exactly one
// of two terminal states: committed or aborted.
//
// A Tx holds a non-owning reference to its Conn and must finish before the
// Conn closes. Defer Close right after Begin to guarantee the implicit
// rollback on every exit path:
//
//	tx, err := conn.Begin(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Close(ctx)
type Tx struct {
	conn   *Conn
	status Status
	failed bool
}

// Begin starts a transaction. Only one transaction may be active per
// connection; attempting a second returns ErrTxActive.
func (c *Conn) Begin(ctx context.Context) (*Tx, error) {
	if !c.IsOpen() {
		return nil, ErrConnClosed
	}
	if c.tx != nil {
		return nil, ErrTxActive
	}
	if _, err := c.roundTrip(ctx, "BEGIN", nil); err != nil {
		return nil, fmt.Errorf("pgwork: begin: %w", err)
	}
	tx := &Tx{conn: c, status: StatusActive}
	c.tx = tx
	return tx, nil
}

// Status returns the transaction's current state.
func (tx *Tx) Status() Status {
	return tx.status
}

// Failed reports whether a server error has poisoned the transaction. A
// failed transaction refuses further queries until it is rolled back.
func (tx *Tx) Failed() bool {
	return tx.failed
}

// usable gates every query dispatch. Violations are usage errors detected
// locally, never a server round-trip.
func (tx *Tx) usable() error {
	if tx.status != StatusActive {
		return ErrTxFinished
	}
	if tx.failed {
		return ErrTxFailed
	}
	if !tx.conn.IsOpen() {
		return ErrConnClosed
	}
	return nil
}

// Exec sends query through the connection, blocks until the server returns
// the completed reply, and builds an immutable Result. A server-reported
// error (syntax error, constraint violation, ...) is returned as a
// *ServerError and poisons the transaction: it must be rolled back before
// the connection can do further transactional work.
func (tx *Tx) Exec(ctx context.Context, query string) (*Result, error) {
	return tx.exec(ctx, query, nil)
}

// ExecParams is Exec with positional parameters ($1, $2, ...). Each
// argument is converted to its wire text by the conversion engine; a nil
// argument is transmitted as NULL.
func (tx *Tx) ExecParams(ctx context.Context, query string, args ...any) (*Result, error) {
	params, err := formatParams(args)
	if err != nil {
		return nil, err
	}
	return tx.exec(ctx, query, params)
}

func (tx *Tx) exec(ctx context.Context, query string, params [][]byte) (*Result, error) {
	if err := tx.usable(); err != nil {
		return nil, err
	}
	reply, err := tx.conn.roundTrip(ctx, query, params)
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) {
			tx.failed = true
		}
		return nil, err
	}
	return newResult(reply), nil
}

// Commit ends the transaction successfully. Valid only while active. If the
// server rejects the commit (e.g. a serialization conflict), the
// transaction transitions to aborted and the failure is returned. A failed
// transaction cannot commit: Commit rolls it back and reports ErrTxFailed.
// While a Stream is open the transaction cannot end: Commit returns
// ErrExchangeOpen and the transaction stays active.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.status != StatusActive {
		return ErrTxFinished
	}
	if tx.conn.busy {
		return ErrExchangeOpen
	}
	if tx.failed {
		tx.abort(ctx)
		return ErrTxFailed
	}
	_, err := tx.conn.roundTrip(ctx, "COMMIT", nil)
	tx.conn.tx = nil
	if err != nil {
		tx.status = StatusAborted
		return fmt.Errorf("pgwork: commit: %w", err)
	}
	tx.status = StatusCommitted
	return nil
}

// Rollback ends the transaction, discarding its work. Valid only while
// active. The rollback directive is best-effort at the protocol level, but
// the in-memory state always reaches aborted; a wire failure is returned
// for diagnosis, not as a veto. While a Stream is open, Rollback returns
// ErrExchangeOpen and the transaction stays active.
func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.status != StatusActive {
		return ErrTxFinished
	}
	if tx.conn.busy {
		return ErrExchangeOpen
	}
	if err := tx.abort(ctx); err != nil {
		return fmt.Errorf("pgwork: rollback: %w", err)
	}
	return nil
}

// Close rolls the transaction back if it is still active and is a no-op
// otherwise, so an already committed or rolled back transaction never
// double-submits a rollback directive. It is the scope-exit hook: defer it
// right after Begin.
func (tx *Tx) Close(ctx context.Context) error {
	if tx.status != StatusActive {
		return nil
	}
	if tx.conn.busy {
		// An exchange is still open; aborting now would desynchronize the
		// state machine. The transaction stays active and Conn.Close will
		// refuse until it is finished properly.
		log.Debug().Msg("pgwork: implicit rollback skipped while an exchange is open")
		return nil
	}
	if err := tx.abort(ctx); err != nil {
		log.Debug().Err(err).Msg("pgwork: implicit rollback failed")
	}
	return nil
}

// abort sends the rollback directive and forces the terminal state
// regardless of the wire outcome.
func (tx *Tx) abort(ctx context.Context) error {
	_, err := tx.conn.roundTrip(ctx, "ROLLBACK", nil)
	tx.status = StatusAborted
	tx.conn.tx = nil
	return err
}
