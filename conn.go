package pgwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Conn owns one live session with the server. It is the serialization point
// for everything built on top of it: at most one transaction is active and
// at most one query is in flight at any moment.
//
// A Conn has no internal locking. Confine it, and any Transaction built on
// it, to a single goroutine or synchronize externally. Independent Conns
// share no state and may be driven concurrently.
type Conn struct {
	sess   Session
	closed bool
	tx     *Tx
	busy   bool // an Exchange (typically a Stream) is in flight
}

// Connect establishes a session with the server described by connString.
// The string is resolved by the protocol client, which also applies the
// usual libpq environment-variable fallbacks. Connect either returns an
// open connection or fails; there is no half-connected state.
func Connect(ctx context.Context, connString string) (*Conn, error) {
	return ConnectDriver(ctx, defaultDriver, connString)
}

// ConnectDriver is Connect with an explicit protocol driver. Tests use it
// to plug in the scripted driver from the pgworktest package.
func ConnectDriver(ctx context.Context, d Driver, connString string) (*Conn, error) {
	sess, err := d.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("pgwork: connect: %w", err)
	}
	return &Conn{sess: sess}, nil
}

// IsOpen reports whether the connection is usable.
func (c *Conn) IsOpen() bool {
	return !c.closed && !c.sess.Closed()
}

// Close releases the session. A connection with an active transaction
// refuses to close with ErrTxActive: the transaction must be finished
// first, so that lifetimes stay ordered. Closing an already closed
// connection is a no-op; a closed connection cannot be reopened.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	if c.tx != nil {
		return ErrTxActive
	}
	if c.busy {
		return ErrExchangeOpen
	}
	c.closed = true
	if err := c.sess.Close(ctx); err != nil {
		return fmt.Errorf("pgwork: close: %w", err)
	}
	return nil
}

// roundTrip is the connection's single low-level primitive on the buffered
// path: submit query text, block for the complete reply. Both transaction
// control statements and Tx.Exec funnel through here.
func (c *Conn) roundTrip(ctx context.Context, query string, params [][]byte) (*Reply, error) {
	if !c.IsOpen() {
		return nil, ErrConnClosed
	}
	if c.busy {
		return nil, ErrExchangeOpen
	}
	c.busy = true
	defer func() { c.busy = false }()

	reply, err := c.sess.Send(ctx, query, params).ReadAll()
	if err != nil {
		var se *ServerError
		if !errors.As(err, &se) {
			// Anything other than a server-reported query error means the
			// session itself is no longer trustworthy.
			c.invalidate()
		}
		return nil, err
	}
	return reply, nil
}

// startExchange opens the streaming path: it dispatches the query and hands
// the live exchange to the caller, which must release the connection via
// endExchange once the exchange is finished.
func (c *Conn) startExchange(ctx context.Context, query string, params [][]byte) (Exchange, error) {
	if !c.IsOpen() {
		return nil, ErrConnClosed
	}
	if c.busy {
		return nil, ErrExchangeOpen
	}
	c.busy = true
	return c.sess.Send(ctx, query, params), nil
}

// endExchange releases the in-flight slot. err is the exchange's terminal
// error; a transport-level failure invalidates the connection.
func (c *Conn) endExchange(err error) {
	c.busy = false
	if err == nil {
		return
	}
	var se *ServerError
	if !errors.As(err, &se) {
		c.invalidate()
	}
}

// invalidate marks the connection lost and releases the session.
func (c *Conn) invalidate() {
	if c.closed {
		return
	}
	c.closed = true
	if err := c.sess.Close(context.Background()); err != nil {
		log.Debug().Err(err).Msg("pgwork: failed to close lost session")
	}
}
