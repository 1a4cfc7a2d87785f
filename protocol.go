package pgwork

import "context"

// Driver establishes protocol-level sessions. The library ships a
// pgconn-backed implementation used by Connect; tests plug in the scripted
// driver from the pgworktest package via ConnectDriver.
type Driver interface {
	// Connect resolves connString (including environment fallbacks, per the
	// driver's own rules) and establishes a session, or fails. There is no
	// half-connected state.
	Connect(ctx context.Context, connString string) (Session, error)
}

// Session is one established wire-level link to the server, owned
// exclusively by a Conn. A Session supports exactly one in-flight Exchange
// at a time; the Conn is the serialization point enforcing that.
type Session interface {
	// Send dispatches one query and returns the resulting Exchange.
	// params are pre-formatted text parameter values (nil cell = NULL);
	// pass nil for a query without parameters. Errors, including dispatch
	// errors, surface through the Exchange.
	Send(ctx context.Context, query string, params [][]byte) Exchange

	// Close releases the session. Once closed a session cannot be reused.
	Close(ctx context.Context) error

	// Closed reports whether the session has been closed or lost.
	Closed() bool
}

// Exchange is a single in-flight query. Callers use exactly one of the two
// consumption modes: ReadAll for a fully buffered reply, or repeated Next
// calls for incremental rows. Close drains whatever remains so the session
// can be used again.
type Exchange interface {
	// Fields returns the column metadata for the reply. It is available as
	// soon as the Exchange is created; for a failed query it may be empty,
	// with the failure reported by ReadAll or Close.
	Fields() []Column

	// ReadAll blocks until the server completes the reply and returns it in
	// full. The Exchange is finished afterwards.
	ReadAll() (*Reply, error)

	// Next blocks until the next row arrives and reports whether one did.
	// It returns false at end-of-data or on error; Close tells them apart.
	Next() bool

	// Values returns the raw cells of the current row. A nil cell is NULL.
	// The returned memory is owned by the Exchange and is valid only until
	// the next call to Next or Close.
	Values() [][]byte

	// Close drains any unread rows, finishes the exchange, and returns the
	// server's command tag. It reports the terminal error, if any.
	Close() (CommandTag, error)
}

// Reply is a completed, fully buffered query response.
type Reply struct {
	// Fields describes the reply's columns in order.
	Fields []Column

	// Rows holds the raw text cells, row-major. A nil cell is NULL. The
	// memory is not shared with the Exchange and may be retained.
	Rows [][][]byte

	// Tag is the server's command completion tag, e.g. "SELECT 3".
	Tag CommandTag
}
