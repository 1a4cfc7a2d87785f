package pgwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// streamState tracks the single-pass lifecycle of a Stream.
type streamState int

const (
	streamRunning streamState = iota
	streamDone                // clean end-of-data
	streamFailed              // terminal error recorded in err
	streamClosed              // Close was called before end-of-data
)

// Stream yields a query's rows one at a time as they arrive from the
// server, converting each row directly into the destinations bound at
// Tx.Stream. It never materializes a Result: memory stays constant no
// matter how many rows the query returns.
//
// A Stream is single-pass. Iterate with Next until it returns false, then
// check Err:
//
//	var name string
//	var age int64
//	st, err := tx.Stream(ctx, "SELECT name, age FROM people", &name, &age)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	for st.Next() {
//	    // use name, age; both are overwritten by the next step
//	}
//	if err := st.Err(); err != nil {
//	    return err
//	}
//
// While a Stream is open, its connection accepts no other query: close or
// exhaust the stream before the transaction continues.
type Stream struct {
	conn  *Conn
	tx    *Tx
	ex    Exchange
	dests []any
	cols  []Column
	raw   [][]byte
	tag   CommandTag
	err   error
	state streamState
}

// Stream dispatches query in incremental mode and binds dests as the
// per-row scan destinations. The number of destinations must equal the
// reply's column count; a mismatch is a setup error detected before the
// first row is requested, and the exchange is drained so the transaction
// can continue.
func (tx *Tx) Stream(ctx context.Context, query string, dests ...any) (*Stream, error) {
	if err := tx.usable(); err != nil {
		return nil, err
	}
	ex, err := tx.conn.startExchange(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	cols := ex.Fields()
	if len(cols) != len(dests) {
		_, cerr := ex.Close()
		tx.conn.endExchange(cerr)
		if cerr != nil {
			// The query itself failed; that error outranks the arity check.
			var se *ServerError
			if errors.As(cerr, &se) {
				tx.failed = true
			}
			return nil, cerr
		}
		return nil, fmt.Errorf("pgwork: query returns %d columns but %d stream destinations were given",
			len(cols), len(dests))
	}
	return &Stream{conn: tx.conn, tx: tx, ex: ex, dests: dests, cols: cols}, nil
}

// Next blocks until the next row arrives, converts its cells into the bound
// destinations, and reports whether a row was produced. It returns false at
// end-of-data, on error, and on every call after the stream reached a
// terminal state; Err distinguishes the cases. Calling Next again after the
// stream already ended latches ErrStreamConsumed: the protocol exchange is
// single-pass and cannot be traversed twice.
func (s *Stream) Next() bool {
	switch s.state {
	case streamRunning:
	case streamDone, streamClosed:
		if s.err == nil {
			s.err = ErrStreamConsumed
		}
		return false
	default:
		return false
	}

	if !s.ex.Next() {
		tag, err := s.ex.Close()
		s.conn.endExchange(err)
		if err != nil {
			var se *ServerError
			if errors.As(err, &se) {
				s.tx.failed = true
			}
			s.err = err
			s.state = streamFailed
			return false
		}
		s.tag = tag
		s.state = streamDone
		return false
	}

	s.raw = s.ex.Values()
	for j, dest := range s.dests {
		cell := s.raw[j]
		if err := ScanText(dest, cell, cell == nil); err != nil {
			// A row that cannot be converted ends the stream: the bound
			// destinations would otherwise hold a half-scanned row.
			_, cerr := s.ex.Close()
			s.conn.endExchange(cerr)
			var se *ServerError
			if errors.As(cerr, &se) {
				s.tx.failed = true
			}
			s.err = withColumn(err, s.cols[j].Name)
			s.state = streamFailed
			return false
		}
	}
	return true
}

// Err returns the error that terminated the stream, or nil after a clean
// end-of-data.
func (s *Stream) Err() error {
	return s.err
}

// Columns returns the stream's column metadata in order.
func (s *Stream) Columns() []Column {
	cols := make([]Column, len(s.cols))
	copy(cols, s.cols)
	return cols
}

// RawValues returns the current row's raw cells (nil cell = NULL). The
// backing storage belongs to the protocol exchange and is reused: it is
// valid only until the next call to Next or Close and must not be retained
// across iteration steps. The destinations bound at Tx.Stream receive
// copies and are not affected.
func (s *Stream) RawValues() [][]byte {
	return s.raw
}

// CommandTag returns the server's command completion tag. It is available
// only after the stream ended cleanly.
func (s *Stream) CommandTag() CommandTag {
	return s.tag
}

// Close drains any rows the consumer did not read, resynchronizing the
// connection's protocol state so the transaction can issue further
// queries. It is a no-op once the stream reached a terminal state. If the
// drain itself fails the connection is no longer usable and the failure is
// returned.
func (s *Stream) Close() error {
	if s.state != streamRunning {
		return nil
	}
	tag, err := s.ex.Close()
	s.conn.endExchange(err)
	s.state = streamClosed
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) {
			s.tx.failed = true
		}
		s.err = err
		log.Debug().Err(err).Msg("pgwork: stream drain failed")
		return fmt.Errorf("pgwork: stream close: %w", err)
	}
	s.tag = tag
	return nil
}
