package pgwork

import (
	"errors"
	"fmt"
)

// Usage errors represent programmer error: an invalid call sequence rather
// than an environmental or data condition. They are never retried and are
// detected locally, without a server round-trip.
var (
	// ErrConnClosed is returned when an operation is attempted on a closed
	// or lost connection.
	ErrConnClosed = errors.New("pgwork: connection is closed")

	// ErrTxActive is returned when a second transaction is started, or the
	// connection is closed, while a transaction is still active.
	ErrTxActive = errors.New("pgwork: a transaction is still active on this connection")

	// ErrTxFinished is returned when a query or state transition is
	// attempted on a transaction that has already committed or aborted.
	ErrTxFinished = errors.New("pgwork: transaction has already been committed or aborted")

	// ErrTxFailed is returned when a query is attempted on a transaction
	// poisoned by a server-reported error. The transaction must be rolled
	// back; it cannot proceed.
	ErrTxFailed = errors.New("pgwork: transaction failed and must be rolled back")

	// ErrExchangeOpen is returned when a query is dispatched while another
	// query (typically an open Stream) is still in flight.
	ErrExchangeOpen = errors.New("pgwork: another query is still in flight on this connection")

	// ErrStreamConsumed is reported by Stream.Err when Next is called after
	// the stream already reached its end. Streams are single-pass.
	ErrStreamConsumed = errors.New("pgwork: stream has already been fully traversed")
)

// errNullValue is the cause recorded in a ConvertError when a NULL field is
// scanned into a non-nullable destination.
var errNullValue = errors.New("value is NULL")

// ServerError is an error reported by the server during query execution,
// such as a syntax error, constraint violation, or serialization conflict.
// A ServerError poisons the transaction that triggered it: further queries
// on that transaction fail with ErrTxFailed until it is rolled back.
type ServerError struct {
	// Severity is the server's severity tag, e.g. "ERROR" or "FATAL".
	Severity string

	// Code is the five-character SQLSTATE code, e.g. "42601".
	Code string

	// Message is the primary human-readable error message.
	Message string

	// Detail is an optional secondary message with more detail.
	Detail string

	// Hint is an optional suggestion about how to fix the problem.
	Hint string

	// Position is the 1-based character offset into the query text where
	// the error occurred, or 0 if not applicable.
	Position int
}

// Error implements the error interface.
// The format is "Severity: Message (SQLSTATE Code)".
func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.Code)
}

// ConvertError is a failure to convert between a field's text form and a
// native value: the text is not a valid lexical representation of the
// target type, the value is out of range, or a NULL was scanned into a
// non-nullable destination. It is local to the one field (or row) being
// converted and does not poison the transaction.
type ConvertError struct {
	// Column is the name of the column being converted, when known.
	Column string

	// Target describes the destination type, e.g. "int64".
	Target string

	// Value is the textual value that failed to convert.
	Value string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConvertError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("pgwork: cannot convert column %q value %q to %s: %v", e.Column, e.Value, e.Target, e.Err)
	}
	return fmt.Sprintf("pgwork: cannot convert %q to %s: %v", e.Value, e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConvertError) Unwrap() error {
	return e.Err
}

// withColumn stamps a column name onto a ConvertError that does not carry
// one yet, so errors surfaced through Row.Scan and Field.Scan name the
// offending column.
func withColumn(err error, column string) error {
	var ce *ConvertError
	if errors.As(err, &ce) && ce.Column == "" {
		ce.Column = column
	}
	return err
}
