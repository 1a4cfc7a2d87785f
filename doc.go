// Package pgwork provides transactional units of work over a PostgreSQL
// connection, with an immutable result snapshot model, a memory-bounded
// streaming execution path, and an extensible text-to-value conversion
// engine.
//
// The package sits above a low-level protocol client
// (github.com/jackc/pgx/v5/pgconn by default) that owns the socket,
// authentication, and wire format. pgwork adds the guarantees the raw
// protocol does not give: strict transaction ordering, one query in flight
// per connection, and results that never change once returned.
//
// # Getting Started
//
// Connect, run a unit of work, and read the snapshot:
//
//	conn, err := pgwork.Connect(ctx, "postgres://localhost/mydb")
//	if err != nil {
//	    log.Fatal().Err(err).Msg("connect failed")
//	}
//	defer conn.Close(ctx)
//
//	tx, err := conn.Begin(ctx)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("begin failed")
//	}
//	defer tx.Close(ctx) // rolls back unless Commit succeeded
//
//	res, err := tx.Exec(ctx, "SELECT name, age FROM people")
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < res.Len(); i++ {
//	    var name string
//	    var age int64
//	    if err := res.Row(i).Scan(&name, &age); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit(ctx)
//
// # Transactions
//
// Every query runs inside a Tx. A Tx is active until Commit or Rollback and
// refuses queries afterwards; deferring Close right after Begin guarantees
// the implicit rollback on early returns. One transaction at a time per
// connection, enforced.
//
// # Results
//
// Exec buffers the complete reply into a Result, an immutable snapshot.
// Rows and Fields are cheap views into it; fields convert lazily on access,
// so untouched columns cost nothing. Conversion is text-directed and
// strict: garbage and out-of-range numerics fail instead of truncating, and
// NULL fails non-nullable targets unless wrapped in Null.
//
// # Streaming
//
// Stream yields rows one at a time without forming a Result, for queries
// whose replies should not live in memory all at once. Destinations are
// bound up front and overwritten on each step; the stream is single-pass
// and must be closed (or exhausted) before the transaction continues.
//
// # Concurrency
//
// A Conn and everything built on it belong to one goroutine. Independent
// Conns are fully independent. A Result, once returned, is safe to read
// from any number of goroutines.
package pgwork
