// Package pg manages the PostgreSQL connection pool lifecycle: connecting
// with retries, applying goose migrations, and exposing a healthcheck probe.
//
// The package returns a ready *pgxpool.Pool; query code lives with the
// repositories that own it, not here.
package pg
