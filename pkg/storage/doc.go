// Package storage provides the Postgres implementations of the scheduler's
// store interfaces, built on pgxpool. Schema lives in migrations/ and is
// applied with goose at startup.
package storage
