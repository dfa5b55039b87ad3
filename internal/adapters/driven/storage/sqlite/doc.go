// Package sqlite provides a SQLite-backed implementation of driven.TokenStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One row per provider holds the
// credential blob; writes are single upserts so a failed save never leaves
// a half-written credential behind.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.tasklift/data/tasklift.db
package sqlite
