// Package sqlite provides the SQLite implementation of driven.MetadataStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The schema is created by versioned migrations in the migrations/ directory,
// tracked in schema_migrations. After migrating, an additive column pass adds
// any column an older database lacks, so stores created by earlier releases
// upgrade in place.
//
// # Data Location
//
// By default, the database is stored at ~/.recall/kb.sqlite3
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
