// Package database provides the SQLite-backed event store.
//
// EventDB appends every recorded interaction to a single "events" table and
// mirrors the events appended by this process in memory. Appends are
// serialized: the row insert and the mirror update happen under one lock, so
// a failed insert never reaches the mirror and ids are strictly increasing.
//
// A lock file next to the database guarantees a single writer per store.
// Read-only handles skip the lock and are used by the CLI read-outs while a
// supervisor is running.
//
// SQLite is provided by modernc.org/sqlite, a CGO-free driver, and opened in
// WAL mode so readers do not block the writer.
package database
