// Package sqlite provides SQLite-backed implementations of the vector and task stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database file serves both stores:
//
//   - VectorStore: collections and points, vectors stored as little-endian float32 blobs
//   - TaskStore: maintenance task schedules and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Search
//
// Similarity is computed in process over the collection's points, which suits
// single-node corpora of up to a few hundred thousand chunks. Use the qdrant
// backend beyond that.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode.
package sqlite
