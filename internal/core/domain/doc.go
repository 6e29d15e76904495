// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Text submitted for indexing, identified by a content hash
//   - Chunk: A bounded slice of a document, the unit of retrieval
//   - Point: A stored (id, vector, payload) record in a collection
//   - SearchResult: A ranked hit returned to callers
//   - StreamEvent: One fragment or terminal marker of a streamed answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
