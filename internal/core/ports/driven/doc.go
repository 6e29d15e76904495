// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingBackend: Turns text into fixed-dimension vectors
//   - VectorStore: Collection-oriented vector index (memory, sqlite, qdrant)
//   - PostProcessorPipeline: Chunks documents
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates for answer generation
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model. Without it, chat is disabled but search works.
//   - NormaliserRegistry: Text extraction for file ingestion. Raw text uploads bypass it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
