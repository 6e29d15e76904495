// Package services implements the driving port interfaces.
// Services contain the retrieval-augmented generation logic and
// orchestrate calls to driven ports (adapters): embedding backends,
// vector stores and language models.
//
// RAGService is the facade every transport talks to. It composes the
// SearchOrchestrator, the IngestionPipeline and the AnswerGenerator.
package services
