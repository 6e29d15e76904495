// Package connectors holds the document sources the ingest command reads
// from. Each connector emits raw documents that the normaliser registry
// turns into text.
package connectors
