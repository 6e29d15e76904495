package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// documentIDBytes is how many bytes of the content digest form a document ID.
const documentIDBytes = 16

// Document represents a piece of text submitted for indexing.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is derived from Content, so identical content maps to the same ID.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text content before chunking.
	Content string

	// Metadata contains arbitrary source metadata carried into every chunk.
	Metadata map[string]any

	// CreatedAt is when the document was submitted.
	CreatedAt time.Time
}

// Chunk represents a searchable unit within a document.
// Documents are split into chunks for granular search results.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// TotalChunks is the number of chunks the document produced.
	TotalChunks int
}

// DocumentID returns the deterministic identifier for content.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:documentIDBytes])
}

// NewDocument builds a Document with its content-derived ID.
func NewDocument(content, title string, metadata map[string]any) *Document {
	return &Document{
		ID:        DocumentID(content),
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// DocumentInput is a document as submitted by a caller.
type DocumentInput struct {
	Content  string         `json:"content" yaml:"content"`
	Title    string         `json:"title" yaml:"title"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DocumentInfo summarises a stored document.
type DocumentInfo struct {
	DocumentID  string         `json:"document_id"`
	Title       string         `json:"title"`
	Collection  string         `json:"collection"`
	TotalChunks int            `json:"total_chunks"`
	UploadedAt  time.Time      `json:"uploaded_at"`
	Metadata    map[string]any `json:"metadata"`
}
