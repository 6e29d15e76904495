package domain

import (
	"fmt"
	"time"
)

// Reserved payload keys. Source metadata may not use them.
const (
	PayloadDocumentID      = "document_id"
	PayloadTitle           = "title"
	PayloadContent         = "content"
	PayloadText            = "text"
	PayloadChunkIndex      = "chunk_index"
	PayloadTotalChunks     = "total_chunks"
	PayloadUploadedAt      = "uploaded_at"
	PayloadEmbeddingStatus = "embedding_status"
)

var reservedPayloadKeys = map[string]bool{
	PayloadDocumentID:      true,
	PayloadTitle:           true,
	PayloadContent:         true,
	PayloadText:            true,
	PayloadChunkIndex:      true,
	PayloadTotalChunks:     true,
	PayloadUploadedAt:      true,
	PayloadEmbeddingStatus: true,
}

// EmbeddingStatus records how a point's vector was produced.
type EmbeddingStatus string

const (
	// EmbeddingOK means the vector came from the embedding backend.
	EmbeddingOK EmbeddingStatus = "ok"

	// EmbeddingZeroFilled means embedding failed and a zero vector was stored.
	// Such points never match a cosine search and are candidates for repair.
	EmbeddingZeroFilled EmbeddingStatus = "zero_filled"
)

// Point is one stored record in a collection.
type Point struct {
	// ID is a pure function of (document ID, chunk index).
	ID string

	// Vector has the collection's dimension.
	Vector []float32

	// Payload carries the chunk text and document metadata.
	Payload Payload
}

// Payload is the typed record stored alongside each vector.
type Payload struct {
	DocumentID      string
	Title           string
	Content         string
	ChunkIndex      int
	TotalChunks     int
	UploadedAt      time.Time
	EmbeddingStatus EmbeddingStatus

	// Extra holds arbitrary source metadata.
	Extra map[string]any
}

// Fields flattens the payload into the map stored by vector backends.
func (p Payload) Fields() map[string]any {
	fields := make(map[string]any, len(p.Extra)+8)
	for k, v := range p.Extra {
		fields[k] = v
	}
	fields[PayloadDocumentID] = p.DocumentID
	fields[PayloadTitle] = p.Title
	fields[PayloadContent] = p.Content
	fields[PayloadChunkIndex] = p.ChunkIndex
	fields[PayloadTotalChunks] = p.TotalChunks
	if !p.UploadedAt.IsZero() {
		fields[PayloadUploadedAt] = p.UploadedAt.UTC().Format(time.RFC3339)
	}
	if p.EmbeddingStatus != "" {
		fields[PayloadEmbeddingStatus] = string(p.EmbeddingStatus)
	}
	return fields
}

// PayloadFromFields rebuilds a payload from a flat backend map.
// Content falls back to the "text" key used by some loaders.
func PayloadFromFields(fields map[string]any) Payload {
	p := Payload{
		DocumentID:      stringField(fields, PayloadDocumentID),
		Title:           stringField(fields, PayloadTitle),
		Content:         stringField(fields, PayloadContent),
		ChunkIndex:      intField(fields, PayloadChunkIndex),
		TotalChunks:     intField(fields, PayloadTotalChunks),
		EmbeddingStatus: EmbeddingStatus(stringField(fields, PayloadEmbeddingStatus)),
	}
	if p.Content == "" {
		p.Content = stringField(fields, PayloadText)
	}
	if ts := stringField(fields, PayloadUploadedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			p.UploadedAt = t
		}
	}
	for k, v := range fields {
		if reservedPayloadKeys[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return p
}

// ValidateMetadata rejects source metadata that would shadow reserved payload keys.
func ValidateMetadata(metadata map[string]any) error {
	for k := range metadata {
		if k == "" {
			return ValidationErrorf("metadata key must not be empty")
		}
		if reservedPayloadKeys[k] {
			return ValidationErrorf("metadata key %q is reserved", k)
		}
	}
	return nil
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// intField accepts the numeric shapes JSON and SQL decoders produce.
func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return 0
	}
}
