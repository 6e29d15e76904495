package domain

// IngestState tracks a document through the ingestion pipeline.
type IngestState string

// Ingestion states. A document ends in either StateStored or StateFailed.
const (
	StateNew      IngestState = "new"
	StateChunked  IngestState = "chunked"
	StateEmbedded IngestState = "embedded"
	StateStored   IngestState = "stored"
	StateFailed   IngestState = "failed"
)

// EmbedMode selects the asymmetric side of an embedding model.
type EmbedMode string

// Embedding modes. Ingestion uses document, retrieval uses query.
const (
	EmbedDocument EmbedMode = "document"
	EmbedQuery    EmbedMode = "query"
)

// IngestResult reports the outcome for one document.
type IngestResult struct {
	DocumentID string      `json:"document_id"`
	Title      string      `json:"title"`
	Collection string      `json:"collection"`
	ChunkCount int         `json:"chunk_count"`
	State      IngestState `json:"state"`

	// ZeroFilled lists chunk indexes stored with a zero vector.
	ZeroFilled []int `json:"zero_filled,omitempty"`

	// Err is set when State is StateFailed; Reason carries its message.
	Err    error  `json:"-"`
	Reason string `json:"error,omitempty"`
}

// Success reports whether the document was stored.
func (r IngestResult) Success() bool {
	return r.State == StateStored
}

// Fail moves the result to StateFailed with err as the reason.
func (r *IngestResult) Fail(err error) {
	r.State = StateFailed
	r.Err = err
	r.Reason = err.Error()
}

// BatchReport summarises a batch upload.
type BatchReport struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []IngestResult `json:"results"`
}

// Add records a result.
func (b *BatchReport) Add(r IngestResult) {
	b.Results = append(b.Results, r)
	if r.Success() {
		b.Succeeded++
	} else {
		b.Failed++
	}
}
