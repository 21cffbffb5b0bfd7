package model

// Chunk is one retrievable fragment of a document. Ordinals for a document form
// a contiguous sequence starting at 0.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Locator    string    `json:"locator"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}

// ReadyChunk is a chunk joined with its parent document, as read back for
// retrieval. Only chunks of READY semantic documents ever appear as ReadyChunk.
type ReadyChunk struct {
	DocumentID   string
	DocumentName string
	Ordinal      int
	Locator      string
	Content      string
	Embedding    []float32
}

type SearchResult struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Ordinal      int     `json:"ordinal"`
	Locator      string  `json:"locator"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

type Citation struct {
	DocumentName string `json:"document_name"`
	Locator      string `json:"locator"`
}

type EmbeddingCache struct {
	ModelName   string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}
