package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ContentType classifies the declared type of a fetched response.
type ContentType string

const (
	ContentJSON ContentType = "json"
	ContentHTML ContentType = "html"
	ContentText ContentType = "text"
)

// Document is the normalized plain-text form of a fetched page.
// It is immutable once produced by the reader.
type Document struct {
	SourceURL   string      `json:"source_url"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title,omitempty"`
	Text        string      `json:"text"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Chunk is a bounded-length slice of a document's text.
// Order reflects position in the source text.
type Chunk struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count,omitempty"`
	Order      int    `json:"order"`
}

// EmbeddingText returns the text to embed for this chunk.
func (c Chunk) EmbeddingText() string {
	return c.Text
}

// TextSource is implemented by values that carry their own
// embedding text. Checked before generic serialization.
type TextSource interface {
	EmbeddingText() string
}

// Segmentation is the ordered chunk set produced from one document.
type Segmentation struct {
	Chunks     []Chunk `json:"chunks"`
	TokenCount int     `json:"token_count"`
}

// EmbeddingResult holds one vector per input, order-aligned 1:1
// with the submitted batch. Position is the correlation key.
type EmbeddingResult struct {
	Vectors     [][]float32 `json:"vectors"`
	Model       string      `json:"model"`
	TotalTokens int         `json:"total_tokens"`
}

// GenerateDocumentID creates a deterministic ID from URL.
// The ID is a SHA-256 hash (first 16 chars) of the URL.
func GenerateDocumentID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
