package segmenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mlutsenko/askpage/pkg/models"
	"github.com/pkoukk/tiktoken-go"
)

// MaxChunkLength caps chunk size in characters. This is a hard
// policy constant of the segmentation request, not configurable
// per call.
const MaxChunkLength = 1500

// Config holds segmenter client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client wraps the text segmentation service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// New creates a new segmenter client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// segmentRequest is the request payload for the segmentation API.
type segmentRequest struct {
	Content        string `json:"content"`
	ReturnChunks   bool   `json:"return_chunks"`
	ReturnTokens   bool   `json:"return_tokens"`
	MaxChunkLength int    `json:"max_chunk_length"`
}

// segmentResponse is the response from the segmentation API.
type segmentResponse struct {
	Chunks      []string `json:"chunks"`
	ChunkTokens []int    `json:"chunk_tokens,omitempty"`
	NumTokens   int      `json:"num_tokens"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Segment splits content into bounded-length chunks with token
// metadata. Empty or whitespace-only content fails with
// ErrInvalidInput before any network call.
func (c *Client) Segment(ctx context.Context, content string) (*models.Segmentation, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: no content to segment", models.ErrInvalidInput)
	}

	slog.Info("segmenting text", "size", len(content))

	req := segmentRequest{
		Content:        content,
		ReturnChunks:   true,
		ReturnTokens:   true,
		MaxChunkLength: MaxChunkLength,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, models.Upstream("segmenter", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var segResp segmentResponse
	if err := json.Unmarshal(respBody, &segResp); err != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if segResp.Error != nil {
		return nil, models.Upstream("segmenter", fmt.Errorf("API error: %s", segResp.Error.Message))
	}

	seg := &models.Segmentation{
		Chunks:     make([]models.Chunk, 0, len(segResp.Chunks)),
		TokenCount: segResp.NumTokens,
	}
	for i, text := range segResp.Chunks {
		chunk := models.Chunk{Text: text, Order: i}
		if i < len(segResp.ChunkTokens) {
			chunk.TokenCount = segResp.ChunkTokens[i]
		} else {
			chunk.TokenCount = c.countTokens(text)
		}
		seg.Chunks = append(seg.Chunks, chunk)
	}

	slog.Info("text segmented", "chunks", len(seg.Chunks), "tokens", seg.TokenCount)
	return seg, nil
}

// countTokens approximates a chunk's token count locally when the
// service response omits per-chunk counts.
func (c *Client) countTokens(text string) int {
	c.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("token encoder unavailable, counts omitted", "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
