package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mlutsenko/askpage/pkg/models"
)

// MaxInputChars caps each embedding input. Longer inputs are
// truncated, which is lossy and intentional (cost and latency
// bound of the embedding call).
const MaxInputChars = 1000

// Config holds embedder client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client wraps the embedding service.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a new embedder client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
		model:      config.Model,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// embeddingInput is one entry of the request batch.
type embeddingInput struct {
	Text string `json:"text"`
}

// embeddingRequest is the request payload for the embeddings API.
type embeddingRequest struct {
	Model         string           `json:"model"`
	Normalized    bool             `json:"normalized"`
	EmbeddingType string           `json:"embedding_type"`
	Input         []embeddingInput `json:"input"`
}

// embeddingResponse is the response from the embeddings API.
type embeddingResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed converts a batch of inputs into vectors, one per input and
// order-aligned with it. An empty batch fails with ErrInvalidInput
// before any network call. A batch either fully succeeds or fails
// as a whole; no partial results are returned.
func (c *Client) Embed(ctx context.Context, inputs []any) (*models.EmbeddingResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no inputs to embed", models.ErrInvalidInput)
	}

	slog.Info("generating embeddings", "inputs", len(inputs), "model", c.model)

	req := embeddingRequest{
		Model:         c.model,
		Normalized:    true,
		EmbeddingType: "float",
		Input:         make([]embeddingInput, len(inputs)),
	}
	for i, in := range inputs {
		req.Input[i] = embeddingInput{Text: NormalizeInput(in)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, models.Upstream("embedder", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if embResp.Error != nil {
		return nil, models.Upstream("embedder", fmt.Errorf("API error: %s", embResp.Error.Message))
	}

	if len(embResp.Data) != len(inputs) {
		return nil, models.Upstream("embedder", fmt.Errorf("expected %d vectors, got %d", len(inputs), len(embResp.Data)))
	}

	result := &models.EmbeddingResult{
		Vectors:     make([][]float32, len(embResp.Data)),
		Model:       embResp.Model,
		TotalTokens: embResp.Usage.TotalTokens,
	}
	for i, d := range embResp.Data {
		result.Vectors[i] = d.Embedding
	}

	slog.Info("embeddings generated", "vectors", len(result.Vectors), "tokens", result.TotalTokens)
	return result, nil
}

// NormalizeInput coerces one batch element to a plain string of at
// most MaxInputChars. The check order is significant: strings are
// truncated directly, values carrying their own text use that text,
// and only values with neither fall through to generic
// serialization.
func NormalizeInput(in any) string {
	switch v := in.(type) {
	case string:
		return Truncate(v)
	case models.TextSource:
		return Truncate(v.EmbeddingText())
	default:
		serialized, err := json.Marshal(v)
		if err != nil {
			return Truncate(fmt.Sprintf("%v", v))
		}
		return Truncate(string(serialized))
	}
}

// Truncate caps text at MaxInputChars. Applying it to an already
// truncated string is a no-op.
func Truncate(text string) string {
	if len(text) > MaxInputChars {
		return text[:MaxInputChars]
	}
	return text
}
