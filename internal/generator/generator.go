package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mlutsenko/askpage/pkg/models"
)

// promptTemplate fixes the answer shape (factual, concise, two to
// three sentences) so no per-call configuration is needed.
const promptTemplate = `You are answering a question using only the document provided below.
Be factual and concise. Answer in two to three sentences at most.
If the document does not contain the answer, say so.

Document:
{document}

Question:
{question}

Answer:`

// Config holds generator client configuration.
type Config struct {
	BaseURL string // generative-language API base URL
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client wraps the generative-language service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a new generator client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		model:      config.Model,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Answer fills the prompt template with the document and question
// and submits it to the generative model. An empty or nil document
// fails with ErrInvalidInput before any call: an unreadable
// placeholder must never reach the model.
func (c *Client) Answer(ctx context.Context, document any, question string) (string, error) {
	docText, err := serializeDocument(document)
	if err != nil {
		return "", err
	}

	slog.Info("generating answer", "model", c.model, "document_size", len(docText))

	prompt := strings.NewReplacer(
		"{document}", docText,
		"{question}", question,
	).Replace(promptTemplate)

	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			MaxOutputTokens:  1024,
			ResponseMimeType: "text/plain",
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", models.Upstream("generator", fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", models.Upstream("generator", fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", models.Upstream("generator", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.Upstream("generator", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", models.Upstream("generator", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", models.Upstream("generator", fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if genResp.Error != nil {
		return "", models.Upstream("generator", fmt.Errorf("API error: %s", genResp.Error.Message))
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", models.Upstream("generator", fmt.Errorf("no answer returned"))
	}

	return strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text), nil
}

// serializeDocument renders the retrieved document for the prompt.
// Content is embedded as-is, with no truncation at this layer.
func serializeDocument(document any) (string, error) {
	if document == nil {
		return "", fmt.Errorf("%w: document is required", models.ErrInvalidInput)
	}

	var text string
	switch v := document.(type) {
	case string:
		text = v
	case *models.Document:
		if v == nil {
			return "", fmt.Errorf("%w: document is required", models.ErrInvalidInput)
		}
		text = v.Text
	default:
		serialized, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: document is not serializable: %v", models.ErrInvalidInput, err)
		}
		text = string(serialized)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document is empty", models.ErrInvalidInput)
	}
	return text, nil
}
