package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlutsenko/askpage/pkg/models"
)

func TestEmbed_EmptyInputs(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, Model: "test-model"})

	for _, inputs := range [][]any{nil, {}} {
		result, err := client.Embed(context.Background(), inputs)
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("Embed(%v) error = %v, want ErrInvalidInput", inputs, err)
		}
		if result != nil {
			t.Errorf("Embed(%v) = %+v, want nil", inputs, result)
		}
	}

	if calls != 0 {
		t.Errorf("empty batch caused %d network calls, want 0", calls)
	}
}

func TestNormalizeInput(t *testing.T) {
	long := strings.Repeat("x", MaxInputChars+500)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"short string", "plain text", "plain text"},
		{"long string truncated", long, long[:MaxInputChars]},
		{"chunk uses its text", models.Chunk{Text: "chunk body", TokenCount: 2}, "chunk body"},
		{"long chunk truncated", models.Chunk{Text: long}, long[:MaxInputChars]},
		{"generic value serialized", struct {
			Name string `json:"name"`
		}{Name: "thing"}, `{"name":"thing"}`},
		{"number serialized", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeInput(tt.in); got != tt.want {
				t.Errorf("NormalizeInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A chunk carries its own text, so it must never fall through to
// generic serialization even though it would serialize cleanly.
func TestNormalizeInput_TextBeforeSerialization(t *testing.T) {
	chunk := models.Chunk{Text: "the text", TokenCount: 99, Order: 7}
	got := NormalizeInput(chunk)
	if got != "the text" {
		t.Errorf("NormalizeInput(chunk) = %q, want the chunk text", got)
	}
	if strings.Contains(got, "token_count") {
		t.Errorf("chunk was serialized instead of using its text: %q", got)
	}
}

func TestTruncate_Idempotent(t *testing.T) {
	long := strings.Repeat("a", 3*MaxInputChars)

	once := Truncate(long)
	if len(once) != MaxInputChars {
		t.Fatalf("len(Truncate(long)) = %d, want %d", len(once), MaxInputChars)
	}
	if once != long[:MaxInputChars] {
		t.Error("truncated form is not the exact prefix")
	}
	if twice := Truncate(once); twice != once {
		t.Error("re-applying Truncate changed an already-truncated string")
	}

	short := "short"
	if Truncate(short) != short {
		t.Error("Truncate changed a string under the cap")
	}
}

func TestEmbed_OrderPreserved(t *testing.T) {
	var gotReq embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		resp := embeddingResponse{Model: gotReq.Model}
		for i := range gotReq.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(i)}})
		}
		resp.Usage.TotalTokens = 10
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, Model: "test-model", APIKey: "emb-key"})

	inputs := []any{"zero", "one", "two", "three", "four"}
	result, err := client.Embed(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if !gotReq.Normalized {
		t.Error("request normalized = false, want true")
	}
	if gotReq.EmbeddingType != "float" {
		t.Errorf("request embedding_type = %q, want float", gotReq.EmbeddingType)
	}
	if len(gotReq.Input) != len(inputs) {
		t.Fatalf("request carried %d entries, want %d", len(gotReq.Input), len(inputs))
	}
	for i, in := range inputs {
		if gotReq.Input[i].Text != in.(string) {
			t.Errorf("request input[%d] = %q, want %q", i, gotReq.Input[i].Text, in)
		}
	}

	if len(result.Vectors) != len(inputs) {
		t.Fatalf("got %d vectors, want %d", len(result.Vectors), len(inputs))
	}
	for i, vec := range result.Vectors {
		if len(vec) != 1 || vec[0] != float32(i) {
			t.Errorf("vector[%d] = %v, want [%d] (position is the correlation key)", i, vec, i)
		}
	}
	if result.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", result.TotalTokens)
	}
}

func TestEmbed_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, Model: "test-model"})

	result, err := client.Embed(context.Background(), []any{"a", "b"})
	if !models.IsUpstream(err) {
		t.Errorf("Embed() error = %v, want UpstreamError", err)
	}
	// A batch fails as a whole; no partial results.
	if result != nil {
		t.Errorf("Embed() = %+v, want nil on error", result)
	}
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.1]}]}`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, Model: "test-model"})

	result, err := client.Embed(context.Background(), []any{"a", "b"})
	if !models.IsUpstream(err) {
		t.Errorf("Embed() error = %v, want UpstreamError on count mismatch", err)
	}
	if result != nil {
		t.Errorf("Embed() = %+v, want nil when batch is incomplete", result)
	}
}
