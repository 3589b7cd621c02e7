package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlutsenko/askpage/pkg/models"
)

func TestFetch_InvalidScheme(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "example.com/article"},
		{"ftp scheme", "ftp://example.com/file"},
		{"relative path", "/articles/1"},
		{"scheme-ish prefix", "httpx://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := client.Fetch(context.Background(), tt.url)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("Fetch(%q) error = %v, want ErrInvalidInput", tt.url, err)
			}
			if doc != nil {
				t.Errorf("Fetch(%q) = %+v, want nil", tt.url, doc)
			}
		})
	}

	if calls != 0 {
		t.Errorf("invalid URLs caused %d network calls, want 0", calls)
	}
}

func TestFetch_HTML(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
	<title>Test Article</title>
	<script>var tracked = true;</script>
	<style>body { color: red; }</style>
</head>
<body><p>Hello world</p></body>
</html>`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL, APIKey: "test-key"})

	doc, err := client.Fetch(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotPath != "/https://example.com/article" {
		t.Errorf("proxy path = %q, want /https://example.com/article", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if doc.ContentType != models.ContentHTML {
		t.Errorf("ContentType = %q, want %q", doc.ContentType, models.ContentHTML)
	}
	if doc.Text != "Hello world" {
		t.Errorf("Text = %q, want %q", doc.Text, "Hello world")
	}
	if doc.Title != "Test Article" {
		t.Errorf("Title = %q, want %q", doc.Title, "Test Article")
	}
	if doc.SourceURL != "https://example.com/article" {
		t.Errorf("SourceURL = %q", doc.SourceURL)
	}
}

func TestFetch_HTMLDiscardsScripts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<script>console.log("noise");</script>
			<p>Visible text</p>
			<noscript>fallback noise</noscript>
		</body></html>`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	doc, err := client.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if strings.Contains(doc.Text, "noise") {
		t.Errorf("Text contains script content: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Visible text") {
		t.Errorf("Text missing body content: %q", doc.Text)
	}
}

func TestFetch_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title":  "Parsed",
			"count":  3
		}`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	doc, err := client.Fetch(context.Background(), "https://example.com/data")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.ContentType != models.ContentJSON {
		t.Errorf("ContentType = %q, want %q", doc.ContentType, models.ContentJSON)
	}
	// Parsed then re-rendered: whitespace from the wire is gone.
	if doc.Text != `{"count":3,"title":"Parsed"}` {
		t.Errorf("Text = %q, want compact rendering", doc.Text)
	}
}

func TestFetch_JSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	_, err := client.Fetch(context.Background(), "https://example.com/data")
	if !models.IsUpstream(err) {
		t.Errorf("Fetch() error = %v, want UpstreamError", err)
	}
}

func TestFetch_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("<p>kept verbatim</p>"))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	doc, err := client.Fetch(context.Background(), "https://example.com/raw")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.ContentType != models.ContentText {
		t.Errorf("ContentType = %q, want %q", doc.ContentType, models.ContentText)
	}
	// Unrecognized types are never routed through the HTML branch.
	if doc.Text != "<p>kept verbatim</p>" {
		t.Errorf("Text = %q, want raw body", doc.Text)
	}
}

func TestFetch_ProxyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := New(Config{Endpoint: server.URL})

	doc, err := client.Fetch(context.Background(), "https://example.com")
	if !models.IsUpstream(err) {
		t.Errorf("Fetch() error = %v, want UpstreamError", err)
	}
	if doc != nil {
		t.Errorf("Fetch() = %+v, want nil on error", doc)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "Hello world", "Hello world"},
		{"surrounding blanks", "\n\n  Hello world  \n\n", "Hello world"},
		{"collapses blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"trims each line", "  a  \n  b  ", "a\nb"},
		{"empty", "\n \n\t\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeWhitespace(tt.in); got != tt.want {
				t.Errorf("normalizeWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
