package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mlutsenko/askpage/pkg/models"
	"golang.org/x/net/html"
)

// Config holds reader client configuration.
type Config struct {
	Endpoint string // content-extraction proxy base URL
	APIKey   string
	Timeout  time.Duration
}

// Client fetches page content through a content-extraction proxy
// and normalizes it to plain text.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a new reader client.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Fetch retrieves the content behind rawURL and returns it as a
// normalized Document. URLs without an http(s) scheme fail with
// ErrInvalidInput before any network call.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*models.Document, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("%w: url must start with http:// or https://, got %q", models.ErrInvalidInput, rawURL)
	}

	slog.Info("fetching content", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+rawURL, nil)
	if err != nil {
		return nil, models.Upstream("reader", fmt.Errorf("failed to create request: %w", err))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.Upstream("reader", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.Upstream("reader", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, models.Upstream("reader", fmt.Errorf("proxy returned status %d: %s", resp.StatusCode, string(body)))
	}

	doc := &models.Document{
		SourceURL: rawURL,
		FetchedAt: time.Now(),
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		// Parse first so the normalized text carries the structured
		// value, not the raw bytes as received.
		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, models.Upstream("reader", fmt.Errorf("failed to parse JSON response: %w", err))
		}
		rendered, err := json.Marshal(parsed)
		if err != nil {
			return nil, models.Upstream("reader", fmt.Errorf("failed to render JSON content: %w", err))
		}
		doc.ContentType = models.ContentJSON
		doc.Text = string(rendered)

	case "text/html":
		text, err := extractBodyText(body)
		if err != nil {
			return nil, models.Upstream("reader", fmt.Errorf("failed to parse HTML response: %w", err))
		}
		doc.ContentType = models.ContentHTML
		doc.Title = extractTitle(string(body))
		doc.Text = text

	default:
		doc.ContentType = models.ContentText
		doc.Text = string(body)
	}

	slog.Info("content fetched", "url", rawURL, "content_type", doc.ContentType, "size", len(doc.Text))
	return doc, nil
}

// extractBodyText returns only the body's text content, with
// scripts, styles, and markup discarded.
func extractBodyText(htmlContent []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(htmlContent)))
	if err != nil {
		return "", err
	}

	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()

	return normalizeWhitespace(body.Text()), nil
}

// normalizeWhitespace trims every line and collapses runs of blank
// lines left behind by removed markup.
func normalizeWhitespace(text string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// extractTitle extracts the <title> content from HTML.
func extractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}
