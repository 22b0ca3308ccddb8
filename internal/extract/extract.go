// Package extract turns a web page into readable text for link ingestion.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	// ErrUnreadable indicates no usable text could be extracted from the page.
	ErrUnreadable = errors.New("page has no readable content")

	// ErrTooLarge indicates the page body exceeds the fetch size limit.
	ErrTooLarge = errors.New("page exceeds size limit")
)

// urlValidator is the subset of the SSRF guard the extractor needs.
type urlValidator interface {
	Validate(rawURL string) error
}

// Page is the extracted readable content of a fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Extractor fetches URLs and extracts their readable text.
type Extractor struct {
	validator urlValidator
	client    *http.Client
	maxBytes  int64
	logger    *slog.Logger
}

// New creates an Extractor. The client should come from the SSRF guard's
// SafeClient so redirects and DNS rebinding are checked at dial time.
func New(validator urlValidator, client *http.Client, maxBytes int64, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		validator: validator,
		client:    client,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Extract fetches the URL and returns its readable text.
// Readability extraction runs first; pages it cannot parse fall back to the
// stripped body text.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Page, error) {
	if err := e.validator.Validate(rawURL); err != nil {
		return nil, fmt.Errorf("unsafe URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && mediaType != "text/html" && mediaType != "application/xhtml+xml" && mediaType != "text/plain" {
			return nil, fmt.Errorf("%w: unsupported content type %s", ErrUnreadable, mediaType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(body)) == e.maxBytes {
		// One more byte means the body was truncated.
		extra := make([]byte, 1)
		if n, _ := resp.Body.Read(extra); n > 0 {
			return nil, fmt.Errorf("%w: larger than %d bytes", ErrTooLarge, e.maxBytes)
		}
	}

	page, err := e.parse(body, resp.Request.URL)
	if err != nil {
		return nil, err
	}
	page.URL = rawURL

	e.logger.Debug("extracted page",
		"url", rawURL, "title", page.Title, "text_length", len(page.Text))
	return page, nil
}

// parse extracts readable text, preferring the readability algorithm and
// falling back to stripped body text.
func (e *Extractor) parse(body []byte, pageURL *url.URL) (*Page, error) {
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil {
		title := strings.TrimSpace(article.Title)
		text := normalize(article.TextContent)
		if text != "" {
			return &Page{Title: title, Text: text}, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	doc.Find("script, style, noscript").Remove()

	// Only body text counts as content; head text (title, meta) must not
	// masquerade as extracted knowledge.
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalize(doc.Find("body").Text())
	if text == "" {
		return nil, ErrUnreadable
	}
	return &Page{Title: title, Text: text}, nil
}

// normalize collapses runs of whitespace so extracted text embeds cleanly.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
