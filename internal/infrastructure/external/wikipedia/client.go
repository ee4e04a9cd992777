// Package wikipedia is a small client for the English Wikipedia APIs.
// Summary resolves a free-text query to a page and returns the first
// sentences of its lead section.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Wikipedia client.
type ClientConfig struct {
	// BaseURL is the wiki root, e.g. https://en.wikipedia.org.
	BaseURL string

	// Sentences is how many sentences of the extract to keep.
	Sentences int

	// UserAgent is sent with every request, as the API etiquette requires.
	UserAgent string

	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultClientConfig returns defaults for English Wikipedia.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:   "https://en.wikipedia.org",
		Sentences: 2,
		UserAgent: "raizel-academic-assistant/1.0",
		Timeout:   10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrPageNotFound is returned when no page matches the query.
var ErrPageNotFound = shared.NewDomainError("wikipedia", "Summary", shared.ErrNotFound, "page not found")

// DisambiguationError is returned when the query resolves to a
// disambiguation page. Options lists the candidate titles in page order.
type DisambiguationError struct {
	Title   string
	Options []string
}

func (e *DisambiguationError) Error() string {
	return fmt.Sprintf("%q may refer to %d pages", e.Title, len(e.Options))
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the MediaWiki action API and the REST summary endpoint.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new Wikipedia client.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Sentences <= 0 {
		config.Sentences = defaults.Sentences
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      "wikipedia",
			IsFailure: isProviderFailure,
			Logger:    config.Logger,
		}),
		logger: config.Logger,
	}
}

// Summary returns the first sentences of the page best matching query.
// It returns ErrPageNotFound when nothing matches and *DisambiguationError
// when the best match is a disambiguation page.
func (c *Client) Summary(ctx context.Context, query string) (string, error) {
	var extract string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		title, err := c.searchTitle(ctx, query)
		if err != nil {
			return err
		}
		extract, err = c.pageSummary(ctx, title)
		return err
	})
	if err != nil {
		return "", err
	}
	return FirstSentences(extract, c.config.Sentences), nil
}

// Name identifies the client in logs and health reports.
func (c *Client) Name() string {
	return "wikipedia"
}

// ─────────────────────────────────────────────────────────────────────────────
// API calls
// ─────────────────────────────────────────────────────────────────────────────

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

func (c *Client) searchTitle(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	var resp searchResponse
	if err := c.getJSON(ctx, "/w/api.php?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Search) == 0 {
		return "", ErrPageNotFound
	}
	return resp.Query.Search[0].Title, nil
}

type summaryResponse struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

func (c *Client) pageSummary(ctx context.Context, title string) (string, error) {
	path := "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var resp summaryResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", err
	}

	if resp.Type == "disambiguation" {
		options, err := c.links(ctx, title)
		if err != nil {
			return "", err
		}
		return "", &DisambiguationError{Title: title, Options: options}
	}
	if strings.TrimSpace(resp.Extract) == "" {
		return "", ErrPageNotFound
	}
	return resp.Extract, nil
}

type linksResponse struct {
	Query struct {
		Pages map[string]struct {
			Links []struct {
				NS    int    `json:"ns"`
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *Client) links(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "links")
	params.Set("titles", title)
	params.Set("plnamespace", "0")
	params.Set("pllimit", "50")
	params.Set("format", "json")

	var resp linksResponse
	if err := c.getJSON(ctx, "/w/api.php?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	var options []string
	for _, page := range resp.Query.Pages {
		for _, l := range page.Links {
			if l.NS == 0 {
				options = append(options, l.Title)
			}
		}
	}
	return options, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("wikipedia", "Request", shared.ErrServiceUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return shared.WrapError("wikipedia", "Request", shared.ErrServiceUnavailable, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrPageNotFound
	case resp.StatusCode >= 400:
		c.logger.Warn("wikipedia api error", "status", resp.StatusCode, "path", path)
		return shared.WrapError("wikipedia", "Request", shared.ErrServiceUnavailable,
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return shared.WrapError("wikipedia", "Request", shared.ErrServiceUnavailable, "unmarshal response", err)
	}
	return nil
}

// isProviderFailure keeps "no such page" answers from tripping the breaker.
func isProviderFailure(err error) bool {
	var dis *DisambiguationError
	return !errors.As(err, &dis) && !shared.IsNotFound(err)
}

// ══════════════════════════════════════════════════════════════════════════════
// TEXT HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// FirstSentences returns the first n sentences of text. A sentence ends at
// '.', '!' or '?' followed by whitespace or the end of the text.
func FirstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 {
		return text
	}

	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				count++
				if count == n {
					return text[:i+1]
				}
			}
		}
	}
	return text
}
