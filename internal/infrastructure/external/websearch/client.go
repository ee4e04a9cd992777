// Package websearch queries the Google Custom Search JSON API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/pkg/circuitbreaker"
)

// ClientConfig contains configuration for the search client.
type ClientConfig struct {
	// BaseURL defaults to https://www.googleapis.com/customsearch/v1.
	BaseURL string

	// APIKey and EngineID (cx) are both required.
	APIKey   string
	EngineID string

	// Results is the num parameter of the request.
	Results int

	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultClientConfig returns defaults for the public endpoint.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: "https://www.googleapis.com/customsearch/v1",
		Results: 3,
		Timeout: 10 * time.Second,
	}
}

// ErrNoResults is returned when the search succeeded with zero items.
var ErrNoResults = shared.NewDomainError("websearch", "Search", shared.ErrNotFound, "no results")

// Item is one search hit.
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client is the Custom Search client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new search client. A client without credentials is
// valid and answers every call with shared.ErrSearchUnconfigured.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Results <= 0 {
		config.Results = defaults.Results
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name: "websearch",
			IsFailure: func(err error) bool {
				return !shared.IsNotFound(err) && !shared.IsConfigurationMissing(err)
			},
			Logger: config.Logger,
		}),
		logger: config.Logger,
	}
}

// Configured reports whether both the key and the engine id are set.
func (c *Client) Configured() bool {
	return c.config.APIKey != "" && c.config.EngineID != ""
}

// Search returns up to Results hits for query.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	if !c.Configured() {
		return nil, shared.ErrSearchUnconfigured
	}

	var items []Item
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		items, err = c.search(ctx, query)
		return err
	})
	return items, err
}

// Snippet returns the snippet of the first hit.
func (c *Client) Snippet(ctx context.Context, query string) (string, error) {
	items, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	snippet := strings.TrimSpace(items[0].Snippet)
	if snippet == "" {
		return "", ErrNoResults
	}
	return snippet, nil
}

type searchResponse struct {
	Items []Item `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) search(ctx context.Context, query string) ([]Item, error) {
	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(c.config.Results))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.WrapError("websearch", "Search", shared.ErrServiceUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, shared.WrapError("websearch", "Search", shared.ErrServiceUnavailable, "read response", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, shared.WrapError("websearch", "Search", shared.ErrServiceUnavailable,
			fmt.Sprintf("unmarshal response (status %d)", resp.StatusCode), err)
	}

	if resp.StatusCode >= 400 || parsed.Error != nil {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		c.logger.Warn("custom search api error", "status", resp.StatusCode, "message", msg)
		return nil, shared.WrapError("websearch", "Search", shared.ErrServiceUnavailable, msg, nil)
	}

	if len(parsed.Items) == 0 {
		return nil, ErrNoResults
	}
	return parsed.Items, nil
}
