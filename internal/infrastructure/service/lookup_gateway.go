// Package service adapts external clients to the interfaces the application
// layer depends on.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/domain/lookup"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/wikipedia"
)

// Encyclopedia returns a short summary for a query. wikipedia.Client
// implements it.
type Encyclopedia interface {
	Summary(ctx context.Context, query string) (string, error)
}

// WebSearch returns the snippet of the best hit. websearch.Client
// implements it.
type WebSearch interface {
	Snippet(ctx context.Context, query string) (string, error)
}

// ErrNothingFound is returned when no provider produced an answer.
var ErrNothingFound = shared.NewDomainError("lookup", "Lookup", shared.ErrNotFound, "no provider produced an answer")

// questionWords mark a query that already reads as a question.
var questionWords = []string{"what", "who", "how", "when", "where", "why"}

// LookupGatewayConfig holds the providers of the gateway. Either may be nil.
type LookupGatewayConfig struct {
	Encyclopedia Encyclopedia
	WebSearch    WebSearch

	// Enabled gates every lookup. nil means always enabled.
	Enabled func() bool

	Logger *slog.Logger
}

// LookupGateway implements lookup.Searcher: encyclopedia first, then web
// search. Provider failures are logged and reported as ErrNothingFound.
type LookupGateway struct {
	encyclopedia Encyclopedia
	webSearch    WebSearch
	enabled      func() bool
	logger       *slog.Logger
}

// NewLookupGateway creates a LookupGateway.
func NewLookupGateway(config LookupGatewayConfig) *LookupGateway {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Enabled == nil {
		config.Enabled = func() bool { return true }
	}
	return &LookupGateway{
		encyclopedia: config.Encyclopedia,
		webSearch:    config.WebSearch,
		enabled:      config.Enabled,
		logger:       config.Logger,
	}
}

// Enabled reports whether lookups are switched on.
func (g *LookupGateway) Enabled() bool {
	return g.enabled()
}

// Lookup answers query from the first provider that has something.
func (g *LookupGateway) Lookup(ctx context.Context, query string) (lookup.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" || !g.enabled() {
		return lookup.Answer{}, ErrNothingFound
	}
	q := NormalizeQuery(query)

	if text, ok := g.fromEncyclopedia(ctx, q); ok {
		return lookup.Answer{Source: lookup.SourceWikipedia, Text: text}, nil
	}
	if text, ok := g.fromWebSearch(ctx, q); ok {
		return lookup.Answer{Source: lookup.SourceGoogle, Text: text}, nil
	}
	return lookup.Answer{}, ErrNothingFound
}

func (g *LookupGateway) fromEncyclopedia(ctx context.Context, q string) (string, bool) {
	if g.encyclopedia == nil {
		return "", false
	}

	text, err := g.encyclopedia.Summary(ctx, q)
	var dis *wikipedia.DisambiguationError
	if errors.As(err, &dis) && len(dis.Options) > 0 {
		g.logger.Debug("encyclopedia disambiguation", "query", q, "choice", dis.Options[0])
		text, err = g.encyclopedia.Summary(ctx, dis.Options[0])
	}
	if err != nil {
		if !shared.IsNotFound(err) {
			g.logger.Warn("encyclopedia lookup failed", "query", q, "error", err)
		}
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

func (g *LookupGateway) fromWebSearch(ctx context.Context, q string) (string, bool) {
	if g.webSearch == nil {
		return "", false
	}

	text, err := g.webSearch.Snippet(ctx, q)
	if err != nil {
		switch {
		case shared.IsConfigurationMissing(err):
			g.logger.Info("web search skipped", "reason", "not configured")
		case !shared.IsNotFound(err):
			g.logger.Warn("web search failed", "query", q, "error", err)
		}
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// NormalizeQuery prefixes "what is " unless the query already contains a
// question word.
func NormalizeQuery(query string) string {
	lower := strings.ToLower(query)
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			return query
		}
	}
	return "what is " + query
}

var _ lookup.Searcher = (*LookupGateway)(nil)
