// Package lookup defines the result of an external knowledge lookup.
package lookup

import "context"

// Source names the provider that produced an answer.
type Source string

const (
	SourceWikipedia Source = "Wikipedia"
	SourceGoogle    Source = "Google"
)

// Answer is a short text found by an external provider.
type Answer struct {
	Source Source
	Text   string
}

// Searcher finds a short answer for a free-text query.
// Returns shared.ErrNotFound when no provider produced a result.
type Searcher interface {
	Lookup(ctx context.Context, query string) (Answer, error)
}
