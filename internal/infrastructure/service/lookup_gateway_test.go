package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/lookup"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/wikipedia"
)

type fakeEncyclopedia struct {
	answers map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeEncyclopedia) Summary(_ context.Context, q string) (string, error) {
	f.calls = append(f.calls, q)
	if err, ok := f.errs[q]; ok {
		return "", err
	}
	if a, ok := f.answers[q]; ok {
		return a, nil
	}
	return "", wikipedia.ErrPageNotFound
}

type fakeWeb struct {
	snippet string
	err     error
	calls   []string
}

func (f *fakeWeb) Snippet(_ context.Context, q string) (string, error) {
	f.calls = append(f.calls, q)
	return f.snippet, f.err
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "what is photosynthesis", NormalizeQuery("photosynthesis"))
	assert.Equal(t, "who is Ada Lovelace", NormalizeQuery("who is Ada Lovelace"))
	assert.Equal(t, "How do magnets work", NormalizeQuery("How do magnets work"))
}

func TestLookupGateway_EncyclopediaFirst(t *testing.T) {
	enc := &fakeEncyclopedia{answers: map[string]string{"what is go": "Go is a language."}}
	web := &fakeWeb{snippet: "unused"}
	g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: enc, WebSearch: web})

	a, err := g.Lookup(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, lookup.Answer{Source: lookup.SourceWikipedia, Text: "Go is a language."}, a)
	assert.Empty(t, web.calls)
}

func TestLookupGateway_DisambiguationRetriesOnce(t *testing.T) {
	enc := &fakeEncyclopedia{
		answers: map[string]string{"Mercury (planet)": "Mercury is the smallest planet."},
		errs: map[string]error{
			"what is mercury": &wikipedia.DisambiguationError{Title: "Mercury", Options: []string{"Mercury (planet)", "Mercury (element)"}},
		},
	}
	g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: enc})

	a, err := g.Lookup(context.Background(), "mercury")
	require.NoError(t, err)
	assert.Equal(t, "Mercury is the smallest planet.", a.Text)
	assert.Equal(t, []string{"what is mercury", "Mercury (planet)"}, enc.calls)
}

func TestLookupGateway_FallsBackToWebSearch(t *testing.T) {
	enc := &fakeEncyclopedia{errs: map[string]error{
		"what is raizel": shared.WrapError("wikipedia", "Request", shared.ErrServiceUnavailable, "down", nil),
	}}
	web := &fakeWeb{snippet: "Raizel is an assistant."}
	g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: enc, WebSearch: web})

	a, err := g.Lookup(context.Background(), "raizel")
	require.NoError(t, err)
	assert.Equal(t, lookup.SourceGoogle, a.Source)
	assert.Equal(t, []string{"what is raizel"}, web.calls)
}

func TestLookupGateway_PageNotFoundFallsThrough(t *testing.T) {
	enc := &fakeEncyclopedia{errs: map[string]error{"what is raizel": wikipedia.ErrPageNotFound}}
	web := &fakeWeb{snippet: "Raizel answers questions about academic records."}
	g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: enc, WebSearch: web})

	a, err := g.Lookup(context.Background(), "raizel")
	require.NoError(t, err)
	assert.Equal(t, lookup.Answer{Source: lookup.SourceGoogle, Text: "Raizel answers questions about academic records."}, a)
	assert.Equal(t, []string{"what is raizel"}, enc.calls)
	assert.Equal(t, []string{"what is raizel"}, web.calls)
}

func TestLookupGateway_NothingFound(t *testing.T) {
	cases := []struct {
		name string
		web  *fakeWeb
	}{
		{"unconfigured", &fakeWeb{err: shared.ErrSearchUnconfigured}},
		{"provider down", &fakeWeb{err: errors.New("timeout")}},
		{"empty snippet", &fakeWeb{snippet: "  "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: &fakeEncyclopedia{}, WebSearch: tc.web})
			_, err := g.Lookup(context.Background(), "xyzzy")
			assert.True(t, shared.IsNotFound(err))
			assert.Equal(t, []string{"what is xyzzy"}, tc.web.calls)
		})
	}
}

func TestLookupGateway_Disabled(t *testing.T) {
	enc := &fakeEncyclopedia{answers: map[string]string{"what is go": "Go."}}
	g := NewLookupGateway(LookupGatewayConfig{Encyclopedia: enc, Enabled: func() bool { return false }})

	_, err := g.Lookup(context.Background(), "go")
	assert.ErrorIs(t, err, ErrNothingFound)
	assert.False(t, g.Enabled())
	assert.Empty(t, enc.calls)
}
