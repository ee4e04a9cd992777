package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
)

func TestClient_Snippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx1", q.Get("cx"))
		assert.Equal(t, "3", q.Get("num"))

		switch q.Get("q") {
		case "what is raizel":
			_, _ = w.Write([]byte(`{"items":[{"title":"A","snippet":" first snippet "},{"title":"B","snippet":"second"}]}`))
		case "quota":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded"}}`))
		default:
			_, _ = w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k", EngineID: "cx1"})
	ctx := context.Background()

	got, err := c.Snippet(ctx, "what is raizel")
	require.NoError(t, err)
	assert.Equal(t, "first snippet", got)

	_, err = c.Snippet(ctx, "nothing")
	assert.ErrorIs(t, err, ErrNoResults)
	assert.True(t, shared.IsNotFound(err))

	_, err = c.Snippet(ctx, "quota")
	assert.True(t, shared.IsProviderUnavailable(err))
}

func TestClient_Unconfigured(t *testing.T) {
	c := NewClient(ClientConfig{APIKey: "k"})
	assert.False(t, c.Configured())

	_, err := c.Search(context.Background(), "anything")
	assert.True(t, shared.IsConfigurationMissing(err))
}
