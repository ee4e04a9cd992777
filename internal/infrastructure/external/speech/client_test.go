package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
)

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var req recognizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		audio, _ := base64.StdEncoding.DecodeString(req.Audio.Content)

		switch string(audio) {
		case "speech":
			_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"show my marks","confidence":0.93}]}]}`))
		case "silence":
			_, _ = w.Write([]byte(`{}`))
		case "garbage":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid recognition audio"}}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "secret", RecognizeURL: srv.URL})
	ctx := context.Background()

	got, err := c.Transcribe(ctx, writeAudio(t, "speech"))
	require.NoError(t, err)
	assert.Equal(t, "show my marks", got)

	_, err = c.Transcribe(ctx, writeAudio(t, "silence"))
	assert.ErrorIs(t, err, shared.ErrUnintelligible)

	_, err = c.Transcribe(ctx, writeAudio(t, "garbage"))
	assert.ErrorIs(t, err, shared.ErrUnintelligible)

	_, err = c.Transcribe(ctx, writeAudio(t, "outage"))
	assert.True(t, shared.IsProviderUnavailable(err))
}

func TestClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello", req.Input.Text)
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)
		_ = json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("ID3")),
		})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "secret", SynthesizeURL: srv.URL})
	audio, err := c.Synthesize(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), audio)
}

func TestClient_Unconfigured(t *testing.T) {
	c := NewClient(ClientConfig{})
	_, err := c.Transcribe(context.Background(), "unused.wav")
	assert.True(t, shared.IsConfigurationMissing(err))

	_, err = c.Synthesize(context.Background(), "hi")
	assert.True(t, shared.IsConfigurationMissing(err))
}
