// Package speech calls the Google Cloud Speech-to-Text and Text-to-Speech
// REST APIs with an API key.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the speech client.
type ClientConfig struct {
	APIKey string

	// RecognizeURL and SynthesizeURL default to the public v1 endpoints.
	RecognizeURL  string
	SynthesizeURL string

	// LanguageCode is used for both recognition and synthesis.
	LanguageCode string

	// VoiceName optionally pins a TTS voice, e.g. en-US-Neural2-F.
	VoiceName string

	// MaxAudioBytes rejects larger recordings before upload.
	MaxAudioBytes int64

	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultClientConfig returns defaults for US English.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RecognizeURL:  "https://speech.googleapis.com/v1/speech:recognize",
		SynthesizeURL: "https://texttospeech.googleapis.com/v1/text:synthesize",
		LanguageCode:  "en-US",
		MaxAudioBytes: 10 << 20,
		Timeout:       15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements command.Transcriber and command.Synthesizer.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new speech client.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.RecognizeURL == "" {
		config.RecognizeURL = defaults.RecognizeURL
	}
	if config.SynthesizeURL == "" {
		config.SynthesizeURL = defaults.SynthesizeURL
	}
	if config.LanguageCode == "" {
		config.LanguageCode = defaults.LanguageCode
	}
	if config.MaxAudioBytes <= 0 {
		config.MaxAudioBytes = defaults.MaxAudioBytes
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
			Name: "speech",
			IsFailure: func(err error) bool {
				return shared.IsProviderUnavailable(err)
			},
			Logger: config.Logger,
		}),
		logger: config.Logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech-to-Text
// ─────────────────────────────────────────────────────────────────────────────

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends the recording at audioPath for recognition and returns
// the best transcript. No speech in the recording yields
// shared.ErrAudioUnintelligible.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !c.Configured() {
		return "", shared.ErrSpeechUnconfigured
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("stat audio: %w", err)
	}
	if info.Size() > c.config.MaxAudioBytes {
		return "", shared.WrapError("speech", "Transcribe", shared.ErrMalformedInput, "recording too large", nil)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	body := recognizeRequest{
		Config: recognitionConfig{LanguageCode: c.config.LanguageCode, EnableAutomaticPunctuation: true},
		Audio:  recognitionAudio{Content: base64.StdEncoding.EncodeToString(audio)},
	}

	var resp recognizeResponse
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, "Transcribe", c.config.RecognizeURL, body, &resp)
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 {
			if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if len(parts) == 0 {
		return "", shared.ErrAudioUnintelligible
	}
	return strings.Join(parts, " "), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Text-to-Speech
// ─────────────────────────────────────────────────────────────────────────────

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize returns MP3 audio for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Configured() {
		return nil, shared.ErrSpeechUnconfigured
	}

	var body synthesizeRequest
	body.Input.Text = text
	body.Voice.LanguageCode = c.config.LanguageCode
	body.Voice.Name = c.config.VoiceName
	body.AudioConfig.AudioEncoding = "MP3"

	var resp synthesizeResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, "Synthesize", c.config.SynthesizeURL, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil || len(audio) == 0 {
		return nil, shared.WrapError("speech", "Synthesize", shared.ErrServiceUnavailable, "invalid audio content", err)
	}
	return audio, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, op, endpoint string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.config.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.WrapError("speech", op, shared.ErrServiceUnavailable, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return shared.WrapError("speech", op, shared.ErrServiceUnavailable, "read response", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		c.logger.Warn("speech api error", "op", op, "status", resp.StatusCode, "message", msg)
		// A 400 means Google rejected the recording itself.
		if resp.StatusCode == http.StatusBadRequest && op == "Transcribe" {
			return shared.WrapError("speech", op, shared.ErrUnintelligible, msg, nil)
		}
		return shared.WrapError("speech", op, shared.ErrServiceUnavailable, msg, nil)
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return shared.WrapError("speech", op, shared.ErrServiceUnavailable, "unmarshal response", err)
	}
	return nil
}
