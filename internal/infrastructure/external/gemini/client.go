// Package gemini answers free-form questions with a Gemini model through
// google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/pkg/circuitbreaker"
)

// ClientConfig contains configuration for the Gemini client.
type ClientConfig struct {
	APIKey string

	// Model defaults to gemini-1.5-pro-latest.
	Model string

	// Timeout bounds a single generation.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultClientConfig returns defaults without credentials.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Model:   "gemini-1.5-pro-latest",
		Timeout: 30 * time.Second,
	}
}

// DefaultSummaryLength is used when Summarize gets a non-positive length.
const DefaultSummaryLength = 150

// models is the part of *genai.Models the client uses.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps a genai client. A Client built without an API key is valid
// and answers every call with shared.ErrGenerativeUnconfigured.
type Client struct {
	config  ClientConfig
	models  models
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates the genai client when an API key is configured.
func NewClient(ctx context.Context, config ClientConfig) (*Client, error) {
	c := newClient(config, nil)
	if config.APIKey == "" {
		c.logger.Warn("generative AI disabled: no API key")
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

func newClient(config ClientConfig, m models) *Client {
	defaults := DefaultClientConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		config: config,
		models: m,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "gemini",
			FailureThreshold: 3,
			Logger:           config.Logger,
		}),
		logger: config.Logger,
	}
}

// Configured reports whether calls can reach the model.
func (c *Client) Configured() bool {
	return c.models != nil
}

// Ask answers query using the serialised student records as context.
func (c *Client) Ask(ctx context.Context, query, studentContext string) (string, error) {
	return c.generate(ctx, "Ask", AnswerPrompt(query, studentContext))
}

// Summarize shortens text to roughly maxLen characters.
func (c *Client) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}
	return c.generate(ctx, "Summarize", SummaryPrompt(text, maxLen))
}

func (c *Client) generate(ctx context.Context, op, prompt string) (string, error) {
	if !c.Configured() {
		return "", shared.ErrGenerativeUnconfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := c.models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), nil)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	if err != nil {
		c.logger.Warn("generation failed", "op", op, "model", c.config.Model, "error", err)
		return "", shared.WrapError("generative", op, shared.ErrServiceUnavailable, "generation failed", err)
	}
	if text == "" {
		return "", shared.WrapError("generative", op, shared.ErrServiceUnavailable, "empty response", nil)
	}
	return text, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMPTS
// ══════════════════════════════════════════════════════════════════════════════

// AnswerPrompt builds the persona prompt around a question.
func AnswerPrompt(query, studentContext string) string {
	var sb strings.Builder
	sb.WriteString("You are Raizel, an AI academic assistant.\n")
	sb.WriteString("Use the following context to provide accurate and helpful responses:\n\n")
	if strings.TrimSpace(studentContext) != "" {
		sb.WriteString(studentContext)
		if !strings.HasSuffix(studentContext, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Answer the question based on the context if it's about academic information.\n")
	sb.WriteString("If the question is about general knowledge, use your own knowledge.\n")
	sb.WriteString("Always be helpful, concise, and accurate.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

// SummaryPrompt asks for a summary bounded in characters.
func SummaryPrompt(text string, maxLen int) string {
	return fmt.Sprintf("Please summarize the following text in %d characters or less:\n\n%s", maxLen, text)
}
