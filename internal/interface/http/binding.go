package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BINDING
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message" validate:"max=4000"`
}

// ChatResponse is the body of a successful POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
	Intent   string `json:"intent"`
}

// VoiceRequest is the body of POST /api/voice. Audio is base64, optionally
// as a data URL. Text may replace Audio when the client transcribed itself.
type VoiceRequest struct {
	Audio string `json:"audio"`
	Text  string `json:"text" validate:"max=4000"`
}

// VoiceResponse is the body of a successful POST /api/voice.
type VoiceResponse struct {
	Response   string `json:"response"`
	Intent     string `json:"intent"`
	Transcript string `json:"transcript"`
	Audio      string `json:"audio,omitempty"`
}

// AskRequest is the body of POST /api/ai/ask.
type AskRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
}

// SummarizeRequest is the body of POST /api/ai/summarize.
type SummarizeRequest struct {
	Text      string `json:"text" validate:"required"`
	MaxLength int    `json:"max_length" validate:"omitempty,min=20,max=5000"`
}

// GeneratedResponse is the body of a successful /api/ai call.
type GeneratedResponse struct {
	Response string `json:"response"`
}

// LoginResponse is the body of a successful JSON login.
type LoginResponse struct {
	RegistrationNumber string `json:"registration_number"`
	Token              string `json:"token"`
	ExpiresAt          string `json:"expires_at"`
}

// isJSON reports whether the request body is JSON.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON decodes and validates a JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return validateStruct(dst)
}

// validateStruct returns the first validation failure as a readable error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "max":
		return fmt.Errorf("%s is too long", field)
	case "min":
		return fmt.Errorf("%s is too short", field)
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}
