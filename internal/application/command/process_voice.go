// Package command contains operations with side effects.
package command

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS VOICE COMMAND
// Decodes an uploaded recording, transcribes it and answers the transcript as
// if it had been typed. The recording only lives in a temporary file for the
// duration of the call.
// ══════════════════════════════════════════════════════════════════════════════

// User-facing sentences of the voice channel.
const (
	UnintelligibleReply     = "I couldn't understand what you said. Please try again."
	SpeechUnavailableReply  = "There was an error with the speech recognition service. Please try again."
	SpeechUnconfiguredReply = "Voice input is not available right now."
)

// Transcriber converts a recorded audio file into text.
// Returns shared.ErrUnintelligible or shared.ErrServiceUnavailable kinds.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Synthesizer converts text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Responder answers a typed utterance.
type Responder interface {
	Reply(ctx context.Context, req assistant.Request) assistant.Reply
}

// ProcessVoiceCommand contains one voice message.
type ProcessVoiceCommand struct {
	RegistrationNumber student.RegistrationNumber

	// Audio is base64, optionally as a data URL ("data:audio/wav;base64,...").
	Audio string

	// Text bypasses transcription when the client already has a transcript.
	Text string
}

// ProcessVoiceResult is the answer to a voice message.
type ProcessVoiceResult struct {
	Transcript string
	Reply      assistant.Reply

	// Audio is the base64 spoken reply, empty when synthesis is off or failed.
	Audio string
}

// ProcessVoiceConfig holds configuration for the handler.
type ProcessVoiceConfig struct {
	Transcriber Transcriber
	Synthesizer Synthesizer
	Responder   Responder

	// SpokenReplies gates synthesis per student. Nil enables it whenever
	// Synthesizer is set.
	SpokenReplies func(student.RegistrationNumber) bool

	// TempDir is where recordings are written. Empty uses os.TempDir().
	TempDir string

	Logger *slog.Logger
}

// ProcessVoiceHandler handles ProcessVoiceCommand.
type ProcessVoiceHandler struct {
	transcriber Transcriber
	synthesizer Synthesizer
	responder   Responder
	spoken      func(student.RegistrationNumber) bool
	tempDir     string
	logger      *slog.Logger
}

// NewProcessVoiceHandler creates a new handler.
func NewProcessVoiceHandler(config ProcessVoiceConfig) *ProcessVoiceHandler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ProcessVoiceHandler{
		transcriber: config.Transcriber,
		synthesizer: config.Synthesizer,
		responder:   config.Responder,
		spoken:      config.SpokenReplies,
		tempDir:     config.TempDir,
		logger:      config.Logger,
	}
}

// Handle processes one voice message.
func (h *ProcessVoiceHandler) Handle(ctx context.Context, cmd ProcessVoiceCommand) (*ProcessVoiceResult, error) {
	transcript := strings.TrimSpace(cmd.Text)
	if transcript == "" {
		audio, err := DecodeAudio(cmd.Audio)
		if err != nil {
			return nil, err
		}

		transcript, err = h.transcribe(ctx, audio)
		if err != nil {
			return nil, err
		}
	}

	result := &ProcessVoiceResult{
		Transcript: transcript,
		Reply: h.responder.Reply(ctx, assistant.Request{
			RegistrationNumber: cmd.RegistrationNumber,
			Text:               transcript,
		}),
	}

	if h.spokenReplies(cmd.RegistrationNumber) {
		speech, err := h.synthesizer.Synthesize(ctx, result.Reply.Text)
		if err != nil {
			h.logger.Warn("spoken reply failed", "error", err)
		} else {
			result.Audio = base64.StdEncoding.EncodeToString(speech)
		}
	}

	return result, nil
}

func (h *ProcessVoiceHandler) transcribe(ctx context.Context, audio []byte) (string, error) {
	if h.transcriber == nil {
		return "", shared.ErrSpeechUnconfigured
	}

	f, err := os.CreateTemp(h.tempDir, "voice-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp audio: %w", err)
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			h.logger.Warn("failed to remove temp audio", "path", path, "error", rmErr)
		}
	}()

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp audio: %w", err)
	}

	text, err := h.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", shared.ErrAudioUnintelligible
	}
	h.logger.Debug("audio transcribed", "chars", len(text))
	return text, nil
}

func (h *ProcessVoiceHandler) spokenReplies(reg student.RegistrationNumber) bool {
	if h.synthesizer == nil {
		return false
	}
	return h.spoken == nil || h.spoken(reg)
}

// DecodeAudio decodes a base64 payload, accepting a data URL prefix.
func DecodeAudio(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, shared.ErrAudioMissing
	}
	if strings.HasPrefix(payload, "data:") {
		_, data, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, shared.ErrAudioMalformed
		}
		payload = data
	}

	audio, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, shared.WrapError("speech", "Decode", shared.ErrMalformedInput, "invalid audio payload", err)
	}
	if len(audio) == 0 {
		return nil, shared.ErrAudioMalformed
	}
	return audio, nil
}

// VoiceErrorMessage returns the sentence shown for a Handle error.
func VoiceErrorMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnintelligible):
		return UnintelligibleReply
	case shared.IsConfigurationMissing(err):
		return SpeechUnconfiguredReply
	case shared.IsProviderUnavailable(err):
		return SpeechUnavailableReply
	case errors.Is(err, shared.ErrAudioMissing):
		return shared.ErrAudioMissing.Message
	case shared.IsMalformedInput(err):
		return "Error processing audio: invalid audio payload"
	default:
		return "Error processing audio: " + err.Error()
	}
}
