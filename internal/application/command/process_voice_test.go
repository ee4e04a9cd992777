package command

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/domain/intent"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

type fakeTranscriber struct {
	text    string
	err     error
	path    string
	content []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.path = path
	f.content, _ = os.ReadFile(path)
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
}

func (f fakeSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return f.audio, f.err
}

type echoResponder struct {
	last assistant.Request
}

func (e *echoResponder) Reply(_ context.Context, req assistant.Request) assistant.Reply {
	e.last = req
	return assistant.Reply{Intent: intent.Fallback, Text: "echo: " + req.Text}
}

func wavPayload() string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("RIFF....WAVE"))
}

func TestProcessVoice_TranscribesAndReplies(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{text: "show my marks"}
	resp := &echoResponder{}
	h := NewProcessVoiceHandler(ProcessVoiceConfig{Transcriber: tr, Responder: resp, TempDir: dir})

	result, err := h.Handle(context.Background(), ProcessVoiceCommand{
		RegistrationNumber: "R1",
		Audio:              wavPayload(),
	})
	require.NoError(t, err)

	assert.Equal(t, "show my marks", result.Transcript)
	assert.Equal(t, "echo: show my marks", result.Reply.Text)
	assert.Equal(t, student.RegistrationNumber("R1"), resp.last.RegistrationNumber)
	assert.Equal(t, []byte("RIFF....WAVE"), tr.content)
	assert.Empty(t, result.Audio)

	_, statErr := os.Stat(tr.path)
	assert.True(t, os.IsNotExist(statErr), "temp file must be removed")
}

func TestProcessVoice_TempFileRemovedOnProviderError(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTranscriber{err: shared.WrapError("speech", "Transcribe", shared.ErrServiceUnavailable, "boom", nil)}
	h := NewProcessVoiceHandler(ProcessVoiceConfig{Transcriber: tr, Responder: &echoResponder{}, TempDir: dir})

	_, err := h.Handle(context.Background(), ProcessVoiceCommand{Audio: wavPayload()})
	require.Error(t, err)
	assert.Equal(t, SpeechUnavailableReply, VoiceErrorMessage(err))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestProcessVoice_Unintelligible(t *testing.T) {
	h := NewProcessVoiceHandler(ProcessVoiceConfig{
		Transcriber: &fakeTranscriber{text: "   "},
		Responder:   &echoResponder{},
		TempDir:     t.TempDir(),
	})

	_, err := h.Handle(context.Background(), ProcessVoiceCommand{Audio: wavPayload()})
	assert.ErrorIs(t, err, shared.ErrUnintelligible)
	assert.Equal(t, UnintelligibleReply, VoiceErrorMessage(err))
}

func TestProcessVoice_MalformedPayload(t *testing.T) {
	tr := &fakeTranscriber{text: "never"}
	h := NewProcessVoiceHandler(ProcessVoiceConfig{Transcriber: tr, Responder: &echoResponder{}})

	_, err := h.Handle(context.Background(), ProcessVoiceCommand{Audio: "data:audio/wav;base64,@@@"})
	assert.True(t, shared.IsMalformedInput(err))
	assert.Equal(t, "Error processing audio: invalid audio payload", VoiceErrorMessage(err))
	assert.Empty(t, tr.path, "transcriber must not be called")

	_, err = h.Handle(context.Background(), ProcessVoiceCommand{})
	assert.Equal(t, "No audio data received", VoiceErrorMessage(err))
}

func TestProcessVoice_TextBypassesTranscription(t *testing.T) {
	tr := &fakeTranscriber{}
	h := NewProcessVoiceHandler(ProcessVoiceConfig{Transcriber: tr, Responder: &echoResponder{}})

	result, err := h.Handle(context.Background(), ProcessVoiceCommand{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", result.Reply.Text)
	assert.Empty(t, tr.path)
}

func TestProcessVoice_Unconfigured(t *testing.T) {
	h := NewProcessVoiceHandler(ProcessVoiceConfig{Responder: &echoResponder{}})

	_, err := h.Handle(context.Background(), ProcessVoiceCommand{Audio: wavPayload()})
	assert.True(t, shared.IsConfigurationMissing(err))
	assert.Equal(t, SpeechUnconfiguredReply, VoiceErrorMessage(err))
}

func TestProcessVoice_SpokenReply(t *testing.T) {
	h := NewProcessVoiceHandler(ProcessVoiceConfig{
		Responder:   &echoResponder{},
		Synthesizer: fakeSynthesizer{audio: []byte("mp3")},
	})

	result, err := h.Handle(context.Background(), ProcessVoiceCommand{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3")), result.Audio)

	h = NewProcessVoiceHandler(ProcessVoiceConfig{
		Responder:   &echoResponder{},
		Synthesizer: fakeSynthesizer{err: errors.New("tts down")},
	})
	result, err = h.Handle(context.Background(), ProcessVoiceCommand{Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, result.Audio)
}

func TestDecodeAudio(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("abc"))

	got, err := DecodeAudio(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = DecodeAudio("data:audio/wav;base64")
	assert.ErrorIs(t, err, shared.ErrMalformedInput)
}
