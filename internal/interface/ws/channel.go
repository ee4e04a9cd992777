// Package ws implements the real-time chat channel over websockets.
//
// Every connection belongs to one authenticated student and is served by
// three goroutines: a read pump, a worker that answers messages in arrival
// order, and a write pump that owns all writes to the socket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/application/command"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
	"github.com/raizel-hub/academic-assistant/pkg/ratelimit"
)

// Message types.
const (
	TypeMessage       = "message"
	TypeVoiceMessage  = "voice_message"
	TypeResponse      = "response"
	TypeVoiceResponse = "voice_response"
	TypeError         = "error"
)

// Fixed error sentences of the channel.
const (
	ErrTextRateLimited  = "You're sending messages too quickly. Please wait a moment."
	ErrTextBadMessage   = "Invalid message format"
	ErrTextUnknownType  = "Unsupported message type"
	ErrTextVoiceOff     = command.SpeechUnconfiguredReply
	ErrTextShuttingDown = "Server is shutting down"
)

// Inbound is a client message. Message is accepted as an alias of Text.
type Inbound struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
	Audio   string `json:"audio,omitempty"`
}

func (m Inbound) text() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Message
}

// Outbound is a server message. Message and Response repeat Text under the
// keys older clients read for "response" and "voice_response".
type Outbound struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Message    string `json:"message,omitempty"`
	Response   string `json:"response,omitempty"`
	Intent     string `json:"intent,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Responder answers a typed utterance.
type Responder interface {
	Reply(ctx context.Context, req assistant.Request) assistant.Reply
}

// VoiceProcessor answers a voice message.
type VoiceProcessor interface {
	Handle(ctx context.Context, cmd command.ProcessVoiceCommand) (*command.ProcessVoiceResult, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the channel configuration.
type Config struct {
	Responder Responder

	// Voice may be nil, which rejects voice messages.
	Voice VoiceProcessor

	// VoiceEnabled gates voice messages per student. Nil allows all.
	VoiceEnabled func(student.RegistrationNumber) bool

	// Limiter bounds messages per student. Nil disables limiting.
	Limiter ratelimit.Limiter

	// AllowedOrigins may open a chat from another site. The upgrade always
	// carries the session cookie, so "*" is not honoured: same-origin and
	// non-browser clients are accepted, other origins only when listed.
	AllowedOrigins []string

	// MaxMessageBytes bounds one inbound frame; voice payloads are large.
	MaxMessageBytes int64

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration

	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int

	Logger *slog.Logger
}

// DefaultConfig returns the channel defaults.
func DefaultConfig() Config {
	return Config{
		MaxMessageBytes: 15 << 20,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		SendBuffer:      16,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// Handler upgrades requests and serves chat connections.
type Handler struct {
	config   Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	id   string
	reg  student.RegistrationNumber
	conn *websocket.Conn

	inbox chan Inbound
	send  chan Outbound

	// ctx is cancelled with done, aborting provider calls of a client that
	// has gone away.
	ctx    context.Context
	cancel context.CancelFunc

	// done is closed once by whichever pump stops first.
	done     chan struct{}
	doneOnce sync.Once
}

func (c *client) stop() {
	c.doneOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// NewHandler creates a Handler.
func NewHandler(config Config) *Handler {
	def := DefaultConfig()
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = def.MaxMessageBytes
	}
	if config.WriteWait <= 0 {
		config.WriteWait = def.WriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = def.PongWait
	}
	if config.PingPeriod <= 0 || config.PingPeriod >= config.PongWait {
		config.PingPeriod = config.PongWait * 9 / 10
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = def.SendBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		config:  config,
		logger:  logger.Component(config.Logger, "ws"),
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range h.config.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// ServeChat upgrades the request and serves the connection of reg until the
// client leaves or the handler is closed. It returns once the pumps are
// started.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:    uuid.NewString(),
		reg:   reg,
		conn:  conn,
		inbox: make(chan Inbound, h.config.SendBuffer),
		send:  make(chan Outbound, h.config.SendBuffer),
		done:  make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(h.ctx)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrTextShuttingDown),
			time.Now().Add(h.config.WriteWait))
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.wg.Add(3)
	h.mu.Unlock()

	log := h.logger.With(logger.KeyConnectionID, c.id, logger.KeyRegistrationNumber, reg.String())
	log.Info("client connected")

	go h.writePump(c, log)
	go h.worker(c, log)
	go h.readPump(c, log)
}

// Len returns the number of open connections.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their goroutines.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.cancel()
	for _, c := range clients {
		c.stop()
	}
	h.wg.Wait()
}

func (h *Handler) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// ─────────────────────────────────────────────────────────────────────────────
// Pumps
// ─────────────────────────────────────────────────────────────────────────────

func (h *Handler) readPump(c *client, log *slog.Logger) {
	defer h.wg.Done()
	defer close(c.inbox)
	defer c.stop()

	c.conn.SetReadLimit(h.config.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = Inbound{Type: TypeError}
		}

		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		}
	}
}

func (h *Handler) worker(c *client, log *slog.Logger) {
	defer h.wg.Done()
	defer close(c.send)

	for msg := range c.inbox {
		out := h.handle(c.ctx, c.reg, msg, log)
		select {
		case c.send <- out:
		case <-c.done:
			// Drain so the read pump is never blocked on a full inbox.
			for range c.inbox {
			}
			return
		}
	}
}

func (h *Handler) writePump(c *client, log *slog.Logger) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.stop()
		c.conn.Close()
		h.remove(c)
		log.Info("client disconnected")
	}()

	for {
		select {
		case out, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(out); err != nil {
				log.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(h.config.WriteWait))
			return
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Messages
// ─────────────────────────────────────────────────────────────────────────────

// handle answers one inbound message. It never fails; problems are reported
// in the Error field of the reply.
func (h *Handler) handle(ctx context.Context, reg student.RegistrationNumber, msg Inbound, log *slog.Logger) Outbound {
	replyType := TypeResponse
	if msg.Type == TypeVoiceMessage {
		replyType = TypeVoiceResponse
	}

	if h.config.Limiter != nil {
		allowed, err := h.config.Limiter.Allow(ctx, "ws:"+reg.String())
		if err != nil {
			log.Warn("rate limiter failed", "error", err)
		}
		if !allowed {
			return Outbound{Type: replyType, Error: ErrTextRateLimited}
		}
	}

	switch msg.Type {
	case TypeMessage, "":
		reply := h.config.Responder.Reply(ctx, assistant.Request{RegistrationNumber: reg, Text: msg.text()})
		return Outbound{
			Type:    TypeResponse,
			Text:    reply.Text,
			Message: reply.Text,
			Intent:  string(reply.Intent),
		}

	case TypeVoiceMessage:
		return h.handleVoice(ctx, reg, msg, log)

	case TypeError:
		return Outbound{Type: TypeError, Error: ErrTextBadMessage}

	default:
		return Outbound{Type: TypeError, Error: ErrTextUnknownType}
	}
}

func (h *Handler) handleVoice(ctx context.Context, reg student.RegistrationNumber, msg Inbound, log *slog.Logger) Outbound {
	if h.config.Voice == nil || (h.config.VoiceEnabled != nil && !h.config.VoiceEnabled(reg)) {
		return Outbound{Type: TypeVoiceResponse, Error: ErrTextVoiceOff}
	}

	result, err := h.config.Voice.Handle(ctx, command.ProcessVoiceCommand{
		RegistrationNumber: reg,
		Audio:              msg.Audio,
		Text:               msg.text(),
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Info("voice message failed", "error", err)
		}
		return Outbound{Type: TypeVoiceResponse, Error: command.VoiceErrorMessage(err)}
	}

	return Outbound{
		Type:       TypeVoiceResponse,
		Text:       result.Reply.Text,
		Response:   result.Reply.Text,
		Intent:     string(result.Reply.Intent),
		Transcript: result.Transcript,
		Audio:      result.Audio,
	}
}
