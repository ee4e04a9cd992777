package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/application/command"
	"github.com/raizel-hub/academic-assistant/internal/application/query"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/auth"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
)

// User-facing login messages.
const (
	msgInvalidRegistration = "Invalid registration number."
	msgInvalidPIN          = "Invalid registration number or PIN."
	msgStoreUnavailable    = "Error loading student data. Please try again later."
	msgRateLimited         = "You are sending messages too quickly. Please wait a moment."
	msgVoiceOff            = command.SpeechUnconfiguredReply
	msgGenerativeOff       = "AI features are not available right now."
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth returns detailed health status; 503 when a required check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if status.Version == "" {
		status.Version = s.config.Version
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady is the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "message": status.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the liveness probe. It never touches dependencies.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN / LOGOUT
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentStudent(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, s.pages.login, loginView{RequirePIN: s.config.RequirePIN})
}

// handleLogin accepts a form post from the login page or a JSON body from
// scripts. Browsers are redirected to the dashboard; JSON callers get the
// token in the body as well as the cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSON(r)

	var creds auth.Credentials
	var bindErr error
	if asJSON {
		bindErr = decodeJSON(r, &creds)
	} else {
		creds.RegistrationNumber = r.PostFormValue("registration_number")
		creds.PIN = r.PostFormValue("pin")
		bindErr = validateStruct(&creds)
	}

	fail := func(status int, msg string) {
		if asJSON {
			writeJSONError(w, status, msg)
			return
		}
		s.render(w, r, status, s.pages.login, loginView{
			Error:              msg,
			RegistrationNumber: creds.RegistrationNumber,
			RequirePIN:         s.config.RequirePIN,
		})
	}

	if bindErr != nil {
		fail(http.StatusBadRequest, msgInvalidRegistration)
		return
	}

	log := logger.FromContext(r.Context(), s.logger)

	reg, err := s.deps.Verifier.Verify(r.Context(), creds)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrPINRequired):
		fail(http.StatusUnauthorized, msgInvalidPIN)
		return
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidInput):
		log.Info("login rejected", "error", err)
		fail(http.StatusUnauthorized, msgInvalidRegistration)
		return
	default:
		log.Error("login failed", "error", err)
		fail(http.StatusServiceUnavailable, msgStoreUnavailable)
		return
	}

	token, expires, err := s.startSession(w, reg)
	if err != nil {
		log.Error("issue session token failed", "error", err)
		fail(http.StatusInternalServerError, "An error occurred. Please try again later.")
		return
	}
	log.Info("student logged in", logger.KeyRegistrationNumber, reg.String())

	if asJSON {
		writeJSON(w, http.StatusOK, LoginResponse{
			RegistrationNumber: reg.String(),
			Token:              token,
			ExpiresAt:          expires.UTC().Format(time.RFC3339),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD
// ══════════════════════════════════════════════════════════════════════════════

// handleIndex renders the dashboard page. A failed load still renders the
// page, with the registration number as the name and empty sections.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	dto, err := s.deps.Dashboard.Handle(r.Context(), reg)
	if err != nil {
		s.render(w, r, http.StatusOK, s.pages.dashboard, dashboardView{
			User:  reg.String(),
			Error: "Error loading dashboard data: " + query.DashboardErrorMessage(err),
		})
		return
	}

	s.render(w, r, http.StatusOK, s.pages.dashboard, dashboardView{
		User:        dto.Profile.Name,
		LatestMarks: dto.LatestMarks,
		Tasks:       dto.UpcomingTasks,
		Courses:     dto.Courses,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	dto, err := s.deps.Dashboard.Handle(r.Context(), reg)
	if err != nil {
		writeJSONError(w, dashboardStatus(err), query.DashboardErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func dashboardStatus(err error) int {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTableUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT AND VOICE
// ══════════════════════════════════════════════════════════════════════════════

// allowChat applies the per-student chat limit and writes 429 when exceeded.
func (s *Server) allowChat(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) bool {
	if s.deps.ChatLimiter == nil {
		return true
	}
	allowed, err := s.deps.ChatLimiter.Allow(r.Context(), "chat:"+reg.String())
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Warn("chat limiter failed", "error", err)
	}
	if !allowed {
		writeJSONError(w, http.StatusTooManyRequests, msgRateLimited)
	}
	return allowed
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.allowChat(w, r, reg) {
		return
	}

	reply := s.deps.Assistant.Reply(r.Context(), assistant.Request{RegistrationNumber: reg, Text: req.Message})
	writeJSON(w, http.StatusOK, ChatResponse{Response: reply.Text, Intent: string(reply.Intent)})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	if s.deps.Voice == nil || (s.deps.VoiceEnabled != nil && !s.deps.VoiceEnabled(reg)) {
		writeJSONError(w, http.StatusServiceUnavailable, msgVoiceOff)
		return
	}

	var req VoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.allowChat(w, r, reg) {
		return
	}

	result, err := s.deps.Voice.Handle(r.Context(), command.ProcessVoiceCommand{
		RegistrationNumber: reg,
		Audio:              req.Audio,
		Text:               req.Text,
	})
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Info("voice message failed", "error", err)
		writeJSONError(w, voiceStatus(err), command.VoiceErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, VoiceResponse{
		Response:   result.Reply.Text,
		Intent:     string(result.Reply.Intent),
		Transcript: result.Transcript,
		Audio:      result.Audio,
	})
}

func voiceStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrUnintelligible):
		return http.StatusUnprocessableEntity
	case shared.IsMalformedInput(err), errors.Is(err, shared.ErrAudioMissing):
		return http.StatusBadRequest
	case shared.IsConfigurationMissing(err), shared.IsProviderUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATIVE AI
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) generatorReady(w http.ResponseWriter) bool {
	if s.deps.Generator == nil || !s.deps.Generator.Configured() {
		writeJSONError(w, http.StatusServiceUnavailable, msgGenerativeOff)
		return false
	}
	return true
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request, reg student.RegistrationNumber) {
	if !s.generatorReady(w) {
		return
	}
	var req AskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := logger.FromContext(r.Context(), s.logger)

	var studentContext string
	if s.deps.StudentContext != nil {
		var err error
		studentContext, err = s.deps.StudentContext.Build(r.Context(), reg)
		if err != nil {
			// The model still answers, without the records.
			log.Warn("student context unavailable", "error", err)
		}
	}

	answer, err := s.deps.Generator.Ask(r.Context(), req.Query, studentContext)
	if err != nil {
		s.writeGeneratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GeneratedResponse{Response: answer})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request, _ student.RegistrationNumber) {
	if !s.generatorReady(w) {
		return
	}
	var req SummarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.deps.Generator.Summarize(r.Context(), req.Text, req.MaxLength)
	if err != nil {
		s.writeGeneratorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GeneratedResponse{Response: summary})
}

func (s *Server) writeGeneratorError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.FromContext(r.Context(), s.logger).Warn("generative request failed", "error", err)
	if shared.IsConfigurationMissing(err) {
		writeJSONError(w, http.StatusServiceUnavailable, msgGenerativeOff)
		return
	}
	writeJSONError(w, http.StatusBadGateway, "The AI service is unavailable. Please try again later.")
}
