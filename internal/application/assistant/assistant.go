// Package assistant turns a chat utterance into a reply: classify, fetch the
// student's rows, compose text. Every call is synchronous and independent.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/raizel-hub/academic-assistant/internal/domain/intent"
	"github.com/raizel-hub/academic-assistant/internal/domain/lookup"
	"github.com/raizel-hub/academic-assistant/internal/domain/shared"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

// Generator produces free-form answers from a generative model.
type Generator interface {
	Ask(ctx context.Context, query, studentContext string) (string, error)
}

// ContextBuilder serialises a student's records for a generative prompt.
type ContextBuilder interface {
	Build(ctx context.Context, reg student.RegistrationNumber) (string, error)
}

// Config holds the collaborators of the Assistant.
type Config struct {
	// Repository is required.
	Repository student.Repository

	// Router defaults to a router without column lookups.
	Router *intent.Router

	// Searcher answers InternetSearch. Nil means nothing is ever found.
	Searcher lookup.Searcher

	// Generator and Context answer Fallback when GenerativeEnabled allows it.
	Generator Generator
	Context   ContextBuilder

	// GenerativeEnabled gates the generative fallback per student.
	// Nil enables it whenever Generator is set.
	GenerativeEnabled func(student.RegistrationNumber) bool

	Logger *slog.Logger
}

// Request is one utterance of an authenticated student.
type Request struct {
	RegistrationNumber student.RegistrationNumber
	Text               string
}

// Reply is the text answer and the intent that produced it.
type Reply struct {
	Intent intent.Intent `json:"intent"`
	Text   string        `json:"response"`
}

// Assistant answers chat utterances.
type Assistant struct {
	repo      student.Repository
	router    *intent.Router
	searcher  lookup.Searcher
	generator Generator
	context   ContextBuilder
	genGate   func(student.RegistrationNumber) bool
	composer  Composer
	logger    *slog.Logger
}

// New creates an Assistant.
func New(config Config) (*Assistant, error) {
	if config.Repository == nil {
		return nil, errors.New("assistant: repository is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Router == nil {
		config.Router = intent.NewRouter(intent.RouterConfig{Logger: config.Logger})
	}

	return &Assistant{
		repo:      config.Repository,
		router:    config.Router,
		searcher:  config.Searcher,
		generator: config.Generator,
		context:   config.Context,
		genGate:   config.GenerativeEnabled,
		logger:    config.Logger,
	}, nil
}

// Reply answers one utterance. It never fails: store and provider errors
// degrade to the fixed sentence of the category.
func (a *Assistant) Reply(ctx context.Context, req Request) Reply {
	d := a.router.Classify(ctx, req.Text)

	var text string
	switch d.Intent {
	case intent.MarksQuery:
		text = a.marks(ctx, req.RegistrationNumber)
	case intent.CourseQuery:
		text = a.course(ctx, req.RegistrationNumber)
	case intent.TasksQuery:
		text = a.tasks(ctx)
	case intent.ProfileQuery:
		text = a.profile(ctx, req.RegistrationNumber)
	case intent.ColumnLookup:
		text = a.composer.Columns(d.Columns)
	case intent.InternetSearch:
		text = a.search(ctx, d.Query)
	case intent.Greeting, intent.Farewell:
		text = d.Reply
	default:
		text = a.fallback(ctx, req)
	}

	return Reply{Intent: d.Intent, Text: text}
}

// ─────────────────────────────────────────────────────────────────────────────
// Record intents
// ─────────────────────────────────────────────────────────────────────────────

func (a *Assistant) marks(ctx context.Context, reg student.RegistrationNumber) string {
	rows, err := a.repo.ListMarks(ctx, reg)
	if err != nil {
		a.logStoreError("marks", reg, err)
		return NoMarksReply
	}
	return a.composer.Marks(reg, rows)
}

func (a *Assistant) course(ctx context.Context, reg student.RegistrationNumber) string {
	rows, err := a.repo.ListEnrollments(ctx, reg)
	if err != nil {
		a.logStoreError("course", reg, err)
		return NoCourseReply
	}
	return a.composer.Course(rows)
}

func (a *Assistant) tasks(ctx context.Context) string {
	rows, err := a.repo.ListCalendar(ctx, MaxUpcomingTasks)
	if err != nil {
		a.logStoreError("tasks", "", err)
		return NoTasksReply
	}
	return a.composer.Tasks(rows)
}

func (a *Assistant) profile(ctx context.Context, reg student.RegistrationNumber) string {
	p, err := a.repo.GetProfile(ctx, reg)
	if err != nil {
		if !shared.IsNotFound(err) {
			a.logStoreError("profile", reg, err)
		}
		return NoProfileReply
	}
	return a.composer.Profile(p)
}

func (a *Assistant) logStoreError(category string, reg student.RegistrationNumber, err error) {
	a.logger.Warn("record store read failed",
		"category", category,
		"registration_number", reg.String(),
		"error", err,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// External intents
// ─────────────────────────────────────────────────────────────────────────────

func (a *Assistant) search(ctx context.Context, query string) string {
	if a.searcher == nil {
		return NotFoundReply
	}

	answer, err := a.searcher.Lookup(ctx, query)
	if err != nil {
		if !shared.IsNotFound(err) {
			a.logger.Warn("internet lookup failed", "query", query, "error", err)
		}
		return NotFoundReply
	}
	return a.composer.Answer(answer)
}

func (a *Assistant) fallback(ctx context.Context, req Request) string {
	if !a.generativeEnabled(req.RegistrationNumber) {
		return a.router.DefaultReply()
	}

	var studentContext string
	if a.context != nil {
		c, err := a.context.Build(ctx, req.RegistrationNumber)
		if err != nil {
			a.logger.Warn("student context unavailable", "error", err)
		}
		studentContext = c
	}

	answer, err := a.generator.Ask(ctx, req.Text, studentContext)
	if err != nil {
		if shared.IsConfigurationMissing(err) {
			a.logger.Debug("generative fallback not configured")
		} else {
			a.logger.Warn("generative fallback failed", "error", err)
		}
		return a.router.DefaultReply()
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return a.router.DefaultReply()
	}
	return answer
}

func (a *Assistant) generativeEnabled(reg student.RegistrationNumber) bool {
	if a.generator == nil {
		return false
	}
	return a.genGate == nil || a.genGate(reg)
}
