// Package bootstrap builds the record store and the application services
// from configuration. cmd/server and cmd/raizelctl share it.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/raizel-hub/academic-assistant/config"
	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/application/command"
	"github.com/raizel-hub/academic-assistant/internal/application/query"
	"github.com/raizel-hub/academic-assistant/internal/domain/intent"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/gemini"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/speech"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/websearch"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/external/wikipedia"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/persistence/csvstore"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/persistence/postgres"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/service"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
	"github.com/raizel-hub/academic-assistant/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD STORE
// ══════════════════════════════════════════════════════════════════════════════

// Records is a student.Repository that can report its health.
type Records interface {
	student.Repository
	Name() string
	HealthCheck(ctx context.Context) error
}

// Store is the opened record backend.
type Store struct {
	Records Records

	// CSV is set for the csv backend.
	CSV *csvstore.Store

	// DB is set for the postgres backend.
	DB *postgres.Connection
}

// Close releases the database pool, if any.
func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// OpenStore opens the configured backend. The postgres pool is dialled with
// retries so the server survives a database that starts after it.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, error) {
	switch cfg.Records.Backend {
	case config.BackendPostgres:
		conn, err := Connect(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			n, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			log.Info("migrations applied", "count", n)
		}
		return &Store{
			Records: postgres.NewRecordRepository(conn, logger.Component(log, "records")),
			DB:      conn,
		}, nil

	default:
		store := OpenCSV(cfg, log)
		for _, report := range store.Check(ctx) {
			if !report.OK() {
				log.Warn("record file problem", "report", report.String())
			}
		}
		return &Store{Records: store, CSV: store}, nil
	}
}

// OpenCSV returns the CSV store of the records directory.
func OpenCSV(cfg *config.Config, log *slog.Logger) *csvstore.Store {
	return csvstore.New(csvstore.Config{
		Dir:    cfg.Records.Dir,
		Logger: logger.Component(log, "records"),
	})
}

// Connect dials Postgres with exponential backoff.
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	if cfg.Database.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}

	r := retry.New(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Warn("postgres not reachable, retrying", "attempt", attempt, "delay", delay, "error", err)
	}))
	conn, err := retry.DoWithData(ctx, r, func(ctx context.Context) (*postgres.Connection, error) {
		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			if _, perr := pgCfg.PoolConfig(); perr != nil {
				return nil, retry.Permanent(perr)
			}
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log.Info("postgres connection established")
	return conn, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVICES
// ══════════════════════════════════════════════════════════════════════════════

// Services holds the application layer and its providers.
type Services struct {
	Assistant      *assistant.Assistant
	Dashboard      *query.GetDashboardHandler
	Voice          *command.ProcessVoiceHandler
	StudentContext *query.StudentContextBuilder

	Gemini    *gemini.Client
	Speech    *speech.Client
	Wikipedia *wikipedia.Client
	WebSearch *websearch.Client
	Lookup    *service.LookupGateway

	// VoiceEnabled gates voice input per student.
	VoiceEnabled func(student.RegistrationNumber) bool
}

// NewServices wires providers, the assistant, queries and commands.
// Providers without credentials are built anyway and answer with their
// unconfigured errors.
func NewServices(ctx context.Context, cfg *config.Config, records student.Repository, log *slog.Logger) (*Services, error) {
	flags := cfg.Features
	if flags == nil {
		flags = config.NewFeatureFlags()
	}

	wiki := wikipedia.NewClient(wikipedia.ClientConfig{
		BaseURL:   cfg.Wikipedia.BaseURL,
		Sentences: cfg.Wikipedia.Sentences,
		Timeout:   cfg.Wikipedia.Timeout,
		Logger:    logger.Component(log, "wikipedia"),
	})
	search := websearch.NewClient(websearch.ClientConfig{
		APIKey:   cfg.Google.APIKey,
		EngineID: cfg.Google.CSEID,
		Timeout:  cfg.Google.SearchTimeout,
		Logger:   logger.Component(log, "websearch"),
	})
	gateway := service.NewLookupGateway(service.LookupGatewayConfig{
		Encyclopedia: wiki,
		WebSearch:    search,
		Enabled:      func() bool { return flags.IsEnabled(config.FeatureInternetSearch, nil) },
		Logger:       logger.Component(log, "lookup"),
	})

	gen, err := gemini.NewClient(ctx, gemini.ClientConfig{
		APIKey:  cfg.Google.GeminiAPIKey,
		Model:   cfg.Google.GeminiModel,
		Timeout: cfg.Google.AITimeout,
		Logger:  logger.Component(log, "gemini"),
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	speechClient := speech.NewClient(speech.ClientConfig{
		APIKey:        cfg.Speech.APIKey,
		LanguageCode:  cfg.Speech.LanguageCode,
		VoiceName:     cfg.Speech.VoiceName,
		MaxAudioBytes: cfg.Speech.MaxAudioSize,
		Timeout:       cfg.Speech.Timeout,
		Logger:        logger.Component(log, "speech"),
	})

	router := intent.NewRouter(intent.RouterConfig{
		Columns: records,
		Enabled: func(i intent.Intent) bool {
			switch i {
			case intent.ColumnLookup:
				return flags.IsEnabled(config.FeatureColumnLookup, nil)
			case intent.InternetSearch:
				return flags.IsEnabled(config.FeatureInternetSearch, nil)
			}
			return true
		},
		Logger: logger.Component(log, "intent"),
	})

	studentContext := query.NewStudentContextBuilder(records, cfg.Records.CalendarInContext)

	var generator assistant.Generator
	if gen.Configured() {
		generator = gen
	}
	asst, err := assistant.New(assistant.Config{
		Repository:        records,
		Router:            router,
		Searcher:          gateway,
		Generator:         generator,
		Context:           studentContext,
		GenerativeEnabled: gate(flags, config.FeatureGenerativeFallback),
		Logger:            logger.Component(log, "assistant"),
	})
	if err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}

	voice := command.NewProcessVoiceHandler(command.ProcessVoiceConfig{
		Transcriber:   speechClient,
		Synthesizer:   speechClient,
		Responder:     asst,
		SpokenReplies: gate(flags, config.FeatureVoiceReplies),
		TempDir:       cfg.Speech.TempDir,
		Logger:        logger.Component(log, "voice"),
	})

	return &Services{
		Assistant:      asst,
		Dashboard:      query.NewGetDashboardHandler(records, gate(flags, config.FeatureDashboardSkills), logger.Component(log, "dashboard")),
		Voice:          voice,
		StudentContext: studentContext,
		Gemini:         gen,
		Speech:         speechClient,
		Wikipedia:      wiki,
		WebSearch:      search,
		Lookup:         gateway,
		VoiceEnabled:   gate(flags, config.FeatureVoiceTranscription),
	}, nil
}

// gate adapts a feature flag to a per-student predicate.
func gate(flags *config.FeatureFlags, feature string) func(student.RegistrationNumber) bool {
	g := flags.Gate(feature)
	return func(reg student.RegistrationNumber) bool {
		return g(reg.String())
	}
}
