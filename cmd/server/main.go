// Package main is the entry point of the Raizel academic assistant server.
//
// The server answers students' questions about their academic records over
// a JSON API and a websocket chat channel, and serves a small dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raizel-hub/academic-assistant/config"
	"github.com/raizel-hub/academic-assistant/internal/bootstrap"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/auth"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/persistence/redis"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/scheduler"
	"github.com/raizel-hub/academic-assistant/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/raizel-hub/academic-assistant/internal/interface/http"
	"github.com/raizel-hub/academic-assistant/internal/interface/http/handlers"
	"github.com/raizel-hub/academic-assistant/internal/interface/ws"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
	"github.com/raizel-hub/academic-assistant/pkg/ratelimit"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.ParseFormat(cfg.Observability.LogFormat),
		Output:    os.Stdout,
		AddSource: cfg.App.Debug,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
			slog.String("version", cfg.App.Version),
		},
	})
	slog.SetDefault(log)

	log.Info("starting Raizel",
		"env", cfg.App.Environment,
		"records_backend", cfg.Records.Backend,
		"redis", cfg.Redis.Enabled,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Student records
	// ─────────────────────────────────────────────────────────────────────────
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddComponent(store.Records)
	if store.DB != nil {
		health.AddComponent(store.DB)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Rate limiting (Redis when enabled, in-process otherwise)
	// ─────────────────────────────────────────────────────────────────────────
	ipLimiter := ratelimit.NewLocal(ratelimit.Config{
		RequestsPerSecond: cfg.HTTP.RateLimitPerSecond,
		BurstSize:         cfg.HTTP.RateLimitBurst,
	})

	var chatLimiter ratelimit.Limiter = ratelimit.NewLocal(ratelimit.Config{
		RequestsPerSecond: float64(cfg.HTTP.ChatMessagesPerMinute) / 60,
		BurstSize:         5,
	})

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process chat limits", "error", err)
		} else {
			defer redisClient.Close()
			chatLimiter = redis.NewRateLimiter(redisClient, redis.RateLimiterConfig{
				Limit:    int64(cfg.HTTP.ChatMessagesPerMinute),
				Window:   time.Minute,
				FailOpen: true,
				Logger:   logger.Component(log, "ratelimit"),
			})
			health.AddOptionalCheck(redisClient.Name(), redisClient.HealthCheck)
			log.Info("redis rate limiting enabled")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application services and providers
	// ─────────────────────────────────────────────────────────────────────────
	svc, err := bootstrap.NewServices(ctx, cfg, store.Records, log)
	if err != nil {
		return err
	}
	health.SetProvider("gemini", svc.Gemini.Configured())
	health.SetProvider("speech", svc.Speech.Configured())
	health.SetProvider("websearch", svc.WebSearch.Configured())

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Maintenance jobs
	// ─────────────────────────────────────────────────────────────────────────
	maintenance, err := newMaintenance(cfg, store, log)
	if err != nil {
		return err
	}
	health.AddOptionalCheck(maintenance.Name(), maintenance.HealthCheck)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Identity
	// ─────────────────────────────────────────────────────────────────────────
	tokens, err := auth.NewTokenIssuer(cfg.Auth.SessionSecret, cfg.App.Name, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	var verifier auth.Verifier = auth.NewRegistrationVerifier(store.Records)
	if cfg.Auth.RequirePIN {
		verifier = auth.NewPINVerifier(store.Records, cfg.Auth.AllowUnsetPIN)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Transport
	// ─────────────────────────────────────────────────────────────────────────
	wsConfig := ws.DefaultConfig()
	wsConfig.Responder = svc.Assistant
	wsConfig.Voice = svc.Voice
	wsConfig.VoiceEnabled = svc.VoiceEnabled
	wsConfig.Limiter = chatLimiter
	wsConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	wsConfig.MaxMessageBytes = cfg.HTTP.MaxBodyBytes
	wsConfig.Logger = logger.Component(log, "ws")
	chat := ws.NewHandler(wsConfig)

	server, err := httpserver.NewServer(httpserver.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		CookieName:     cfg.Auth.CookieName,
		SecureCookie:   cfg.Auth.SecureCookie,
		RequirePIN:     cfg.Auth.RequirePIN,
		Version:        cfg.App.Version,
	}, httpserver.Dependencies{
		Assistant:      svc.Assistant,
		Voice:          svc.Voice,
		Dashboard:      svc.Dashboard,
		Generator:      svc.Gemini,
		StudentContext: svc.StudentContext,
		Chat:           chat,
		Verifier:       verifier,
		Tokens:         tokens,
		VoiceEnabled:   svc.VoiceEnabled,
		Limiter:        ipLimiter,
		ChatLimiter:    chatLimiter,
		HealthChecker:  health,
		Logger:         logger.Component(log, "http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. Run until a signal arrives, then shut down
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if err := maintenance.Start(gctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		chat.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop HTTP server gracefully: %w", err)
		}
		return maintenance.Stop()
	})

	log.Info("Raizel is running", "address", server.Address())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown completed with errors", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// newMaintenance registers the background jobs enabled in configuration.
func newMaintenance(cfg *config.Config, store *bootstrap.Store, log *slog.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(scheduler.Config{Logger: logger.Component(log, "scheduler")})

	if every := cfg.Maintenance.RecordCheckInterval; every > 0 {
		var files jobs.FileChecker
		if store.CSV != nil {
			files = store.CSV
		}
		job := jobs.NewCheckRecordsJob(store.Records, files, logger.Component(log, "check_records"))
		if err := s.Register(job, every); err != nil {
			return nil, err
		}
	}

	if every := cfg.Maintenance.AudioSweepInterval; every > 0 {
		job := jobs.NewSweepAudioJob(cfg.Speech.TempDir, cfg.Maintenance.AudioMaxAge, logger.Component(log, "sweep_audio"))
		if err := s.Register(job, every, scheduler.RunOnStart()); err != nil {
			return nil, err
		}
	}

	return s, nil
}
