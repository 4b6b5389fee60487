package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"facelive/internal/detector/remote"
	"facelive/internal/detector/static"
	"facelive/internal/kyc"
	"facelive/internal/liveness"
	livenesshandler "facelive/internal/liveness/handler"
	"facelive/internal/liveness/metrics"
	livenessmemory "facelive/internal/liveness/store/memory"
	livenessredis "facelive/internal/liveness/store/redis"
	"facelive/internal/platform/config"
	"facelive/internal/platform/httpserver"
	"facelive/internal/platform/logger"
	platformredis "facelive/internal/platform/redis"
	httptransport "facelive/internal/transport/http"
	"facelive/pkg/platform/audit"
	auditkafka "facelive/pkg/platform/audit/publisher/kafka"
	auditmemory "facelive/pkg/platform/audit/store/memory"
	auditpostgres "facelive/pkg/platform/audit/store/postgres"
	auditworker "facelive/pkg/platform/audit/worker"
	"facelive/pkg/platform/middleware/auth"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("facelive exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	var checkers []httptransport.HealthChecker

	// Session store: Redis when configured, in-memory otherwise.
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	var sessionStore liveness.SessionStore
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		sessionStore = livenessredis.New(redisClient.Client)
		checkers = append(checkers, healthCheck{name: "redis", fn: redisClient.Health})
		log.Info("using redis session store")
	} else {
		sessionStore = livenessmemory.New()
		log.Info("using in-memory session store")
	}

	// Audit pipeline: durable store plus optional Kafka stream.
	var auditSink audit.Sink
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		auditSink = auditpostgres.New(db)
		checkers = append(checkers, healthCheck{name: "postgres", fn: db.PingContext})
		log.Info("using postgres audit store")
	} else {
		auditSink = auditmemory.New()
		log.Info("using in-memory audit store")
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer kafkaPub.Close()

		inbox := make(auditworker.Inbox, 1024)
		g.Go(func() error {
			return auditworker.New(kafkaPub, inbox, log).Run(ctx)
		})
		auditSink = audit.Fanout(auditSink, inbox)
		log.Info("streaming audit events to kafka", "topic", cfg.KafkaTopic)
	}
	publisher := audit.NewPublisher(auditSink)

	// Detectors: remote service when configured, built-in otherwise.
	detectors, err := buildDetectors(cfg, log)
	if err != nil {
		return err
	}

	orchestrator, err := liveness.New(sessionStore, detectors, liveness.Config{
		StepTimeouts: map[liveness.StepKind]time.Duration{
			liveness.StepPresence:     cfg.Liveness.PresenceTimeout,
			liveness.StepBlinkGaze:    cfg.Liveness.BlinkGazeTimeout,
			liveness.StepVoiceCaptcha: cfg.Liveness.VoiceCaptchaTimeout,
		},
		DetectorTimeout: cfg.Liveness.DetectorTimeout,
		MaxAttempts:     cfg.Liveness.MaxAttempts,
		SessionTTL:      cfg.Liveness.SessionTTL,
	},
		liveness.WithLogger(log),
		liveness.WithMetrics(metrics.New()),
		liveness.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	sweeper := liveness.NewSweeper(orchestrator, sessionStore, cfg.Liveness.SweepInterval, log)
	g.Go(func() error {
		err := sweeper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	kycService := kyc.NewService(kyc.NewMemoryStore(), orchestrator, log)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Validator: auth.NewJWTValidator(cfg.JWTSigningKey, cfg.JWTIssuer),
		Features: []httptransport.Registrar{
			livenesshandler.New(orchestrator, log),
			kyc.NewHandler(kycService, log),
		},
		Checkers: checkers,
	})

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting facelive", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildDetectors(cfg config.Server, log *slog.Logger) (map[liveness.StepKind]liveness.Detector, error) {
	kinds := []liveness.StepKind{liveness.StepPresence, liveness.StepBlinkGaze, liveness.StepVoiceCaptcha}
	detectors := make(map[liveness.StepKind]liveness.Detector, len(kinds))

	if cfg.DetectorBaseURL != "" {
		client, err := remote.New(cfg.DetectorBaseURL, remote.WithLogger(log))
		if err != nil {
			return nil, err
		}
		for _, kind := range kinds {
			detectors[kind] = client.ForKind(kind)
		}
		log.Info("using remote detectors", "base_url", cfg.DetectorBaseURL)
		return detectors, nil
	}

	local := static.New()
	for _, kind := range kinds {
		detectors[kind] = local
	}
	log.Info("using built-in static detectors")
	return detectors, nil
}

type healthCheck struct {
	name string
	fn   func(context.Context) error
}

func (h healthCheck) Name() string { return h.name }

func (h healthCheck) Healthy(ctx context.Context) error { return h.fn(ctx) }
