// Command server runs the validation bus API. Wiring only lives here;
// business logic stays in the internal packages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veritas/internal/audit"
	"veritas/internal/caller"
	"veritas/internal/grouplock"
	"veritas/internal/jwttoken"
	"veritas/internal/platform/config"
	"veritas/internal/platform/httpserver"
	"veritas/internal/platform/logger"
	"veritas/internal/platform/middleware"
	"veritas/internal/platform/postgres"
	"veritas/internal/platform/redisclient"
	"veritas/internal/validation"
	"veritas/internal/validation/catalog"
	"veritas/internal/validation/decision"
	"veritas/internal/validation/metrics"
	"veritas/internal/validation/refdata"
	"veritas/internal/validation/rules"
	"veritas/internal/validation/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		records     store.RecordStore
		callerStore interface {
			caller.Store
			caller.Seeder
		}
	)
	if cfg.Database.URL != "" {
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(cfg.Database.URL); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
		}
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		records = store.NewPostgres(pool)
		callerStore = caller.NewPostgresStore(pool)
		log.InfoContext(ctx, "using postgres stores")
	} else {
		records = store.NewMemory()
		callerStore = caller.NewMemoryStore()
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
	}

	if err := callerStore.Seed(ctx, caller.BuildCredentials(caller.DevSeed(), time.Now().UTC())); err != nil {
		return fmt.Errorf("seeding callers: %w", err)
	}

	var locks grouplock.Locker
	if cfg.Redis.URL != "" {
		client, err := redisclient.New(ctx, redisclient.Options{
			URL:          cfg.Redis.URL,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		locks = grouplock.NewRedisLocker(client, grouplock.RedisOptions{
			TTL:   cfg.Redis.LockTTL,
			Wait:  cfg.Redis.LockWait,
			Retry: cfg.Redis.LockRetry,
		})
		log.InfoContext(ctx, "using redis group locks")
	} else {
		locks = grouplock.NewMemoryLocker()
		log.WarnContext(ctx, "REDIS_URL not set, group locks are process local")
	}

	var sink audit.Sink
	if brokers := cfg.Audit.KafkaBrokerList(); len(brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(brokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaSink.Close(closeCtx); err != nil {
				log.Error("closing kafka sink", "error", err)
			}
		}()
		sink = kafkaSink
		log.InfoContext(ctx, "audit events go to kafka", "topic", cfg.Audit.KafkaTopic)
	} else {
		sink = audit.NewLogSink(log)
		log.InfoContext(ctx, "audit events go to the log")
	}
	inbox := make(chan audit.Event, cfg.Audit.BufferSize)
	auditWorker := audit.NewWorker(sink, inbox, log)

	directory := refdata.NewStatic()
	registry := rules.NewRegistry(
		rules.NewPhoneValidator(directory, cfg.Rules.DefaultPhoneRegion),
		rules.NewTaxIDValidator(directory),
		rules.NewEmailValidator(directory, cfg.Rules.DenyDomainSet(), cfg.Rules.AllowDomainSet()),
		rules.NewPostalCodeValidator(directory),
		rules.NewAddressValidator(directory, rules.NewPostalCodeValidator(directory)),
	)
	engine := decision.NewEngine(catalog.New(), records, log,
		decision.NewPhoneCompliancePolicy(cfg.Rules.StrictComplianceSet()),
		decision.NewPostalEnrichmentPolicy(),
	)

	callerSvc := caller.NewService(callerStore, log)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)

	svc := validation.NewService(validation.Options{
		Validators: registry,
		Engine:     engine,
		Records:    records,
		Tiers:      callerSvc,
		Locks:      locks,
		Audit:      audit.NewPublisher(inbox, log),
		Logger:     log,
		Metrics:    metrics.New(prometheus.DefaultRegisterer),
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestContext)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireCaller(callerSvc, tokens, log))
		validation.NewHandler(svc, log).Register(r)
	})

	srv := httpserver.New(r, httpserver.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}
