// Command matchengine is the batch worker + scheduler process: it
// drains the work queue that the Batch Coordinator enqueues partitions
// onto, scoring each opportunity/company pair through the Match
// Orchestrator, and polls the Schedule Manager for due triggers. It
// exposes /healthz and /metrics the way the teacher's authz-server
// exposes its HTTP side channel alongside the primary serving loop.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/govbizai/matchcore/internal/batch"
	"github.com/govbizai/matchcore/internal/cache"
	"github.com/govbizai/matchcore/internal/config"
	"github.com/govbizai/matchcore/internal/embedlookup"
	"github.com/govbizai/matchcore/internal/matchcache"
	"github.com/govbizai/matchcore/internal/metrics"
	"github.com/govbizai/matchcore/internal/optimizer"
	"github.com/govbizai/matchcore/internal/orchestrator"
	"github.com/govbizai/matchcore/internal/queue"
	"github.com/govbizai/matchcore/internal/schedule"
	"github.com/govbizai/matchcore/internal/store"
	"github.com/govbizai/matchcore/internal/tracker"
	vectoradapter "github.com/govbizai/matchcore/internal/vector"
	"github.com/govbizai/matchcore/internal/weights"
	"github.com/govbizai/matchcore/pkg/types"
	pkgvector "github.com/govbizai/matchcore/pkg/vector"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	var (
		configPath      = flag.String("config", "", "Path to YAML config file (spec.md §6.5)")
		postgresDSN     = flag.String("postgres-dsn", "", "Postgres DSN; empty uses in-memory stores")
		redisAddr       = flag.String("redis-addr", "", "host:port of Redis for the match cache and schedule lock; empty uses an in-process hybrid cache and a single-instance lock")
		sqsQueueURL     = flag.String("sqs-queue-url", "", "SQS queue URL for batch partitions; empty uses an in-memory queue")
		numWorkers      = flag.Int("workers", 4, "Number of batch worker goroutines")
		itemConcurrency = flag.Int("item-concurrency", 8, "Per-worker in-flight item concurrency")
		httpPort        = flag.Int("http-port", 8080, "HTTP port for /healthz and /metrics")
		logLevel        = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat       = flag.String("log-format", "json", "Log format (json, console)")
		showVersion     = flag.Bool("version", false, "Show version information")
		gracefulTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("matchengine %s\n", Version)
		os.Exit(0)
	}

	logger, err := initLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	var configWatcher *config.Watcher
	if *configPath != "" {
		configWatcher, err = config.NewWatcher(*configPath, cfg, logger)
		if err != nil {
			logger.Fatal("failed to build config watcher", zap.Error(err))
		}
	}

	db := openPostgres(*postgresDSN, logger)
	if db != nil {
		defer db.Close()
	}
	catalog, companies, matches, jobs, schedules := wireStores(db)

	matchCache := wireMatchCache(cfg, *redisAddr, logger)

	vectorStore, err := vectoradapter.NewVectorStore(pkgvector.Config{Backend: "memory", Dimension: cfg.EmbeddingDimension})
	if err != nil {
		logger.Fatal("failed to build vector store", zap.Error(err))
	}
	defer vectorStore.Close()

	promMetrics := metrics.NewPrometheusMetrics("matchcore")

	orch := orchestrator.New(matchCache, cfg,
		orchestrator.WithEmbeddingLookup(embedlookup.New(vectorStore, logger).Resolve),
		orchestrator.WithMetrics(promMetrics),
		orchestrator.WithLogger(logger),
	)

	weightResolver := weights.New(weights.NewInMemoryStore())
	wq := wireQueue(*sqsQueueURL, logger)
	trackerRegistry := tracker.NewRegistry()

	deps := batch.Dependencies{
		Catalog:      catalog,
		Companies:    companies,
		Matches:      matches,
		Jobs:         jobs,
		Queue:        wq,
		Orchestrator: orch,
		Weights:      weightResolver,
		Tracker:      trackerRegistry,
		Optimizer:    optimizer.New(cfg),
		Metrics:      promMetrics,
		Logger:       logger,
		Config:       cfg,
	}
	coordinator := batch.New(deps)
	scheduleManager := schedule.New(schedules, coordinator, wireLocker(*redisAddr), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if configWatcher != nil {
		if err := configWatcher.Watch(ctx); err != nil {
			logger.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer configWatcher.Stop()
			go logConfigReloads(ctx, configWatcher, logger)
		}
	}

	for i := 0; i < *numWorkers; i++ {
		w := batch.NewWorker(deps)
		go w.Run(ctx, *itemConcurrency)
	}
	logger.Info("batch workers started", zap.Int("workers", *numWorkers), zap.Int("item_concurrency", *itemConcurrency))

	go scheduleManager.Run(ctx)
	logger.Info("schedule manager polling", zap.Duration("interval", schedule.PollInterval))

	httpSrv := startHTTPServer(*httpPort, promMetrics, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *gracefulTimeout)
	defer shutdownCancel()
	cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	logger.Info("matchengine stopped")
}

// logConfigReloads drains a config.Watcher's event channel for the
// process lifetime. Live reloads currently surface as new config
// values an operator can read off the watcher; components built at
// startup (orchestrator, batch, optimizer) keep the values captured
// when they were constructed, the way the teacher's policy store
// swaps its in-memory set on reload rather than rebuilding callers.
func logConfigReloads(ctx context.Context, w *config.Watcher, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if ev.Error != nil {
				logger.Error("config reload failed", zap.Error(ev.Error))
				continue
			}
			logger.Info("config reload applied", zap.Time("at", ev.Timestamp))
		}
	}
}

func openPostgres(dsn string, logger *zap.Logger) *sql.DB {
	if dsn == "" {
		return nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal("failed to open postgres connection", zap.Error(err))
	}
	runner, err := store.NewMigrationRunner(db)
	if err != nil {
		logger.Fatal("failed to prepare migrations", zap.Error(err))
	}
	if err := runner.Up(); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}
	return db
}

func wireStores(db *sql.DB) (store.OpportunityCatalog, store.CompanyStore, store.MatchesStore, store.JobStore, store.ScheduleStore) {
	if db == nil {
		return store.NewMemoryCatalog(), store.NewMemoryCompanyStore(), store.NewMemoryMatchesStore(), store.NewMemoryJobStore(), store.NewMemoryScheduleStore()
	}
	return store.NewPostgresCatalog(db), store.NewPostgresCompanyStore(db), store.NewPostgresMatchesStore(db), store.NewPostgresJobStore(db), store.NewPostgresScheduleStore(db)
}

// wireMatchCache builds the fingerprint-keyed match-result cache
// (spec.md §4.1) matchcache.Cache wraps: an in-process hybrid cache
// when redisAddr is empty, or a Redis-backed one sized and timed off
// cfg.CacheTTL otherwise.
func wireMatchCache(cfg types.Config, redisAddr string, logger *zap.Logger) *matchcache.Cache {
	backend, err := cache.NewForConfig(cfg, redisAddr)
	if err != nil {
		logger.Fatal("failed to build match cache", zap.Error(err))
	}
	return matchcache.New(backend, logger)
}

func wireLocker(redisAddr string) schedule.Locker {
	if redisAddr == "" {
		return schedule.NewInMemoryLocker()
	}
	return schedule.NewRedisLocker(redis.NewClient(&redis.Options{Addr: redisAddr}))
}

func wireQueue(queueURL string, logger *zap.Logger) queue.Queue {
	if queueURL == "" {
		return queue.NewMemoryQueue()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal("failed to load AWS config for SQS", zap.Error(err))
	}
	return queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), queueURL)
}

func startHTTPServer(port int, m *metrics.PrometheusMetrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.HTTPHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	return srv
}

func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return zcfg.Build()
}
