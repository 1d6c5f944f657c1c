// The worker binary is the CompliSense background processor.  It consumes
// recorded decision events and projects them into the search, vector, and
// lineage stores, runs the periodic advisory scan that raises proactive
// suggestions, and enforces the configured data retention window.
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

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/CompliSense/internal/application/advisory"
	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/domain/suggestion"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/redis"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
)

const (
	defaultConfigPath = "configs/config.yaml"
	bootstrapTimeout  = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	concurrency := flag.Int("concurrency", 0, "advisory scan fan-out size (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *concurrency > 0 {
		cfg.Worker.Concurrency = *concurrency
	}

	logger, err := logging.NewLogger(buildLogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting CompliSense worker",
		logging.String("version", version),
		logging.String("mode", cfg.Worker.Mode),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.Int("health_port", cfg.Worker.HealthPort),
	)

	infra, err := initWorkerInfrastructure(cfg, logger)
	if err != nil {
		logger.Fatal("Infrastructure initialization failed", logging.Err(err))
	}
	defer infra.Close(logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	if cfg.Kafka.AutoCreateTopics {
		if err := ensureTopics(bootCtx, cfg.Kafka.Brokers, logger); err != nil {
			bootCancel()
			logger.Fatal("Topic creation failed", logging.Err(err))
		}
	}
	if err := infra.Bootstrap(bootCtx); err != nil {
		bootCancel()
		logger.Fatal("Infrastructure bootstrap failed", logging.Err(err))
	}
	bootCancel()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "complisense",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("Metrics collector initialization failed", logging.Err(err))
	}
	appMetrics := prometheus.RegisterAppMetrics(collector)

	triggers := suggestion.NewService(suggestion.Config{
		MinUpcomingDeadlines:   cfg.Engine.MinUpcomingDeadlines,
		MinTrendRecords:        cfg.Engine.MinTrendRecords,
		MinHighRiskEscalations: cfg.Engine.MinHighRiskEscalations,
		MinIncidentRecords:     cfg.Engine.MinIncidentRecords,
		MinFilingRecords:       cfg.Engine.MinFilingRecords,
	})
	advisor := advisory.NewService(triggers, infra.decisions, infra.suggestions, logger.Named("advisory"),
		advisory.WithPublisher(infra.producer),
		advisory.WithHistoryLimit(cfg.Engine.HistoryLimit),
	)

	projector := &decisionProjector{
		indexer:      infra.indexer,
		vectors:      infra.vectors,
		lineage:      infra.lineage,
		embeddingDim: cfg.Milvus.EmbeddingDim,
		metrics:      appMetrics,
		logger:       logger.Named("projector"),
	}
	infra.consumer.Subscribe(kafka.TopicDecisionRecorded, projector.Handle)

	// In distributed mode the periodic loops are single-flight across
	// replicas; a lone local worker needs no coordination.
	var locks redis.LockFactory
	if cfg.Worker.Mode == "distributed" {
		locks = redis.NewLockFactory(infra.redis, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if err := infra.consumer.Start(gctx); err != nil {
		logger.Fatal("Kafka consumer start failed", logging.Err(err))
	}

	scanner := &advisoryScanner{
		decisions:   infra.decisions,
		advisor:     advisor,
		locks:       locks,
		metrics:     appMetrics,
		logger:      logger.Named("scan"),
		interval:    cfg.Worker.SuggestionScan,
		concurrency: cfg.Worker.Concurrency,
		queueDepth:  cfg.Worker.QueueDepth,
	}
	g.Go(func() error { return scanner.run(gctx) })

	if cfg.Worker.RetentionWindow > 0 {
		sweeper := &retentionSweeper{
			decisions:   infra.decisions,
			suggestions: infra.suggestions,
			indexer:     infra.indexer,
			vectors:     infra.vectors,
			lineage:     infra.lineage,
			reports:     infra.reports,
			locks:       locks,
			logger:      logger.Named("retention"),
			window:      cfg.Worker.RetentionWindow,
			interval:    cfg.Worker.RetentionSweep,
		}
		g.Go(func() error { return sweeper.run(gctx) })
	} else {
		logger.Info("Retention sweep disabled; no retention window configured")
	}

	if cfg.Worker.HeartbeatInterval > 0 {
		g.Go(func() error { return runHeartbeat(gctx, infra.consumer, cfg.Worker.HeartbeatInterval, logger) })
	}

	healthSrv := newHealthServer(cfg.Worker.HealthPort, collector, infra, logger)
	g.Go(func() error {
		logger.Info("Health server listening", logging.String("addr", healthSrv.Addr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return healthSrv.Shutdown(shCtx)
	})

	logger.Info("CompliSense worker running")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker loop failed", logging.Err(err))
	}

	// Drain the in-flight message before the stores it writes to close.
	if err := infra.consumer.Close(); err != nil {
		logger.Error("Kafka consumer close error", logging.Err(err))
	}

	logger.Info("CompliSense worker stopped")
}

// ensureTopics creates the platform topic set so a fresh cluster accepts
// events before the first producer publishes.
func ensureTopics(ctx context.Context, brokers []string, logger logging.Logger) error {
	manager, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("Topic manager close failed", logging.Err(err))
		}
	}()
	return manager.EnsureDefaultTopics(ctx)
}

// loadConfig reads the YAML file when present and falls back to pure
// environment configuration otherwise, so containerised deployments need no
// file at all.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "config file %s not found, using environment configuration\n", path)
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// buildLogConfig maps the platform log settings onto the logging package's
// construction parameters.
func buildLogConfig(cfg config.LogConfig) logging.LogConfig {
	format := "json"
	if cfg.Format == "text" {
		format = "console"
	}
	out := []string{"stdout"}
	if cfg.Output != "" {
		out = []string{cfg.Output}
	}
	return logging.LogConfig{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: out,
	}
}
