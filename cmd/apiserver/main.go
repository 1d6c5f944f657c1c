// The apiserver binary is the CompliSense front door: it hosts the REST API,
// the gRPC health surface, and the Prometheus metrics endpoint on top of the
// full infrastructure stack.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/CompliSense/internal/application/advisory"
	"github.com/turtacn/CompliSense/internal/application/assessment"
	"github.com/turtacn/CompliSense/internal/application/reporting"
	"github.com/turtacn/CompliSense/internal/application/simulation"
	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/domain/decision"
	"github.com/turtacn/CompliSense/internal/domain/risk"
	"github.com/turtacn/CompliSense/internal/domain/suggestion"
	"github.com/turtacn/CompliSense/internal/domain/whatif"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
	grpcserver "github.com/turtacn/CompliSense/internal/interfaces/grpc"
	httpserver "github.com/turtacn/CompliSense/internal/interfaces/http"
	"github.com/turtacn/CompliSense/internal/interfaces/http/handlers"
	"github.com/turtacn/CompliSense/internal/interfaces/http/middleware"
)

const (
	defaultConfigPath = "configs/config.yaml"
	bootstrapTimeout  = 30 * time.Second
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.Server.GRPC.Port = *grpcPort
	}

	logger, err := logging.NewLogger(buildLogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting CompliSense API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Int("grpc_port", cfg.Server.GRPC.Port),
	)

	// A broken weight table would silently misprice every assessment, so
	// refuse to start on one.
	if err := risk.VerifyWeights(); err != nil {
		logger.Fatal("Risk weight table invalid", logging.Err(err))
	}

	infra, err := initInfrastructure(cfg, logger)
	if err != nil {
		logger.Fatal("Infrastructure initialization failed", logging.Err(err))
	}
	defer infra.Close(logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	if err := infra.Bootstrap(bootCtx); err != nil {
		bootCancel()
		logger.Fatal("Infrastructure bootstrap failed", logging.Err(err))
	}
	bootCancel()

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "complisense",
		Subsystem:            "apiserver",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("Metrics collector initialization failed", logging.Err(err))
	}
	appMetrics := prometheus.RegisterAppMetrics(collector)

	// Domain layer.
	engine := decision.NewEngine(decision.Config{
		ViolationReviewThreshold: cfg.Engine.ViolationReviewThreshold,
	})
	scenarios := whatif.NewEngine(engine)
	triggers := suggestion.NewService(suggestion.Config{
		MinUpcomingDeadlines:   cfg.Engine.MinUpcomingDeadlines,
		MinTrendRecords:        cfg.Engine.MinTrendRecords,
		MinHighRiskEscalations: cfg.Engine.MinHighRiskEscalations,
		MinIncidentRecords:     cfg.Engine.MinIncidentRecords,
		MinFilingRecords:       cfg.Engine.MinFilingRecords,
	})

	// Application layer.
	assessSvc := assessment.NewService(engine, infra.decisions, logger.Named("assessment"),
		assessment.WithSimilarityIndex(infra.vectors, cfg.Engine.SimilarCasesTopK),
		assessment.WithCache(infra.cache),
		assessment.WithPublisher(infra.producer),
	)
	simSvc := simulation.NewService(scenarios, infra.decisions, logger.Named("simulation"))
	advSvc := advisory.NewService(triggers, infra.decisions, infra.suggestions, logger.Named("advisory"),
		advisory.WithPublisher(infra.producer),
		advisory.WithHistoryLimit(cfg.Engine.HistoryLimit),
	)
	repSvc := reporting.NewService(infra.searcher, infra.reports, logger.Named("reporting"),
		reporting.WithRegulationLedger(infra.lineage),
		reporting.WithPublisher(infra.producer),
	)

	// Interface layer.
	router := httpserver.NewRouter(httpserver.RouterConfig{
		AssessmentHandler: handlers.NewAssessmentHandler(assessSvc, logger),
		SimulationHandler: handlers.NewSimulationHandler(simSvc, logger),
		SuggestionHandler: handlers.NewSuggestionHandler(advSvc, logger),
		SearchHandler:     handlers.NewSearchHandler(infra.searcher, logger),
		ReportHandler:     handlers.NewReportHandler(repSvc, logger),
		RegulationHandler: handlers.NewRegulationHandler(risk.NewJurisdictionAnalyzer()),
		HealthHandler:     handlers.NewHealthHandler(version, infra.HealthCheckers(logger)...),

		CORSMiddleware:      middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()),
		LoggingMiddleware:   middleware.NewLoggingMiddleware(logger, middleware.DefaultLoggingConfig()),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(middleware.DefaultRateLimitConfig()),

		Logger:           logger,
		MetricsCollector: collector,
	})

	httpSrv := httpserver.NewServer(cfg.Server, router, logger)
	grpcSrv, err := grpcserver.NewServer(cfg.Server.GRPC,
		grpcserver.WithLogger(logger),
		grpcserver.WithMetrics(appMetrics),
	)
	if err != nil {
		logger.Fatal("gRPC server initialization failed", logging.Err(err))
	}

	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := grpcSrv.Start(); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("Server failed", logging.Err(err))
	}

	// Flip readiness first so load balancers drain before the listeners close.
	grpcSrv.SetServing(false)

	shutdownCtx := context.Background()
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", logging.Err(err))
	}

	logger.Info("CompliSense API server stopped")
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
