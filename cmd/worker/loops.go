package main

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/CompliSense/internal/application/advisory"
	neo4jrepos "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j/repositories"
	pgrepos "github.com/turtacn/CompliSense/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/redis"
	"github.com/turtacn/CompliSense/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/milvus"
	"github.com/turtacn/CompliSense/internal/infrastructure/search/opensearch"
	"github.com/turtacn/CompliSense/internal/infrastructure/storage/minio"
	"github.com/turtacn/CompliSense/pkg/types/compliance"
)

const (
	advisoryScanLock   = "advisory-scan"
	retentionSweepLock = "retention-sweep"
	unlockTimeout      = 5 * time.Second

	// scanLookback bounds how far back an entity's latest decision may lie
	// for the entity to still be scanned; dormant entities drop out.
	scanLookback    = 30 * 24 * time.Hour
	scanEntityLimit = 200
)

// advisoryScanner periodically re-examines recently active entities and
// raises proactive suggestions from their decision history.
type advisoryScanner struct {
	decisions *pgrepos.DecisionRepository
	advisor   advisory.Service
	locks     redis.LockFactory // nil when a lone worker needs no coordination
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	interval    time.Duration
	concurrency int
	queueDepth  int
}

func (s *advisoryScanner) run(ctx context.Context) error {
	s.logger.Info("Advisory scan loop started", logging.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Advisory scan loop stopped")
			return nil
		case <-ticker.C:
			s.scanOnce(ctx)
		}
	}
}

func (s *advisoryScanner) scanOnce(ctx context.Context) {
	if s.locks != nil {
		mu := s.locks.NewMutex(advisoryScanLock,
			redis.WithLockTTL(5*time.Minute),
			redis.WithWatchdog(true),
		)
		acquired, err := mu.TryLock(ctx)
		if err != nil {
			s.logger.Warn("Scan lock unavailable", logging.Err(err))
			return
		}
		if !acquired {
			s.logger.Debug("Another replica holds the scan lock")
			return
		}
		defer unlock(mu, s.logger)
	}

	started := time.Now()
	entities, err := s.decisions.ActiveEntities(ctx, started.Add(-scanLookback), scanEntityLimit)
	if err != nil {
		s.logger.Error("Active entity lookup failed", logging.Err(err))
		prometheus.RecordSuggestionScan(s.metrics, "worker", err, time.Since(started))
		return
	}
	if len(entities) == 0 {
		s.logger.Debug("No recently active entities to scan")
		return
	}

	jobs := make(chan string, s.queueDepth)
	workers := s.concurrency
	if workers > len(entities) {
		workers = len(entities)
	}

	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				s.scanEntity(ctx, name)
			}
		}()
	}

feed:
	for _, name := range entities {
		select {
		case jobs <- name:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	s.logger.Info("Advisory scan pass complete",
		logging.Int("entities", len(entities)),
		logging.Duration("took", time.Since(started)),
	)
}

func (s *advisoryScanner) scanEntity(ctx context.Context, name string) {
	started := time.Now()
	result, err := s.advisor.Scan(ctx, compliance.SuggestionScanRequest{EntityName: name})
	prometheus.RecordSuggestionScan(s.metrics, "worker", err, time.Since(started))
	if err != nil {
		s.logger.Warn("Entity scan failed", logging.String("entity", name), logging.Err(err))
		return
	}
	if len(result.Suggestions) > 0 {
		s.logger.Info("Suggestions raised",
			logging.String("entity", name),
			logging.Int("count", len(result.Suggestions)),
		)
	}
}

// retentionSweeper deletes decision data past the retention window from
// every store that holds a projection of it.
type retentionSweeper struct {
	decisions   *pgrepos.DecisionRepository
	suggestions *pgrepos.SuggestionRepository
	indexer     *opensearch.Indexer
	vectors     *milvus.Searcher
	lineage     *neo4jrepos.LineageRepository
	reports     *minio.ReportRepository
	locks       redis.LockFactory
	logger      logging.Logger

	window   time.Duration
	interval time.Duration
}

func (s *retentionSweeper) run(ctx context.Context) error {
	s.logger.Info("Retention sweep loop started",
		logging.Duration("window", s.window),
		logging.Duration("interval", s.interval),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retention sweep loop stopped")
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce removes expired rows from each store in turn.  A failing store is
// logged and skipped so one outage cannot let every other store grow without
// bound; the next pass retries it with an older cutoff.
func (s *retentionSweeper) sweepOnce(ctx context.Context) {
	if s.locks != nil {
		mu := s.locks.NewMutex(retentionSweepLock,
			redis.WithLockTTL(15*time.Minute),
			redis.WithWatchdog(true),
		)
		acquired, err := mu.TryLock(ctx)
		if err != nil {
			s.logger.Warn("Sweep lock unavailable", logging.Err(err))
			return
		}
		if !acquired {
			s.logger.Debug("Another replica holds the sweep lock")
			return
		}
		defer unlock(mu, s.logger)
	}

	started := time.Now()
	cutoff := started.Add(-s.window)
	s.logger.Info("Retention sweep starting", logging.String("cutoff", cutoff.Format(time.RFC3339)))

	var removed int64
	if n, err := s.decisions.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Decision sweep failed", logging.Err(err))
	} else {
		removed += n
	}
	if n, err := s.suggestions.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Suggestion sweep failed", logging.Err(err))
	} else {
		removed += n
	}
	if n, err := s.indexer.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Search index sweep failed", logging.Err(err))
	} else {
		removed += n
	}
	if err := s.vectors.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Vector sweep failed", logging.Err(err))
	}
	if n, err := s.lineage.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Lineage sweep failed", logging.Err(err))
	} else {
		removed += n
	}
	if n, err := s.reports.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("Report sweep failed", logging.Err(err))
	} else {
		removed += int64(n)
	}

	s.logger.Info("Retention sweep complete",
		logging.Int64("removed", removed),
		logging.Duration("took", time.Since(started)),
	)
}

// unlock releases a periodic-loop lock on its own deadline so shutdown does
// not leave the lock held until its TTL expires.
func unlock(mu redis.DistributedLock, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	if err := mu.Unlock(ctx); err != nil {
		logger.Warn("Lock release failed", logging.Err(err))
	}
}

// runHeartbeat logs consumer throughput at a fixed cadence so a stalled
// worker is visible in the logs even when nothing else is being written.
func runHeartbeat(ctx context.Context, consumer *kafka.Consumer, interval time.Duration, logger logging.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := consumer.GetMetrics()
			logger.Info("Worker heartbeat",
				logging.Int64("consumed", snap.MessagesConsumed),
				logging.Int64("processed", snap.MessagesProcessed),
				logging.Int64("failed", snap.MessagesFailed),
				logging.Int64("dead_lettered", snap.MessagesDeadLettered),
				logging.Int64("lag", snap.Lag),
			)
		}
	}
}
