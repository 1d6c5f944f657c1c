// Package opensearch maintains the decision-history index.  The worker feeds
// it from recorded decision events; the API and reporting layers run
// full-text and filtered queries against it.
package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultHealthInterval = 30 * time.Second
	defaultMaxRetries     = 3
)

// retryStatuses lists the transient statuses the transport retries on its own.
var retryStatuses = []int{502, 503, 504, 429}

// Client wraps the OpenSearch SDK client with connection-time validation and
// a background health probe.
type Client struct {
	cfg    config.OpenSearchConfig
	logger logging.Logger

	os      *opensearch.Client
	healthy atomic.Bool

	connectTimeout time.Duration
	healthInterval time.Duration

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// ClientOption adjusts client behavior at construction time.
type ClientOption func(*Client)

// WithConnectTimeout bounds the construction-time ping and every periodic
// health probe.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.connectTimeout = d }
}

// WithHealthCheckInterval overrides how often the background probe pings the
// cluster.
func WithHealthCheckInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.healthInterval = d }
}

// NewClient connects to the configured cluster and verifies it responds
// before returning.  A background loop keeps the health flag current so the
// readiness endpoint reflects cluster reachability.
func NewClient(cfg config.OpenSearchConfig, log logging.Logger, opts ...ClientOption) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "opensearch addresses are required")
	}

	c := &Client{
		cfg:            cfg,
		logger:         log,
		connectTimeout: defaultConnectTimeout,
		healthInterval: defaultHealthInterval,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	osCfg := opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.User,
		Password:      cfg.Password,
		MaxRetries:    defaultMaxRetries,
		RetryOnStatus: retryStatuses,
		RetryBackoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 100 * time.Millisecond
		},
	}
	if cfg.InsecureSkipVerify {
		// Lab clusters run self-signed certificates.
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}
	}

	osc, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchIndexError, "opensearch client init failed")
	}
	c.os = osc

	pingCtx, pingCancel := context.WithTimeout(context.Background(), c.connectTimeout)
	defer pingCancel()
	if err := c.Ping(pingCtx); err != nil {
		return nil, err
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	c.cancel = loopCancel
	go c.runHealthLoop(loopCtx)

	log.Info("OpenSearch client connected",
		logging.Any("addresses", cfg.Addresses),
		logging.String("index_prefix", cfg.IndexPrefix),
	)
	return c, nil
}

// Ping issues a cluster ping and records the outcome in the health flag.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.os.Ping(c.os.Ping.WithContext(ctx))
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeSearchIndexError, "opensearch ping failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		c.healthy.Store(false)
		return errors.New(errors.ErrCodeSearchIndexError,
			fmt.Sprintf("opensearch ping returned %s", resp.Status()))
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the most recent probe.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// GetClient exposes the underlying SDK client for request builders.
func (c *Client) GetClient() *opensearch.Client {
	return c.os
}

func (c *Client) runHealthLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			was := c.healthy.Load()
			probeCtx, probeCancel := context.WithTimeout(ctx, c.connectTimeout)
			err := c.Ping(probeCtx)
			probeCancel()
			switch {
			case err != nil && was:
				c.logger.Warn("OpenSearch became unreachable", logging.Err(err))
			case err == nil && !was:
				c.logger.Info("OpenSearch connection recovered")
			}
		}
	}
}

// Close stops the health loop.  The SDK client holds no state beyond the
// transport's idle connection pool, so there is nothing else to release.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	<-c.done
	c.healthy.Store(false)
	c.logger.Info("Closed OpenSearch client")
}

// apiError drains an error response into an AppError carrying the server's
// reason when one is present.
func apiError(resp *opensearchapi.Response, op string) error {
	body, _ := io.ReadAll(resp.Body)
	var parsed struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Reason != "" {
		return errors.New(errors.ErrCodeSearchIndexError,
			fmt.Sprintf("%s: %s: %s", op, parsed.Error.Type, parsed.Error.Reason))
	}
	return errors.New(errors.ErrCodeSearchIndexError,
		fmt.Sprintf("%s: unexpected status %s", op, resp.Status()))
}
