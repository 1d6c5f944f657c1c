// Package milvus maintains the factor-vector index behind similar-case
// retrieval.  Every recorded analysis is stored as a six-dimensional vector of
// its risk factor scores; new assessments search the index for the nearest
// historical cases by cosine similarity.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

// MilvusClientFactory creates the underlying SDK client.  Tests swap it to
// avoid a live server.
type MilvusClientFactory func(ctx context.Context, cfg client.Config) (client.Client, error)

var milvusNewClient MilvusClientFactory = client.NewClient

const (
	defaultConnectTimeout = 10 * time.Second
	defaultHealthInterval = 30 * time.Second

	// Consecutive failed health checks before the client re-dials.
	reconnectThreshold = 3
)

// Client wraps the Milvus SDK client with connection supervision.  A
// background loop probes the server and re-dials after repeated failures, so
// the handle stays usable across server restarts.
type Client struct {
	cfg    config.MilvusConfig
	logger logging.Logger

	mu     sync.RWMutex
	mc     client.Client
	closed bool

	healthy        atomic.Bool
	connectTimeout time.Duration
	healthInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// ClientOption adjusts connection supervision parameters.
type ClientOption func(*Client)

// WithConnectTimeout bounds the initial dial and every re-dial.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.connectTimeout = d }
}

// WithHealthCheckInterval sets the probe period of the supervision loop.
func WithHealthCheckInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.healthInterval = d }
}

// NewClient dials Milvus using the platform configuration, verifies the
// server responds, and starts the health supervision loop.
func NewClient(cfg config.MilvusConfig, log logging.Logger, opts ...ClientOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "milvus address is required")
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

	dialCtx, cancel := context.WithTimeout(context.Background(), c.connectTimeout)
	defer cancel()

	mc, err := dial(dialCtx, cfg)
	if err != nil {
		return nil, err
	}
	c.mc = mc

	if err := c.CheckHealth(dialCtx); err != nil {
		mc.Close() //nolint:errcheck
		return nil, err
	}

	loopCtx, loopCancel := context.WithCancel(context.Background())
	c.cancel = loopCancel
	go c.runHealthLoop(loopCtx)

	log.Info("Milvus client connected",
		logging.String("addr", cfg.Addr),
		logging.String("db", cfg.DBName))
	return c, nil
}

// dial opens a plaintext gRPC connection with client-side keepalive, so idle
// connections through load balancers are not silently dropped.
func dial(ctx context.Context, cfg config.MilvusConfig) (client.Client, error) {
	mc, err := milvusNewClient(ctx, client.Config{
		Address: cfg.Addr,
		DBName:  cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                60 * time.Second,
				Timeout:             20 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreError, "milvus dial failed")
	}
	return mc, nil
}

// CheckHealth probes the server and records the outcome for IsHealthy.
func (c *Client) CheckHealth(ctx context.Context) error {
	if _, err := c.GetMilvusClient().CheckHealth(ctx); err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeVectorStoreError, "milvus health check failed")
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the most recent health probe.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	v, err := c.GetMilvusClient().GetVersion(ctx)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeVectorStoreError, "milvus version query failed")
	}
	return v, nil
}

// GetMilvusClient returns the current SDK handle.  The handle may be swapped
// by the supervision loop, so callers must not retain it across requests.
func (c *Client) GetMilvusClient() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mc
}

func (c *Client) runHealthLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.healthInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
			err := c.CheckHealth(probeCtx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			c.logger.Warn("Milvus health check failed",
				logging.Err(err),
				logging.Int("consecutive", failures))
			if failures < reconnectThreshold {
				continue
			}
			if rerr := c.reconnect(ctx); rerr != nil {
				c.logger.Error("Milvus reconnect failed", logging.Err(rerr))
				continue
			}
			failures = 0
		}
	}
}

// reconnect dials a fresh SDK client and swaps it in before closing the old
// one, so concurrent callers never observe a closed handle.
func (c *Client) reconnect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	mc, err := dial(dialCtx, c.cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.mc
	c.mc = mc
	c.mu.Unlock()

	if old != nil {
		old.Close() //nolint:errcheck
	}
	c.healthy.Store(true)
	c.logger.Info("Milvus client reconnected", logging.String("addr", c.cfg.Addr))
	return nil
}

// Close stops the supervision loop and releases the connection.  It is safe
// to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	mc := c.mc
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	c.healthy.Store(false)

	var err error
	if mc != nil {
		err = mc.Close()
	}
	if c.logger != nil {
		c.logger.Info("Closed Milvus client")
	}
	return err
}
