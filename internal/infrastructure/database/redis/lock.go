package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CompliSense/pkg/errors"
)

var (
	// ErrLockNotAcquired is returned when the lock stays held by another
	// owner for the whole retry window.
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	// ErrLockNotHeld is returned by Unlock and Extend when the key expired
	// or belongs to another owner.
	ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

const lockKeyPrefix = "complisense:lock:"

// Ownership is checked before release or extension so one process can never
// drop a lock that another process re-acquired after expiry.
var (
	unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// DistributedLock is a Redis-backed mutual exclusion primitive used to keep
// periodic jobs single-flight across worker replicas.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

// LockFactory builds locks over a shared client.
type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

// LockOption customizes lock behavior.
type LockOption func(*lockConfig)

// WithLockTTL sets the lock expiry.
func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

// WithRetryCount sets how many times Lock retries after the first attempt.
func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

// WithWatchdog enables background extension while the lock is held.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

// WithWatchdogInterval sets how often the watchdog extends the lock.
func WithWatchdogInterval(interval time.Duration) LockOption {
	return func(c *lockConfig) { c.watchdogInterval = interval }
}

type lockConfig struct {
	ttl              time.Duration
	retryDelay       time.Duration
	retryCount       int
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

func defaultLockConfig() *lockConfig {
	return &lockConfig{
		ttl:              30 * time.Second,
		retryDelay:       100 * time.Millisecond,
		retryCount:       30,
		watchdogInterval: 10 * time.Second,
	}
}

type lockFactory struct {
	client *Client
	logger logging.Logger
}

// NewLockFactory builds a LockFactory on top of the shared client.
func NewLockFactory(client *Client, log logging.Logger) LockFactory {
	return &lockFactory{client: client, logger: log}
}

func (f *lockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := defaultLockConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &redisMutex{
		client: f.client,
		logger: f.logger,
		key:    lockKeyPrefix + name,
		value:  uuid.NewString(),
		cfg:    cfg,
	}
}

type redisMutex struct {
	client *Client
	logger logging.Logger
	key    string
	value  string
	cfg    *lockConfig

	mu             sync.Mutex
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

// Lock acquires the mutex, retrying up to the configured count.
func (m *redisMutex) Lock(ctx context.Context) error {
	for attempt := 0; attempt <= m.cfg.retryCount; attempt++ {
		acquired, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if acquired {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

// TryLock makes a single acquisition attempt.
func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	acquired, err := m.client.SetNX(ctx, m.key, m.value, m.cfg.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquisition failed")
	}
	if acquired && m.cfg.watchdogEnabled {
		m.startWatchdog()
	}
	return acquired, nil
}

// Unlock releases the mutex if this instance still owns it.
func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()

	res, err := unlockScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock release failed")
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend pushes the expiry out by ttl if this instance still owns the lock.
func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "lock extension failed")
	}
	return res == 1, nil
}

// TTL reports the remaining lifetime of the lock key.
func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	ttl, err := m.client.GetUnderlyingClient().PTTL(ctx, m.key).Result()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "lock ttl lookup failed")
	}
	return ttl, nil
}

func (m *redisMutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchdogCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.watchdogCancel = cancel
	m.watchdogDone = done

	go runWatchdog(ctx, m.Extend, m.cfg.watchdogInterval, m.cfg.ttl, m.logger, done)
}

func (m *redisMutex) stopWatchdog() {
	m.mu.Lock()
	cancel, done := m.watchdogCancel, m.watchdogDone
	m.watchdogCancel, m.watchdogDone = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// runWatchdog extends the lock on every tick until its context is canceled
// or an extension reports the lock lost.
func runWatchdog(
	ctx context.Context,
	extend func(ctx context.Context, ttl time.Duration) (bool, error),
	interval, ttl time.Duration,
	log logging.Logger,
	done chan<- struct{},
) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extend(ctx, ttl)
			if err != nil {
				log.Warn("Lock watchdog extension failed", logging.Err(err))
				continue
			}
			if !ok {
				log.Warn("Lock lost before watchdog extension")
				return
			}
		}
	}
}
