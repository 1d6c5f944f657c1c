package milvus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

type mockMilvusClient struct {
	client.Client

	checkHealthFunc func(ctx context.Context) (*entity.MilvusState, error)
	getVersionFunc  func(ctx context.Context) (string, error)
	closeFunc       func() error
}

func (m *mockMilvusClient) CheckHealth(ctx context.Context) (*entity.MilvusState, error) {
	if m.checkHealthFunc != nil {
		return m.checkHealthFunc(ctx)
	}
	return &entity.MilvusState{}, nil
}

func (m *mockMilvusClient) GetVersion(ctx context.Context) (string, error) {
	if m.getVersionFunc != nil {
		return m.getVersionFunc(ctx)
	}
	return "v2.4.1", nil
}

func (m *mockMilvusClient) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestMilvusConfig() config.MilvusConfig {
	return config.MilvusConfig{
		Addr:             "localhost:19530",
		DBName:           "compliance",
		EmbeddingDim:     6,
		DefaultTopK:      5,
		CollectionPrefix: "complisense_",
	}
}

func swapClientFactory(t *testing.T, fn MilvusClientFactory) {
	t.Helper()
	orig := milvusNewClient
	milvusNewClient = fn
	t.Cleanup(func() { milvusNewClient = orig })
}

func TestNewClient_MissingAddr(t *testing.T) {
	cfg := newTestMilvusConfig()
	cfg.Addr = ""

	c, err := NewClient(cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeConfigInvalid))
}

func TestNewClient_Success(t *testing.T) {
	var captured client.Config
	swapClientFactory(t, func(ctx context.Context, cfg client.Config) (client.Client, error) {
		captured = cfg
		return &mockMilvusClient{}, nil
	})

	c, err := NewClient(newTestMilvusConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close() //nolint:errcheck

	assert.Equal(t, "localhost:19530", captured.Address)
	assert.Equal(t, "compliance", captured.DBName)
	assert.NotEmpty(t, captured.DialOptions)
	assert.True(t, c.IsHealthy())
}

func TestNewClient_DialFailure(t *testing.T) {
	swapClientFactory(t, func(ctx context.Context, cfg client.Config) (client.Client, error) {
		return nil, errors.New("connection refused")
	})

	c, err := NewClient(newTestMilvusConfig(), logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeVectorStoreError))
}

func TestNewClient_UnhealthyServer(t *testing.T) {
	var closes atomic.Int64
	swapClientFactory(t, func(ctx context.Context, cfg client.Config) (client.Client, error) {
		return &mockMilvusClient{
			checkHealthFunc: func(ctx context.Context) (*entity.MilvusState, error) {
				return nil, errors.New("not serving")
			},
			closeFunc: func() error {
				closes.Add(1)
				return nil
			},
		}, nil
	})

	c, err := NewClient(newTestMilvusConfig(), logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeVectorStoreError))
	assert.Equal(t, int64(1), closes.Load(), "failed client must release its connection")
}

func TestClient_CheckHealth_TogglesHealthy(t *testing.T) {
	healthErr := errors.New("query node down")
	var fail atomic.Bool
	mock := &mockMilvusClient{
		checkHealthFunc: func(ctx context.Context) (*entity.MilvusState, error) {
			if fail.Load() {
				return nil, healthErr
			}
			return &entity.MilvusState{}, nil
		},
	}
	c := &Client{mc: mock, logger: logging.NewNopLogger()}

	require.NoError(t, c.CheckHealth(context.Background()))
	assert.True(t, c.IsHealthy())

	fail.Store(true)
	err := c.CheckHealth(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrCodeVectorStoreError))
	assert.False(t, c.IsHealthy())
}

func TestClient_Version(t *testing.T) {
	mock := &mockMilvusClient{
		getVersionFunc: func(ctx context.Context) (string, error) {
			return "v2.4.1", nil
		},
	}
	c := &Client{mc: mock, logger: logging.NewNopLogger()}

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2.4.1", v)
}

func TestClient_HealthLoop_ReconnectsAfterRepeatedFailures(t *testing.T) {
	var dials atomic.Int64
	var firstHealthCalls atomic.Int64

	// The first client passes the construction probe and then fails every
	// periodic one; the replacement client is always healthy.
	swapClientFactory(t, func(ctx context.Context, cfg client.Config) (client.Client, error) {
		if dials.Add(1) == 1 {
			return &mockMilvusClient{
				checkHealthFunc: func(ctx context.Context) (*entity.MilvusState, error) {
					if firstHealthCalls.Add(1) == 1 {
						return &entity.MilvusState{}, nil
					}
					return nil, errors.New("lost connection")
				},
			}, nil
		}
		return &mockMilvusClient{}, nil
	})

	c, err := NewClient(newTestMilvusConfig(), logging.NewNopLogger(),
		WithHealthCheckInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	assert.Eventually(t, func() bool {
		return dials.Load() >= 2 && c.IsHealthy()
	}, 2*time.Second, 10*time.Millisecond, "client should re-dial after consecutive failures")
}

func TestClient_Close_Idempotent(t *testing.T) {
	var closes atomic.Int64
	swapClientFactory(t, func(ctx context.Context, cfg client.Config) (client.Client, error) {
		return &mockMilvusClient{
			closeFunc: func() error {
				closes.Add(1)
				return nil
			},
		}, nil
	})

	c, err := NewClient(newTestMilvusConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, int64(1), closes.Load())
	assert.False(t, c.IsHealthy())
}
