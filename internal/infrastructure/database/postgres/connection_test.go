package postgres_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/config"
	"github.com/turtacn/CompliSense/internal/infrastructure/database/postgres"
	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
	appErrors "github.com/turtacn/CompliSense/pkg/errors"
)

func TestNewConnectionPool_InvalidSSLMode(t *testing.T) {
	t.Parallel()

	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "complisense",
		SSLMode:  "not-a-mode",
	}

	pool, err := postgres.NewConnectionPool(cfg, logging.NewNopLogger())

	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Equal(t, appErrors.ErrCodeDatabaseError, appErrors.GetCode(err))
}

func TestNewConnectionPool_UnreachableHost(t *testing.T) {
	t.Parallel()

	// Port 1 is never listening; the connect attempt must fail inside the
	// connect timeout instead of hanging.
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "postgres",
		Password: "postgres",
		DBName:   "complisense",
		SSLMode:  "disable",
	}

	start := time.Now()
	pool, err := postgres.NewConnectionPool(cfg, logging.NewNopLogger())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Equal(t, appErrors.ErrCodeDatabaseError, appErrors.GetCode(err))
	assert.Less(t, elapsed, 30*time.Second)
}

func TestClose_NilPoolIsSafe(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { postgres.Close(nil) })
}
