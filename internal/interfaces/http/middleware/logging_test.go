package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CompliSense/internal/infrastructure/monitoring/logging"
)

type logEntry struct {
	level  string
	msg    string
	fields []logging.Field
}

// spyLogger records entries so tests can assert on level and fields.
type spyLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (s *spyLogger) record(level, msg string, fields []logging.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (s *spyLogger) Debug(msg string, fields ...logging.Field) { s.record("debug", msg, fields) }
func (s *spyLogger) Info(msg string, fields ...logging.Field)  { s.record("info", msg, fields) }
func (s *spyLogger) Warn(msg string, fields ...logging.Field)  { s.record("warn", msg, fields) }
func (s *spyLogger) Error(msg string, fields ...logging.Field) { s.record("error", msg, fields) }
func (s *spyLogger) Fatal(msg string, fields ...logging.Field) { s.record("fatal", msg, fields) }

func (s *spyLogger) With(fields ...logging.Field) logging.Logger { return s }
func (s *spyLogger) Named(name string) logging.Logger            { return s }
func (s *spyLogger) Sync() error                                 { return nil }

func (s *spyLogger) all() []logEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]logEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func fieldValue(fields []logging.Field, key string) (interface{}, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func serveLogged(t *testing.T, config LoggingConfig, handler http.HandlerFunc, req *http.Request) (*spyLogger, *httptest.ResponseRecorder) {
	t.Helper()

	spy := &spyLogger{}
	mw := RequestLogging(spy, config)
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)
	return spy, rec
}

func TestRequestLogging_LogsCompletedRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	spy, rec := serveLogged(t, DefaultLoggingConfig(), handler.ServeHTTP,
		httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	entries := spy.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0].level)
	assert.Equal(t, "request completed", entries[0].msg)

	method, ok := fieldValue(entries[0].fields, "method")
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, method)

	path, ok := fieldValue(entries[0].fields, "path")
	require.True(t, ok)
	assert.Equal(t, "/api/v1/assessments", path)

	// Handlers that never call WriteHeader still log 200.
	status, ok := fieldValue(entries[0].fields, "status")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)

	bytes, ok := fieldValue(entries[0].fields, "bytes")
	require.True(t, ok)
	assert.Equal(t, int64(11), bytes)
}

func TestRequestLogging_ServerErrorLogsAtError(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	spy, _ := serveLogged(t, DefaultLoggingConfig(), handler,
		httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := spy.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].level)
	assert.Equal(t, "request failed", entries[0].msg)
}

func TestRequestLogging_ClientErrorLogsAtWarn(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	spy, _ := serveLogged(t, DefaultLoggingConfig(), handler,
		httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := spy.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].level)
	assert.Equal(t, "request rejected", entries[0].msg)
}

func TestRequestLogging_SlowRequestLogsAtWarn(t *testing.T) {
	config := DefaultLoggingConfig()
	config.SlowThreshold = time.Nanosecond

	handler := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}

	spy, _ := serveLogged(t, config, handler,
		httptest.NewRequest(http.MethodGet, "/slow", nil))

	entries := spy.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].level)
	assert.Equal(t, "slow request", entries[0].msg)
}

func TestRequestLogging_SkipsConfiguredPaths(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	spy, rec := serveLogged(t, DefaultLoggingConfig(), handler,
		httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, spy.all())
}

func TestRequestLogging_IncludesRequestID(t *testing.T) {
	spy := &spyLogger{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Request IDs come from chi's RequestID middleware upstream of ours.
	chain := chimw.RequestID(RequestLogging(spy, DefaultLoggingConfig())(handler))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/regulations", nil))

	entries := spy.all()
	require.Len(t, entries, 1)

	reqID, ok := fieldValue(entries[0].fields, "request_id")
	require.True(t, ok)
	assert.NotEmpty(t, reqID)
}

func TestNewLoggingMiddleware_HandlerWrapsRequests(t *testing.T) {
	spy := &spyLogger{}
	mw := NewLoggingMiddleware(spy, DefaultLoggingConfig())

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/assessments", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, spy.all(), 1)
}
