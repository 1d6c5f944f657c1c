package repositories

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	driver "github.com/turtacn/CompliSense/internal/infrastructure/database/neo4j"
)

// mockExecutor implements driver.Executor.  Both execute methods run the
// work function against the shared mock transaction, so repository Cypher
// and record mapping execute for real.  Set failWith to short-circuit the
// transaction instead.
type mockExecutor struct {
	tx       *mockTransaction
	failWith error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{tx: new(mockTransaction)}
}

func (m *mockExecutor) ExecuteRead(ctx context.Context, work driver.TransactionWork) (any, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return work(m.tx)
}

func (m *mockExecutor) ExecuteWrite(ctx context.Context, work driver.TransactionWork) (any, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return work(m.tx)
}

// mockTransaction mocks the transaction seam.
type mockTransaction struct {
	mock.Mock
}

func (m *mockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driver.Result), args.Error(1)
}

// mockResult feeds canned records through the Result seam.
type mockResult struct {
	records []*neo4j.Record
	pos     int
	err     error
	summary neo4j.ResultSummary
}

func (m *mockResult) Next(ctx context.Context) bool {
	if m.err != nil || m.pos >= len(m.records) {
		return false
	}
	m.pos++
	return true
}

func (m *mockResult) Record() *neo4j.Record {
	return m.records[m.pos-1]
}

func (m *mockResult) Err() error {
	return m.err
}

func (m *mockResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return m.summary, nil
}

// mockSummary implements neo4j.ResultSummary; only Counters carries data.
type mockSummary struct {
	counters neo4j.Counters
}

func (m *mockSummary) Counters() neo4j.Counters {
	return m.counters
}

func (m *mockSummary) Query() neo4j.Query {
	var q neo4j.Query
	return q
}

func (m *mockSummary) Database() neo4j.DatabaseInfo {
	return nil
}

func (m *mockSummary) Notifications() []neo4j.Notification {
	return nil
}

func (m *mockSummary) Plan() neo4j.Plan {
	return nil
}

func (m *mockSummary) Profile() neo4j.ProfiledPlan {
	return nil
}

func (m *mockSummary) ResultAvailableAfter() time.Duration {
	return 0
}

func (m *mockSummary) ResultConsumedAfter() time.Duration {
	return 0
}

func (m *mockSummary) Server() neo4j.ServerInfo {
	return nil
}

func (m *mockSummary) StatementType() neo4j.StatementType {
	return neo4j.StatementTypeUnknown
}

// mockCounters implements neo4j.Counters.
type mockCounters struct {
	nodesCreated         int
	nodesDeleted         int
	relationshipsCreated int
	relationshipsDeleted int
}

func (m *mockCounters) NodesCreated() int { return m.nodesCreated }
func (m *mockCounters) NodesDeleted() int { return m.nodesDeleted }
func (m *mockCounters) RelationshipsCreated() int { return m.relationshipsCreated }
func (m *mockCounters) RelationshipsDeleted() int { return m.relationshipsDeleted }
func (m *mockCounters) PropertiesSet() int { return 0 }
func (m *mockCounters) LabelsAdded() int { return 0 }
func (m *mockCounters) LabelsRemoved() int { return 0 }
func (m *mockCounters) IndexesAdded() int { return 0 }
func (m *mockCounters) IndexesRemoved() int { return 0 }
func (m *mockCounters) ConstraintsAdded() int { return 0 }
func (m *mockCounters) ConstraintsRemoved() int { return 0 }
func (m *mockCounters) SystemUpdates() int { return 0 }
func (m *mockCounters) ContainsSystemUpdates() bool { return false }

func (m *mockCounters) ContainsUpdates() bool {
	return m.nodesCreated > 0 || m.nodesDeleted > 0 ||
		m.relationshipsCreated > 0 || m.relationshipsDeleted > 0
}

// newRecord builds a record from parallel keys and values.
func newRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
