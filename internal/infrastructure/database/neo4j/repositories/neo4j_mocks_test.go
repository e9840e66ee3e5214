package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	infraNeo4j "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j"
)

// MockInfraDriver implements infraNeo4j.DriverInterface and runs work
// against Tx.
type MockInfraDriver struct {
	mock.Mock
	Tx *MockInfraTransaction
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	m.Called(ctx)
	return work(m.Tx)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	m.Called(ctx)
	return work(m.Tx)
}

func (m *MockInfraDriver) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockInfraDriver) Close() error {
	return m.Called().Error(0)
}

// MockInfraTransaction implements infraNeo4j.Transaction
type MockInfraTransaction struct {
	mock.Mock
}

func (m *MockInfraTransaction) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(infraNeo4j.Result), args.Error(1)
}

// MockResult replays Records.
type MockResult struct {
	Records []*neo4j.Record
	current int
}

func (m *MockResult) Next(context.Context) bool {
	if m.current < len(m.Records) {
		m.current++
		return true
	}
	return false
}

func (m *MockResult) Record() *neo4j.Record {
	if m.current == 0 || m.current > len(m.Records) {
		return nil
	}
	return m.Records[m.current-1]
}

func (m *MockResult) Err() error { return nil }

func (m *MockResult) Consume(context.Context) (neo4j.ResultSummary, error) { return nil, nil }

// NewRecord builds a record from parallel keys and values.
func NewRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func newMockDriver() (*MockInfraDriver, *MockInfraTransaction) {
	tx := new(MockInfraTransaction)
	d := &MockInfraDriver{Tx: tx}
	d.On("ExecuteRead", mock.Anything).Maybe()
	d.On("ExecuteWrite", mock.Anything).Maybe()
	return d, tx
}

//Personal.AI order the ending
