package milvus

import (
	"context"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/mock"
)

// mockSDK embeds client.Client so only the methods under test need
// implementations.
type mockSDK struct {
	client.Client
	mock.Mock
}

func (m *mockSDK) CheckHealth(ctx context.Context) (*entity.MilvusState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MilvusState), args.Error(1)
}

func (m *mockSDK) Close() error { return m.Called().Error(0) }

func (m *mockSDK) HasCollection(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockSDK) CreateCollection(ctx context.Context, schema *entity.Schema, shards int32, _ ...client.CreateCollectionOption) error {
	return m.Called(ctx, schema, shards).Error(0)
}

func (m *mockSDK) DropCollection(ctx context.Context, name string, _ ...client.DropCollectionOption) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockSDK) CreateIndex(ctx context.Context, coll, field string, idx entity.Index, async bool, _ ...client.IndexOption) error {
	return m.Called(ctx, coll, field, idx, async).Error(0)
}

func (m *mockSDK) LoadCollection(ctx context.Context, name string, async bool, _ ...client.LoadCollectionOption) error {
	return m.Called(ctx, name, async).Error(0)
}

func (m *mockSDK) Query(ctx context.Context, coll string, partitions []string, expr string, fields []string, _ ...client.SearchQueryOptionFunc) (client.ResultSet, error) {
	args := m.Called(ctx, coll, expr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(client.ResultSet), args.Error(1)
}

func (m *mockSDK) Search(ctx context.Context, coll string, partitions []string, expr string, fields []string, vectors []entity.Vector, vectorField string, metric entity.MetricType, topK int, sp entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	args := m.Called(ctx, coll, expr, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]client.SearchResult), args.Error(1)
}

func (m *mockSDK) Upsert(ctx context.Context, coll, partition string, columns ...entity.Column) (entity.Column, error) {
	args := m.Called(ctx, coll, columns)
	return nil, args.Error(0)
}

func (m *mockSDK) Flush(ctx context.Context, coll string, async bool, _ ...client.FlushOption) error {
	return m.Called(ctx, coll, async).Error(0)
}

func newTestClient(sdk *mockSDK) *Client {
	c := &Client{milvus: sdk, config: ClientConfig{Address: "localhost:19530"}}
	c.config.applyDefaults()
	c.logger = nopLogger()
	return c
}

//Personal.AI order the ending
