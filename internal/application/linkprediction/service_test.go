package linkprediction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/testutil"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

func TestService_Recommend(t *testing.T) {
	m := sampleTrades()
	svc := NewService(DefaultScorers(m, m, m), Config{}, nil)

	rec, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.NoError(t, err)
	assert.Equal(t, trade.MethodCombined, rec.Method)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, "S3", rec.Results[0].Name)
	assert.Equal(t, "S4", rec.Results[1].Name)
	assert.Equal(t, "Cluster 2", rec.Results[0].SegmentTag)
	for _, r := range rec.Results {
		assert.LessOrEqual(t, r.FinalConfidence, trade.MaxConfidence)
		assert.NotEqual(t, "S1", r.Name)
		assert.NotEqual(t, "S2", r.Name)
	}
}

func TestService_NoHistoryIsEmpty(t *testing.T) {
	m := sampleTrades()
	svc := NewService(DefaultScorers(m, m, m), Config{}, nil)

	rec, err := svc.Recommend(context.Background(), "Ghost Trading Co", trade.RecommendBuyers, 0)
	require.NoError(t, err)
	assert.Empty(t, rec.Results)
}

type failingScorer struct{ method trade.Method }

func (f failingScorer) Method() trade.Method { return f.method }

func (f failingScorer) Score(context.Context, string, trade.RecommendDirection, int) ([]trade.MethodScore, error) {
	return nil, stderrors.New("store offline")
}

func TestService_StoreFailureFailsClosed(t *testing.T) {
	m := sampleTrades()
	log := testutil.NewMockLogger()
	var mu sync.Mutex
	observed := map[trade.Method]error{}
	scorers := DefaultScorers(m, m, m)
	scorers[0] = failingScorer{method: trade.MethodEmbedding}
	svc := NewService(scorers, Config{}, log, WithScorerObserver(func(method trade.Method, _ int, err error) {
		mu.Lock()
		observed[method] = err
		mu.Unlock()
	}))

	rec, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Contains(t, err.Error(), "store offline")
	assert.Equal(t, 1, log.CountLevel("error"))
	mu.Lock()
	assert.Error(t, observed[trade.MethodEmbedding])
	mu.Unlock()
}

func TestService_StoreFailureKeepsStoreCode(t *testing.T) {
	m := sampleTrades()
	svc := NewService([]Scorer{
		EmbeddingScorer{Embeddings: offlineEmbeddings{}, Network: m},
		ProductCoTradeScorer{Network: m},
	}, Config{}, nil)

	_, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingStoreError))
}

func TestService_FailedRecommendationIsNotCached(t *testing.T) {
	m := sampleTrades()
	cache := &mapCache{data: map[string][]byte{}}
	scorers := DefaultScorers(m, m, m)
	broken := append([]Scorer{failingScorer{method: trade.MethodEmbedding}}, scorers[1:]...)

	svc := NewService(broken, Config{CacheTTL: time.Minute}, nil, WithCache(cache))
	_, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.Error(t, err)
	assert.Empty(t, cache.data)
	assert.Zero(t, cache.loads)

	healthy := NewService(scorers, Config{CacheTTL: time.Minute}, nil, WithCache(cache))
	rec, err := healthy.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.NoError(t, err)
	assert.Len(t, rec.Results, 2)
	assert.Equal(t, 1, cache.loads)
}

// offlineEmbeddings fails every lookup.
type offlineEmbeddings struct{}

func (offlineEmbeddings) Lookup(context.Context, string) (*trade.CompanyEmbedding, error) {
	return nil, stderrors.New("milvus: connection refused")
}

func (offlineEmbeddings) Nearest(context.Context, []float32, trade.Role, []string, int) ([]trade.EmbeddingHit, error) {
	return nil, stderrors.New("milvus: connection refused")
}

func TestService_Validation(t *testing.T) {
	svc := NewService(nil, Config{}, nil)

	_, err := svc.Recommend(context.Background(), "  ", trade.RecommendSellers, 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Recommend(context.Background(), "B1", "partners", 5)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	rec, err := svc.Recommend(context.Background(), "B1", "seller", 5)
	require.NoError(t, err)
	assert.Equal(t, trade.RecommendSellers, rec.Direction)
}

// mapCache is a read-through cache backed by a map.
type mapCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	loads int
	fail  bool
}

func (c *mapCache) GetOrSet(ctx context.Context, key string, dest interface{}, _ time.Duration, loader func(context.Context) (interface{}, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return stderrors.New("connection refused")
	}
	if b, ok := c.data[key]; ok {
		return json.Unmarshal(b, dest)
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	c.loads++
	b, _ := json.Marshal(v)
	c.data[key] = b
	return json.Unmarshal(b, dest)
}

func TestService_Cache(t *testing.T) {
	m := sampleTrades()
	cache := &mapCache{data: map[string][]byte{}}
	svc := NewService(DefaultScorers(m, m, m), Config{CacheTTL: time.Minute}, nil, WithCache(cache))

	first, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), "b1", trade.RecommendSellers, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.loads)
	assert.Equal(t, first.Results, second.Results)
	assert.Contains(t, cache.data, "recommend:sellers:b1:10")
}

func TestService_CacheFailureFallsBack(t *testing.T) {
	m := sampleTrades()
	svc := NewService(DefaultScorers(m, m, m), Config{}, nil, WithCache(&mapCache{fail: true}))

	rec, err := svc.Recommend(context.Background(), "B1", trade.RecommendSellers, 10)
	require.NoError(t, err)
	assert.Len(t, rec.Results, 2)
}

//Personal.AI order the ending
