package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

type cachedResult struct {
	Query string   `json:"query"`
	Names []string `json:"names"`
}

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewCache(NewClientFromUniversal(db, "test:", nil), nil, WithJitter(0))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheTestSuite) TestGet_Hit() {
	want := cachedResult{Query: "dextrose", Names: []string{"Acme"}}
	raw, _ := json.Marshal(want)
	s.mock.ExpectGet("test:search:1").SetVal(string(raw))

	var got cachedResult
	s.Require().NoError(s.cache.Get(context.Background(), "search:1", &got))
	s.Equal(want, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k").RedisNil()
	var got cachedResult
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "k", &got))
}

func (s *CacheTestSuite) TestGet_NullMarker() {
	s.mock.ExpectGet("test:k").SetVal(nullMarker)
	var got cachedResult
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "k", &got))
}

func (s *CacheTestSuite) TestGet_Error() {
	s.mock.ExpectGet("test:k").SetErr(stderrors.New("READONLY"))
	var got cachedResult
	err := s.cache.Get(context.Background(), "k", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGetOrSet_HitSkipsLoader() {
	raw, _ := json.Marshal(cachedResult{Query: "q"})
	s.mock.ExpectGet("test:k").SetVal(string(raw))

	var got cachedResult
	err := s.cache.GetOrSet(context.Background(), "k", &got, time.Minute, func(context.Context) (interface{}, error) {
		s.Fail("loader called on hit")
		return nil, nil
	})
	s.NoError(err)
	s.Equal("q", got.Query)
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
	s.NoError(s.cache.Delete(context.Background()))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func newMiniCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewCache(NewClientFromUniversal(rdb, "", nil), nil, WithJitter(0))
}

func TestGetOrSet_MissLoadsAndStores(t *testing.T) {
	mr, cache := newMiniCache(t)
	ctx := context.Background()

	var got cachedResult
	err := cache.GetOrSet(ctx, "search:a", &got, time.Minute, func(context.Context) (interface{}, error) {
		return &cachedResult{Query: "a", Names: []string{"X", "Y"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, got.Names)

	assert.True(t, mr.Exists("tradelink:search:a"))
	assert.Equal(t, time.Minute, mr.TTL("tradelink:search:a"))
}

func TestGetOrSet_ReportsHitsAndMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var seen []bool
	cache := NewCache(NewClientFromUniversal(rdb, "", nil), nil, WithJitter(0),
		WithAccessObserver(func(hit bool) { seen = append(seen, hit) }))
	load := func(context.Context) (interface{}, error) { return &cachedResult{Query: "a"}, nil }

	var got cachedResult
	require.NoError(t, cache.GetOrSet(context.Background(), "k", &got, time.Minute, load))
	require.NoError(t, cache.GetOrSet(context.Background(), "k", &got, time.Minute, load))
	assert.Equal(t, []bool{false, true}, seen)
}

func TestGetOrSet_LoaderErrorNotCached(t *testing.T) {
	mr, cache := newMiniCache(t)
	boom := stderrors.New("store down")

	var got cachedResult
	err := cache.GetOrSet(context.Background(), "k", &got, time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.Equal(t, boom, err)
	assert.False(t, mr.Exists("tradelink:k"))
}

func TestGetOrSet_NilResultCachesMarker(t *testing.T) {
	mr, cache := newMiniCache(t)

	var got cachedResult
	err := cache.GetOrSet(context.Background(), "k", &got, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(t, ErrCacheMiss, err)
	v, _ := mr.Get("tradelink:k")
	assert.Equal(t, nullMarker, v)
}

func TestGetOrSet_ConcurrentMissesShareLoader(t *testing.T) {
	_, cache := newMiniCache(t)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var got cachedResult
			_ = cache.GetOrSet(context.Background(), "hot", &got, time.Minute, func(context.Context) (interface{}, error) {
				calls.Add(1)
				<-release
				return cachedResult{Query: "hot"}, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestDeleteByPrefix(t *testing.T) {
	mr, cache := newMiniCache(t)
	require.NoError(t, mr.Set("tradelink:search:1", "{}"))
	require.NoError(t, mr.Set("tradelink:search:2", "{}"))
	require.NoError(t, mr.Set("tradelink:recommend:1", "{}"))

	n, err := cache.DeleteByPrefix(context.Background(), "search:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("tradelink:recommend:1"))
}

//Personal.AI order the ending
