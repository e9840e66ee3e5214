package search

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/interpreter"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var now = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeCandidates struct {
	mu      sync.Mutex
	cands   []trade.Candidate
	err     error
	calls   int
	lastIDs []int64
	lastQ   trade.ParsedQuery
}

func (f *fakeCandidates) GetCandidates(_ context.Context, ids []int64, q trade.ParsedQuery) ([]trade.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIDs, f.lastQ = ids, q
	if f.err != nil {
		return nil, f.err
	}
	return append([]trade.Candidate(nil), f.cands...), nil
}

// sellers returns n candidates whose volume, activity and price grow with
// their index.
func sellers(n int) []trade.Candidate {
	out := make([]trade.Candidate, n)
	for i := 1; i <= n; i++ {
		out[i-1] = trade.Candidate{
			Name:             fmt.Sprintf("Seller %d", i),
			Country:          fmt.Sprintf("Country %d", i),
			TotalVolumeMT:    float64(100 * i),
			AvgPriceUSDPerMT: float64(500 + 10*i),
			Shipments:        i,
			LastTradeDate:    now.AddDate(0, 0, -10),
			MaxShipmentMT:    float64(20 * i),
			VolumeFit:        trade.FitNA,
		}
	}
	return out
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) Profile(ctx context.Context, name string, role trade.Role, ids []int64, since time.Time) (*trade.CounterpartyProfile, error) {
	args := m.Called(ctx, name, role, ids, since)
	p, _ := args.Get(0).(*trade.CounterpartyProfile)
	return p, args.Error(1)
}

type fixture struct {
	catalog  *fakeCatalog
	cands    *fakeCandidates
	profiles *mockProfiles
}

func newFixture(n int) *fixture {
	return &fixture{
		catalog:  dextroseCatalog(),
		cands:    &fakeCandidates{cands: sellers(n)},
		profiles: &mockProfiles{},
	}
}

func (f *fixture) service(opts ...Option) Service {
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewService(
		interpreter.New(interpreter.WithClock(clock)),
		NewProductMatcher(f.catalog, nil),
		f.cands,
		ranking.NewEnsemble(ranking.NewExtractor("Pakistan", clock), nil, 0, 0, nil),
		f.profiles,
		Config{HomeCountry: "Pakistan", CacheTTL: time.Minute},
		nil,
		opts...,
	)
}

func resultNames(rs []trade.RankedCandidate) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

func TestSearch_TopNRecommendation(t *testing.T) {
	f := newFixture(6)
	res, err := f.service().Search(context.Background(), &SearchInput{Query: "Top 3 dextrose suppliers"})
	require.NoError(t, err)

	assert.Equal(t, trade.FamilyRecommendation, res.ParsedQuery.Family)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, []string{"Seller 6", "Seller 5", "Seller 4"}, resultNames(res.Results))
	for i := 1; i < len(res.Results); i++ {
		assert.GreaterOrEqual(t, res.Results[i-1].Score, res.Results[i].Score)
	}
	assert.Equal(t, []int64{1, 2}, f.cands.lastIDs)
	assert.Len(t, res.MatchedSubcategories, 2)

	require.NotNil(t, res.MarketSnapshot)
	assert.Equal(t, 3, res.MarketSnapshot.TotalCount)
	assert.InDelta(t, 550.0, res.MarketSnapshot.AvgPriceGlobal, 1e-9)
	assert.Equal(t, "Country 6", res.MarketSnapshot.TopCountry)
	assert.Empty(t, res.Error)
}

func TestSearch_TopNLargerThanCandidates(t *testing.T) {
	f := newFixture(2)
	res, err := f.service().Search(context.Background(), &SearchInput{Query: "Top 3 dextrose suppliers"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestSearch_NonRecommendationReturnsAll(t *testing.T) {
	f := newFixture(8)
	res, err := f.service().Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Count)
}

func TestSearch_ScopeConflict(t *testing.T) {
	f := newFixture(3)
	res, err := f.service().Search(context.Background(), &SearchInput{
		Query: "dextrose suppliers in China under 700",
		Scope: "DOMESTIC",
	})
	require.NoError(t, err)

	assert.Equal(t, ErrorScopeConflict, res.Error)
	assert.Equal(t, "You are searching within Pakistan scope but specified China as a country filter. "+
		"Please switch your scope to Worldwide to search for international suppliers.", res.Message)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 0, f.cands.calls)
	assert.Empty(t, f.catalog.terms)
}

func TestSearch_DomesticHomeCountryIsNotAConflict(t *testing.T) {
	f := newFixture(3)
	res, err := f.service().Search(context.Background(), &SearchInput{
		Query:   "dextrose suppliers",
		Scope:   "DOMESTIC",
		Country: "pakistan",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Error)
	assert.Equal(t, trade.ScopeDomestic, f.cands.lastQ.Scope)
}

func TestSearch_NoProductMatch(t *testing.T) {
	f := newFixture(3)
	res, err := f.service().Search(context.Background(), &SearchInput{Query: "find unobtainium suppliers"})
	require.NoError(t, err)

	assert.Equal(t, "No matching products found.", res.Message)
	assert.NotNil(t, res.MatchedSubcategories)
	assert.Empty(t, res.MatchedSubcategories)
	assert.Empty(t, res.Results)
	assert.Nil(t, res.MarketSnapshot)
	assert.Equal(t, 0, f.cands.calls)
}

func TestSearch_EmptyCandidates(t *testing.T) {
	f := newFixture(0)
	res, err := f.service().Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Count)
	require.NotNil(t, res.MarketSnapshot)
	assert.Equal(t, "N/A", res.MarketSnapshot.TopCountry)
	assert.Equal(t, 0.0, res.MarketSnapshot.AvgPriceGlobal)
}

func TestSearch_ManualOverrides(t *testing.T) {
	f := newFixture(3)
	sub := int64(2)
	_, err := f.service().Search(context.Background(), &SearchInput{
		Query:         "dextrose suppliers in China",
		Country:       "India",
		SubcategoryID: &sub,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"India"}, f.cands.lastQ.Countries)
	assert.Equal(t, []int64{2}, f.cands.lastIDs)
}

func TestSearch_MultiIntentUsesFirstProduct(t *testing.T) {
	f := newFixture(3)
	res, err := f.service().Search(context.Background(), &SearchInput{
		Query: "find suppliers of dextrose in China; who buys sugar in UAE",
	})
	require.NoError(t, err)

	assert.True(t, res.ParsedQuery.MultiIntent)
	assert.Equal(t, []string{"dextrose"}, f.catalog.terms)
	assert.Equal(t, []string{"China", "UAE"}, f.cands.lastQ.Countries)
	assert.Equal(t, trade.IntentBuy, f.cands.lastQ.Intent)
}

func TestSearch_StoreFailure(t *testing.T) {
	f := newFixture(3)
	f.cands.err = errors.New(errors.ErrCodeAggregationFailed, "candidate aggregation failed")

	res, err := f.service().Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	assert.Nil(t, res)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAggregationFailed))
}

func TestSearch_Validation(t *testing.T) {
	svc := newFixture(1).service()

	_, err := svc.Search(context.Background(), &SearchInput{Query: "  "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryEmpty))

	_, err = svc.Search(context.Background(), &SearchInput{Query: "dextrose", Scope: "MARS"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeScopeInvalid))
}

func TestSearch_Observer(t *testing.T) {
	f := newFixture(6)
	var (
		gotFamily trade.Family
		gotN      int
	)
	svc := f.service(WithObserver(func(family trade.Family, n int, _ time.Duration, err error) {
		gotFamily, gotN = family, n
		assert.NoError(t, err)
	}))
	_, err := svc.Search(context.Background(), &SearchInput{Query: "Top 2 dextrose suppliers"})
	require.NoError(t, err)
	assert.Equal(t, trade.FamilyRecommendation, gotFamily)
	assert.Equal(t, 2, gotN)
}

// mapCache is a read-through cache backed by a map.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
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
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return json.Unmarshal(b, dest)
}

func TestSearch_Cache(t *testing.T) {
	f := newFixture(4)
	cache := &mapCache{data: map[string][]byte{}}
	svc := f.service(WithCache(cache))

	first, err := svc.Search(context.Background(), &SearchInput{Query: "Dextrose  suppliers"})
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.cands.calls)
	assert.Equal(t, resultNames(first.Results), resultNames(second.Results))
	assert.Len(t, cache.data, 1)
}

func TestSearch_CacheDoesNotHideStoreErrors(t *testing.T) {
	f := newFixture(4)
	f.cands.err = errors.New(errors.ErrCodeAggregationFailed, "candidate aggregation failed")
	svc := f.service(WithCache(&mapCache{data: map[string][]byte{}}))

	_, err := svc.Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAggregationFailed))
	assert.Equal(t, 1, f.cands.calls)
}

func TestSearch_CacheOutageFallsBack(t *testing.T) {
	f := newFixture(4)
	svc := f.service(WithCache(&mapCache{fail: true}))

	res, err := svc.Search(context.Background(), &SearchInput{Query: "dextrose suppliers"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)
}

func TestDominantFamily(t *testing.T) {
	single := trade.ParsedQuery{Family: trade.FamilyPrice}
	assert.Equal(t, trade.FamilyPrice, DominantFamily(single))

	multi := trade.ParsedQuery{
		Family:      trade.FamilyMulti,
		MultiIntent: true,
		SubIntents: []trade.ParsedQuery{
			{Family: trade.FamilyCountry},
			{Family: trade.FamilyRecommendation},
		},
	}
	assert.Equal(t, trade.FamilyRecommendation, DominantFamily(multi))
}

func TestSearchTerm(t *testing.T) {
	assert.Equal(t, "dextrose", SearchTerm(trade.ParsedQuery{Raw: "dextrose please", Product: "dextrose"}))
	assert.Equal(t, "who sells", SearchTerm(trade.ParsedQuery{Raw: "who sells"}))
	assert.Equal(t, "sugar", SearchTerm(trade.ParsedQuery{
		Raw:         "x; y",
		MultiIntent: true,
		SubIntents:  []trade.ParsedQuery{{}, {Product: "sugar"}},
	}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Detail
// ─────────────────────────────────────────────────────────────────────────────

func acmeProfile(firstPrice, lastPrice float64) *trade.CounterpartyProfile {
	return &trade.CounterpartyProfile{
		Name:  "Acme Foods",
		Role:  trade.RoleSeller,
		Stats: trade.ProfileStats{TotalVolumeMT: 420, AvgPrice: 610, Shipments: 7},
		Sparkline: []trade.SparklinePoint{
			{Date: trade.NewDate(2025, time.January, 1), VolumeMT: 100, AvgPrice: firstPrice},
			{Date: trade.NewDate(2025, time.February, 1), VolumeMT: 120, AvgPrice: (firstPrice + lastPrice) / 2},
			{Date: trade.NewDate(2025, time.March, 1), VolumeMT: 200, AvgPrice: lastPrice},
		},
	}
}

func TestDetail_ProfileComparablesAndTrend(t *testing.T) {
	f := newFixture(0)
	f.cands.cands = append(sellers(6), trade.Candidate{
		Name: " ACME FOODS", Country: "China", TotalVolumeMT: 99999, Shipments: 99,
		LastTradeDate: now, VolumeFit: trade.FitNA,
	})
	since := now.Add(-30 * 24 * time.Hour)
	f.profiles.On("Profile", mock.Anything, "Acme Foods", trade.RoleSeller, []int64{1, 2}, since).
		Return(acmeProfile(600, 660), nil).Once()

	res, err := f.service().Detail(context.Background(), &DetailInput{
		Name:    "Acme Foods",
		Product: "dextrose suppliers in China under 700",
	})
	require.NoError(t, err)
	f.profiles.AssertExpectations(t)

	assert.Equal(t, "Acme Foods", res.Counterparty.Name)
	assert.Equal(t, MarketContext{Sentiment: "Bullish", PriceTrend: "Uptrend"}, res.MarketContext)
	require.Len(t, res.Comparables, 5)
	for _, c := range res.Comparables {
		assert.NotEqual(t, " ACME FOODS", c.Name)
	}
	// The price family favours the cheapest seller.
	assert.Equal(t, "Seller 1", res.Comparables[0].Name)

	// Comparables are drawn from the unfiltered product market.
	assert.Nil(t, f.cands.lastQ.Countries)
	assert.Nil(t, f.cands.lastQ.PriceCeiling)
}

func TestDetail_BuyerRoleForSellIntent(t *testing.T) {
	f := newFixture(2)
	f.profiles.On("Profile", mock.Anything, "Acme Foods", trade.RoleBuyer, []int64{1, 2}, mock.Anything).
		Return(acmeProfile(600, 600), nil).Once()

	res, err := f.service().Detail(context.Background(), &DetailInput{Name: "Acme Foods", Product: "buyers for dextrose"})
	require.NoError(t, err)
	assert.Equal(t, MarketContext{Sentiment: "Neutral", PriceTrend: "Stable"}, res.MarketContext)
	f.profiles.AssertExpectations(t)
}

func TestDetail_NotFound(t *testing.T) {
	f := newFixture(2)
	f.profiles.On("Profile", mock.Anything, "Ghost Ltd", trade.RoleSeller, mock.Anything, mock.Anything).
		Return(nil, nil).Once()

	_, err := f.service().Detail(context.Background(), &DetailInput{Name: "Ghost Ltd", Product: "dextrose"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCounterpartyAbsent))
	assert.Equal(t, 404, errors.HTTPStatusForCode(errors.GetCode(err)))
	assert.Equal(t, 0, f.cands.calls)
}

func TestDetail_ProfileStoreFailure(t *testing.T) {
	f := newFixture(2)
	f.profiles.On("Profile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, stderrors.New("timeout")).Once()

	_, err := f.service().Detail(context.Background(), &DetailInput{Name: "Acme Foods", Product: "dextrose"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAggregationFailed))
}

func TestDetail_Validation(t *testing.T) {
	svc := newFixture(1).service()

	_, err := svc.Detail(context.Background(), &DetailInput{Name: "Acme Foods"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = svc.Detail(context.Background(), &DetailInput{Name: "Acme Foods", Product: "unobtainium"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoProductMatch))
}

func TestComparables(t *testing.T) {
	ranked := []trade.RankedCandidate{
		{Candidate: trade.Candidate{Name: "A"}},
		{Candidate: trade.Candidate{Name: "acme "}},
		{Candidate: trade.Candidate{Name: "B"}},
	}
	assert.Equal(t, []string{"A", "B"}, resultNames(Comparables("ACME", ranked, 5)))
	assert.Equal(t, []string{"A"}, resultNames(Comparables("ACME", ranked, 1)))
	assert.Empty(t, Comparables("ACME", nil, 5))
}

func TestTrendOf(t *testing.T) {
	pt := func(p float64) trade.SparklinePoint { return trade.SparklinePoint{AvgPrice: p} }
	tests := []struct {
		name  string
		spark []trade.SparklinePoint
		want  MarketContext
	}{
		{"uptrend", []trade.SparklinePoint{pt(100), pt(106)}, MarketContext{"Bullish", "Uptrend"}},
		{"downtrend", []trade.SparklinePoint{pt(100), pt(90)}, MarketContext{"Bearish", "Downtrend"}},
		{"within band", []trade.SparklinePoint{pt(100), pt(105)}, MarketContext{"Neutral", "Stable"}},
		{"single month", []trade.SparklinePoint{pt(100)}, MarketContext{"Neutral", "Stable"}},
		{"zero first price", []trade.SparklinePoint{pt(0), pt(50)}, MarketContext{"Neutral", "Stable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendOf(tt.spark))
		})
	}
}

//Personal.AI order the ending
