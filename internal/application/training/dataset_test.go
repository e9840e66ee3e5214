package training

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var clock = func() time.Time { return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC) }

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) MatchByName(ctx context.Context, term string) ([]trade.Subcategory, error) {
	args := m.Called(ctx, term)
	return args.Get(0).([]trade.Subcategory), args.Error(1)
}

func (m *mockCatalog) TradedSubcategories(ctx context.Context) ([]trade.SubcategoryActivity, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]trade.SubcategoryActivity), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeCandidates returns a fixed candidate list per subcategory.
type fakeCandidates struct {
	bySub map[int64][]trade.Candidate
	err   error
}

func (f *fakeCandidates) GetCandidates(_ context.Context, ids []int64, _ trade.ParsedQuery) ([]trade.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bySub[ids[0]], nil
}

func threeCandidates() []trade.Candidate {
	last := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	return []trade.Candidate{
		{Name: "A", Country: "China", TotalVolumeMT: 900, AvgPriceUSDPerMT: 600, Shipments: 9, LastTradeDate: last},
		{Name: "B", Country: "India", TotalVolumeMT: 200, AvgPriceUSDPerMT: 550, Shipments: 2, LastTradeDate: last},
		{Name: "C", Country: "Egypt", TotalVolumeMT: 50, AvgPriceUSDPerMT: 700, Shipments: 1, LastTradeDate: last},
	}
}

func TestSynthesizeQueries(t *testing.T) {
	sub := trade.Subcategory{ID: 4, Name: "Dextrose"}

	imports := SynthesizeQueries(trade.SubcategoryActivity{Subcategory: sub, HasImports: true}, clock())
	require.Len(t, imports, 9)
	for i, q := range imports[:8] {
		assert.Equal(t, trade.IntentBuy, q.Intent)
		assert.Equal(t, trade.ScopeWorldwide, q.Scope)
		assert.Equal(t, trade.Family(i+1), q.Family)
		assert.Equal(t, "Dextrose", q.Product)
	}
	assert.Equal(t, []string{"China"}, imports[1].Countries)
	assert.Equal(t, 100.0, *imports[2].VolumeMT)
	assert.Equal(t, 1000.0, *imports[3].PriceCeiling)
	require.NotNil(t, imports[4].Window)
	assert.Equal(t, "2024-12-15", imports[4].Window.Start.String())
	assert.Equal(t, "2025-06-15", imports[4].Window.End.String())
	assert.Equal(t, trade.IntentSell, imports[8].Intent)
	assert.Equal(t, trade.ScopeDomestic, imports[8].Scope)

	exports := SynthesizeQueries(trade.SubcategoryActivity{Subcategory: sub, HasExports: true}, clock())
	require.Len(t, exports, 6)
	assert.Equal(t, 500.0, *exports[2].PriceFloor)
	assert.Equal(t, trade.FamilyRecommendation, exports[3].Family)
	assert.Equal(t, 50.0, *exports[5].VolumeMT)
	assert.Equal(t, trade.ScopeDomestic, exports[5].Scope)

	assert.Len(t, SynthesizeQueries(trade.SubcategoryActivity{Subcategory: sub, HasImports: true, HasExports: true}, clock()), 15)
	assert.Empty(t, SynthesizeQueries(trade.SubcategoryActivity{Subcategory: sub}, clock()))
}

func TestPercentileLabels(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3, 4}, PercentileLabels([]float64{1, 2, 3, 4, 5}))
	assert.Equal(t, []int{4, 0, 2, 3, 1}, PercentileLabels([]float64{9, 1, 5, 7, 3}))
	// ties share the average rank: (1+2)/2/2 = 0.75
	assert.Equal(t, []int{3, 3}, PercentileLabels([]float64{2, 2}))
	assert.Empty(t, PercentileLabels(nil))
}

func TestDatasetSplit(t *testing.T) {
	ds := Dataset{Groups: make([]Group, 5)}
	train, valid := ds.Split(0.8)
	assert.Len(t, train, 4)
	assert.Len(t, valid, 1)

	ds = Dataset{Groups: make([]Group, 2)}
	train, valid = ds.Split(0.8)
	assert.Len(t, train, 1)
	assert.Len(t, valid, 1)
}

func TestBuilder_Build(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("TradedSubcategories", mock.Anything).Return([]trade.SubcategoryActivity{
		{Subcategory: trade.Subcategory{ID: 1, Name: "Dextrose"}, HasImports: true},
		{Subcategory: trade.Subcategory{ID: 2, Name: "Sorbitol"}, HasExports: true},
		{Subcategory: trade.Subcategory{ID: 3, Name: "Lonely"}, HasImports: true},
	}, nil)
	cands := &fakeCandidates{bySub: map[int64][]trade.Candidate{
		1: threeCandidates(),
		2: threeCandidates()[:2],
		3: threeCandidates()[:1],
	}}

	var calls int
	b := NewBuilder(cat, cands, ranking.NewExtractor("Pakistan", clock), nil,
		WithWorkers(2), WithBuilderClock(clock), WithProgress(func(done, total int) {
			calls++
			assert.Equal(t, 3, total)
		}))
	ds, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Groups, 9+6)
	assert.Equal(t, 9*3+6*2, ds.NumSamples())
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Dextrose", ds.Groups[0].Subcategory.Name)
	assert.Equal(t, "Sorbitol", ds.Groups[len(ds.Groups)-1].Subcategory.Name)
	for _, g := range ds.Groups {
		for _, s := range g.Samples {
			assert.InDelta(t, ranking.HeuristicScore(s.Features, g.Query.Family), s.Heuristic, 1e-12)
			assert.GreaterOrEqual(t, s.Label, 0)
			assert.LessOrEqual(t, s.Label, 4)
		}
	}
}

func TestBuilder_CandidateFailure(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("TradedSubcategories", mock.Anything).Return([]trade.SubcategoryActivity{
		{Subcategory: trade.Subcategory{ID: 1, Name: "Dextrose"}, HasImports: true},
	}, nil)
	b := NewBuilder(cat, &fakeCandidates{err: stderrors.New("db down")}, ranking.NewExtractor("Pakistan", clock), nil)

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTrainingFailed))
}

func TestBuilder_CatalogFailure(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("TradedSubcategories", mock.Anything).Return(nil, stderrors.New("timeout"))
	b := NewBuilder(cat, &fakeCandidates{}, ranking.NewExtractor("Pakistan", clock), nil)

	_, err := b.Build(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeTrainingFailed))
}

//Personal.AI order the ending
