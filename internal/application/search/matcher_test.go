package search

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/testutil"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

type fakeCatalog struct {
	subs  []trade.Subcategory
	terms []string
	err   error
}

func (f *fakeCatalog) MatchByName(_ context.Context, term string) ([]trade.Subcategory, error) {
	f.terms = append(f.terms, term)
	if f.err != nil {
		return nil, f.err
	}
	var out []trade.Subcategory
	for _, s := range f.subs {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(term)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TradedSubcategories(context.Context) ([]trade.SubcategoryActivity, error) {
	return nil, nil
}

type fakeIndex struct {
	hits []trade.SubcategoryMatch
	err  error
}

func (f *fakeIndex) Search(_ context.Context, _ string, size int) ([]trade.SubcategoryMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > size {
		return f.hits[:size], nil
	}
	return f.hits, nil
}

func dextroseCatalog() *fakeCatalog {
	return &fakeCatalog{subs: []trade.Subcategory{
		{ID: 1, Name: "Dextrose Monohydrate", HSCode: "170230"},
		{ID: 2, Name: "Dextrose Anhydrous", HSCode: "170230"},
		{ID: 5, Name: "Refined Sugar", HSCode: "170199"},
	}}
}

func TestCleanTerm(t *testing.T) {
	assert.Equal(t, "dextrose", CleanTerm("I want to buy Dextrose"))
	assert.Equal(t, "corn starch", CleanTerm("  looking for   corn starch please "))
	assert.Equal(t, "", CleanTerm("find suppliers"))
}

func TestMatch_KeywordThenFuzzy(t *testing.T) {
	idx := &fakeIndex{hits: []trade.SubcategoryMatch{
		{Subcategory: trade.Subcategory{ID: 1, Name: "Dextrose Monohydrate"}, Score: 0.9},
		{Subcategory: trade.Subcategory{ID: 3, Name: "Glucose Syrup"}, Score: 0.7},
		{Subcategory: trade.Subcategory{ID: 4, Name: "Corn Starch"}, Score: 0.3},
	}}
	m := NewProductMatcher(&fakeCatalog{subs: []trade.Subcategory{{ID: 1, Name: "Dextrose Monohydrate"}}}, nil, WithFuzzyIndex(idx))

	got, err := m.Match(context.Background(), "find dextrose")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, trade.MatchKeyword, got[0].Method)

	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, 0.7, got[1].Score)
	assert.Equal(t, trade.MatchFuzzy, got[1].Method)
}

func TestMatch_CustomThreshold(t *testing.T) {
	idx := &fakeIndex{hits: []trade.SubcategoryMatch{
		{Subcategory: trade.Subcategory{ID: 3, Name: "Glucose Syrup"}, Score: 0.7},
	}}
	m := NewProductMatcher(&fakeCatalog{}, nil, WithFuzzyIndex(idx), WithMinFuzzyScore(0.8))

	got, err := m.Match(context.Background(), "glucose")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatch_FuzzyFailureDegrades(t *testing.T) {
	log := testutil.NewMockLogger()
	m := NewProductMatcher(dextroseCatalog(), log, WithFuzzyIndex(&fakeIndex{err: stderrors.New("cluster red")}))

	got, err := m.Match(context.Background(), "dextrose")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, log.CountLevel("warn"))
}

func TestMatch_CatalogFailure(t *testing.T) {
	m := NewProductMatcher(&fakeCatalog{err: stderrors.New("conn reset")}, nil)

	_, err := m.Match(context.Background(), "dextrose")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestMatch_EmptyTermSkipsLookups(t *testing.T) {
	cat := dextroseCatalog()
	got, err := NewProductMatcher(cat, nil).Match(context.Background(), "find suppliers")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, cat.terms)
}

func TestSelectIDs(t *testing.T) {
	m := func(id int64, s float64) trade.SubcategoryMatch {
		return trade.SubcategoryMatch{Subcategory: trade.Subcategory{ID: id}, Score: s}
	}
	tests := []struct {
		name    string
		matches []trade.SubcategoryMatch
		want    []int64
	}{
		{"near exact keeps band", []trade.SubcategoryMatch{m(1, 1.0), m(2, 0.96), m(3, 0.9)}, []int64{1, 2}},
		{"weak best keeps all", []trade.SubcategoryMatch{m(1, 0.9), m(2, 0.5)}, []int64{1, 2}},
		{"none", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectIDs(tt.matches))
		})
	}
}

//Personal.AI order the ending
