package aggregation

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

type mockCandidateStore struct {
	mock.Mock
}

func (m *mockCandidateStore) AggregateCandidates(ctx context.Context, ids []int64, spec trade.CandidateSpec, f trade.CandidateFilter, minVolume *float64) ([]trade.Candidate, error) {
	args := m.Called(ctx, ids, spec, f, minVolume)
	if v := args.Get(0); v != nil {
		return v.([]trade.Candidate), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestResolveSpec_DirectionMapping(t *testing.T) {
	tests := []struct {
		intent    trade.Intent
		scope     trade.Scope
		direction trade.Direction
		homeField trade.CountryField
		role      trade.Role
		country   trade.CountryField
	}{
		{trade.IntentSell, trade.ScopeDomestic, trade.DirectionImport, trade.CountryDestination, trade.RoleBuyer, trade.CountryDestination},
		{trade.IntentSell, trade.ScopeWorldwide, trade.DirectionExport, trade.CountryOrigin, trade.RoleBuyer, trade.CountryDestination},
		{trade.IntentBuy, trade.ScopeDomestic, trade.DirectionExport, trade.CountryOrigin, trade.RoleSeller, trade.CountryOrigin},
		{trade.IntentBuy, trade.ScopeWorldwide, trade.DirectionImport, trade.CountryDestination, trade.RoleSeller, trade.CountryOrigin},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent)+"/"+string(tt.scope), func(t *testing.T) {
			spec, err := ResolveSpec(tt.intent, tt.scope, "Pakistan")
			require.NoError(t, err)
			assert.Equal(t, tt.direction, spec.Direction)
			assert.Equal(t, tt.homeField, spec.HomeField)
			assert.Equal(t, "Pakistan", spec.HomeCountry)
			assert.Equal(t, tt.role, spec.Role)
			assert.Equal(t, tt.country, spec.CountryField)
		})
	}
}

func TestResolveSpec_Defaults(t *testing.T) {
	spec, err := ResolveSpec("", "", "Pakistan")
	require.NoError(t, err)
	assert.Equal(t, trade.DirectionImport, spec.Direction)
	assert.Equal(t, trade.RoleSeller, spec.Role)
}

func TestResolveSpec_Invalid(t *testing.T) {
	_, err := ResolveSpec("HOLD", trade.ScopeWorldwide, "Pakistan")
	assert.True(t, errors.IsCode(err, errors.ErrCodeDirectionInvalid))

	_, err = ResolveSpec(trade.IntentBuy, "LUNAR", "Pakistan")
	assert.True(t, errors.IsCode(err, errors.ErrCodeScopeInvalid))
}

func TestFilterFor(t *testing.T) {
	w := &trade.TimeWindow{Start: trade.NewDate(2025, time.January, 1), End: trade.NewDate(2025, time.March, 31)}
	f := FilterFor(trade.ParsedQuery{
		Countries:    []string{"China"},
		PriceCeiling: trade.Float(700),
		PriceFloor:   trade.Float(0),
		Window:       w,
	})
	assert.Equal(t, []string{"China"}, f.Countries)
	require.NotNil(t, f.PriceCeiling)
	assert.Equal(t, 700.0, *f.PriceCeiling)
	assert.Nil(t, f.PriceFloor)
	assert.Same(t, w, f.Window)
}

func TestGetCandidates_EmptySubcategories(t *testing.T) {
	store := &mockCandidateStore{}
	got, err := NewAggregator(store, "Pakistan", nil).GetCandidates(context.Background(), nil, trade.ParsedQuery{Intent: trade.IntentBuy})
	require.NoError(t, err)
	assert.Empty(t, got)
	store.AssertNotCalled(t, "AggregateCandidates")
}

func TestGetCandidates_VolumeFitAndConstraint(t *testing.T) {
	store := &mockCandidateStore{}
	q := trade.ParsedQuery{Intent: trade.IntentBuy, Scope: trade.ScopeWorldwide, VolumeMT: trade.Float(50), Countries: []string{}}
	rows := []trade.Candidate{
		{Name: "Big", Country: "China", MaxShipmentMT: 80, TotalVolumeMT: 400},
		{Name: "Exact", Country: "India", MaxShipmentMT: 50, TotalVolumeMT: 120},
		{Name: "Steady", Country: "Thailand", MaxShipmentMT: 20, TotalVolumeMT: 60},
		{Name: "Tiny", Country: "Egypt", MaxShipmentMT: 10, TotalVolumeMT: 30},
	}
	store.On("AggregateCandidates", mock.Anything, []int64{7}, mock.MatchedBy(func(s trade.CandidateSpec) bool {
		return s.Direction == trade.DirectionImport && s.Role == trade.RoleSeller
	}), mock.Anything, q.VolumeMT).Return(rows, nil)

	got, err := NewAggregator(store, "Pakistan", nil).GetCandidates(context.Background(), []int64{7}, q)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, trade.FitStrong, got[0].VolumeFit)
	assert.Equal(t, trade.FitGood, got[1].VolumeFit)
	assert.Equal(t, trade.FitPartial, got[2].VolumeFit)
	for _, c := range got {
		assert.False(t, c.MaxShipmentMT < 50 && c.TotalVolumeMT < 50, c.Name)
	}
	store.AssertExpectations(t)
}

func TestGetCandidates_NoVolumeRequirement(t *testing.T) {
	store := &mockCandidateStore{}
	q := trade.ParsedQuery{Intent: trade.IntentSell, Scope: trade.ScopeDomestic}
	store.On("AggregateCandidates", mock.Anything, []int64{1, 2}, mock.Anything, mock.Anything, (*float64)(nil)).
		Return([]trade.Candidate{{Name: "A", MaxShipmentMT: 1, TotalVolumeMT: 1}}, nil)

	got, err := NewAggregator(store, "Pakistan", nil).GetCandidates(context.Background(), []int64{1, 2}, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, trade.FitNA, got[0].VolumeFit)
}

func TestGetCandidates_StoreFailureFailsClosed(t *testing.T) {
	store := &mockCandidateStore{}
	store.On("AggregateCandidates", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, stderrors.New("connection reset"))

	got, err := NewAggregator(store, "Pakistan", nil).GetCandidates(context.Background(), []int64{1}, trade.ParsedQuery{Intent: trade.IntentBuy})
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAggregationFailed))
	store.AssertNumberOfCalls(t, "AggregateCandidates", 1)
}

//Personal.AI order the ending
