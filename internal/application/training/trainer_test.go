package training

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

func TestNDCGAtK(t *testing.T) {
	assert.InDelta(t, 1.0, NDCGAtK([]int{3, 2, 1, 0}, []float64{4, 3, 2, 1}, 5), 1e-12)
	assert.Less(t, NDCGAtK([]int{3, 2, 1, 0}, []float64{1, 2, 3, 4}, 5), 1.0)
	assert.Equal(t, 0.0, NDCGAtK([]int{0, 0, 0}, []float64{1, 2, 3}, 5))

	assert.Equal(t, 1.0, NDCGAtK(nil, nil, 5))
	assert.Equal(t, 1.0, NDCGAtK([]int{2}, []float64{0.1}, 5))
	assert.Equal(t, 0.0, NDCGAtK([]int{0}, []float64{0.1}, 5))
}

func TestNDCGAtK_Truncation(t *testing.T) {
	labels := []int{0, 0, 1}
	// relevant item ranked third but cutoff is two
	assert.Equal(t, 0.0, NDCGAtK(labels, []float64{3, 2, 1}, 2))
	assert.InDelta(t, 1.0, NDCGAtK(labels, []float64{1, 2, 3}, 2), 1e-12)
}

func TestMRR(t *testing.T) {
	assert.Equal(t, 1.0, MRR([]int{1, 0, 0}, []float64{3, 2, 1}))
	assert.Equal(t, 0.5, MRR([]int{0, 1, 0}, []float64{3, 2, 1}))
	assert.InDelta(t, 1.0/3, MRR([]int{0, 0, 4}, []float64{3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, MRR([]int{0, 0}, []float64{1, 2}))
}

// syntheticGroups builds queries whose labels are driven by shipment
// frequency alone; the remaining features are noise.
func syntheticGroups(n int, seed int64) []Group {
	r := rand.New(rand.NewSource(seed))
	groups := make([]Group, n)
	for g := range groups {
		samples := make([]Sample, 6)
		freq := make([]float64, len(samples))
		for i := range samples {
			var v trade.FeatureVector
			for f := range v {
				v[f] = r.Float64()
			}
			v[trade.FeatShipmentFreq] = float64(r.Intn(40))
			freq[i] = v[trade.FeatShipmentFreq]
			samples[i] = Sample{Features: v}
		}
		for i, l := range PercentileLabels(freq) {
			samples[i].Label = l
		}
		groups[g] = Group{Samples: samples}
	}
	return groups
}

func TestTrainer_LearnsSignal(t *testing.T) {
	train := syntheticGroups(40, 1)
	valid := syntheticGroups(10, 2)

	tr := NewTrainer(TrainerConfig{LearningRate: 0.1, MaxRounds: 60, EarlyStopRounds: 10, EvalAtK: 5}, nil)
	m, rep, err := tr.Fit(context.Background(), train, valid, "test")
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Greater(t, m.Weights[trade.FeatShipmentFreq], 0.0)
	for f := range m.Weights {
		if trade.Feature(f) != trade.FeatShipmentFreq {
			assert.Greater(t, m.Weights[trade.FeatShipmentFreq], m.Weights[f])
		}
	}
	assert.Greater(t, Evaluate(m, valid, 5).NDCG, 0.9)
	assert.GreaterOrEqual(t, rep.BestIteration, 1)
	assert.LessOrEqual(t, rep.Rounds, 60)
}

func TestTrainer_EarlyStops(t *testing.T) {
	// constant labels give no gradient and no improvement
	groups := []Group{
		{Samples: []Sample{{Label: 1}, {Label: 1}}},
		{Samples: []Sample{{Label: 1}, {Label: 1}}},
	}
	tr := NewTrainer(TrainerConfig{MaxRounds: 100, EarlyStopRounds: 3}, nil)
	_, rep, err := tr.Fit(context.Background(), groups, groups[1:], "flat")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.BestIteration)
	assert.Equal(t, 4, rep.Rounds)
}

func TestTrainer_NoTrainingGroups(t *testing.T) {
	_, _, err := NewTrainer(DefaultTrainerConfig(), nil).Fit(context.Background(), nil, nil, "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeTrainingDataInsufficient))
}

func TestTrainer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewTrainer(DefaultTrainerConfig(), nil).Fit(ctx, syntheticGroups(2, 3), nil, "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeTrainingFailed))
}

//Personal.AI order the ending
