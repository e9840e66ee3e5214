package training

import (
	"context"
	"math"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// TrainerConfig tunes gradient ascent.
type TrainerConfig struct {
	LearningRate    float64
	MaxRounds       int
	EarlyStopRounds int
	EvalAtK         int
}

// DefaultTrainerConfig mirrors the production settings.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{LearningRate: 0.05, MaxRounds: 100, EarlyStopRounds: 10, EvalAtK: 5}
}

// TrainReport summarises one fit.
type TrainReport struct {
	Rounds        int
	BestIteration int
	BestValidNDCG float64
	History       []float64
}

// Trainer fits a linear scorer with LambdaRank gradients.
type Trainer struct {
	cfg    TrainerConfig
	logger logging.Logger
}

// NewTrainer returns a Trainer; zero config fields take defaults.
func NewTrainer(cfg TrainerConfig, logger logging.Logger) *Trainer {
	def := DefaultTrainerConfig()
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.EarlyStopRounds <= 0 {
		cfg.EarlyStopRounds = def.EarlyStopRounds
	}
	if cfg.EvalAtK <= 0 {
		cfg.EvalAtK = def.EvalAtK
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Trainer{cfg: cfg, logger: logger.Named("trainer")}
}

// Fit trains on train and early-stops on valid NDCG@k.  The returned model
// carries the best iteration's weights.
func (t *Trainer) Fit(ctx context.Context, train, valid []Group, version string) (*ranking.LinearModel, TrainReport, error) {
	var rep TrainReport
	if len(train) == 0 {
		return nil, rep, errors.New(errors.ErrCodeTrainingDataInsufficient, "no training queries")
	}

	m := ranking.NewLinearModel(version)
	m.TrainedAt = time.Now().UTC()
	standardise(train, m)

	z := make([][]trade.FeatureVector, len(train))
	for gi, g := range train {
		z[gi] = make([]trade.FeatureVector, len(g.Samples))
		for i, s := range g.Samples {
			for f := range s.Features {
				z[gi][i][f] = (s.Features[f] - m.Mean[f]) / m.Scale[f]
			}
		}
	}

	evalSet := valid
	if len(evalSet) == 0 {
		evalSet = train
	}

	w := make([]float64, trade.NumFeatures)
	best := append([]float64(nil), w...)
	rep.BestValidNDCG = -1
	stale := 0

	for round := 1; round <= t.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, rep, errors.Wrap(err, errors.ErrCodeTrainingFailed, "training cancelled")
		}

		grad := make([]float64, trade.NumFeatures)
		for gi, g := range train {
			lambdaGradient(g.Labels(), z[gi], w, t.cfg.EvalAtK, grad)
		}
		for f := range w {
			w[f] += t.cfg.LearningRate * grad[f] / float64(len(train))
		}

		copy(m.Weights, w)
		ndcg := Evaluate(m, evalSet, t.cfg.EvalAtK).NDCG
		rep.History = append(rep.History, ndcg)
		rep.Rounds = round

		if ndcg > rep.BestValidNDCG+1e-12 {
			rep.BestValidNDCG, rep.BestIteration = ndcg, round
			copy(best, w)
			stale = 0
		} else {
			stale++
			if stale >= t.cfg.EarlyStopRounds {
				break
			}
		}
		if round%10 == 0 {
			t.logger.Debug("training round",
				logging.Int("round", round),
				logging.Float64("valid_ndcg", ndcg),
			)
		}
	}

	copy(m.Weights, best)
	t.logger.Info("ranker trained",
		logging.Int("rounds", rep.Rounds),
		logging.Int("best_iteration", rep.BestIteration),
		logging.Float64("valid_ndcg", rep.BestValidNDCG),
	)
	return m, rep, nil
}

// standardise fills m.Mean and m.Scale from the training samples.
// Constant features keep unit scale.
func standardise(train []Group, m *ranking.LinearModel) {
	n := 0.0
	for _, g := range train {
		for _, s := range g.Samples {
			for f, x := range s.Features {
				m.Mean[f] += x
			}
			n++
		}
	}
	if n == 0 {
		return
	}
	for f := range m.Mean {
		m.Mean[f] /= n
	}
	variance := make([]float64, trade.NumFeatures)
	for _, g := range train {
		for _, s := range g.Samples {
			for f, x := range s.Features {
				d := x - m.Mean[f]
				variance[f] += d * d
			}
		}
	}
	for f := range variance {
		sd := math.Sqrt(variance[f] / n)
		if sd < 1e-12 {
			sd = 1
		}
		m.Scale[f] = sd
	}
}

// lambdaGradient accumulates the LambdaRank ascent direction of one query
// into grad.
func lambdaGradient(labels []int, z []trade.FeatureVector, w []float64, k int, grad []float64) {
	n := len(labels)
	if n < 2 {
		return
	}
	scores := make([]float64, n)
	for i := range z {
		for f, x := range z[i] {
			scores[i] += w[f] * x
		}
	}

	ideal := make([]float64, n)
	for i, l := range labels {
		ideal[i] = float64(l)
	}
	idcg := dcg(labels, rankOrder(ideal), k)
	if idcg == 0 {
		return
	}

	pos := make([]int, n)
	for p, i := range rankOrder(scores) {
		pos[i] = p
	}
	disc := func(p int) float64 {
		if p >= k {
			return 0
		}
		return discount(p)
	}

	lambdas := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if labels[i] <= labels[j] {
				continue
			}
			delta := math.Abs(float64(labels[i]-labels[j]) * (disc(pos[i]) - disc(pos[j])) / idcg)
			if delta == 0 {
				continue
			}
			rho := 1 / (1 + math.Exp(scores[i]-scores[j]))
			lambdas[i] += rho * delta
			lambdas[j] -= rho * delta
		}
	}
	for i, l := range lambdas {
		for f, x := range z[i] {
			grad[f] += l * x
		}
	}
}

//Personal.AI order the ending
