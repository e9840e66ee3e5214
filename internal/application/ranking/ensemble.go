package ranking

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
)

var tracer = otel.Tracer("tradelink/ranking")

// Default blend of heuristic and learned scores.
const (
	DefaultHeuristicWeight = 0.7
	DefaultLearnedWeight   = 0.3
)

// ModelProvider supplies the current learned model, or nil.
type ModelProvider interface {
	Model(ctx context.Context) *LinearModel
}

// Ensemble blends the family heuristic with the learned model.
type Ensemble struct {
	extractor *Extractor
	models    ModelProvider
	hw, lw    float64
	logger    logging.Logger
}

// NewEnsemble wires an Ensemble.  models may be nil, in which case the
// learned term is always zero.  Non-positive weights fall back to 0.7/0.3.
func NewEnsemble(extractor *Extractor, models ModelProvider, heuristicWeight, learnedWeight float64, logger logging.Logger) *Ensemble {
	if heuristicWeight <= 0 && learnedWeight <= 0 {
		heuristicWeight, learnedWeight = DefaultHeuristicWeight, DefaultLearnedWeight
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Ensemble{
		extractor: extractor,
		models:    models,
		hw:        heuristicWeight,
		lw:        learnedWeight,
		logger:    logger.Named("ranking"),
	}
}

// Extractor exposes the feature extractor used by the ensemble.
func (e *Ensemble) Extractor() *Extractor { return e.extractor }

// Rank scores every candidate and returns them stable-sorted by descending
// rounded score.  The input slice is not modified.
func (e *Ensemble) Rank(ctx context.Context, cands []trade.Candidate, q trade.ParsedQuery) []trade.RankedCandidate {
	_, span := tracer.Start(ctx, "ranking.Rank")
	defer span.End()
	span.SetAttributes(
		attribute.Int("ranking.candidates", len(cands)),
		attribute.Int("ranking.family", int(q.Family)),
	)

	out := make([]trade.RankedCandidate, len(cands))
	if len(cands) == 0 {
		return out
	}

	var model *LinearModel
	if e.models != nil {
		model = e.models.Model(ctx)
	}
	span.SetAttributes(attribute.Bool("ranking.learned", model != nil))

	for i, c := range cands {
		v := e.extractor.Extract(c, q)
		h := HeuristicScore(v, q.Family)
		l := 0.0
		if model != nil {
			l = model.Score(v)
		}
		out[i] = trade.RankedCandidate{
			Candidate:      c,
			Score:          trade.Round3(e.hw*h + e.lw*l),
			HeuristicScore: h,
			LearnedScore:   l,
			MatchFeatures:  trade.MatchFeatures{Volume: c.TotalVolumeMT, Fit: c.VolumeFit},
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	e.logger.Debug("candidates ranked",
		logging.Int("count", len(out)),
		logging.Int("family", int(q.Family)),
		logging.Bool("learned", model != nil),
	)
	return out
}

// Truncate keeps at most n entries; n <= 0 keeps everything.
func Truncate(ranked []trade.RankedCandidate, n int) []trade.RankedCandidate {
	if n <= 0 || len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}

//Personal.AI order the ending
