package linkprediction

import (
	"math"
	"sort"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// MethodWeights are the combiner's per-scorer weights.
var MethodWeights = map[trade.Method]float64{
	trade.MethodEmbedding:    0.30,
	trade.MethodCommonNeigh:  0.20,
	trade.MethodProductCo:    0.25,
	trade.MethodJaccard:      0.15,
	trade.MethodPreferential: 0.10,
}

// TotalMethods is the coverage denominator.
const TotalMethods = 5

type accum struct {
	res         trade.PredictionResult
	weighted    float64
	totalWeight float64
}

// Combine merges per-method scores into ranked predictions.  Only methods
// that scored a candidate contribute to its weighted average, which is then
// multiplied by 0.7 + 0.3·(methods/5) and capped at maxConfidence.  Ties
// keep first-seen order in method order.
func Combine(byMethod map[trade.Method][]trade.MethodScore, topK int, maxConfidence float64) []trade.PredictionResult {
	if maxConfidence <= 0 || maxConfidence > trade.MaxConfidence {
		maxConfidence = trade.MaxConfidence
	}

	var order []string
	acc := map[string]*accum{}
	for _, m := range trade.AllMethods() {
		w := MethodWeights[m]
		for _, ms := range byMethod[m] {
			a, ok := acc[ms.Name]
			if !ok {
				a = &accum{res: trade.PredictionResult{Name: ms.Name, Scores: map[trade.Method]float64{}}}
				acc[ms.Name] = a
				order = append(order, ms.Name)
			}
			if _, dup := a.res.Scores[m]; dup {
				continue
			}
			s := math.Min(1, math.Max(0, ms.Score))
			a.res.Scores[m] = s
			a.weighted += s * w
			a.totalWeight += w
			if a.res.SegmentTag == "" && ms.SegmentTag != "" {
				a.res.SegmentTag = ms.SegmentTag
			}
		}
	}

	out := make([]trade.PredictionResult, 0, len(order))
	for _, name := range order {
		a := acc[name]
		if a.totalWeight > 0 {
			base := a.weighted / a.totalWeight
			coverage := float64(len(a.res.Scores)) / TotalMethods
			a.res.FinalConfidence = math.Min(maxConfidence, base*(0.7+0.3*coverage))
		}
		out = append(out, a.res)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalConfidence > out[j].FinalConfidence })
	out = head(out, topK)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

//Personal.AI order the ending
