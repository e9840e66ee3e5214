package training

import (
	"math"
	"sort"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// Scorer is anything that scores a feature vector.
type Scorer interface {
	Score(v trade.FeatureVector) float64
}

// rankOrder returns indexes sorted by descending score; ties keep input
// order.
func rankOrder(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

func discount(pos int) float64 { return 1 / math.Log2(float64(pos)+2) }

func dcg(labels []int, order []int, k int) float64 {
	s := 0.0
	for pos, i := range order {
		if pos >= k {
			break
		}
		s += float64(labels[i]) * discount(pos)
	}
	return s
}

// NDCGAtK computes normalised DCG over the top k with linear gains.  Lists
// shorter than two are scored trivially: 1 when empty, else 1 if the single
// item is relevant.
func NDCGAtK(labels []int, scores []float64, k int) float64 {
	if len(labels) < 2 {
		if len(labels) == 0 || labels[0] > 0 {
			return 1
		}
		return 0
	}
	ideal := make([]float64, len(labels))
	for i, l := range labels {
		ideal[i] = float64(l)
	}
	idcg := dcg(labels, rankOrder(ideal), k)
	if idcg == 0 {
		return 0
	}
	return dcg(labels, rankOrder(scores), k) / idcg
}

// MRR is the reciprocal rank of the first item with a positive label.
func MRR(labels []int, scores []float64) float64 {
	for pos, i := range rankOrder(scores) {
		if labels[i] > 0 {
			return 1 / float64(pos+1)
		}
	}
	return 0
}

// Evaluation aggregates per-query metrics.
type Evaluation struct {
	NDCG    float64
	MRR     float64
	Queries int
}

// Evaluate scores every group with s and averages NDCG@k and MRR.
func Evaluate(s Scorer, groups []Group, k int) Evaluation {
	if len(groups) == 0 {
		return Evaluation{}
	}
	var ev Evaluation
	for _, g := range groups {
		scores := make([]float64, len(g.Samples))
		for i, smp := range g.Samples {
			scores[i] = s.Score(smp.Features)
		}
		labels := g.Labels()
		ev.NDCG += NDCGAtK(labels, scores, k)
		ev.MRR += MRR(labels, scores)
	}
	n := float64(len(groups))
	ev.NDCG /= n
	ev.MRR /= n
	ev.Queries = len(groups)
	return ev
}

//Personal.AI order the ending
