package trade

import "math"

// Method names a link-prediction scorer.
type Method string

const (
	MethodEmbedding    Method = "node2vec"
	MethodCommonNeigh  Method = "common_neighbors"
	MethodProductCo    Method = "product_cotrade"
	MethodJaccard      Method = "jaccard"
	MethodPreferential Method = "preferential_attachment"
	MethodCombined     Method = "combined"
)

// AllMethods lists the individual scorers in combination order.
func AllMethods() []Method {
	return []Method{MethodEmbedding, MethodCommonNeigh, MethodProductCo, MethodJaccard, MethodPreferential}
}

// MaxConfidence caps every automated relevance or prediction score.
const MaxConfidence = 0.95

// ScaleConfidence maps s onto [0, MaxConfidence] relative to max.
// A non-positive max yields zero.
func ScaleConfidence(s, max float64) float64 {
	if max <= 0 || math.IsNaN(s) {
		return 0
	}
	return math.Min(1, math.Max(0, s/max)) * MaxConfidence
}

// RecommendDirection selects which side of the trade is recommended.
type RecommendDirection string

const (
	// RecommendSellers proposes sellers to a buyer.
	RecommendSellers RecommendDirection = "sellers"
	// RecommendBuyers proposes buyers to a seller.
	RecommendBuyers RecommendDirection = "buyers"
)

// ParseRecommendDirection accepts "sellers"/"buyers" and the singulars.
func ParseRecommendDirection(s string) (RecommendDirection, bool) {
	switch s {
	case "sellers", "seller":
		return RecommendSellers, true
	case "buyers", "buyer":
		return RecommendBuyers, true
	}
	return "", false
}

// SubjectRole is the role the queried company plays.
func (d RecommendDirection) SubjectRole() Role {
	if d == RecommendBuyers {
		return RoleSeller
	}
	return RoleBuyer
}

// CandidateRole is the role of the recommended companies.
func (d RecommendDirection) CandidateRole() Role {
	if d == RecommendBuyers {
		return RoleBuyer
	}
	return RoleSeller
}

// MethodScore is one scorer's view of a candidate counterparty.
type MethodScore struct {
	Name       string
	Score      float64
	SegmentTag string
	// Evidence is the raw count or degree behind Score, when the method has one.
	Evidence int
}

// PredictionResult is one combined recommendation.
type PredictionResult struct {
	Name            string             `json:"name"`
	Scores          map[Method]float64 `json:"scores"`
	FinalConfidence float64            `json:"final_confidence"`
	Rank            int                `json:"rank"`
	SegmentTag      string             `json:"segment_tag,omitempty"`
}

// Recommendation is the response envelope for a company.
type Recommendation struct {
	Company   string             `json:"company"`
	Direction RecommendDirection `json:"direction"`
	Method    Method             `json:"method"`
	Results   []PredictionResult `json:"results"`
}

//Personal.AI order the ending
