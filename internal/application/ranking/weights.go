package ranking

import "github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"

// Weights is a per-feature coefficient vector.
type Weights = trade.FeatureVector

func profile(m map[trade.Feature]float64) Weights {
	var w Weights
	for f, v := range m {
		w[f] = v
	}
	return w
}

// familyWeights are the heuristic profiles.  Family 9 doubles as the
// default for anything unrecognised.
var familyWeights = map[trade.Family]Weights{
	trade.FamilyDiscovery: profile(map[trade.Feature]float64{
		trade.FeatVolumeFitScore: 1.5, trade.FeatLogVolume: 1, trade.FeatShipmentFreq: 1,
		trade.FeatInvRecency: 1, trade.FeatCountryMatch: 1,
	}),
	trade.FamilyCountry: profile(map[trade.Feature]float64{
		trade.FeatCountryMatch: 3, trade.FeatVolumeFitScore: 1, trade.FeatLogVolume: 1,
		trade.FeatInvRecency: 0.5,
	}),
	trade.FamilyVolume: profile(map[trade.Feature]float64{
		trade.FeatVolumeFitScore: 3, trade.FeatLogVolume: 1, trade.FeatInvRecency: 0.5,
	}),
	trade.FamilyPrice: profile(map[trade.Feature]float64{
		trade.FeatPriceFit: 3, trade.FeatLogPrice: -1, trade.FeatVolumeFitScore: 1,
	}),
	trade.FamilyTime: profile(map[trade.Feature]float64{
		trade.FeatInvRecency: 3, trade.FeatShipmentFreq: 1.5, trade.FeatVolumeFitScore: 1,
	}),
	trade.FamilyRecommendation: profile(map[trade.Feature]float64{
		trade.FeatVolumeFitScore: 2, trade.FeatLogVolume: 1.5, trade.FeatShipmentFreq: 1.5,
		trade.FeatInvRecency: 1, trade.FeatCountryMatch: 0.5,
	}),
	trade.FamilyComparison: profile(map[trade.Feature]float64{
		trade.FeatPriceFit: 2, trade.FeatLogPrice: -1.5, trade.FeatLogVolume: 1,
		trade.FeatShipmentFreq: 1, trade.FeatCountryMatch: 1,
	}),
	trade.FamilyEvidence: profile(map[trade.Feature]float64{
		trade.FeatShipmentFreq: 3, trade.FeatLogVolume: 1.5, trade.FeatInvRecency: 1.5,
		trade.FeatVolumeFitScore: 0.5,
	}),
	trade.FamilyMulti: profile(map[trade.Feature]float64{
		trade.FeatVolumeFitScore: 1, trade.FeatLogVolume: 1, trade.FeatInvRecency: 1,
		trade.FeatShipmentFreq: 1, trade.FeatCountryMatch: 1,
	}),
}

// FamilyWeights returns the heuristic profile for f.  Unknown families get
// the default profile.
func FamilyWeights(f trade.Family) Weights {
	if !f.Valid() {
		f = trade.FamilyMulti
	}
	return familyWeights[f]
}

// HeuristicScore is the family-weighted dot product of v.
func HeuristicScore(v trade.FeatureVector, f trade.Family) float64 {
	w := FamilyWeights(f)
	s := 0.0
	for i := range v {
		s += w[i] * v[i]
	}
	return s
}

//Personal.AI order the ending
