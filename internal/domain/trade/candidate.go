package trade

import (
	"math"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Trade direction and candidate roles
// ─────────────────────────────────────────────────────────────────────────────

// Direction is the customs direction of a shipment record, seen from the home
// country.
type Direction string

const (
	DirectionImport Direction = "IMPORT"
	DirectionExport Direction = "EXPORT"
)

// Role names which party of a shipment is the candidate.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// CountryField names the shipment column that describes the candidate's
// country.
type CountryField string

const (
	CountryOrigin      CountryField = "origin_country"
	CountryDestination CountryField = "destination_country"
)

// CandidateSpec is the resolved store query for one (intent, scope) pair.
type CandidateSpec struct {
	Direction Direction
	// HomeField is pinned to HomeCountry so the home side of the shipment
	// is the caller's own market.
	HomeField    CountryField
	HomeCountry  string
	Role         Role
	CountryField CountryField
}

// CandidateFilter narrows the shipments the store aggregates.  All set
// fields apply conjunctively.
type CandidateFilter struct {
	SubcategoryIDs []int64
	Countries      []string
	PriceCeiling   *float64
	PriceFloor     *float64
	Window         *TimeWindow
	// Counterparty restricts aggregation to a single candidate name
	// (case-insensitive), used by the detail view.
	Counterparty string
}

// ─────────────────────────────────────────────────────────────────────────────
// VolumeFit
// ─────────────────────────────────────────────────────────────────────────────

// VolumeFit labels how well a candidate's demonstrated capacity covers a
// requested volume.
type VolumeFit string

const (
	FitStrong  VolumeFit = "Strong"
	FitGood    VolumeFit = "Good"
	FitPartial VolumeFit = "Partial"
	FitLow     VolumeFit = "Low"
	FitNA      VolumeFit = "N/A"
)

// Score maps the label onto the 0–3 feature scale.
func (f VolumeFit) Score() float64 {
	switch f {
	case FitStrong:
		return 3
	case FitGood:
		return 2
	case FitPartial:
		return 1
	default:
		return 0
	}
}

// ClassifyVolumeFit compares required against max single shipment (capacity)
// and total volume (relationship strength).  A nil or non-positive
// requirement yields FitNA.
func ClassifyVolumeFit(maxShipment, total float64, required *float64) VolumeFit {
	if required == nil || *required <= 0 {
		return FitNA
	}
	req := *required
	switch {
	case maxShipment >= 1.2*req:
		return FitStrong
	case maxShipment >= req:
		return FitGood
	case total >= req:
		return FitPartial
	default:
		return FitLow
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Candidate
// ─────────────────────────────────────────────────────────────────────────────

// Candidate is one aggregated (counterparty, country) with its trade
// activity summary for the current query.  Recomputed per request.
type Candidate struct {
	Name             string    `json:"counterparty_name"`
	Country          string    `json:"country"`
	TotalVolumeMT    float64   `json:"total_volume_mt"`
	AvgPriceUSDPerMT float64   `json:"avg_price_usd_per_mt"`
	Shipments        int       `json:"num_shipments"`
	LastTradeDate    time.Time `json:"last_trade_date"`
	MaxShipmentMT    float64   `json:"max_shipment_vol"`
	VolumeFit        VolumeFit `json:"volume_fit"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Features and ranking output
// ─────────────────────────────────────────────────────────────────────────────

// Feature indexes into FeatureVector.
type Feature int

const (
	FeatLogVolume Feature = iota
	FeatLogPrice
	FeatShipmentFreq
	FeatInvRecency
	FeatVolumeFitScore
	FeatScopeMatch
	FeatCountryMatch
	FeatPriceFit

	NumFeatures = 8
)

// FeatureNames lists the features in vector order.
var FeatureNames = [NumFeatures]string{
	"log_volume", "log_price", "shipment_freq", "inv_recency",
	"volume_fit_score", "scope_match", "country_match", "price_fit",
}

func (f Feature) String() string { return FeatureNames[f] }

// FeatureVector is the fixed-order numeric encoding of (candidate, query).
type FeatureVector [NumFeatures]float64

// Get returns the value of feature f.
func (v FeatureVector) Get(f Feature) float64 { return v[f] }

// MatchFeatures is the short explanation returned with each ranked result.
type MatchFeatures struct {
	Volume float64   `json:"vol"`
	Fit    VolumeFit `json:"fit"`
}

// RankedCandidate is a Candidate with its blended score.
type RankedCandidate struct {
	Candidate
	Score          float64       `json:"ranking_score"`
	HeuristicScore float64       `json:"heuristic_score"`
	LearnedScore   float64       `json:"learned_score"`
	MatchFeatures  MatchFeatures `json:"match_features"`
}

// Round3 rounds to three decimals, the precision of published scores.
func Round3(v float64) float64 { return math.Round(v*1000) / 1000 }

//Personal.AI order the ending
