// Package ranking scores aggregated candidates against a parsed query.  A
// per-family heuristic is blended with a learned linear ranker; when no
// learned model is available its contribution is exactly zero.
package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// Extractor encodes (candidate, query) pairs into feature vectors.
type Extractor struct {
	home string
	now  func() time.Time
}

// NewExtractor returns an Extractor.  home is compared case-insensitively
// with candidate countries for scope matching; now drives recency.
func NewExtractor(home string, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{home: home, now: now}
}

// Extract computes the eight features in trade.FeatureNames order.
func (e *Extractor) Extract(c trade.Candidate, q trade.ParsedQuery) trade.FeatureVector {
	var v trade.FeatureVector
	v[trade.FeatLogVolume] = math.Log1p(math.Max(0, c.TotalVolumeMT))
	v[trade.FeatLogPrice] = math.Log1p(math.Max(0, c.AvgPriceUSDPerMT))
	v[trade.FeatShipmentFreq] = float64(c.Shipments)
	v[trade.FeatInvRecency] = e.inverseRecency(c.LastTradeDate)
	v[trade.FeatVolumeFitScore] = c.VolumeFit.Score()
	v[trade.FeatScopeMatch] = e.scopeMatch(c.Country, q.Scope)
	v[trade.FeatCountryMatch] = countryMatch(c.Country, q.Countries)
	v[trade.FeatPriceFit] = priceFit(c.AvgPriceUSDPerMT, q.PriceCeiling, q.PriceFloor)
	return v
}

func (e *Extractor) inverseRecency(last time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	today := trade.DateOf(e.now())
	days := today.Sub(trade.DateOf(last).Time).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 / (days + 1)
}

func (e *Extractor) scopeMatch(country string, scope trade.Scope) float64 {
	isHome := country != "" && strings.EqualFold(country, e.home)
	if scope == trade.ScopeDomestic {
		if isHome {
			return 1
		}
		return 0.5
	}
	if country != "" && !isHome {
		return 1
	}
	return 0.5
}

func countryMatch(country string, filter []string) float64 {
	if len(filter) == 0 {
		return 0.5
	}
	if country == "" {
		return 0
	}
	for _, c := range filter {
		if c == country {
			return 1
		}
	}
	return 0
}

func priceFit(price float64, ceiling, floor *float64) float64 {
	hasCeil := ceiling != nil && *ceiling > 0
	hasFloor := floor != nil && *floor > 0
	switch {
	case hasCeil && hasFloor:
		return boolScore(price >= *floor && price <= *ceiling)
	case hasCeil:
		return boolScore(price <= *ceiling)
	case hasFloor:
		return boolScore(price >= *floor)
	default:
		return 0.5
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

//Personal.AI order the ending
