package interpreter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// DefaultTopN is the result count for recommendation queries that do not
// state one.
const DefaultTopN = 5

var topNRe = regexp.MustCompile(`(?i)\b(?:top|best|first)\s+(\d+)\b`)

// TopN returns the "top N" count stated in raw, or DefaultTopN.
func TopN(raw string) int {
	if m := topNRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return DefaultTopN
}

type familySignals struct {
	evidence       bool
	comparison     bool
	recommendation bool
}

// detectFamilyKeywords uses plain substring containment on the lowered
// segment, so "records" still signals evidence.
func detectFamilyKeywords(lower string) familySignals {
	containsAny := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	return familySignals{
		evidence:       containsAny(evidenceKeywords),
		comparison:     containsAny(comparisonKeywords),
		recommendation: containsAny(recommendationKeywords),
	}
}

// classifyFamily applies the fixed priority order over keyword signals and
// populated fields.
func classifyFamily(sig familySignals, q *trade.ParsedQuery) trade.Family {
	switch {
	case sig.evidence:
		return trade.FamilyEvidence
	case sig.comparison:
		return trade.FamilyComparison
	case sig.recommendation:
		return trade.FamilyRecommendation
	case q.PriceCeiling != nil || q.PriceFloor != nil:
		return trade.FamilyPrice
	case q.Window != nil:
		return trade.FamilyTime
	case q.VolumeMT != nil:
		return trade.FamilyVolume
	case len(q.Countries) > 0:
		return trade.FamilyCountry
	default:
		return trade.FamilyDiscovery
	}
}

//Personal.AI order the ending
