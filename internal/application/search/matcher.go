// Package search is the application service behind counterparty search and
// the counterparty detail view.  It chains the interpreter, the product
// matcher, the candidate aggregator and the ranking ensemble.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ============================================================================
// Product matching
// ============================================================================

const (
	// DefaultMinFuzzyScore drops weak full-text matches.
	DefaultMinFuzzyScore = 0.4
	// DefaultFuzzyCandidates is how many full-text hits are considered.
	DefaultFuzzyCandidates = 10
	// Above exactThreshold only matches within exactBand of the best survive.
	exactThreshold = 0.95
	exactBand      = 0.05
)

var termStopwords = map[string]bool{
	"i": true, "want": true, "to": true, "buy": true, "suppliers": true,
	"sell": true, "who": true, "sells": true, "find": true, "search": true,
	"for": true, "please": true, "looking": true,
}

// CleanTerm lower-cases term and drops search filler words.
func CleanTerm(term string) string {
	words := strings.Fields(strings.ToLower(term))
	kept := words[:0]
	for _, w := range words {
		if !termStopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// ProductMatcher resolves a product term to catalogue subcategories.
type ProductMatcher struct {
	catalog   trade.SubcategoryCatalog
	index     trade.SubcategoryIndex
	minScore  float64
	fuzzySize int
	logger    logging.Logger
}

// MatcherOption configures a ProductMatcher.
type MatcherOption func(*ProductMatcher)

// WithFuzzyIndex adds full-text matching on top of keyword matching.
func WithFuzzyIndex(idx trade.SubcategoryIndex) MatcherOption {
	return func(m *ProductMatcher) { m.index = idx }
}

// WithMinFuzzyScore overrides DefaultMinFuzzyScore.
func WithMinFuzzyScore(s float64) MatcherOption {
	return func(m *ProductMatcher) {
		if s > 0 {
			m.minScore = s
		}
	}
}

// NewProductMatcher returns a keyword-only matcher unless a fuzzy index is
// supplied.
func NewProductMatcher(catalog trade.SubcategoryCatalog, logger logging.Logger, opts ...MatcherOption) *ProductMatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &ProductMatcher{
		catalog:   catalog,
		minScore:  DefaultMinFuzzyScore,
		fuzzySize: DefaultFuzzyCandidates,
		logger:    logger.Named("matcher"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns subcategories for term, best first.  Keyword hits score 1.0
// and win over a fuzzy hit for the same subcategory.  A fuzzy index failure
// degrades to keyword matches only.
func (m *ProductMatcher) Match(ctx context.Context, term string) ([]trade.SubcategoryMatch, error) {
	clean := CleanTerm(term)
	if clean == "" {
		return []trade.SubcategoryMatch{}, nil
	}

	hits, err := m.catalog.MatchByName(ctx, clean)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "keyword product match")
	}
	seen := make(map[int64]bool, len(hits))
	out := make([]trade.SubcategoryMatch, 0, len(hits))
	for _, h := range hits {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, trade.SubcategoryMatch{Subcategory: h, Score: 1.0, Method: trade.MatchKeyword})
	}

	if m.index != nil {
		fuzzy, err := m.index.Search(ctx, clean, m.fuzzySize)
		if err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("fuzzy product match unavailable",
				logging.String("term", clean))
		}
		for _, f := range fuzzy {
			if f.Score < m.minScore || seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			f.Method = trade.MatchFuzzy
			out = append(out, f)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// SelectIDs picks the subcategories to aggregate over.  When the best match
// is near-exact only matches within 0.05 of it are kept.
func SelectIDs(matches []trade.SubcategoryMatch) []int64 {
	if len(matches) == 0 {
		return nil
	}
	floor := 0.0
	if best := matches[0].Score; best > exactThreshold {
		floor = best - exactBand
	}
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		if m.Score >= floor {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// AllIDs returns every matched subcategory id.
func AllIDs(matches []trade.SubcategoryMatch) []int64 {
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

//Personal.AI order the ending
