package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/aggregation"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/interpreter"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var tracer = otel.Tracer("tradelink/search")

// ErrorScopeConflict is the error tag of a scope/country conflict response.
const ErrorScopeConflict = "scope_country_conflict"

// ============================================================================
// Collaborators
// ============================================================================

// QueryParser interprets free text.
type QueryParser interface {
	Parse(text string, explicit trade.Scope) (trade.ParsedQuery, error)
}

// Matcher resolves product terms to subcategories.
type Matcher interface {
	Match(ctx context.Context, term string) ([]trade.SubcategoryMatch, error)
}

// CandidateSource aggregates candidates for a parsed query.
type CandidateSource interface {
	GetCandidates(ctx context.Context, subcategoryIDs []int64, q trade.ParsedQuery) ([]trade.Candidate, error)
}

// Ranker orders candidates for a parsed query.
type Ranker interface {
	Rank(ctx context.Context, cands []trade.Candidate, q trade.ParsedQuery) []trade.RankedCandidate
}

// Cache is the read-through response cache.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// ============================================================================
// Inputs and results
// ============================================================================

// SearchInput is a counterparty search request.
type SearchInput struct {
	Query string
	Scope string
	// Country overrides the interpreted country filter.
	Country string
	// SubcategoryID bypasses product matching for aggregation.
	SubcategoryID *int64
}

// MarketSnapshot summarises the returned results.
type MarketSnapshot struct {
	TotalCount     int     `json:"total_count"`
	AvgPriceGlobal float64 `json:"avg_price_global"`
	TopCountry     string  `json:"top_country"`
}

// SearchResult is the search response.  Error is set only for a scope
// conflict, in which case Results is empty.
type SearchResult struct {
	Query                string                   `json:"query"`
	ParsedQuery          trade.ParsedQuery        `json:"parsed_query"`
	MatchedSubcategories []trade.SubcategoryMatch `json:"matched_subcategories"`
	Results              []trade.RankedCandidate  `json:"results"`
	MarketSnapshot       *MarketSnapshot          `json:"market_snapshot,omitempty"`
	Count                int                      `json:"count"`
	Message              string                   `json:"message,omitempty"`
	Error                string                   `json:"error,omitempty"`
}

// DetailInput selects one counterparty for a product.
type DetailInput struct {
	Name string
	// Product is the free text used to resolve subcategories and intent.
	Product string
	Scope   string
}

// MarketContext describes the counterparty's monthly price direction.
type MarketContext struct {
	Sentiment  string `json:"sentiment"`
	PriceTrend string `json:"price_trend"`
}

// DetailResult is the counterparty detail response.
type DetailResult struct {
	Counterparty  *trade.CounterpartyProfile `json:"supplier"`
	Comparables   []trade.RankedCandidate    `json:"comparables"`
	MarketContext MarketContext              `json:"market_context"`
}

// Service is the search application service.
type Service interface {
	Search(ctx context.Context, in *SearchInput) (*SearchResult, error)
	Detail(ctx context.Context, in *DetailInput) (*DetailResult, error)
}

// Config tunes the service.
type Config struct {
	HomeCountry string
	CacheTTL    time.Duration
	// RecentPartnerWindow bounds "recent" relationships in the detail view.
	RecentPartnerWindow time.Duration
	// Comparables is how many peers the detail view lists.
	Comparables int
}

// Observer is notified after every search.
type Observer func(family trade.Family, results int, elapsed time.Duration, err error)

type serviceImpl struct {
	parser   QueryParser
	matcher  Matcher
	cands    CandidateSource
	ranker   Ranker
	profiles trade.ProfileStore
	cfg      Config
	cache    Cache
	observe  Observer
	now      func() time.Time
	logger   logging.Logger
}

// Option configures the service.
type Option func(*serviceImpl)

// WithCache enables response caching.
func WithCache(c Cache) Option { return func(s *serviceImpl) { s.cache = c } }

// WithObserver registers a search observer.
func WithObserver(o Observer) Option { return func(s *serviceImpl) { s.observe = o } }

// WithClock overrides the clock used for relationship recency.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the search pipeline.
func NewService(parser QueryParser, matcher Matcher, cands CandidateSource, ranker Ranker, profiles trade.ProfileStore, cfg Config, logger logging.Logger, opts ...Option) Service {
	if cfg.HomeCountry == "" {
		cfg.HomeCountry = "Pakistan"
	}
	if cfg.RecentPartnerWindow <= 0 {
		cfg.RecentPartnerWindow = 30 * 24 * time.Hour
	}
	if cfg.Comparables <= 0 {
		cfg.Comparables = 5
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		parser:   parser,
		matcher:  matcher,
		cands:    cands,
		ranker:   ranker,
		profiles: profiles,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("search"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ============================================================================
// Search
// ============================================================================

func (s *serviceImpl) Search(ctx context.Context, in *SearchInput) (*SearchResult, error) {
	if in == nil || strings.TrimSpace(in.Query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query parameter 'q' is required")
	}
	scope, ok := trade.ParseScope(in.Scope)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeScopeInvalid, "unknown scope %q", in.Scope)
	}
	if s.cache == nil {
		return s.search(ctx, in, scope)
	}

	key := searchKey(in, scope)
	var (
		res     SearchResult
		loadErr error
	)
	err := s.cache.GetOrSet(ctx, key, &res, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		r, err := s.search(ctx, in, scope)
		loadErr = err
		return r, err
	})
	if err == nil {
		return &res, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.WithContext(ctx).WithError(err).Warn("search cache unavailable", logging.String("key", key))
	return s.search(ctx, in, scope)
}

func searchKey(in *SearchInput, scope trade.Scope) string {
	sub := ""
	if in.SubcategoryID != nil {
		sub = fmt.Sprint(*in.SubcategoryID)
	}
	return fmt.Sprintf("search:%s:%s:%s:%s", scope, strings.ToLower(in.Country), sub,
		strings.Join(strings.Fields(strings.ToLower(in.Query)), " "))
}

func (s *serviceImpl) search(ctx context.Context, in *SearchInput, scope trade.Scope) (res *SearchResult, err error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	start := time.Now()

	query := strings.TrimSpace(in.Query)
	q, err := s.parser.Parse(query, scope)
	if err != nil {
		return nil, err
	}
	family := DominantFamily(q)
	defer func() {
		if s.observe != nil {
			n := 0
			if res != nil {
				n = res.Count
			}
			s.observe(family, n, time.Since(start), err)
		}
	}()
	span.SetAttributes(
		attribute.String("search.intent", string(q.Intent)),
		attribute.String("search.scope", string(q.Scope)),
		attribute.Int("search.family", int(family)),
		attribute.Bool("search.multi_intent", q.MultiIntent),
	)

	active := q
	if c := strings.TrimSpace(in.Country); c != "" {
		active.Countries = []string{c}
	}
	if conflict := s.foreignCountries(active); len(conflict) > 0 {
		return &SearchResult{
			Query:       query,
			ParsedQuery: q,
			Results:     []trade.RankedCandidate{},
			Error:       ErrorScopeConflict,
			Message: fmt.Sprintf("You are searching within %s scope but specified %s as a country filter. "+
				"Please switch your scope to Worldwide to search for international suppliers.",
				s.cfg.HomeCountry, strings.Join(conflict, ", ")),
		}, nil
	}

	matches, err := s.matcher.Match(ctx, SearchTerm(q))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &SearchResult{
			Query:                query,
			ParsedQuery:          q,
			MatchedSubcategories: []trade.SubcategoryMatch{},
			Results:              []trade.RankedCandidate{},
			Message:              errors.DefaultMessageForCode(errors.ErrCodeNoProductMatch),
		}, nil
	}

	ids := SelectIDs(matches)
	if in.SubcategoryID != nil {
		ids = []int64{*in.SubcategoryID}
	}
	cands, err := s.cands.GetCandidates(ctx, ids, active)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ranked := s.ranker.Rank(ctx, cands, active)
	if family == trade.FamilyRecommendation {
		ranked = ranking.Truncate(ranked, interpreter.TopN(query))
	}

	s.logger.WithContext(ctx).Info("search completed",
		logging.String("intent", string(q.Intent)),
		logging.String("scope", string(q.Scope)),
		logging.Int("family", int(family)),
		logging.Int("subcategories", len(ids)),
		logging.Int("candidates", len(cands)),
		logging.Int("results", len(ranked)),
	)
	return &SearchResult{
		Query:                query,
		ParsedQuery:          q,
		MatchedSubcategories: matches,
		Results:              ranked,
		MarketSnapshot:       Snapshot(ranked),
		Count:                len(ranked),
	}, nil
}

// foreignCountries returns the filter countries outside the home market
// when the scope is domestic.
func (s *serviceImpl) foreignCountries(q trade.ParsedQuery) []string {
	if q.Scope != trade.ScopeDomestic {
		return nil
	}
	var out []string
	for _, c := range q.Countries {
		if !strings.EqualFold(c, s.cfg.HomeCountry) {
			out = append(out, c)
		}
	}
	return out
}

// SearchTerm is the product text matched against the catalogue: the first
// non-empty sub-intent product, else the headline product, else the raw
// text.
func SearchTerm(q trade.ParsedQuery) string {
	if q.MultiIntent {
		for _, sub := range q.SubIntents {
			if sub.Product != "" {
				return sub.Product
			}
		}
		return q.Raw
	}
	if q.Product != "" {
		return q.Product
	}
	return q.Raw
}

// DominantFamily is the family that shapes the result list.  Multi-intent
// queries rank with the multi profile but take the highest sub-intent
// family for truncation.
func DominantFamily(q trade.ParsedQuery) trade.Family {
	if !q.MultiIntent {
		return q.Family
	}
	best := trade.FamilyDiscovery
	for _, sub := range q.SubIntents {
		if sub.Family > best {
			best = sub.Family
		}
	}
	return best
}

// Snapshot summarises ranked results.
func Snapshot(ranked []trade.RankedCandidate) *MarketSnapshot {
	snap := &MarketSnapshot{TotalCount: len(ranked), TopCountry: "N/A"}
	if len(ranked) == 0 {
		return snap
	}
	var sum float64
	for _, r := range ranked {
		sum += r.AvgPriceUSDPerMT
	}
	snap.AvgPriceGlobal = sum / float64(len(ranked))
	snap.TopCountry = ranked[0].Country
	return snap
}

// ============================================================================
// Detail
// ============================================================================

func (s *serviceImpl) Detail(ctx context.Context, in *DetailInput) (*DetailResult, error) {
	if in == nil || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Product) == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "params 'name' and 'product' are required")
	}
	scope, ok := trade.ParseScope(in.Scope)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeScopeInvalid, "unknown scope %q", in.Scope)
	}
	if s.cache == nil {
		return s.detail(ctx, in, scope)
	}

	key := fmt.Sprintf("detail:%s:%s:%s", scope, strings.ToLower(strings.TrimSpace(in.Name)),
		strings.Join(strings.Fields(strings.ToLower(in.Product)), " "))
	var (
		res     DetailResult
		loadErr error
	)
	err := s.cache.GetOrSet(ctx, key, &res, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		r, err := s.detail(ctx, in, scope)
		loadErr = err
		return r, err
	})
	if err == nil {
		return &res, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.WithContext(ctx).WithError(err).Warn("detail cache unavailable", logging.String("key", key))
	return s.detail(ctx, in, scope)
}

func (s *serviceImpl) detail(ctx context.Context, in *DetailInput, scope trade.Scope) (*DetailResult, error) {
	ctx, span := tracer.Start(ctx, "search.Detail")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	q, err := s.parser.Parse(in.Product, scope)
	if err != nil {
		return nil, err
	}
	matches, err := s.matcher.Match(ctx, SearchTerm(q))
	if err != nil {
		return nil, err
	}
	ids := AllIDs(matches)
	if len(ids) == 0 {
		return nil, errors.New(errors.ErrCodeNoProductMatch, errors.DefaultMessageForCode(errors.ErrCodeNoProductMatch))
	}
	spec, err := aggregation.ResolveSpec(q.Intent, q.Scope, s.cfg.HomeCountry)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Profile(ctx, name, spec.Role, ids, s.now().Add(-s.cfg.RecentPartnerWindow))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAggregationFailed, "load counterparty profile")
	}
	if profile == nil {
		return nil, errors.Newf(errors.ErrCodeCounterpartyAbsent, "%s has no %s history for this product", name, spec.Role)
	}

	// Comparables come from the whole product market, not the filtered view.
	market := q
	market.Countries, market.PriceCeiling, market.PriceFloor, market.Window, market.VolumeMT = nil, nil, nil, nil, nil
	cands, err := s.cands.GetCandidates(ctx, ids, market)
	if err != nil {
		return nil, err
	}
	ranked := s.ranker.Rank(ctx, cands, q)

	span.SetAttributes(attribute.Int("detail.subcategories", len(ids)))
	return &DetailResult{
		Counterparty:  profile,
		Comparables:   Comparables(name, ranked, s.cfg.Comparables),
		MarketContext: TrendOf(profile.Sparkline),
	}, nil
}

// Comparables returns the first n ranked candidates other than name,
// compared case-insensitively.
func Comparables(name string, ranked []trade.RankedCandidate, n int) []trade.RankedCandidate {
	self := strings.ToUpper(strings.TrimSpace(name))
	out := make([]trade.RankedCandidate, 0, n)
	for _, r := range ranked {
		if len(out) == n {
			break
		}
		if strings.ToUpper(strings.TrimSpace(r.Name)) == self {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TrendOf compares the last monthly price with the first: more than +5% is
// an uptrend, less than -5% a downtrend.
func TrendOf(spark []trade.SparklinePoint) MarketContext {
	mc := MarketContext{Sentiment: "Neutral", PriceTrend: "Stable"}
	if len(spark) < 2 {
		return mc
	}
	first, last := spark[0].AvgPrice, spark[len(spark)-1].AvgPrice
	if first <= 0 {
		return mc
	}
	switch change := (last - first) / first; {
	case change > 0.05:
		mc = MarketContext{Sentiment: "Bullish", PriceTrend: "Uptrend"}
	case change < -0.05:
		mc = MarketContext{Sentiment: "Bearish", PriceTrend: "Downtrend"}
	}
	return mc
}

//Personal.AI order the ending
