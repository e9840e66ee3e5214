// Package training builds a synthetic learning-to-rank dataset from trade
// history, fits the listwise linear ranker and publishes the artifact.
package training

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Dataset types
// ─────────────────────────────────────────────────────────────────────────────

// Sample is one labelled (candidate, query) pair.
type Sample struct {
	Candidate string
	Features  trade.FeatureVector
	Heuristic float64
	Label     int
}

// Group holds all samples of one synthetic query.
type Group struct {
	QueryID     string
	Subcategory trade.Subcategory
	Query       trade.ParsedQuery
	Samples     []Sample
}

// Labels returns the group's relevance labels in sample order.
func (g Group) Labels() []int {
	out := make([]int, len(g.Samples))
	for i, s := range g.Samples {
		out[i] = s.Label
	}
	return out
}

// Dataset is the ordered list of query groups.
type Dataset struct {
	Groups []Group
}

// NumSamples counts samples across groups.
func (d Dataset) NumSamples() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Samples)
	}
	return n
}

// Split partitions by group, never splitting a query: the first
// int(len·fraction) groups train, the remainder validate.
func (d Dataset) Split(fraction float64) (train, valid []Group) {
	n := int(float64(len(d.Groups)) * fraction)
	if n < 0 {
		n = 0
	}
	if n > len(d.Groups) {
		n = len(d.Groups)
	}
	return d.Groups[:n], d.Groups[n:]
}

// ─────────────────────────────────────────────────────────────────────────────
// Query synthesis
// ─────────────────────────────────────────────────────────────────────────────

// SynthesizeQueries returns the probe queries for one subcategory.  now
// anchors the six-month window of the time-family probe.
func SynthesizeQueries(a trade.SubcategoryActivity, now time.Time) []trade.ParsedQuery {
	base := func(intent trade.Intent, scope trade.Scope, f trade.Family) trade.ParsedQuery {
		return trade.ParsedQuery{
			Raw:       fmt.Sprintf("synthetic:%d:%s:%s:%d", a.ID, intent, scope, f),
			Intent:    intent,
			Scope:     scope,
			Family:    f,
			Product:   a.Name,
			Countries: []string{},
		}
	}

	var out []trade.ParsedQuery
	if a.HasImports {
		for f := trade.FamilyDiscovery; f <= trade.FamilyEvidence; f++ {
			q := base(trade.IntentBuy, trade.ScopeWorldwide, f)
			switch f {
			case trade.FamilyCountry:
				q.Countries = []string{"China"}
			case trade.FamilyVolume:
				q.VolumeMT = trade.Float(100)
			case trade.FamilyPrice:
				q.PriceCeiling = trade.Float(1000)
			case trade.FamilyTime:
				today := trade.DateOf(now)
				q.Window = &trade.TimeWindow{Start: trade.DateOf(today.AddDate(0, -6, 0)), End: today}
			}
			out = append(out, q)
		}
		out = append(out, base(trade.IntentSell, trade.ScopeDomestic, trade.FamilyDiscovery))
	}
	if a.HasExports {
		out = append(out, base(trade.IntentSell, trade.ScopeWorldwide, trade.FamilyDiscovery))
		q := base(trade.IntentSell, trade.ScopeWorldwide, trade.FamilyVolume)
		q.VolumeMT = trade.Float(100)
		out = append(out, q)
		q = base(trade.IntentSell, trade.ScopeWorldwide, trade.FamilyPrice)
		q.PriceFloor = trade.Float(500)
		out = append(out, q)
		out = append(out, base(trade.IntentSell, trade.ScopeWorldwide, trade.FamilyRecommendation))
		out = append(out, base(trade.IntentBuy, trade.ScopeDomestic, trade.FamilyDiscovery))
		q = base(trade.IntentBuy, trade.ScopeDomestic, trade.FamilyVolume)
		q.VolumeMT = trade.Float(50)
		out = append(out, q)
	}
	return out
}

// PercentileLabels maps scores to 0–4 relevance grades by their
// average-rank percentile within the list.
func PercentileLabels(scores []float64) []int {
	n := len(scores)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		// ranks are 1-based; ties share the mean of their ranks
		pct := (float64(i+1) + float64(j+1)) / 2 / float64(n)
		for k := i; k <= j; k++ {
			labels[idx[k]] = gradeOf(pct)
		}
		i = j + 1
	}
	return labels
}

func gradeOf(p float64) int {
	switch {
	case p > 0.8:
		return 4
	case p > 0.6:
		return 3
	case p > 0.4:
		return 2
	case p > 0.2:
		return 1
	default:
		return 0
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// CandidateSource fetches aggregated candidates for a query.
type CandidateSource interface {
	GetCandidates(ctx context.Context, subcategoryIDs []int64, q trade.ParsedQuery) ([]trade.Candidate, error)
}

// Builder synthesises the dataset.
type Builder struct {
	catalog       trade.SubcategoryCatalog
	candidates    CandidateSource
	extractor     *ranking.Extractor
	workers       int
	minCandidates int
	now           func() time.Time
	logger        logging.Logger
	progress      func(done, total int)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkers sets the synthesis pool size.
func WithWorkers(n int) BuilderOption { return func(b *Builder) { b.workers = n } }

// WithMinCandidates sets the smallest usable query group.
func WithMinCandidates(n int) BuilderOption { return func(b *Builder) { b.minCandidates = n } }

// WithBuilderClock overrides the clock.
func WithBuilderClock(now func() time.Time) BuilderOption { return func(b *Builder) { b.now = now } }

// WithProgress reports per-subcategory completion.
func WithProgress(fn func(done, total int)) BuilderOption { return func(b *Builder) { b.progress = fn } }

// NewBuilder returns a Builder.
func NewBuilder(catalog trade.SubcategoryCatalog, candidates CandidateSource, extractor *ranking.Extractor, logger logging.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := &Builder{
		catalog:       catalog,
		candidates:    candidates,
		extractor:     extractor,
		workers:       4,
		minCandidates: 2,
		now:           time.Now,
		logger:        logger.Named("dataset"),
	}
	for _, o := range opts {
		o(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	if b.minCandidates < 2 {
		b.minCandidates = 2
	}
	return b
}

// Build synthesises every query group.  Subcategories are processed on a
// bounded worker pool; group order follows the catalogue order.
func (b *Builder) Build(ctx context.Context) (*Dataset, error) {
	subs, err := b.catalog.TradedSubcategories(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "list traded subcategories")
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "create synthesis pool")
	}
	defer pool.Release()

	results := make([][]Group, len(subs))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			ch := make(chan error, 1)
			if err := pool.Submit(func() {
				groups, err := b.buildSubcategory(gctx, sub)
				results[i] = groups
				ch <- err
			}); err != nil {
				return err
			}
			select {
			case err := <-ch:
				if err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
			if b.progress != nil {
				mu.Lock()
				done++
				b.progress(done, len(subs))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTrainingFailed, "synthesise dataset")
	}

	ds := &Dataset{}
	for _, gs := range results {
		ds.Groups = append(ds.Groups, gs...)
	}
	b.logger.Info("training dataset built",
		logging.Int("subcategories", len(subs)),
		logging.Int("queries", len(ds.Groups)),
		logging.Int("samples", ds.NumSamples()),
	)
	return ds, nil
}

func (b *Builder) buildSubcategory(ctx context.Context, sub trade.SubcategoryActivity) ([]Group, error) {
	if !sub.HasImports && !sub.HasExports {
		return nil, nil
	}
	var out []Group
	for qi, q := range SynthesizeQueries(sub, b.now()) {
		cands, err := b.candidates.GetCandidates(ctx, []int64{sub.ID}, q)
		if err != nil {
			return nil, err
		}
		if len(cands) < b.minCandidates {
			continue
		}

		grp := Group{
			QueryID:     fmt.Sprintf("%d-%02d", sub.ID, qi),
			Subcategory: sub.Subcategory,
			Query:       q,
			Samples:     make([]Sample, len(cands)),
		}
		scores := make([]float64, len(cands))
		for i, c := range cands {
			v := b.extractor.Extract(c, q)
			scores[i] = ranking.HeuristicScore(v, q.Family)
			grp.Samples[i] = Sample{Candidate: c.Name, Features: v, Heuristic: scores[i]}
		}
		for i, l := range PercentileLabels(scores) {
			grp.Samples[i].Label = l
		}
		out = append(out, grp)
	}
	return out, nil
}

//Personal.AI order the ending
