// Package indexing copies the transactional store into the derived graph,
// vector and full-text stores used by link prediction and product matching.
package indexing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// Target names a derived store.
type Target string

const (
	TargetGraph         Target = "graph"
	TargetEmbeddings    Target = "embeddings"
	TargetSubcategories Target = "subcategories"
)

// AllTargets lists every derived store in sync order.
func AllTargets() []Target {
	return []Target{TargetGraph, TargetEmbeddings, TargetSubcategories}
}

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	for _, t := range AllTargets() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", errors.New(errors.ErrCodeValidation, "unknown sync target "+s)
}

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

type EdgeSource interface {
	EachEdge(ctx context.Context, fn func(trade.TradeEdge) error) error
}

type GraphSink interface {
	EnsureSchema(ctx context.Context) error
	UpsertEdges(ctx context.Context, edges []trade.TradeEdge) (int, error)
}

type EmbeddingSource interface {
	Batch(ctx context.Context, afterID int64, limit int) ([]trade.CompanyEmbedding, int64, error)
}

type VectorSink interface {
	Upsert(ctx context.Context, rows []trade.CompanyEmbedding) (int, error)
	Flush(ctx context.Context) error
}

type SubcategorySink interface {
	EnsureIndex(ctx context.Context) error
	IndexSubcategories(ctx context.Context, subs []trade.SubcategoryActivity) (int, error)
}

// Config sizes the batches pushed to each store.
type Config struct {
	EdgeBatch      int
	EmbeddingBatch int
}

// Report counts what each target received.
type Report struct {
	Written  map[Target]int `json:"written"`
	Duration time.Duration  `json:"duration"`
}

// Syncer pushes Postgres data to the derived stores. Sinks left nil are
// skipped.
type Syncer struct {
	edges    EdgeSource
	graph    GraphSink
	embSrc   EmbeddingSource
	vectors  VectorSink
	catalog  trade.SubcategoryCatalog
	index    SubcategorySink
	cfg      Config
	progress func(Target, int)
	logger   logging.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

func WithGraph(src EdgeSource, sink GraphSink) Option {
	return func(s *Syncer) { s.edges, s.graph = src, sink }
}

func WithVectors(src EmbeddingSource, sink VectorSink) Option {
	return func(s *Syncer) { s.embSrc, s.vectors = src, sink }
}

func WithSubcategoryIndex(src trade.SubcategoryCatalog, sink SubcategorySink) Option {
	return func(s *Syncer) { s.catalog, s.index = src, sink }
}

// WithProgress is called after every written batch with the batch size.
// Targets run concurrently so fn must be safe for concurrent use.
func WithProgress(fn func(Target, int)) Option { return func(s *Syncer) { s.progress = fn } }

// NewSyncer wires a Syncer.
func NewSyncer(cfg Config, logger logging.Logger, opts ...Option) *Syncer {
	if cfg.EdgeBatch <= 0 {
		cfg.EdgeBatch = 1000
	}
	if cfg.EmbeddingBatch <= 0 {
		cfg.EmbeddingBatch = 500
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Syncer{cfg: cfg, logger: logger.Named("indexing")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Configured reports whether target has both a source and a sink.
func (s *Syncer) Configured(t Target) bool {
	switch t {
	case TargetGraph:
		return s.edges != nil && s.graph != nil
	case TargetEmbeddings:
		return s.embSrc != nil && s.vectors != nil
	case TargetSubcategories:
		return s.catalog != nil && s.index != nil
	}
	return false
}

// Run syncs the requested targets concurrently. With no targets every
// configured one runs. The first failure cancels the others.
func (s *Syncer) Run(ctx context.Context, targets ...Target) (*Report, error) {
	if len(targets) == 0 {
		for _, t := range AllTargets() {
			if s.Configured(t) {
				targets = append(targets, t)
			}
		}
	}
	for _, t := range targets {
		if !s.Configured(t) {
			return nil, errors.New(errors.ErrCodeValidation, "sync target "+string(t)+" is not configured")
		}
	}
	start := time.Now()
	report := &Report{Written: make(map[Target]int, len(targets))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			n, err := s.runTarget(gctx, t)
			mu.Lock()
			report.Written[t] = n
			mu.Unlock()
			if err != nil {
				s.logger.Error("sync target failed", logging.String("target", string(t)), logging.Err(err))
				return err
			}
			s.logger.Info("sync target done", logging.String("target", string(t)), logging.Int("written", n))
			return nil
		})
	}
	err := g.Wait()
	report.Duration = time.Since(start)
	return report, err
}

func (s *Syncer) runTarget(ctx context.Context, t Target) (int, error) {
	switch t {
	case TargetGraph:
		return s.syncGraph(ctx)
	case TargetEmbeddings:
		return s.syncEmbeddings(ctx)
	default:
		return s.syncSubcategories(ctx)
	}
}

func (s *Syncer) tick(t Target, n int) {
	if s.progress != nil && n > 0 {
		s.progress(t, n)
	}
}

func (s *Syncer) syncGraph(ctx context.Context) (int, error) {
	if err := s.graph.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	total := 0
	batch := make([]trade.TradeEdge, 0, s.cfg.EdgeBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.graph.UpsertEdges(ctx, batch)
		total += n
		s.tick(TargetGraph, n)
		batch = batch[:0]
		return err
	}
	err := s.edges.EachEdge(ctx, func(e trade.TradeEdge) error {
		batch = append(batch, e)
		if len(batch) >= s.cfg.EdgeBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

func (s *Syncer) syncEmbeddings(ctx context.Context) (int, error) {
	total := 0
	var after int64
	for {
		rows, last, err := s.embSrc.Batch(ctx, after, s.cfg.EmbeddingBatch)
		if err != nil {
			return total, err
		}
		if len(rows) > 0 {
			n, err := s.vectors.Upsert(ctx, rows)
			total += n
			s.tick(TargetEmbeddings, n)
			if err != nil {
				return total, err
			}
		}
		// Malformed rows are dropped by the source, so the cursor rather
		// than len(rows) decides whether the table is exhausted.
		if last == after {
			break
		}
		after = last
	}
	return total, s.vectors.Flush(ctx)
}

func (s *Syncer) syncSubcategories(ctx context.Context) (int, error) {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	subs, err := s.catalog.TradedSubcategories(ctx)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}
	n, err := s.index.IndexSubcategories(ctx, subs)
	s.tick(TargetSubcategories, n)
	return n, err
}

//Personal.AI order the ending
