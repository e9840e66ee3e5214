package training

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var tracer = otel.Tracer("tradelink/training")

// DefaultObjectPrefix is where artifacts land in object storage.
const DefaultObjectPrefix = "ranking/models/"

// DatasetBuilder produces the labelled dataset.
type DatasetBuilder interface {
	Build(ctx context.Context) (*Dataset, error)
}

// Lock serialises runs across processes.
type Lock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// ArtifactWriter stores serialised models.
type ArtifactWriter interface {
	PutObject(ctx context.Context, key string, data []byte) error
}

// ModelPublished announces a newly available model.
type ModelPublished struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	ObjectKey   string    `json:"object_key,omitempty"`
	Path        string    `json:"path,omitempty"`
	NDCG        float64   `json:"ndcg_at_k"`
	MRR         float64   `json:"mrr"`
	PublishedAt time.Time `json:"published_at"`
}

// EventPublisher emits model-published notifications.
type EventPublisher interface {
	PublishModel(ctx context.Context, evt ModelPublished) error
}

// Result describes a completed run.
type Result struct {
	RunID     string               `json:"run_id"`
	Version   string               `json:"version"`
	ObjectKey string               `json:"object_key,omitempty"`
	Path      string               `json:"path,omitempty"`
	Metrics   ranking.ModelMetrics `json:"metrics"`
	Report    TrainReport          `json:"-"`
	Duration  time.Duration        `json:"duration"`
}

// PipelineConfig controls splitting and persistence.
type PipelineConfig struct {
	TrainFraction float64
	EvalAtK       int
	ModelPath     string
	ObjectPrefix  string
}

// Pipeline runs build → split → fit → evaluate → persist.
type Pipeline struct {
	builder  DatasetBuilder
	trainer  *Trainer
	cfg      PipelineConfig
	lock     Lock
	objects  ArtifactWriter
	registry trade.ModelRegistry
	events   EventPublisher
	observe  func(*Result, error)
	now      func() time.Time
	logger   logging.Logger
}

// PipelineOption configures optional collaborators.
type PipelineOption func(*Pipeline)

// WithLock guards runs with a distributed lock.
func WithLock(l Lock) PipelineOption { return func(p *Pipeline) { p.lock = l } }

// WithArtifactWriter uploads artifacts to object storage.
func WithArtifactWriter(w ArtifactWriter) PipelineOption { return func(p *Pipeline) { p.objects = w } }

// WithRegistry records every published version.
func WithRegistry(r trade.ModelRegistry) PipelineOption { return func(p *Pipeline) { p.registry = r } }

// WithEventPublisher announces published models.
func WithEventPublisher(e EventPublisher) PipelineOption { return func(p *Pipeline) { p.events = e } }

// WithObserver is called after every run, successful or not.
func WithObserver(fn func(*Result, error)) PipelineOption { return func(p *Pipeline) { p.observe = fn } }

// WithPipelineClock overrides the clock.
func WithPipelineClock(now func() time.Time) PipelineOption { return func(p *Pipeline) { p.now = now } }

// NewPipeline wires a Pipeline.
func NewPipeline(builder DatasetBuilder, trainer *Trainer, cfg PipelineConfig, logger logging.Logger, opts ...PipelineOption) *Pipeline {
	if cfg.TrainFraction <= 0 || cfg.TrainFraction >= 1 {
		cfg.TrainFraction = 0.8
	}
	if cfg.EvalAtK <= 0 {
		cfg.EvalAtK = 5
	}
	if cfg.ObjectPrefix == "" {
		cfg.ObjectPrefix = DefaultObjectPrefix
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p := &Pipeline{
		builder: builder,
		trainer: trainer,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.Named("training"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one training run.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "training.Run")
	defer span.End()

	start := p.now()
	defer func() {
		if res != nil {
			res.Duration = p.now().Sub(start)
		}
		if err != nil {
			span.RecordError(err)
		}
		if p.observe != nil {
			p.observe(res, err)
		}
	}()

	if p.lock != nil {
		ok, lerr := p.lock.TryLock(ctx)
		if lerr != nil {
			return nil, errors.Wrap(lerr, errors.ErrCodeTrainingFailed, "acquire training lock")
		}
		if !ok {
			return nil, errors.New(errors.ErrCodeTrainingInProgress, "another training run holds the lock")
		}
		defer func() {
			if uerr := p.lock.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				p.logger.WithError(uerr).Warn("release training lock")
			}
		}()
	}

	runID := uuid.New().String()
	log := p.logger.With(logging.String("run_id", runID))

	ds, err := p.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if len(ds.Groups) < 2 {
		return nil, errors.Newf(errors.ErrCodeTrainingDataInsufficient,
			"need at least 2 query groups, have %d", len(ds.Groups))
	}
	train, valid := ds.Split(p.cfg.TrainFraction)
	log.Info("training split",
		logging.Int("train_queries", len(train)),
		logging.Int("valid_queries", len(valid)),
		logging.Int("samples", ds.NumSamples()),
	)

	version := p.now().UTC().Format("20060102T150405") + "-" + strings.SplitN(runID, "-", 2)[0]
	model, rep, err := p.trainer.Fit(ctx, train, valid, version)
	if err != nil {
		return nil, err
	}
	ev := Evaluate(model, valid, p.cfg.EvalAtK)
	model.Metrics = ranking.ModelMetrics{
		NDCG:          ev.NDCG,
		MRR:           ev.MRR,
		EvalAtK:       p.cfg.EvalAtK,
		BestIteration: rep.BestIteration,
		TrainQueries:  len(train),
		ValidQueries:  len(valid),
		Samples:       ds.NumSamples(),
	}
	span.SetAttributes(
		attribute.String("training.version", version),
		attribute.Float64("training.ndcg", ev.NDCG),
		attribute.Float64("training.mrr", ev.MRR),
	)

	res = &Result{RunID: runID, Version: version, Metrics: model.Metrics, Report: rep}
	if err := p.publish(ctx, model, res); err != nil {
		return nil, err
	}
	log.Info("ranking model published",
		logging.String("version", version),
		logging.Float64("ndcg", ev.NDCG),
		logging.Float64("mrr", ev.MRR),
		logging.String("object_key", res.ObjectKey),
		logging.String("path", res.Path),
	)
	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, m *ranking.LinearModel, res *Result) error {
	data, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal model")
	}

	if p.cfg.ModelPath != "" {
		if err := writeFileAtomic(p.cfg.ModelPath, data); err != nil {
			return errors.Wrap(err, errors.ErrCodeModelPublishFailed, "write model file")
		}
		res.Path = p.cfg.ModelPath
	}
	if p.objects != nil {
		key := p.cfg.ObjectPrefix + m.Version + ".json"
		if err := p.objects.PutObject(ctx, key, data); err != nil {
			return errors.Wrap(err, errors.ErrCodeModelPublishFailed, "upload model artifact")
		}
		res.ObjectKey = key
	}
	if res.Path == "" && res.ObjectKey == "" {
		return errors.New(errors.ErrCodeModelPublishFailed, "no model destination configured")
	}

	if p.registry != nil {
		key := res.ObjectKey
		if key == "" {
			key = res.Path
		}
		err := p.registry.Record(ctx, trade.ModelVersion{
			Version:    m.Version,
			ObjectKey:  key,
			NDCGAt5:    m.Metrics.NDCG,
			MRR:        m.Metrics.MRR,
			Samples:    m.Metrics.Samples,
			Queries:    m.Metrics.TrainQueries + m.Metrics.ValidQueries,
			Iterations: m.Metrics.BestIteration,
			CreatedAt:  p.now().UTC(),
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeModelPublishFailed, "record model version")
		}
	}

	if p.events != nil {
		evt := ModelPublished{
			EventID:     uuid.New().String(),
			RunID:       res.RunID,
			Version:     m.Version,
			ObjectKey:   res.ObjectKey,
			Path:        res.Path,
			NDCG:        m.Metrics.NDCG,
			MRR:         m.Metrics.MRR,
			PublishedAt: p.now().UTC(),
		}
		// Best effort; stores also poll for changes.
		if err := p.events.PublishModel(ctx, evt); err != nil {
			p.logger.WithError(err).Warn("model published event not delivered", logging.String("version", m.Version))
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".model-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

//Personal.AI order the ending
