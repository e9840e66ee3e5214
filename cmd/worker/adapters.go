package main

import (
	"context"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/indexing"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/training"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/prometheus"
	minioclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// modelPublisher announces new models on Kafka.
type modelPublisher struct {
	producer *kafka.Producer
}

func (p *modelPublisher) PublishModel(ctx context.Context, evt training.ModelPublished) error {
	_, err := p.producer.PublishEvent(ctx, kafka.TopicModelPublished, kafka.EventModelPublished, evt.Version, evt)
	return err
}

// pruningWriter uploads an artifact and then trims old ones under prefix.
type pruningWriter struct {
	repo   *minioclient.ModelArtifactRepository
	prefix string
	keep   int
	logger logging.Logger
}

func (w *pruningWriter) PutObject(ctx context.Context, key string, data []byte) error {
	if err := w.repo.PutObject(ctx, key, data); err != nil {
		return err
	}
	deleted, err := w.repo.Prune(ctx, w.prefix, w.keep)
	if err != nil {
		w.logger.Warn("model artifact prune failed", logging.Err(err))
		return nil
	}
	if len(deleted) > 0 {
		w.logger.Info("pruned model artifacts", logging.Strings("keys", deleted))
	}
	return nil
}

// trainHandler runs the pipeline for each request.  A run already holding
// the lock makes the request redundant, so it is acknowledged.
func trainHandler(p *training.Pipeline, timeout time.Duration, log logging.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		var req kafka.TrainRequestedPayload
		if err := env.DecodePayload(&req); err != nil {
			return err
		}
		log.Info("training requested",
			logging.String("event_id", env.EventID),
			logging.String("requested_by", req.RequestedBy),
			logging.String("reason", req.Reason))

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		res, err := p.Run(ctx)
		switch {
		case errors.IsCode(err, errors.ErrCodeTrainingInProgress):
			log.Info("training already running, request skipped", logging.String("event_id", env.EventID))
			return nil
		case errors.IsCode(err, errors.ErrCodeTrainingDataInsufficient):
			log.Warn("training skipped", logging.Err(err))
			return nil
		case err != nil:
			return err
		}
		log.Info("training finished",
			logging.String("version", res.Version),
			logging.Float64("ndcg", res.Metrics.NDCG),
			logging.Duration("duration", res.Duration))
		return nil
	}
}

// syncHandler refreshes the requested derived stores, or all configured
// ones when the request names none.
func syncHandler(s *indexing.Syncer, log logging.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		var req kafka.GraphSyncPayload
		if err := env.DecodePayload(&req); err != nil {
			return err
		}
		targets, err := syncTargets(s, req.Targets)
		if err != nil {
			log.Warn("sync request rejected", logging.Err(err))
			return nil
		}
		if len(targets) == 0 {
			log.Warn("no sync target configured")
			return nil
		}
		rep, err := s.Run(ctx, targets...)
		if err != nil {
			return err
		}
		for t, n := range rep.Written {
			log.Info("sync finished", logging.String("target", string(t)), logging.Int("written", n))
		}
		return nil
	}
}

func syncTargets(s *indexing.Syncer, names []string) ([]indexing.Target, error) {
	if len(names) == 0 {
		var out []indexing.Target
		for _, t := range indexing.AllTargets() {
			if s.Configured(t) {
				out = append(out, t)
			}
		}
		return out, nil
	}
	out := make([]indexing.Target, 0, len(names))
	for _, n := range names {
		t, err := indexing.ParseTarget(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func instrumented(topic string, h kafka.MessageHandler, m *prometheus.TradeMetrics) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		err := h(ctx, msg)
		m.RecordMessage(topic, err)
		return err
	}
}

//Personal.AI order the ending
