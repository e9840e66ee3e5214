package main

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/training"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/handlers"
)

// trainingRequester queues a training run for the worker.
type trainingRequester struct {
	producer *kafka.Producer
	now      func() time.Time
}

func (t *trainingRequester) RequestTraining(ctx context.Context, requestedBy, reason string) (string, error) {
	payload := kafka.TrainRequestedPayload{
		RequestedBy: requestedBy,
		Reason:      reason,
		RequestedAt: t.now().UTC(),
	}
	env, err := t.producer.PublishEvent(ctx, kafka.TopicTrainRequested, kafka.EventTrainRequested, "manual", payload)
	if err != nil {
		return "", err
	}
	return env.EventID, nil
}

// modelReloader swaps in a freshly published model.
func modelReloader(store *ranking.ModelStore, log logging.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		var evt training.ModelPublished
		if err := env.DecodePayload(&evt); err != nil {
			return err
		}
		log.Info("model published",
			logging.String("version", evt.Version),
			logging.String("run_id", evt.RunID),
			logging.Float64("ndcg", evt.NDCG))
		return store.Reload(ctx)
	}
}

// instrumented counts consumed messages per topic.
func instrumented(topic string, h kafka.MessageHandler, m *prometheus.TradeMetrics) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		err := h(ctx, msg)
		m.RecordMessage(topic, err)
		return err
	}
}

type closer interface{ Close() error }

// checker builds a readiness probe for one component.
func checker(name string, fn func(ctx context.Context) error) handlers.HealthChecker {
	return handlers.CheckFunc{Component: name, Fn: fn}
}

func modelSourceLabel(src ranking.ArtifactSource) string {
	d := src.Describe()
	if i := strings.IndexByte(d, ':'); i > 0 {
		return d[:i]
	}
	return d
}

//Personal.AI order the ending
