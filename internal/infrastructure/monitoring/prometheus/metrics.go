package prometheus

import (
	"strconv"
	"time"
)

// TradeMetrics holds every metric the services record.
type TradeMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	SearchRequestsTotal CounterVec
	SearchDuration      HistogramVec
	SearchResults       HistogramVec

	ScorerCallsTotal CounterVec
	ScorerResults    HistogramVec

	TrainingRunsTotal  CounterVec
	TrainingDuration   HistogramVec
	ModelQuality       GaugeVec
	ModelReloadsTotal  CounterVec
	ModelLoadedVersion GaugeVec

	CacheAccessTotal CounterVec

	MessagesTotal  CounterVec
	SyncItemsTotal CounterVec

	HealthCheckStatus GaugeVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultTrainingDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
	DefaultResultCountBuckets      = []float64{0, 1, 5, 10, 25, 50, 100, 250}
)

// NewTradeMetrics registers the metric set on collector.
func NewTradeMetrics(c MetricsCollector) *TradeMetrics {
	m := &TradeMetrics{}

	m.HTTPRequestsTotal = c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")

	m.SearchRequestsTotal = c.RegisterCounter("search_requests_total", "Counterparty searches by query family", "family", "outcome")
	m.SearchDuration = c.RegisterHistogram("search_duration_seconds", "Counterparty search latency", DefaultHTTPDurationBuckets, "family")
	m.SearchResults = c.RegisterHistogram("search_results", "Ranked candidates returned per search", DefaultResultCountBuckets, "family")

	m.ScorerCallsTotal = c.RegisterCounter("link_scorer_calls_total", "Link-prediction scorer invocations", "method", "outcome")
	m.ScorerResults = c.RegisterHistogram("link_scorer_results", "Scores produced per scorer call", DefaultResultCountBuckets, "method")

	m.TrainingRunsTotal = c.RegisterCounter("training_runs_total", "Ranking model training runs", "outcome")
	m.TrainingDuration = c.RegisterHistogram("training_duration_seconds", "Ranking model training duration", DefaultTrainingDurationBuckets)
	m.ModelQuality = c.RegisterGauge("ranking_model_quality", "Validation metric of the last published model", "metric")
	m.ModelReloadsTotal = c.RegisterCounter("ranking_model_reloads_total", "Learned model reload attempts", "outcome")
	m.ModelLoadedVersion = c.RegisterGauge("ranking_model_loaded_timestamp_seconds", "Training time of the model in memory", "source")

	m.CacheAccessTotal = c.RegisterCounter("cache_access_total", "Result cache lookups", "cache", "result")

	m.MessagesTotal = c.RegisterCounter("messages_total", "Kafka messages handled by the worker", "topic", "outcome")
	m.SyncItemsTotal = c.RegisterCounter("sync_items_total", "Records pushed to derived stores", "target")

	m.HealthCheckStatus = c.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordHTTPRequest records one served request.
func (m *TradeMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSearch records a search by the name of its query family.
func (m *TradeMetrics) ObserveSearch(family string, results int, elapsed time.Duration, err error) {
	m.SearchRequestsTotal.WithLabelValues(family, outcome(err)).Inc()
	m.SearchDuration.WithLabelValues(family).Observe(elapsed.Seconds())
	if err == nil {
		m.SearchResults.WithLabelValues(family).Observe(float64(results))
	}
}

// ObserveScorer records one link-prediction scorer call.
func (m *TradeMetrics) ObserveScorer(method string, n int, err error) {
	m.ScorerCallsTotal.WithLabelValues(method, outcome(err)).Inc()
	if err == nil {
		m.ScorerResults.WithLabelValues(method).Observe(float64(n))
	}
}

// ObserveTraining records a training run. Quality gauges only move on success.
func (m *TradeMetrics) ObserveTraining(ndcg, mrr float64, d time.Duration, err error) {
	m.TrainingRunsTotal.WithLabelValues(outcome(err)).Inc()
	m.TrainingDuration.WithLabelValues().Observe(d.Seconds())
	if err != nil {
		return
	}
	m.ModelQuality.WithLabelValues("ndcg").Set(ndcg)
	m.ModelQuality.WithLabelValues("mrr").Set(mrr)
}

// ObserveModelLoad records a learned-model load from source.
func (m *TradeMetrics) ObserveModelLoad(source string, trainedAt time.Time) {
	m.ModelReloadsTotal.WithLabelValues("ok").Inc()
	if !trainedAt.IsZero() {
		m.ModelLoadedVersion.WithLabelValues(source).Set(float64(trainedAt.Unix()))
	}
}

// RecordCacheAccess counts a cache hit or miss.
func (m *TradeMetrics) RecordCacheAccess(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccessTotal.WithLabelValues(cache, result).Inc()
}

// RecordMessage counts a handled Kafka message.
func (m *TradeMetrics) RecordMessage(topic string, err error) {
	m.MessagesTotal.WithLabelValues(topic, outcome(err)).Inc()
}

// RecordSync counts records written to target.
func (m *TradeMetrics) RecordSync(target string, n int) {
	m.SyncItemsTotal.WithLabelValues(target).Add(float64(n))
}

// SetHealth flips the health gauge for component.
func (m *TradeMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

//Personal.AI order the ending
