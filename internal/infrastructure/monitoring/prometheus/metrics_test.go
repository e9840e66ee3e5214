package prometheus

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradeMetrics_Search(t *testing.T) {
	c := newTestCollector(t)
	m := NewTradeMetrics(c)

	m.ObserveSearch("discovery", 12, 40*time.Millisecond, nil)
	m.ObserveSearch("discovery", 0, time.Millisecond, stderrors.New("db down"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_search_requests_total{family="discovery",outcome="ok"} 1`)
	assert.Contains(t, out, `test_unit_search_requests_total{family="discovery",outcome="error"} 1`)
	assert.Contains(t, out, `test_unit_search_results_count{family="discovery"} 1`)
	assert.Contains(t, out, `test_unit_search_duration_seconds_count{family="discovery"} 2`)
}

func TestTradeMetrics_Scorer(t *testing.T) {
	c := newTestCollector(t)
	m := NewTradeMetrics(c)

	m.ObserveScorer("jaccard", 7, nil)
	m.ObserveScorer("node2vec", 0, stderrors.New("milvus timeout"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_link_scorer_calls_total{method="jaccard",outcome="ok"} 1`)
	assert.Contains(t, out, `test_unit_link_scorer_calls_total{method="node2vec",outcome="error"} 1`)
	assert.Contains(t, out, `test_unit_link_scorer_results_sum{method="jaccard"} 7`)
}

func TestTradeMetrics_Training(t *testing.T) {
	c := newTestCollector(t)
	m := NewTradeMetrics(c)

	m.ObserveTraining(0.75, 0.5, 3*time.Second, nil)
	m.ObserveTraining(0, 0, time.Second, stderrors.New("insufficient"))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_training_runs_total{outcome="ok"} 1`)
	assert.Contains(t, out, `test_unit_training_runs_total{outcome="error"} 1`)
	assert.Contains(t, out, `test_unit_ranking_model_quality{metric="ndcg"} 0.75`)
	assert.Contains(t, out, `test_unit_ranking_model_quality{metric="mrr"} 0.5`)
}

func TestTradeMetrics_Misc(t *testing.T) {
	c := newTestCollector(t)
	m := NewTradeMetrics(c)

	m.RecordHTTPRequest("GET", "/api/v1/search", 200, 10*time.Millisecond)
	m.RecordCacheAccess("search", true)
	m.RecordCacheAccess("search", false)
	m.RecordMessage("tradelink.ranking.train.requested", nil)
	m.RecordSync("neo4j", 250)
	m.SetHealth("postgres", true)
	m.SetHealth("redis", false)
	m.ObserveModelLoad("file", time.Unix(1700000000, 0))

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",route="/api/v1/search",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_cache_access_total{cache="search",result="hit"} 1`)
	assert.Contains(t, out, `test_unit_cache_access_total{cache="search",result="miss"} 1`)
	assert.Contains(t, out, `test_unit_messages_total{outcome="ok",topic="tradelink.ranking.train.requested"} 1`)
	assert.Contains(t, out, `test_unit_sync_items_total{target="neo4j"} 250`)
	assert.Contains(t, out, `test_unit_health_check_status{component="postgres"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="redis"} 0`)
	assert.Contains(t, out, `test_unit_ranking_model_loaded_timestamp_seconds{source="file"} 1.7e+09`)
}

//Personal.AI order the ending
