package linkprediction

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

type edge struct {
	buyer, seller string
	product       int64
}

// memTrades is an in-memory trade network, bipartite graph and embedding
// store built from a list of shipments.
type memTrades struct {
	edges      []edge
	embeddings map[string]*trade.CompanyEmbedding
}

func (m *memTrades) Partners(_ context.Context, companies []string, role trade.Role) (map[string][]string, error) {
	out := map[string][]string{}
	for _, c := range companies {
		seen := map[string]bool{}
		for _, e := range m.edges {
			self, other := e.buyer, e.seller
			if role == trade.RoleSeller {
				self, other = e.seller, e.buyer
			}
			if self == c && !seen[other] {
				seen[other] = true
				out[c] = append(out[c], other)
			}
		}
		sort.Strings(out[c])
	}
	return out, nil
}

func (m *memTrades) ProductsOf(_ context.Context, company string, role trade.Role) ([]int64, error) {
	seen := map[int64]bool{}
	var out []int64
	for _, e := range m.edges {
		self := e.buyer
		if role == trade.RoleSeller {
			self = e.seller
		}
		if self == company && !seen[e.product] {
			seen[e.product] = true
			out = append(out, e.product)
		}
	}
	return out, nil
}

func (m *memTrades) CoTraders(_ context.Context, products []int64, role trade.Role) ([]trade.CoTradeCount, error) {
	want := map[int64]bool{}
	for _, p := range products {
		want[p] = true
	}
	per := map[string]map[int64]bool{}
	for _, e := range m.edges {
		if !want[e.product] {
			continue
		}
		self := e.buyer
		if role == trade.RoleSeller {
			self = e.seller
		}
		if per[self] == nil {
			per[self] = map[int64]bool{}
		}
		per[self][e.product] = true
	}
	var out []trade.CoTradeCount
	for n, ps := range per {
		out = append(out, trade.CoTradeCount{Name: n, Products: len(ps)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Products != out[j].Products {
			return out[i].Products > out[j].Products
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memTrades) neighbours(n string) map[string]bool {
	out := map[string]bool{}
	for _, e := range m.edges {
		if e.buyer == n {
			out[e.seller] = true
		}
		if e.seller == n {
			out[e.buyer] = true
		}
	}
	return out
}

func (m *memTrades) Neighbourhood(_ context.Context, company string, role trade.Role) (*trade.GraphNeighbourhood, error) {
	mine := m.neighbours(company)
	if len(mine) == 0 {
		return nil, nil
	}
	nb := &trade.GraphNeighbourhood{Degree: len(mine)}
	seen := map[string]bool{}
	for _, e := range m.edges {
		c := e.seller
		if role == trade.RoleBuyer {
			c = e.buyer
		}
		if c == company || mine[c] || seen[c] {
			continue
		}
		seen[c] = true
		theirs := m.neighbours(c)
		shared := 0
		for n := range theirs {
			if mine[n] {
				shared++
			}
		}
		nb.Candidates = append(nb.Candidates, trade.GraphCandidate{Name: c, Degree: len(theirs), Shared: shared})
	}
	return nb, nil
}

func (m *memTrades) Lookup(_ context.Context, company string) (*trade.CompanyEmbedding, error) {
	return m.embeddings[company], nil
}

func (m *memTrades) Nearest(_ context.Context, v []float32, role trade.Role, exclude []string, limit int) ([]trade.EmbeddingHit, error) {
	skip := map[string]bool{}
	for _, e := range exclude {
		skip[e] = true
	}
	var hits []trade.EmbeddingHit
	for name, e := range m.embeddings {
		if skip[name] || (role == trade.RoleSeller && !e.IsSeller) || (role == trade.RoleBuyer && !e.IsBuyer) {
			continue
		}
		hits = append(hits, trade.EmbeddingHit{Name: name, Similarity: cosine(v, e.Vector), SegmentTag: e.ClusterTag})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	return head(hits, limit), nil
}

// cosine is the similarity the in-memory embedding store reports, matching
// Milvus' COSINE metric.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sampleTrades() *memTrades {
	return &memTrades{
		edges: []edge{
			{"B1", "S1", 1}, {"B1", "S2", 1},
			{"B2", "S1", 1}, {"B2", "S3", 2},
			{"B3", "S2", 1}, {"B3", "S3", 1}, {"B3", "S4", 3},
		},
		embeddings: map[string]*trade.CompanyEmbedding{
			"B1": {Name: "B1", Vector: []float32{1, 0}, IsBuyer: true},
			"S1": {Name: "S1", Vector: []float32{1, 0}, IsSeller: true},
			"S3": {Name: "S3", Vector: []float32{1, 0}, IsSeller: true, ClusterTag: "Cluster 2"},
			"S4": {Name: "S4", Vector: []float32{0, 1}, IsSeller: true},
		},
	}
}

func names(s []trade.MethodScore) []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Name
	}
	return out
}

func TestCommonNeighboursScorer(t *testing.T) {
	got, err := CommonNeighboursScorer{Network: sampleTrades()}.Score(context.Background(), "B1", trade.RecommendSellers, 50)
	require.NoError(t, err)
	require.Equal(t, []string{"S3", "S4"}, names(got))
	assert.InDelta(t, 0.95, got[0].Score, 1e-12)
	assert.Equal(t, 2, got[0].Evidence)
	assert.InDelta(t, 0.475, got[1].Score, 1e-12)
}

func TestCommonNeighboursScorer_Buyers(t *testing.T) {
	got, err := CommonNeighboursScorer{Network: sampleTrades()}.Score(context.Background(), "S4", trade.RecommendBuyers, 50)
	require.NoError(t, err)
	// S4's only buyer B3 shares sellers S2/S3 with B1 and B2
	assert.Equal(t, []string{"B1", "B2"}, names(got))
}

func TestProductCoTradeScorer(t *testing.T) {
	got, err := ProductCoTradeScorer{Network: sampleTrades()}.Score(context.Background(), "B1", trade.RecommendSellers, 50)
	require.NoError(t, err)
	require.Equal(t, []string{"S3"}, names(got))
	assert.InDelta(t, 0.95, got[0].Score, 1e-12)
}

func TestEmbeddingScorer_ExcludesPartners(t *testing.T) {
	m := sampleTrades()
	got, err := EmbeddingScorer{Embeddings: m, Network: m}.Score(context.Background(), "B1", trade.RecommendSellers, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"S3", "S4"}, names(got))
	assert.InDelta(t, 0.95, got[0].Score, 1e-6)
	assert.Equal(t, "Cluster 2", got[0].SegmentTag)
	assert.Equal(t, 0.0, got[1].Score)
}

func TestEmbeddingScorer_UnknownCompany(t *testing.T) {
	m := sampleTrades()
	got, err := EmbeddingScorer{Embeddings: m, Network: m}.Score(context.Background(), "Nobody", trade.RecommendSellers, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJaccardScorer_BipartiteIsEmpty(t *testing.T) {
	got, err := JaccardScorer{Graph: sampleTrades()}.Score(context.Background(), "B1", trade.RecommendSellers, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJaccardScorer_SharedNeighbours(t *testing.T) {
	// X sells to S1, one of B2's partners, so their neighbour sets overlap
	m := &memTrades{edges: []edge{
		{"B1", "S1", 1}, {"B2", "S1", 1}, {"S1", "X", 1}, {"B1", "X", 1}, {"B2", "Y", 1},
	}}
	got, err := JaccardScorer{Graph: m}.Score(context.Background(), "B2", trade.RecommendSellers, 50)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, s := range got {
		assert.Greater(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, trade.MaxConfidence)
	}
}

func TestPreferentialScorer(t *testing.T) {
	got, err := PreferentialScorer{Graph: sampleTrades()}.Score(context.Background(), "B1", trade.RecommendSellers, 50)
	require.NoError(t, err)
	require.Equal(t, []string{"S3", "S4"}, names(got))
	assert.InDelta(t, 0.95, got[0].Score, 1e-12)
	assert.InDelta(t, math.Log1p(2)/math.Log1p(4)*0.95, got[1].Score, 1e-12)
	assert.Equal(t, 1, got[1].Evidence)
}

func TestScorers_RespectLimit(t *testing.T) {
	got, err := PreferentialScorer{Graph: sampleTrades()}.Score(context.Background(), "B1", trade.RecommendSellers, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 2}))
}

//Personal.AI order the ending
