// Package linkprediction recommends counterparties for a company without a
// query by blending five graph and embedding scorers.
package linkprediction

import (
	"context"
	"math"
	"sort"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// Scorer produces normalised scores in [0, MaxConfidence] for candidate
// counterparties, best first.  Existing partners are never returned.
type Scorer interface {
	Method() trade.Method
	Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error)
}

func byScoreThenName(s []trade.MethodScore) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].Name < s[j].Name
	})
}

func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// existingPartners returns company's counterparties in the candidate role
// plus company itself.
func existingPartners(ctx context.Context, network trade.TradeNetwork, company string, dir trade.RecommendDirection) (map[string]struct{}, error) {
	p, err := network.Partners(ctx, []string{company}, dir.SubjectRole())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load partners")
	}
	out := map[string]struct{}{company: {}}
	for _, n := range p[company] {
		out[n] = struct{}{}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding similarity
// ─────────────────────────────────────────────────────────────────────────────

// EmbeddingScorer ranks by cosine similarity of precomputed graph embeddings.
type EmbeddingScorer struct {
	Embeddings trade.EmbeddingStore
	Network    trade.TradeNetwork
}

func (EmbeddingScorer) Method() trade.Method { return trade.MethodEmbedding }

func (s EmbeddingScorer) Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error) {
	emb, err := s.Embeddings.Lookup(ctx, company)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "lookup embedding")
	}
	if emb == nil || len(emb.Vector) == 0 {
		return nil, nil
	}
	partners, err := existingPartners(ctx, s.Network, company, dir)
	if err != nil {
		return nil, err
	}
	exclude := make([]string, 0, len(partners))
	for n := range partners {
		exclude = append(exclude, n)
	}
	sort.Strings(exclude)

	hits, err := s.Embeddings.Nearest(ctx, emb.Vector, dir.CandidateRole(), exclude, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "nearest embeddings")
	}
	out := make([]trade.MethodScore, 0, len(hits))
	for _, h := range hits {
		if _, skip := partners[h.Name]; skip {
			continue
		}
		out = append(out, trade.MethodScore{
			Name:       h.Name,
			Score:      trade.ScaleConfidence(h.Similarity, 1),
			SegmentTag: h.SegmentTag,
		})
	}
	byScoreThenName(out)
	return head(out, limit), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Common neighbours
// ─────────────────────────────────────────────────────────────────────────────

// CommonNeighboursScorer counts how many of the company's peers (companies
// sharing a counterparty) already trade with each candidate.
type CommonNeighboursScorer struct {
	Network trade.TradeNetwork
}

func (CommonNeighboursScorer) Method() trade.Method { return trade.MethodCommonNeigh }

func (s CommonNeighboursScorer) Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error) {
	subject, cand := dir.SubjectRole(), dir.CandidateRole()

	current, err := s.Network.Partners(ctx, []string{company}, subject)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load partners")
	}
	mine := current[company]
	if len(mine) == 0 {
		return nil, nil
	}
	skip := map[string]struct{}{company: {}}
	for _, n := range mine {
		skip[n] = struct{}{}
	}

	viaPartner, err := s.Network.Partners(ctx, mine, cand)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load partner neighbourhood")
	}
	peerSet := map[string]struct{}{}
	for _, peers := range viaPartner {
		for _, p := range peers {
			if p != company {
				peerSet[p] = struct{}{}
			}
		}
	}
	if len(peerSet) == 0 {
		return nil, nil
	}
	peers := make([]string, 0, len(peerSet))
	for p := range peerSet {
		peers = append(peers, p)
	}
	sort.Strings(peers)

	theirs, err := s.Network.Partners(ctx, peers, subject)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load peer partners")
	}
	counts := map[string]int{}
	for _, p := range peers {
		for _, c := range theirs[p] {
			if _, ok := skip[c]; !ok {
				counts[c]++
			}
		}
	}
	return normaliseCounts(counts, limit), nil
}

// normaliseCounts keeps the top limit by count and scales by the maximum.
func normaliseCounts(counts map[string]int, limit int) []trade.MethodScore {
	out := make([]trade.MethodScore, 0, len(counts))
	for name, n := range counts {
		out = append(out, trade.MethodScore{Name: name, Evidence: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Evidence != out[j].Evidence {
			return out[i].Evidence > out[j].Evidence
		}
		return out[i].Name < out[j].Name
	})
	out = head(out, limit)
	if len(out) == 0 {
		return out
	}
	top := float64(out[0].Evidence)
	for i := range out {
		out[i].Score = trade.ScaleConfidence(float64(out[i].Evidence), top)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Product co-trade
// ─────────────────────────────────────────────────────────────────────────────

// ProductCoTradeScorer favours candidates trading the same products.
type ProductCoTradeScorer struct {
	Network trade.TradeNetwork
}

func (ProductCoTradeScorer) Method() trade.Method { return trade.MethodProductCo }

func (s ProductCoTradeScorer) Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error) {
	products, err := s.Network.ProductsOf(ctx, company, dir.SubjectRole())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load traded products")
	}
	if len(products) == 0 {
		return nil, nil
	}
	skip, err := existingPartners(ctx, s.Network, company, dir)
	if err != nil {
		return nil, err
	}
	rows, err := s.Network.CoTraders(ctx, products, dir.CandidateRole())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "load co-traders")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		if _, ok := skip[r.Name]; ok || r.Products <= 0 {
			continue
		}
		counts[r.Name] = r.Products
	}
	return normaliseCounts(counts, limit), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bipartite graph scorers
// ─────────────────────────────────────────────────────────────────────────────

// JaccardScorer scores |N(a)∩N(b)| / |N(a)∪N(b)| and keeps positive values.
type JaccardScorer struct {
	Graph trade.TradeGraph
}

func (JaccardScorer) Method() trade.Method { return trade.MethodJaccard }

func (s JaccardScorer) Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error) {
	nb, err := s.Graph.Neighbourhood(ctx, company, dir.CandidateRole())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreError, "load neighbourhood")
	}
	if nb == nil {
		return nil, nil
	}
	var out []trade.MethodScore
	for _, c := range nb.Candidates {
		union := nb.Degree + c.Degree - c.Shared
		if union <= 0 || c.Shared <= 0 {
			continue
		}
		out = append(out, trade.MethodScore{
			Name:     c.Name,
			Score:    trade.ScaleConfidence(float64(c.Shared)/float64(union), 1),
			Evidence: c.Shared,
		})
	}
	byScoreThenName(out)
	return head(out, limit), nil
}

// PreferentialScorer scores deg(a)·deg(b), log-normalised by the best
// candidate.
type PreferentialScorer struct {
	Graph trade.TradeGraph
}

func (PreferentialScorer) Method() trade.Method { return trade.MethodPreferential }

func (s PreferentialScorer) Score(ctx context.Context, company string, dir trade.RecommendDirection, limit int) ([]trade.MethodScore, error) {
	nb, err := s.Graph.Neighbourhood(ctx, company, dir.CandidateRole())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreError, "load neighbourhood")
	}
	if nb == nil || len(nb.Candidates) == 0 {
		return nil, nil
	}
	type raw struct {
		name   string
		score  int
		degree int
	}
	rs := make([]raw, 0, len(nb.Candidates))
	for _, c := range nb.Candidates {
		rs = append(rs, raw{name: c.Name, score: nb.Degree * c.Degree, degree: c.Degree})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].score != rs[j].score {
			return rs[i].score > rs[j].score
		}
		return rs[i].name < rs[j].name
	})
	rs = head(rs, limit)

	logMax := math.Log1p(float64(rs[0].score))
	out := make([]trade.MethodScore, len(rs))
	for i, r := range rs {
		norm := 0.0
		if logMax > 0 {
			norm = math.Log1p(float64(r.score)) / logMax
		}
		out[i] = trade.MethodScore{Name: r.name, Score: trade.ScaleConfidence(norm, 1), Evidence: r.degree}
	}
	return out, nil
}

//Personal.AI order the ending
