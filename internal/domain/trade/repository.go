package trade

import (
	"context"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Product catalogue
// ─────────────────────────────────────────────────────────────────────────────

// Subcategory is a product subcategory that shipment records reference.
type Subcategory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	HSCode string `json:"hs_code"`
}

// MatchMethod records how a subcategory matched a product term.
type MatchMethod string

const (
	MatchKeyword MatchMethod = "keyword"
	MatchFuzzy   MatchMethod = "semantic"
)

// SubcategoryMatch is a scored product match in [0, 1].
type SubcategoryMatch struct {
	Subcategory
	Score  float64     `json:"score"`
	Method MatchMethod `json:"method"`
}

// SubcategoryActivity reports which trade directions exist for a
// subcategory.
type SubcategoryActivity struct {
	Subcategory
	HasImports bool
	HasExports bool
}

// SubcategoryCatalog is the relational product catalogue.
type SubcategoryCatalog interface {
	// MatchByName returns subcategories whose name contains term,
	// case-insensitively.
	MatchByName(ctx context.Context, term string) ([]Subcategory, error)
	// TradedSubcategories lists subcategories with any shipment history.
	TradedSubcategories(ctx context.Context) ([]SubcategoryActivity, error)
}

// SubcategoryIndex is the full-text product index used for fuzzy matches.
type SubcategoryIndex interface {
	// Search returns up to size matches scored in [0, 1].
	Search(ctx context.Context, term string, size int) ([]SubcategoryMatch, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregation store
// ─────────────────────────────────────────────────────────────────────────────

// CandidateStore aggregates shipments into per-counterparty candidates.
type CandidateStore interface {
	// AggregateCandidates groups matching shipments by (candidate, country),
	// ordered by total volume descending.  A positive minVolume keeps only
	// groups whose max shipment or total volume reaches it.  VolumeFit is
	// left for the caller.
	AggregateCandidates(ctx context.Context, subcategoryIDs []int64, spec CandidateSpec, filter CandidateFilter, minVolume *float64) ([]Candidate, error)
}

// SparklinePoint is one month of a counterparty's activity.
type SparklinePoint struct {
	Date     Date    `json:"date"`
	VolumeMT float64 `json:"volume"`
	AvgPrice float64 `json:"price"`
}

// ShipmentRecord is one row of a counterparty's history.
type ShipmentRecord struct {
	ID           int64   `json:"id"`
	Reference    string  `json:"transaction_hash"`
	Counterparty string  `json:"counterparty"`
	Country      string  `json:"country"`
	QuantityMT   float64 `json:"quantity"`
	PriceUSD     float64 `json:"price"`
	Date         Date    `json:"date"`
}

// SizeBucket is one shipment-size histogram bin.
type SizeBucket struct {
	Range    string  `json:"range"`
	Count    int     `json:"count"`
	AvgPrice float64 `json:"avg_price"`
}

// SizeBucketLabels are the fixed histogram bins in output order.
var SizeBucketLabels = []string{"0-25", "25-50", "50-100", "100+"}

// ProfileStats summarises a counterparty's activity for one product.
type ProfileStats struct {
	TotalVolumeMT float64 `json:"total_volume"`
	AvgPrice      float64 `json:"avg_price"`
	Shipments     int     `json:"shipment_count"`
	LastShipment  Date    `json:"last_shipment_date"`
}

// RelationshipCounts counts distinct trading partners.
type RelationshipCounts struct {
	Total  int `json:"total_relationships"`
	Recent int `json:"recent_partners"`
}

// CounterpartyProfile is the detail view for one counterparty.
type CounterpartyProfile struct {
	Name          string             `json:"name"`
	Role          Role               `json:"role"`
	Stats         ProfileStats       `json:"stats"`
	Countries     []string           `json:"countries"`
	ShipmentSizes []SizeBucket       `json:"shipment_sizes"`
	Relationships RelationshipCounts `json:"relationships"`
	Sparkline     []SparklinePoint   `json:"sparkline"`
	History       []ShipmentRecord   `json:"history"`
}

// ProfileStore loads counterparty detail.
type ProfileStore interface {
	// Profile returns nil without error when name has no shipments in the
	// given subcategories.  Partners seen on or after recentSince count as
	// recent.
	Profile(ctx context.Context, name string, role Role, subcategoryIDs []int64, recentSince time.Time) (*CounterpartyProfile, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Link-prediction sources
// ─────────────────────────────────────────────────────────────────────────────

// CompanyEmbedding is a precomputed graph embedding with influence metrics.
type CompanyEmbedding struct {
	Name       string    `json:"company_name"`
	Vector     []float32 `json:"embedding"`
	ClusterTag string    `json:"cluster_tag"`
	PageRank   float64   `json:"pagerank"`
	Degree     int       `json:"degree"`
	IsBuyer    bool      `json:"is_buyer"`
	IsSeller   bool      `json:"is_seller"`
}

// EmbeddingHit is a cosine-similarity neighbour.
type EmbeddingHit struct {
	Name       string
	Similarity float64
	SegmentTag string
}

// EmbeddingStore is the company embedding index.
type EmbeddingStore interface {
	// Lookup returns nil without error for an unknown company.
	Lookup(ctx context.Context, company string) (*CompanyEmbedding, error)
	// Nearest returns companies playing role, most similar first,
	// skipping the excluded names.
	Nearest(ctx context.Context, vector []float32, role Role, exclude []string, limit int) ([]EmbeddingHit, error)
}

// CoTradeCount is the number of distinct products a company shares.
type CoTradeCount struct {
	Name     string
	Products int
}

// TradeNetwork answers neighbourhood questions over shipment records.
type TradeNetwork interface {
	// Partners maps each company, acting in role, to its distinct
	// counterparties.  Companies without shipments are absent.
	Partners(ctx context.Context, companies []string, role Role) (map[string][]string, error)
	// ProductsOf returns the distinct product items company trades in role.
	ProductsOf(ctx context.Context, company string, role Role) ([]int64, error)
	// CoTraders counts, per company acting in role, how many of the given
	// products it trades.  Ordered by count descending then name.
	CoTraders(ctx context.Context, productIDs []int64, role Role) ([]CoTradeCount, error)
}

// GraphCandidate is a non-neighbour node of the target's candidate role.
type GraphCandidate struct {
	Name   string
	Degree int
	// Shared is the size of the neighbour-set intersection with the target.
	Shared int
}

// GraphNeighbourhood is the bipartite-graph view of a target company.
type GraphNeighbourhood struct {
	Degree     int
	Candidates []GraphCandidate
}

// TradeGraph is the bipartite buyer/seller graph.
type TradeGraph interface {
	// Neighbourhood returns nil without error when company is not a node
	// or has no neighbours.
	Neighbourhood(ctx context.Context, company string, candidateRole Role) (*GraphNeighbourhood, error)
}

// TradeEdge is one buyer/seller pair aggregated over all shipments.
type TradeEdge struct {
	Buyer     string  `json:"buyer"`
	Seller    string  `json:"seller"`
	Shipments int     `json:"shipments"`
	VolumeMT  float64 `json:"volume_mt"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranking model registry
// ─────────────────────────────────────────────────────────────────────────────

// ModelVersion is the registry entry of one trained ranking model.
type ModelVersion struct {
	Version    string    `json:"version"`
	ObjectKey  string    `json:"object_key"`
	NDCGAt5    float64   `json:"ndcg_at_5"`
	MRR        float64   `json:"mrr"`
	Samples    int       `json:"samples"`
	Queries    int       `json:"queries"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`
}

// ModelRegistry records trained model versions.
type ModelRegistry interface {
	Record(ctx context.Context, v ModelVersion) error
	// Latest returns nil without error when nothing is registered.
	Latest(ctx context.Context) (*ModelVersion, error)
}

//Personal.AI order the ending
