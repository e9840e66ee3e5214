package milvus

import (
	"context"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// Field names of the company embedding collection.
const (
	FieldCompany    = "company_name"
	FieldEmbedding  = "embedding"
	FieldClusterTag = "cluster_tag"
	FieldPageRank   = "pagerank"
	FieldDegree     = "degree"
	FieldIsBuyer    = "is_buyer"
	FieldIsSeller   = "is_seller"

	companyNameMaxLen = 512
	clusterTagMaxLen  = 128
)

// CollectionConfig describes the embedding collection.
type CollectionConfig struct {
	Name             string
	Dim              int
	ShardsNum        int32
	MetricType       entity.MetricType
	HNSWM            int
	HNSWConstruction int
}

// CollectionConfigFrom maps the application config onto the collection
// layout.  Unknown metric names fall back to COSINE.
func CollectionConfigFrom(cfg config.MilvusConfig) CollectionConfig {
	cc := CollectionConfig{Name: cfg.Collection, Dim: cfg.EmbeddingDim}
	switch strings.ToUpper(cfg.MetricType) {
	case "L2":
		cc.MetricType = entity.L2
	case "IP":
		cc.MetricType = entity.IP
	default:
		cc.MetricType = entity.COSINE
	}
	return cc
}

func (c *CollectionConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "company_embeddings"
	}
	if c.ShardsNum == 0 {
		c.ShardsNum = 2
	}
	if c.MetricType == "" {
		c.MetricType = entity.COSINE
	}
	if c.HNSWM == 0 {
		c.HNSWM = 16
	}
	if c.HNSWConstruction == 0 {
		c.HNSWConstruction = 200
	}
}

// CollectionManager creates, indexes and loads the embedding collection.
type CollectionManager struct {
	client *Client
	config CollectionConfig
	logger logging.Logger
}

func NewCollectionManager(c *Client, cfg CollectionConfig, log logging.Logger) *CollectionManager {
	cfg.applyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CollectionManager{client: c, config: cfg, logger: log.Named("milvus_collection")}
}

// Schema returns the company embedding collection schema.
func (m *CollectionManager) Schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: m.config.Name,
		Description:    "company graph embeddings",
		Fields: []*entity.Field{
			{Name: FieldCompany, DataType: entity.FieldTypeVarChar, PrimaryKey: true, AutoID: false,
				TypeParams: map[string]string{"max_length": strconv.Itoa(companyNameMaxLen)}},
			{Name: FieldEmbedding, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(m.config.Dim)}},
			{Name: FieldClusterTag, DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(clusterTagMaxLen)}},
			{Name: FieldPageRank, DataType: entity.FieldTypeDouble},
			{Name: FieldDegree, DataType: entity.FieldTypeInt64},
			{Name: FieldIsBuyer, DataType: entity.FieldTypeBool},
			{Name: FieldIsSeller, DataType: entity.FieldTypeBool},
		},
	}
}

// EnsureCollection creates the collection and its vector index when absent
// and loads it into memory.
func (m *CollectionManager) EnsureCollection(ctx context.Context) error {
	if m.config.Dim < 1 {
		return errors.New(errors.ErrCodeValidation, "embedding dimension must be positive")
	}
	sdk := m.client.SDK()

	has, err := sdk.HasCollection(ctx, m.config.Name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to check collection")
	}
	if !has {
		if err := sdk.CreateCollection(ctx, m.Schema(), m.config.ShardsNum); err != nil {
			return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to create collection")
		}
		idx, err := entity.NewIndexHNSW(m.config.MetricType, m.config.HNSWM, m.config.HNSWConstruction)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "invalid index parameters")
		}
		if err := sdk.CreateIndex(ctx, m.config.Name, FieldEmbedding, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to create index")
		}
		m.logger.Info("collection created", logging.String("name", m.config.Name), logging.Int("dim", m.config.Dim))
	}

	if err := sdk.LoadCollection(ctx, m.config.Name, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to load collection")
	}
	return nil
}

// Drop removes the collection; a missing collection is not an error.
func (m *CollectionManager) Drop(ctx context.Context) error {
	sdk := m.client.SDK()
	has, err := sdk.HasCollection(ctx, m.config.Name)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to check collection")
	}
	if !has {
		return nil
	}
	if err := sdk.DropCollection(ctx, m.config.Name); err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "failed to drop collection")
	}
	m.logger.Warn("collection dropped", logging.String("name", m.config.Name))
	return nil
}

//Personal.AI order the ending
