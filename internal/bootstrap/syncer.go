// Package bootstrap opens the stores a process needs from configuration and
// assembles the services that span several of them.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/indexing"
	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"

	neo4jdriver "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j/repositories"
	pgconn "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres/repositories"
	milvusclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/search/milvus"
	opensearchclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/search/opensearch"
)

type closer interface{ Close() error }

// Closers releases resources in reverse acquisition order.
type Closers []closer

// Add registers x for release.
func (c *Closers) Add(x closer) { *c = append(*c, x) }

// Close closes everything, logging failures.
func (c Closers) Close(log logging.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil && log != nil {
			log.Warn("close failed", logging.Err(err))
		}
	}
}

// OpenSyncer connects Postgres and every configured derived store and
// returns a Syncer over them.  Postgres is required.  A derived store that
// is unconfigured or unreachable leaves its target unconfigured; the
// returned release func closes all connections.
func OpenSyncer(ctx context.Context, cfg *config.Config, log logging.Logger, progress func(indexing.Target, int)) (*indexing.Syncer, func(), error) {
	var cs Closers
	release := func() { cs.Close(log) }

	pg, err := pgconn.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	cs.Add(pg)
	trades := pgrepo.NewTradeRepository(pg, log)

	opts := []indexing.Option{}
	if progress != nil {
		opts = append(opts, indexing.WithProgress(progress))
	}

	if cfg.Neo4j.URI != "" {
		if d, err := neo4jdriver.NewDriver(cfg.Neo4j, log); err != nil {
			log.Warn("neo4j unavailable, graph target skipped", logging.Err(err))
		} else {
			cs.Add(d)
			opts = append(opts, indexing.WithGraph(trades, neo4jrepo.NewTradeGraphRepository(d, log)))
		}
	}

	if cfg.Milvus.Addr != "" {
		if mc, err := milvusclient.NewClient(milvusclient.ClientConfigFrom(cfg.Milvus), log); err != nil {
			log.Warn("milvus unavailable, embeddings target skipped", logging.Err(err))
		} else {
			cs.Add(mc)
			coll := milvusclient.CollectionConfigFrom(cfg.Milvus)
			if err := milvusclient.NewCollectionManager(mc, coll, log).EnsureCollection(ctx); err != nil {
				log.Warn("milvus collection unavailable, embeddings target skipped", logging.Err(err))
			} else {
				opts = append(opts, indexing.WithVectors(
					pgrepo.NewEmbeddingRepository(pg, log),
					milvusclient.NewEmbeddingSearcher(mc, coll, log)))
			}
		}
	}

	if len(cfg.OpenSearch.Addresses) > 0 {
		if oc, err := opensearchclient.NewClient(opensearchclient.ClientConfigFrom(cfg.OpenSearch), log); err != nil {
			log.Warn("opensearch unavailable, subcategories target skipped", logging.Err(err))
		} else {
			cs.Add(oc)
			opts = append(opts, indexing.WithSubcategoryIndex(trades, opensearchclient.NewIndexer(oc, cfg.OpenSearch.IndexPrefix, log)))
		}
	}

	return indexing.NewSyncer(indexing.Config{}, log, opts...), release, nil
}

//Personal.AI order the ending
