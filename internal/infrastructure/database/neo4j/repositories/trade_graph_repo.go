// Package repositories holds the Neo4j-backed trade graph.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	driver "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// The graph stores one :Company node per name, labelled :Buyer and/or
// :Seller, and one undirected TRADES_WITH relationship per buyer/seller pair
// carrying the aggregated shipment count and volume.

const defaultEdgeBatch = 500

// TradeGraphRepository implements trade.TradeGraph on Neo4j.
type TradeGraphRepository struct {
	driver    driver.DriverInterface
	log       logging.Logger
	batchSize int
}

var _ trade.TradeGraph = (*TradeGraphRepository)(nil)

func NewTradeGraphRepository(d driver.DriverInterface, log logging.Logger) *TradeGraphRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &TradeGraphRepository{driver: d, log: log.Named("trade_graph"), batchSize: defaultEdgeBatch}
}

func roleLabel(role trade.Role) (string, error) {
	switch role {
	case trade.RoleBuyer:
		return "Buyer", nil
	case trade.RoleSeller:
		return "Seller", nil
	}
	return "", errors.New(errors.ErrCodeDirectionInvalid, fmt.Sprintf("unknown role %q", role))
}

// Neighbourhood returns the target's degree and, for every node of
// candidateRole that is not already a neighbour, its degree and the number
// of neighbours it shares with the target.
func (r *TradeGraphRepository) Neighbourhood(ctx context.Context, company string, candidateRole trade.Role) (*trade.GraphNeighbourhood, error) {
	label, err := roleLabel(candidateRole)
	if err != nil {
		return nil, err
	}

	degreeQuery := `
		MATCH (t:Company {name: $company})
		OPTIONAL MATCH (t)-[:TRADES_WITH]-(n:Company)
		RETURN count(DISTINCT n) AS degree
	`
	candidateQuery := fmt.Sprintf(`
		MATCH (t:Company {name: $company})-[:TRADES_WITH]-(n:Company)
		WITH t, collect(DISTINCT n) AS mine
		MATCH (c:%s)
		WHERE c <> t AND NOT c IN mine
		OPTIONAL MATCH (c)-[:TRADES_WITH]-(cn:Company)
		WITH mine, c, collect(DISTINCT cn) AS theirs
		RETURN c.name AS name,
		       size(theirs) AS degree,
		       size([x IN theirs WHERE x IN mine]) AS shared
		ORDER BY name
	`, label)
	params := map[string]any{"company": company}

	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		result, err := tx.Run(ctx, degreeQuery, params)
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, result.Err()
		}
		degree := driver.Int(result.Record(), "degree")
		if degree == 0 {
			return nil, nil
		}

		result, err = tx.Run(ctx, candidateQuery, params)
		if err != nil {
			return nil, err
		}
		candidates, err := driver.CollectRecords(ctx, result, func(rec *neo4j.Record) (trade.GraphCandidate, error) {
			return trade.GraphCandidate{
				Name:   driver.String(rec, "name"),
				Degree: driver.Int(rec, "degree"),
				Shared: driver.Int(rec, "shared"),
			}, nil
		})
		if err != nil {
			return nil, err
		}
		return &trade.GraphNeighbourhood{Degree: degree, Candidates: candidates}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreError, "failed to load neighbourhood")
	}
	nb, _ := res.(*trade.GraphNeighbourhood)
	return nb, nil
}

// EnsureSchema creates the uniqueness constraint on company names.
func (r *TradeGraphRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE CONSTRAINT company_name IF NOT EXISTS FOR (c:Company) REQUIRE c.name IS UNIQUE`, nil)
		return nil, err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphStoreError, "failed to ensure graph schema")
	}
	return nil
}

// UpsertEdges merges buyer/seller pairs in batches and returns how many
// edges were written.
func (r *TradeGraphRepository) UpsertEdges(ctx context.Context, edges []trade.TradeEdge) (int, error) {
	query := `
		UNWIND $batch AS row
		MERGE (b:Company {name: row.buyer})
		SET b:Buyer
		MERGE (s:Company {name: row.seller})
		SET s:Seller
		MERGE (s)-[e:TRADES_WITH]->(b)
		SET e.shipments = row.shipments, e.volume_mt = row.volume_mt
	`
	written := 0
	for start := 0; start < len(edges); start += r.batchSize {
		end := start + r.batchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := make([]map[string]any, 0, end-start)
		for _, e := range edges[start:end] {
			if e.Buyer == "" || e.Seller == "" {
				continue
			}
			batch = append(batch, map[string]any{
				"buyer":     e.Buyer,
				"seller":    e.Seller,
				"shipments": int64(e.Shipments),
				"volume_mt": e.VolumeMT,
			})
		}
		if len(batch) == 0 {
			continue
		}
		_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			res, err := tx.Run(ctx, query, map[string]any{"batch": batch})
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return written, errors.Wrap(err, errors.ErrCodeGraphStoreError, "failed to upsert trade edges")
		}
		written += len(batch)
	}
	r.log.Debug("trade edges upserted", logging.Int("count", written))
	return written, nil
}

//Personal.AI order the ending
