// Package aggregation resolves a parsed query into a candidate-store request
// and post-processes the per-counterparty aggregates it returns.
package aggregation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var tracer = otel.Tracer("tradelink/aggregation")

// ResolveSpec maps (intent, scope) onto the shipment direction, the pinned
// home-country field and the candidate's role and country field.
//
//	SELL DOMESTIC   IMPORT  destination=home  buyer   destination_country
//	SELL WORLDWIDE  EXPORT  origin=home       buyer   destination_country
//	BUY  DOMESTIC   EXPORT  origin=home       seller  origin_country
//	BUY  WORLDWIDE  IMPORT  destination=home  seller  origin_country
func ResolveSpec(intent trade.Intent, scope trade.Scope, home string) (trade.CandidateSpec, error) {
	if scope == "" {
		scope = trade.ScopeWorldwide
	}
	spec := trade.CandidateSpec{HomeCountry: home}
	switch intent {
	case trade.IntentSell:
		spec.Role = trade.RoleBuyer
		spec.CountryField = trade.CountryDestination
		if scope == trade.ScopeDomestic {
			spec.Direction, spec.HomeField = trade.DirectionImport, trade.CountryDestination
		} else {
			spec.Direction, spec.HomeField = trade.DirectionExport, trade.CountryOrigin
		}
	case trade.IntentBuy, "":
		spec.Role = trade.RoleSeller
		spec.CountryField = trade.CountryOrigin
		if scope == trade.ScopeDomestic {
			spec.Direction, spec.HomeField = trade.DirectionExport, trade.CountryOrigin
		} else {
			spec.Direction, spec.HomeField = trade.DirectionImport, trade.CountryDestination
		}
	default:
		return trade.CandidateSpec{}, errors.New(errors.ErrCodeDirectionInvalid,
			fmt.Sprintf("unknown intent %q", intent))
	}
	if scope != trade.ScopeDomestic && scope != trade.ScopeWorldwide {
		return trade.CandidateSpec{}, errors.New(errors.ErrCodeScopeInvalid,
			fmt.Sprintf("unknown scope %q", scope))
	}
	return spec, nil
}

// FilterFor builds the conjunctive shipment filter from q.  Non-positive
// price bounds are treated as absent.
func FilterFor(q trade.ParsedQuery) trade.CandidateFilter {
	f := trade.CandidateFilter{
		Countries: q.Countries,
		Window:    q.Window,
	}
	if q.PriceCeiling != nil && *q.PriceCeiling > 0 {
		f.PriceCeiling = q.PriceCeiling
	}
	if q.PriceFloor != nil && *q.PriceFloor > 0 {
		f.PriceFloor = q.PriceFloor
	}
	return f
}

// Aggregator produces candidates for a parsed query.
type Aggregator struct {
	store  trade.CandidateStore
	home   string
	logger logging.Logger
}

// NewAggregator wires the store.  home is the country pinned by the
// direction mapping.
func NewAggregator(store trade.CandidateStore, home string, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Aggregator{store: store, home: home, logger: logger.Named("aggregation")}
}

// GetCandidates aggregates shipments in the given subcategories.  With a
// volume requirement only candidates whose max shipment or total volume
// reaches it are kept, each labelled with its VolumeFit.
func (a *Aggregator) GetCandidates(ctx context.Context, subcategoryIDs []int64, q trade.ParsedQuery) ([]trade.Candidate, error) {
	if len(subcategoryIDs) == 0 {
		return []trade.Candidate{}, nil
	}
	spec, err := ResolveSpec(q.Intent, q.Scope, a.home)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "aggregation.GetCandidates")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent", string(q.Intent)),
		attribute.String("scope", string(q.Scope)),
		attribute.Int("subcategories", len(subcategoryIDs)),
	)

	var minVolume *float64
	if q.HasVolume() {
		minVolume = q.VolumeMT
	}

	rows, err := a.store.AggregateCandidates(ctx, subcategoryIDs, spec, FilterFor(q), minVolume)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, errors.ErrCodeAggregationFailed, "candidate aggregation failed")
	}

	out := make([]trade.Candidate, 0, len(rows))
	for _, c := range rows {
		if minVolume != nil && c.MaxShipmentMT < *minVolume && c.TotalVolumeMT < *minVolume {
			continue
		}
		c.VolumeFit = trade.ClassifyVolumeFit(c.MaxShipmentMT, c.TotalVolumeMT, minVolume)
		out = append(out, c)
	}

	a.logger.WithContext(ctx).Debug("candidates aggregated",
		logging.String("direction", string(spec.Direction)),
		logging.String("role", string(spec.Role)),
		logging.Int("count", len(out)),
	)
	return out, nil
}

//Personal.AI order the ending
