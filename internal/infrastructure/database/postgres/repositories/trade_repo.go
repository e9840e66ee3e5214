package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// historyLimit caps the shipment rows returned with a profile.
const historyLimit = 50

// TradeRepository reads shipment records.  It serves candidate aggregation,
// the counterparty profile, keyword product matching and the shipment
// neighbourhood queries used by link prediction.
type TradeRepository struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

var (
	_ trade.CandidateStore     = (*TradeRepository)(nil)
	_ trade.ProfileStore       = (*TradeRepository)(nil)
	_ trade.SubcategoryCatalog = (*TradeRepository)(nil)
	_ trade.TradeNetwork       = (*TradeRepository)(nil)
)

func NewTradeRepository(conn *postgres.Connection, log logging.Logger) *TradeRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &TradeRepository{conn: conn, log: log.Named("trade_repo")}
}

// WithTx returns a repository bound to tx.
func (r *TradeRepository) WithTx(tx *sql.Tx) *TradeRepository {
	return &TradeRepository{conn: r.conn, tx: tx, log: r.log}
}

func (r *TradeRepository) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

// ─────────────────────────────────────────────────────────────────────────────
// Column resolution
// ─────────────────────────────────────────────────────────────────────────────

// Column names are interpolated into SQL, so only these values are accepted.

func roleColumn(role trade.Role) (string, error) {
	switch role {
	case trade.RoleBuyer:
		return "buyer", nil
	case trade.RoleSeller:
		return "seller", nil
	}
	return "", errors.New(errors.ErrCodeDirectionInvalid, fmt.Sprintf("unknown role %q", role))
}

func otherRoleColumn(role trade.Role) (string, error) {
	switch role {
	case trade.RoleBuyer:
		return "seller", nil
	case trade.RoleSeller:
		return "buyer", nil
	}
	return "", errors.New(errors.ErrCodeDirectionInvalid, fmt.Sprintf("unknown role %q", role))
}

func countryColumn(f trade.CountryField) (string, error) {
	switch f {
	case trade.CountryOrigin, trade.CountryDestination:
		return string(f), nil
	}
	return "", errors.New(errors.ErrCodeDirectionInvalid, fmt.Sprintf("unknown country field %q", f))
}

// partyCountryColumn is the country a party of role ships from or to.
func partyCountryColumn(role trade.Role) string {
	if role == trade.RoleBuyer {
		return string(trade.CountryDestination)
	}
	return string(trade.CountryOrigin)
}

// whereBuilder accumulates conjunctive predicates with positional args.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends clause, replacing each "?" with the next placeholder.
func (w *whereBuilder) add(clause string, args ...interface{}) {
	for _, a := range args {
		w.args = append(w.args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) sql() string {
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// ─────────────────────────────────────────────────────────────────────────────
// CandidateStore
// ─────────────────────────────────────────────────────────────────────────────

// AggregateCandidates groups matching shipments by (candidate, country).
func (r *TradeRepository) AggregateCandidates(ctx context.Context, subcategoryIDs []int64, spec trade.CandidateSpec, filter trade.CandidateFilter, minVolume *float64) ([]trade.Candidate, error) {
	if len(subcategoryIDs) == 0 {
		return []trade.Candidate{}, nil
	}
	party, err := roleColumn(spec.Role)
	if err != nil {
		return nil, err
	}
	country, err := countryColumn(spec.CountryField)
	if err != nil {
		return nil, err
	}
	home, err := countryColumn(spec.HomeField)
	if err != nil {
		return nil, err
	}

	w := &whereBuilder{}
	w.add("pi.subcategory_id = ANY(?)", pq.Array(subcategoryIDs))
	w.add("t.trade_type = ?", string(spec.Direction))
	w.add("t."+home+" = ?", spec.HomeCountry)
	if len(filter.Countries) > 0 {
		w.add("t."+country+" = ANY(?)", pq.Array(filter.Countries))
	}
	if filter.PriceCeiling != nil {
		w.add("t.usd_per_mt <= ?", *filter.PriceCeiling)
	}
	if filter.PriceFloor != nil {
		w.add("t.usd_per_mt >= ?", *filter.PriceFloor)
	}
	if filter.Window != nil {
		w.add("t.reporting_date >= ?", filter.Window.Start.Time)
		w.add("t.reporting_date <= ?", filter.Window.End.Time)
	}
	if name := strings.TrimSpace(filter.Counterparty); name != "" {
		w.add("LOWER(TRIM(t."+party+")) = LOWER(?)", name)
	}

	query := fmt.Sprintf(`
		SELECT t.%[1]s, t.%[2]s,
		       COALESCE(SUM(t.qty_mt), 0)::float8,
		       COALESCE(AVG(t.usd_per_mt), 0)::float8,
		       COUNT(*),
		       MAX(t.reporting_date),
		       COALESCE(MAX(t.qty_mt), 0)::float8
		FROM transactions t
		JOIN product_items pi ON pi.id = t.product_item_id
		%[3]s
		GROUP BY t.%[1]s, t.%[2]s`, party, country, w.sql())
	args := w.args
	if minVolume != nil && *minVolume > 0 {
		args = append(args, *minVolume)
		query += fmt.Sprintf(`
		HAVING MAX(t.qty_mt) >= $%[1]d OR SUM(t.qty_mt) >= $%[1]d`, len(args))
	}
	query += `
		ORDER BY 3 DESC, 1`

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to aggregate candidates")
	}
	defer rows.Close()

	out := []trade.Candidate{}
	for rows.Next() {
		var c trade.Candidate
		if err := rows.Scan(&c.Name, &c.Country, &c.TotalVolumeMT, &c.AvgPriceUSDPerMT,
			&c.Shipments, &c.LastTradeDate, &c.MaxShipmentMT); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate candidates")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// ProfileStore
// ─────────────────────────────────────────────────────────────────────────────

// Profile loads the detail view of name acting in role.
func (r *TradeRepository) Profile(ctx context.Context, name string, role trade.Role, subcategoryIDs []int64, recentSince time.Time) (*trade.CounterpartyProfile, error) {
	party, err := roleColumn(role)
	if err != nil {
		return nil, err
	}
	partner, _ := otherRoleColumn(role)
	country := partyCountryColumn(role)
	if len(subcategoryIDs) == 0 || strings.TrimSpace(name) == "" {
		return nil, nil
	}

	w := &whereBuilder{}
	w.add("pi.subcategory_id = ANY(?)", pq.Array(subcategoryIDs))
	w.add("LOWER(TRIM(t."+party+")) = LOWER(?)", strings.TrimSpace(name))
	from := `
		FROM transactions t
		JOIN product_items pi ON pi.id = t.product_item_id
		` + w.sql()

	p := &trade.CounterpartyProfile{Name: name, Role: role}

	var last sql.NullTime
	err = r.executor().QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(t.qty_mt), 0)::float8,
		       COALESCE(AVG(t.usd_per_mt), 0)::float8,
		       MAX(t.reporting_date)`+from, w.args...).
		Scan(&p.Stats.Shipments, &p.Stats.TotalVolumeMT, &p.Stats.AvgPrice, &last)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load profile stats")
	}
	if p.Stats.Shipments == 0 {
		return nil, nil
	}
	if last.Valid {
		p.Stats.LastShipment = trade.DateOf(last.Time)
	}

	if p.Sparkline, err = r.sparkline(ctx, from, w.args); err != nil {
		return nil, err
	}
	if p.History, err = r.history(ctx, from, partner, country, w.args); err != nil {
		return nil, err
	}
	if p.Countries, err = r.countries(ctx, from, country, w.args); err != nil {
		return nil, err
	}
	if p.ShipmentSizes, err = r.sizeBuckets(ctx, from, w.args); err != nil {
		return nil, err
	}

	args := append(append([]interface{}{}, w.args...), recentSince)
	err = r.executor().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(DISTINCT t.%s),
		       COUNT(DISTINCT t.%s) FILTER (WHERE t.reporting_date >= $%d)`, partner, partner, len(args))+from, args...).
		Scan(&p.Relationships.Total, &p.Relationships.Recent)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count relationships")
	}
	return p, nil
}

func (r *TradeRepository) sparkline(ctx context.Context, from string, args []interface{}) ([]trade.SparklinePoint, error) {
	rows, err := r.executor().QueryContext(ctx, `
		SELECT date_trunc('month', t.reporting_date)::date AS month,
		       COALESCE(SUM(t.qty_mt), 0)::float8,
		       COALESCE(AVG(t.usd_per_mt), 0)::float8`+from+`
		GROUP BY month
		ORDER BY month`, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load sparkline")
	}
	defer rows.Close()

	out := []trade.SparklinePoint{}
	for rows.Next() {
		var month time.Time
		var pt trade.SparklinePoint
		if err := rows.Scan(&month, &pt.VolumeMT, &pt.AvgPrice); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan sparkline")
		}
		pt.Date = trade.DateOf(month)
		out = append(out, pt)
	}
	return out, rows.Err()
}

func (r *TradeRepository) history(ctx context.Context, from, partner, country string, args []interface{}) ([]trade.ShipmentRecord, error) {
	rows, err := r.executor().QueryContext(ctx, fmt.Sprintf(`
		SELECT t.id, t.tx_reference, t.%s, t.%s,
		       t.qty_mt::float8, COALESCE(t.usd_per_mt, 0)::float8, t.reporting_date`, partner, country)+from+fmt.Sprintf(`
		ORDER BY t.reporting_date DESC, t.id DESC
		LIMIT %d`, historyLimit), args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load shipment history")
	}
	defer rows.Close()

	out := []trade.ShipmentRecord{}
	for rows.Next() {
		var rec trade.ShipmentRecord
		var day time.Time
		if err := rows.Scan(&rec.ID, &rec.Reference, &rec.Counterparty, &rec.Country,
			&rec.QuantityMT, &rec.PriceUSD, &day); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan shipment")
		}
		rec.Date = trade.DateOf(day)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *TradeRepository) countries(ctx context.Context, from, country string, args []interface{}) ([]string, error) {
	rows, err := r.executor().QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT t.%[1]s`, country)+from+fmt.Sprintf(`
		ORDER BY t.%[1]s`, country), args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load countries")
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan country")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// sizeBuckets always returns every bin of SizeBucketLabels, in order.
func (r *TradeRepository) sizeBuckets(ctx context.Context, from string, args []interface{}) ([]trade.SizeBucket, error) {
	rows, err := r.executor().QueryContext(ctx, `
		SELECT CASE
		         WHEN t.qty_mt <= 25 THEN '0-25'
		         WHEN t.qty_mt <= 50 THEN '25-50'
		         WHEN t.qty_mt <= 100 THEN '50-100'
		         ELSE '100+'
		       END AS bucket,
		       COUNT(*),
		       COALESCE(AVG(t.usd_per_mt), 0)::float8`+from+`
		GROUP BY bucket`, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load shipment sizes")
	}
	defer rows.Close()

	found := map[string]trade.SizeBucket{}
	for rows.Next() {
		var label string
		var b trade.SizeBucket
		if err := rows.Scan(&label, &b.Count, &b.AvgPrice); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan shipment size")
		}
		found[label] = b
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate shipment sizes")
	}

	out := make([]trade.SizeBucket, len(trade.SizeBucketLabels))
	for i, label := range trade.SizeBucketLabels {
		b := found[label]
		b.Range = label + " MT"
		out[i] = b
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// SubcategoryCatalog
// ─────────────────────────────────────────────────────────────────────────────

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// MatchByName is a case-insensitive substring match on subcategory names.
func (r *TradeRepository) MatchByName(ctx context.Context, term string) ([]trade.Subcategory, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []trade.Subcategory{}, nil
	}
	rows, err := r.executor().QueryContext(ctx, `
		SELECT id, name, hs_code
		FROM product_subcategories
		WHERE name ILIKE $1
		ORDER BY LENGTH(name), name`, "%"+likeEscaper.Replace(term)+"%")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to match subcategories")
	}
	defer rows.Close()

	out := []trade.Subcategory{}
	for rows.Next() {
		var s trade.Subcategory
		if err := rows.Scan(&s.ID, &s.Name, &s.HSCode); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan subcategory")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TradedSubcategories lists subcategories with shipments and the directions
// they were traded in.
func (r *TradeRepository) TradedSubcategories(ctx context.Context) ([]trade.SubcategoryActivity, error) {
	rows, err := r.executor().QueryContext(ctx, `
		SELECT s.id, s.name, s.hs_code,
		       BOOL_OR(t.trade_type = 'IMPORT'),
		       BOOL_OR(t.trade_type = 'EXPORT')
		FROM transactions t
		JOIN product_items pi ON pi.id = t.product_item_id
		JOIN product_subcategories s ON s.id = pi.subcategory_id
		GROUP BY s.id, s.name, s.hs_code
		ORDER BY s.id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list traded subcategories")
	}
	defer rows.Close()

	out := []trade.SubcategoryActivity{}
	for rows.Next() {
		var a trade.SubcategoryActivity
		if err := rows.Scan(&a.ID, &a.Name, &a.HSCode, &a.HasImports, &a.HasExports); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan subcategory activity")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// TradeNetwork
// ─────────────────────────────────────────────────────────────────────────────

// Partners maps each company acting in role to its distinct counterparties.
func (r *TradeRepository) Partners(ctx context.Context, companies []string, role trade.Role) (map[string][]string, error) {
	out := map[string][]string{}
	if len(companies) == 0 {
		return out, nil
	}
	party, err := roleColumn(role)
	if err != nil {
		return nil, err
	}
	partner, _ := otherRoleColumn(role)

	rows, err := r.executor().QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT %[1]s, %[2]s
		FROM transactions
		WHERE %[1]s = ANY($1)
		ORDER BY %[1]s, %[2]s`, party, partner), pq.Array(companies))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load trading partners")
	}
	defer rows.Close()

	for rows.Next() {
		var company, other string
		if err := rows.Scan(&company, &other); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan trading partner")
		}
		out[company] = append(out[company], other)
	}
	return out, rows.Err()
}

// ProductsOf returns the product items company trades in role.
func (r *TradeRepository) ProductsOf(ctx context.Context, company string, role trade.Role) ([]int64, error) {
	party, err := roleColumn(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.executor().QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT product_item_id
		FROM transactions
		WHERE %s = $1 AND product_item_id IS NOT NULL
		ORDER BY product_item_id`, party), company)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load traded products")
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan product id")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CoTraders counts the given products per company acting in role.
func (r *TradeRepository) CoTraders(ctx context.Context, productIDs []int64, role trade.Role) ([]trade.CoTradeCount, error) {
	if len(productIDs) == 0 {
		return []trade.CoTradeCount{}, nil
	}
	party, err := roleColumn(role)
	if err != nil {
		return nil, err
	}
	rows, err := r.executor().QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(DISTINCT product_item_id)
		FROM transactions
		WHERE product_item_id = ANY($1)
		GROUP BY %[1]s
		ORDER BY 2 DESC, 1`, party), pq.Array(productIDs))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count co-traders")
	}
	defer rows.Close()

	out := []trade.CoTradeCount{}
	for rows.Next() {
		var c trade.CoTradeCount
		if err := rows.Scan(&c.Name, &c.Products); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan co-trader")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EachEdge streams every buyer/seller pair with its shipment totals, in
// (buyer, seller) order.  fn returning an error stops the scan.
func (r *TradeRepository) EachEdge(ctx context.Context, fn func(trade.TradeEdge) error) error {
	rows, err := r.executor().QueryContext(ctx, `
		SELECT buyer, seller, COUNT(*), COALESCE(SUM(qty_mt), 0)::float8
		FROM transactions
		GROUP BY buyer, seller
		ORDER BY buyer, seller`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load trade edges")
	}
	defer rows.Close()

	for rows.Next() {
		var e trade.TradeEdge
		if err := rows.Scan(&e.Buyer, &e.Seller, &e.Shipments, &e.VolumeMT); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan trade edge")
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate trade edges")
	}
	return nil
}

//Personal.AI order the ending
