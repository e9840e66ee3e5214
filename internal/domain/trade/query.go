// Package trade holds the core domain model of the counterparty discovery
// engine: interpreted queries, aggregated candidates, ranking features and
// link-prediction results, plus the repository contracts the application
// layer depends on.
package trade

import (
	"fmt"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Intent / Scope / Family
// ─────────────────────────────────────────────────────────────────────────────

// Intent is whether the caller seeks to buy or to sell.
type Intent string

const (
	IntentBuy  Intent = "BUY"
	IntentSell Intent = "SELL"
)

// Scope restricts candidates to the home market or opens them worldwide.
type Scope string

const (
	ScopeDomestic  Scope = "DOMESTIC"
	ScopeWorldwide Scope = "WORLDWIDE"
)

// ParseScope accepts the wire spellings of a scope.  The empty string means
// "not specified" and returns ok=true with an empty Scope.
func ParseScope(s string) (Scope, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "DOMESTIC", "PAKISTAN", "LOCAL", "HOME":
		return ScopeDomestic, true
	case "WORLDWIDE", "GLOBAL", "INTERNATIONAL":
		return ScopeWorldwide, true
	}
	return "", false
}

// Family is the discrete query-shape classification that drives ranking
// weight selection.
type Family int

const (
	FamilyDiscovery      Family = 1
	FamilyCountry        Family = 2
	FamilyVolume         Family = 3
	FamilyPrice          Family = 4
	FamilyTime           Family = 5
	FamilyRecommendation Family = 6
	FamilyComparison     Family = 7
	FamilyEvidence       Family = 8
	FamilyMulti          Family = 9
)

var familyNames = map[Family]string{
	FamilyDiscovery:      "discovery",
	FamilyCountry:        "country",
	FamilyVolume:         "volume",
	FamilyPrice:          "price",
	FamilyTime:           "time",
	FamilyRecommendation: "recommendation",
	FamilyComparison:     "comparison",
	FamilyEvidence:       "evidence",
	FamilyMulti:          "multi",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Valid reports whether f is one of the nine known families.
func (f Family) Valid() bool { return f >= FamilyDiscovery && f <= FamilyMulti }

// ─────────────────────────────────────────────────────────────────────────────
// TimeWindow
// ─────────────────────────────────────────────────────────────────────────────

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day serialised as YYYY-MM-DD.
type Date struct{ time.Time }

// NewDate truncates t to midnight UTC.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day containing t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// TimeWindow is an inclusive date range.
type TimeWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether t falls on a day inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	day := DateOf(t)
	return !day.Before(w.Start.Time) && !day.After(w.End.Time)
}

// ─────────────────────────────────────────────────────────────────────────────
// ParsedQuery
// ─────────────────────────────────────────────────────────────────────────────

// ParsedQuery is the structured form of a free-text search.  It is built per
// request by the interpreter and not mutated after the multi-intent merge.
type ParsedQuery struct {
	Raw          string        `json:"raw_query"`
	Intent       Intent        `json:"intent"`
	Scope        Scope         `json:"scope"`
	Family       Family        `json:"family"`
	Product      string        `json:"product"`
	Counterparty string        `json:"counterparty_name,omitempty"`
	VolumeMT     *float64      `json:"volume_mt"`
	PriceCeiling *float64      `json:"price_ceiling"`
	PriceFloor   *float64      `json:"price_floor"`
	Window       *TimeWindow   `json:"time_range"`
	Countries    []string      `json:"country_filter"`
	MultiIntent  bool          `json:"multi_intent"`
	SubIntents   []ParsedQuery `json:"sub_intents,omitempty"`
}

// HasVolume reports whether a volume requirement is present.
func (q ParsedQuery) HasVolume() bool { return q.VolumeMT != nil && *q.VolumeMT > 0 }

// HasCountry reports whether c is in the country filter (exact match).
func (q ParsedQuery) HasCountry(c string) bool {
	for _, x := range q.Countries {
		if x == c {
			return true
		}
	}
	return false
}

// Float returns a pointer to v; a helper for optional numeric fields.
func Float(v float64) *float64 { return &v }

//Personal.AI order the ending
