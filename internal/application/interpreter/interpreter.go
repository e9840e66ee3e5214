// Package interpreter turns free-text counterparty searches into structured
// trade.ParsedQuery values.  It is rule-based and has no I/O dependencies;
// the only external input is the clock used to resolve relative dates.
package interpreter

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ============================================================================
// Interpreter
// ============================================================================

// Interpreter parses query text.  It is stateless apart from its clock and
// safe for concurrent use.
type Interpreter struct {
	now func() time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithClock injects the clock used for relative time expressions.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) {
		if now != nil {
			i.now = now
		}
	}
}

// New returns an Interpreter using the wall clock unless overridden.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Parse interprets text.  A non-empty explicit scope overrides the default
// WORLDWIDE.  Only empty text is an error; intent ties resolve to BUY.
func (p *Interpreter) Parse(text string, explicit trade.Scope) (trade.ParsedQuery, error) {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return trade.ParsedQuery{}, errors.New(errors.ErrCodeQueryEmpty, "query text must not be empty")
	}
	scope := trade.ScopeWorldwide
	if explicit != "" {
		scope = explicit
	}
	now := p.now()

	segments := splitSegments(text)
	if len(segments) > 1 {
		subs := make([]trade.ParsedQuery, 0, len(segments))
		for _, seg := range segments {
			if strings.TrimSpace(seg) == "" {
				continue
			}
			subs = append(subs, parseSegment(seg, scope, now))
		}
		if len(subs) > 1 {
			return mergeSubIntents(text, subs), nil
		}
	}

	q := parseSegment(text, scope, now)
	q.Raw = text
	return q, nil
}

// ============================================================================
// Segments
// ============================================================================

var conjunctionRe = regexp.MustCompile(`(?i)\b(?:and|also)\b`)

// splitSegments splits on ';' when present.  Otherwise it splits on
// "and"/"also", but only where the following part has an intent signal of
// its own; other parts are glued back onto the previous segment.
func splitSegments(text string) []string {
	if parts := strings.Split(text, ";"); len(parts) > 1 {
		return parts
	}
	seps := conjunctionRe.FindAllStringIndex(text, -1)
	segments := make([]string, 0, len(seps)+1)
	start := 0
	for i, sep := range seps {
		end := len(text)
		if i+1 < len(seps) {
			end = seps[i+1][0]
		}
		if _, decided := detectIntent(text[sep[1]:end]); decided {
			segments = append(segments, text[start:sep[0]])
			start = sep[1]
		}
	}
	return append(segments, text[start:])
}

// mergeSubIntents builds the headline query from the first segment, unions
// the country filters and lets later segments override scalar constraints.
func mergeSubIntents(raw string, subs []trade.ParsedQuery) trade.ParsedQuery {
	q := subs[0]
	q.Raw = raw
	q.Family = trade.FamilyMulti
	q.MultiIntent = true
	q.SubIntents = subs
	q.Countries = append([]string(nil), subs[0].Countries...)

	for _, s := range subs[1:] {
		for _, c := range s.Countries {
			if !q.HasCountry(c) {
				q.Countries = append(q.Countries, c)
			}
		}
		if s.VolumeMT != nil {
			q.VolumeMT = s.VolumeMT
		}
		if s.PriceCeiling != nil {
			q.PriceCeiling = s.PriceCeiling
		}
		if s.PriceFloor != nil {
			q.PriceFloor = s.PriceFloor
		}
		if s.Window != nil {
			q.Window = s.Window
		}
		if s.Counterparty != "" {
			q.Counterparty = s.Counterparty
		}
	}
	return q
}

// ============================================================================
// Single segment
// ============================================================================

func parseSegment(segment string, scope trade.Scope, now time.Time) trade.ParsedQuery {
	lower := strings.TrimSpace(cases.Lower(language.English).String(segment))
	q := trade.ParsedQuery{
		Raw:       strings.TrimSpace(segment),
		Scope:     scope,
		Countries: []string{},
	}
	signals := detectFamilyKeywords(lower)

	rest := lower
	q.Countries, rest = extractCountries(rest)
	q.VolumeMT, rest = extractVolume(rest)
	q.PriceCeiling, q.PriceFloor, rest = extractPrice(rest)
	q.Window, rest = extractWindow(rest, now)

	q.Intent = trade.IntentBuy
	if intent, decided := detectIntent(lower); decided {
		q.Intent = intent
	}

	q.Product, q.Counterparty = splitCounterparty(cleanResidual(rest))
	q.Family = classifyFamily(signals, &q)
	return q
}

// detectIntent sums the weights of matched BUY and SELL phrases.  decided
// is false on a tie, including when nothing matched.
func detectIntent(text string) (trade.Intent, bool) {
	lower := strings.ToLower(text)
	buy, sell := 0, 0
	for phrase, w := range buyPhrases {
		if hasPhrase(lower, phrase) {
			buy += w
		}
	}
	for phrase, w := range sellPhrases {
		if hasPhrase(lower, phrase) {
			sell += w
		}
	}
	switch {
	case buy > sell:
		return trade.IntentBuy, true
	case sell > buy:
		return trade.IntentSell, true
	default:
		return "", false
	}
}

//Personal.AI order the ending
