package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// FuzzyCountryCutoff is the minimum similarity ratio for a token to be read
// as a misspelt country name.
const FuzzyCountryCutoff = 0.85

const fuzzyMinTokenLen = 4

// ============================================================================
// Country
// ============================================================================

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// extractCountries consumes country mentions from text: aliases first,
// then the literal list, then fuzzy single-token matches.  The returned
// list is deduplicated and keeps discovery order.
func extractCountries(text string) ([]string, string) {
	var found []string
	add := func(c string) {
		for _, x := range found {
			if x == c {
				return
			}
		}
		found = append(found, c)
	}

	for _, alias := range aliasesByLength {
		if hasPhrase(text, alias) {
			add(countryAliases[alias])
			text = removePhrase(text, alias, "")
		}
	}

	for _, c := range knownCountries {
		lc := strings.ToLower(c)
		if hasPhrase(text, lc) {
			add(c)
			text = removePhrase(text, lc, "")
		}
	}

	for _, tok := range strings.Fields(text) {
		if len(tok) < fuzzyMinTokenLen {
			continue
		}
		clean := nonWord.ReplaceAllString(tok, "")
		if c, ok := closestCountry(clean); ok {
			add(c)
			text = removePhrase(text, tok, "")
		}
	}
	return found, text
}

// closestCountry mirrors a best-of-one close-match lookup: the candidate
// with the highest sequence ratio at or above FuzzyCountryCutoff.
func closestCountry(token string) (string, bool) {
	if len(token) < fuzzyMinTokenLen {
		return "", false
	}
	word := titleWord(token)
	best, bestScore := "", 0.0
	for _, c := range knownCountries {
		m := difflib.NewMatcher(splitChars(c), splitChars(word))
		if r := m.Ratio(); r >= FuzzyCountryCutoff && r > bestScore {
			best, bestScore = c, r
		}
	}
	return best, best != ""
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// ============================================================================
// Volume
// ============================================================================

var volumeRe = regexp.MustCompile(`(?i)(\d+(?:,\d+)*(?:\.\d+)?)\s*(mt|tons|metric tons|kg|kilo|tonnes)`)

// extractVolume returns the first quantity in metric tons.  Kilograms are
// divided by 1000.
func extractVolume(text string) (*float64, string) {
	m := volumeRe.FindStringSubmatch(text)
	if m == nil {
		return nil, text
	}
	qty, err := parseNumber(m[1])
	if err != nil {
		return nil, text
	}
	switch strings.ToLower(m[2]) {
	case "kg", "kilo":
		qty /= 1000
	}
	return trade.Float(qty), strings.Replace(text, m[0], "", 1)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// ============================================================================
// Price
// ============================================================================

const currencyPattern = `(?:\$|usd|eur|pkr|gbp|cny|rmb)`

var (
	ceilingRe = regexp.MustCompile(`(?:\b(?:paying less than|cheaper than|less than|under|below)|<)\s*` +
		currencyPattern + `?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*` + currencyPattern + `?`)
	floorRe = regexp.MustCompile(`(?:\b(?:paying more than|higher than|more than|sell above|above|over)|>)\s*` +
		currencyPattern + `?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*` + currencyPattern + `?`)
	barePriceRe = regexp.MustCompile(`\b(\d+(?:,\d+)*(?:\.\d+)?)\s*(?:\$|(?:usd|eur|pkr|gbp|cny|rmb)\b)`)
)

// extractPrice reads phrase-anchored ceiling and floor bounds.  A bare
// "<num><currency>" is taken as a ceiling only when no anchored bound was
// found.
func extractPrice(text string) (ceiling, floor *float64, rest string) {
	rest = text
	if m := ceilingRe.FindStringSubmatch(rest); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			ceiling = trade.Float(v)
			rest = strings.Replace(rest, m[0], " ", 1)
		}
	}
	if m := floorRe.FindStringSubmatch(rest); m != nil {
		if v, err := parseNumber(m[1]); err == nil {
			floor = trade.Float(v)
			rest = strings.Replace(rest, m[0], " ", 1)
		}
	}
	if ceiling == nil && floor == nil {
		if m := barePriceRe.FindStringSubmatch(rest); m != nil {
			if v, err := parseNumber(m[1]); err == nil {
				ceiling = trade.Float(v)
				rest = strings.Replace(rest, m[0], " ", 1)
			}
		}
	}
	return ceiling, floor, rest
}

// ============================================================================
// Time
// ============================================================================

var (
	quarterRe    = regexp.MustCompile(`\bq([1-4])(?:[\s-]*(\d{4}))?\b`)
	monthRangeRe = regexp.MustCompile(`\bfrom\s+([a-z]+)\s+to\s+([a-z]+)(?:\s+(\d{4}))?\b`)
	lastNRe      = regexp.MustCompile(`\blast\s+(\d+)\s+(months?|years?)\b`)
	thisYearRe   = regexp.MustCompile(`\bthis\s+year\b`)
	bareYearRe   = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
)

var monthsByName = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

func monthEnd(year int, m time.Month) trade.Date {
	// Day 0 of the next month is the last day of m.
	return trade.DateOf(time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC))
}

// extractWindow resolves the first recognised time expression against now.
// Expressions are tried in order: quarter, month range, "last N
// months/years", "this year", bare year.
func extractWindow(text string, now time.Time) (*trade.TimeWindow, string) {
	today := trade.DateOf(now)

	if m := quarterRe.FindStringSubmatch(text); m != nil {
		q, _ := strconv.Atoi(m[1])
		year := today.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		startMonth := time.Month((q-1)*3 + 1)
		return &trade.TimeWindow{
			Start: trade.NewDate(year, startMonth, 1),
			End:   monthEnd(year, startMonth+2),
		}, strings.Replace(text, m[0], " ", 1)
	}

	if m := monthRangeRe.FindStringSubmatch(text); m != nil {
		from, okFrom := monthsByName[m[1]]
		to, okTo := monthsByName[m[2]]
		if okFrom && okTo {
			year := today.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			endYear := year
			if to < from {
				endYear++
			}
			return &trade.TimeWindow{
				Start: trade.NewDate(year, from, 1),
				End:   monthEnd(endYear, to),
			}, strings.Replace(text, m[0], " ", 1)
		}
	}

	if m := lastNRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			start := today.AddDate(0, -n, 0)
			if strings.HasPrefix(m[2], "year") {
				start = today.AddDate(-n, 0, 0)
			}
			return &trade.TimeWindow{Start: trade.DateOf(start), End: today},
				strings.Replace(text, m[0], " ", 1)
		}
	}

	if loc := thisYearRe.FindStringIndex(text); loc != nil {
		return &trade.TimeWindow{Start: trade.NewDate(today.Year(), time.January, 1), End: today},
			text[:loc[0]] + " " + text[loc[1]:]
	}

	if m := bareYearRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		return &trade.TimeWindow{
			Start: trade.NewDate(year, time.January, 1),
			End:   trade.NewDate(year, time.December, 31),
		}, strings.Replace(text, m[0], " ", 1)
	}

	return nil, text
}

//Personal.AI order the ending
