package interpreter

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================================
// Keyword tables
// ============================================================================

// buyPhrases and sellPhrases carry the weighted intent signals.  A phrase is
// counted at most once per segment.
var buyPhrases = map[string]int{
	"who sells": 5, "suppliers of": 5, "supplier": 3, "find exporters": 5, "find suppliers": 5,
	"source from": 5, "buy from": 5, "i want to buy": 5, "buying": 3, "imports": 2,
	"want to import": 4, "buy": 1, "purchase": 2, "sourcing": 3, "need": 2, "importers": 1,
	"suppliers": 3,
}

var sellPhrases = map[string]int{
	"who buys": 5, "buyers for": 5, "buyer": 3, "find importers": 5, "find buyers": 5,
	"demand for": 5, "sell to": 5, "i want to sell": 5, "selling": 3, "exports": 2,
	"want to export": 4, "sell": 1, "supply": 2, "available": 2, "exporters": 1,
	"demands": 3, "buyers": 3,
}

var (
	recommendationKeywords = []string{"top", "best", "rank", "suggest", "recommend"}
	comparisonKeywords     = []string{"cheapest", "lowest price", "highest demand", "compare", "vs"}
	evidenceKeywords       = []string{"shipments", "transactions", "history", "record", "proof", "verification", "evidence"}
)

var stopwords = []string{
	"in", "with", "for", "of", "from", "to", "between",
	"please", "search", "find", "show", "me", "list",
	"details", "price", "prices", "active", "recent", "data", "who", "is", "are",
	"import", "export", "importing", "exporting",
	"and", "&",
	"importers", "buyers", "buyer", "importer", "buying", "selling",
}

// knownCountries is the literal country list, in match order.
var knownCountries = []string{
	"Pakistan", "China", "India", "Brazil", "USA", "United States", "UAE", "Dubai",
	"Vietnam", "Thailand", "Indonesia", "Germany", "France", "UK", "United Kingdom",
	"Russia", "Turkey", "Egypt", "Saudi Arabia", "Canada", "Australia", "Malaysia",
	"Kenya", "Bangladesh", "Sri Lanka", "Japan", "Korea", "South Korea",
}

var countryAliases = map[string]string{
	"us": "USA", "u.s.": "USA", "united states of america": "USA", "america": "USA",
	"uae": "UAE", "u.a.e": "UAE", "emirates": "UAE",
	"uk": "UK", "u.k.": "UK", "britain": "UK",
	"ksa": "Saudi Arabia",
}

var (
	intentPhrasesByLength = sortedByLength(keys(buyPhrases), keys(sellPhrases))
	aliasesByLength       = sortedByLength(aliasKeys())
)

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func aliasKeys() []string {
	out := make([]string, 0, len(countryAliases))
	for k := range countryAliases {
		out = append(out, k)
	}
	return out
}

// sortedByLength merges the lists and orders them longest first, ties
// alphabetical so matching is deterministic.
func sortedByLength(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// ============================================================================
// Boundary-safe phrase matching
// ============================================================================

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// phraseIndex returns the byte offset of the first occurrence of phrase in
// text that is not glued to a word character on either side, or -1.
func phraseIndex(text, phrase string) int {
	if phrase == "" {
		return -1
	}
	from := 0
	for from <= len(text)-len(phrase) {
		i := indexFrom(text, phrase, from)
		if i < 0 {
			return -1
		}
		end := i + len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		okBefore := i == 0 || !isWordRune(before) || !startsWithWord(phrase)
		okAfter := end == len(text) || !isWordRune(after) || !endsWithWord(phrase)
		if okBefore && okAfter {
			return i
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		from = i + size
	}
	return -1
}

func indexFrom(text, sub string, from int) int {
	i := strings.Index(text[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}

func startsWithWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func endsWithWord(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

// hasPhrase reports whether phrase occurs in text on word boundaries.
func hasPhrase(text, phrase string) bool { return phraseIndex(text, phrase) >= 0 }

// removePhrase replaces every bounded occurrence of phrase with repl.
func removePhrase(text, phrase, repl string) string {
	for {
		i := phraseIndex(text, phrase)
		if i < 0 {
			return text
		}
		text = text[:i] + repl + text[i+len(phrase):]
	}
}

//Personal.AI order the ending
