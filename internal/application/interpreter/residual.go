package interpreter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rankPhraseRe  = regexp.MustCompile(`(?i)\b(?:top|best|first|suggest|rank)\s+\d+\b`)
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.]`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

// fillerWords are pronouns and articles that carry no product meaning.
var fillerWords = []string{"i", "we", "a", "an", "the", "some", "any", "my", "our"}

var corporateSuffixes = map[string]bool{
	"ltd": true, "ltd.": true, "limited": true, "inc": true, "inc.": true,
	"co": true, "co.": true, "corp": true, "corp.": true, "llc": true, "pvt": true,
}

// maxNameWordsBeforeSuffix bounds how far back a corporate suffix reaches
// when delimiting a counterparty name.
const maxNameWordsBeforeSuffix = 2

// cleanResidual strips rank phrases, intent phrases (longest first), family
// keywords, stopwords and punctuation from what the entity pipeline left.
func cleanResidual(text string) string {
	text = rankPhraseRe.ReplaceAllString(text, " ")
	for _, p := range intentPhrasesByLength {
		text = removePhrase(text, p, " ")
	}
	for _, group := range [][]string{recommendationKeywords, comparisonKeywords, evidenceKeywords} {
		for _, w := range group {
			text = removePhrase(text, w, " ")
		}
	}
	for _, w := range stopwords {
		text = removePhrase(text, w, " ")
	}
	for _, w := range fillerWords {
		text = removePhrase(text, w, " ")
	}
	text = punctuationRe.ReplaceAllString(text, "")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitCounterparty separates an explicit counterparty name from the
// product term.  "company X" takes one following word; a corporate suffix
// takes up to two preceding words.
func splitCounterparty(clean string) (product, counterparty string) {
	tokens := strings.Fields(clean)
	for i, t := range tokens {
		if t == "company" && i+1 < len(tokens) {
			return joinExcept(tokens, i, i+2), titleCase(strings.Join(tokens[i:i+2], " "))
		}
	}
	for i, t := range tokens {
		if i == 0 || !corporateSuffixes[t] {
			continue
		}
		start := i - maxNameWordsBeforeSuffix
		if start < 0 {
			start = 0
		}
		return joinExcept(tokens, start, i+1), titleCase(strings.Join(tokens[start:i+1], " "))
	}
	return clean, ""
}

func joinExcept(tokens []string, from, to int) string {
	rest := make([]string, 0, len(tokens))
	rest = append(rest, tokens[:from]...)
	rest = append(rest, tokens[to:]...)
	return strings.Join(rest, " ")
}

// titleCase builds a fresh Caser per call; Casers are not safe for
// concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

//Personal.AI order the ending
