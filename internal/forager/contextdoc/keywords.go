package contextdoc

import (
	"sort"
	"strings"
)

const keywordPunct = ".,!?;:"

// minKeywordLen is the shortest token kept as a keyword.
const minKeywordLen = 4

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "when": {},
	"should": {}, "would": {}, "could": {}, "have": {}, "been": {},
	"into": {}, "there": {}, "which": {}, "what": {}, "then": {},
}

// ExtractKeywords lower-cases and splits texts on whitespace, trims
// surrounding punctuation and drops short tokens and stop words. The result is
// sorted and free of duplicates.
func ExtractKeywords(texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			tok = strings.Trim(tok, keywordPunct)
			if len(tok) < minKeywordLen {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			seen[tok] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(seen))
	for k := range seen {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	return keywords
}
