package knowledge

import (
	"strings"
	"unicode"
)

// stopWords are dropped before keyword-set intersection. Hiragana-only tokens are dropped separately.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "what": true, "how": true,
	"do": true, "does": true, "i": true, "my": true, "to": true, "of": true, "for": true,
	"can": true, "in": true, "on": true, "and": true, "or": true, "with": true, "it": true,
	"何": true, "方法": true, "教え": true,
}

type script int

const (
	scriptOther script = iota
	scriptLatin
	scriptHiragana
	scriptKatakana
	scriptHan
)

func classify(r rune) script {
	switch {
	case unicode.Is(unicode.Hiragana, r):
		return scriptHiragana
	case unicode.Is(unicode.Katakana, r) || r == 'ー':
		return scriptKatakana
	case unicode.Is(unicode.Han, r):
		return scriptHan
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return scriptLatin
	}
	return scriptOther
}

// ExtractKeywords splits a query into lower-cased tokens at whitespace, punctuation and
// script boundaries (so "MNPの予約番号" yields "mnp", "予約番号"). Particles and stop words are removed.
func ExtractKeywords(query string) []string {
	var (
		tokens  []string
		current []rune
		kind    script
	)
	seen := make(map[string]bool)

	flush := func() {
		if len(current) == 0 {
			return
		}
		tok := strings.ToLower(string(current))
		current = current[:0]
		if kind == scriptHiragana || stopWords[tok] || seen[tok] {
			return
		}
		if kind == scriptLatin && len([]rune(tok)) < 2 {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	for _, r := range query {
		k := classify(r)
		if k == scriptOther {
			flush()
			continue
		}
		if len(current) > 0 && k != kind {
			flush()
		}
		kind = k
		current = append(current, r)
	}
	flush()
	return tokens
}

// keywordOverlap is |query ∩ item| / |query|, comparing case-insensitively.
// An item keyword that contains a query token (or vice versa) counts as a hit.
func keywordOverlap(queryKeywords, itemKeywords []string) float64 {
	if len(queryKeywords) == 0 || len(itemKeywords) == 0 {
		return 0
	}
	lowered := make([]string, len(itemKeywords))
	for i, k := range itemKeywords {
		lowered[i] = strings.ToLower(k)
	}

	hits := 0
	for _, q := range queryKeywords {
		for _, k := range lowered {
			if k == q || (len([]rune(q)) >= 2 && (strings.Contains(k, q) || strings.Contains(q, k))) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(queryKeywords))
}
