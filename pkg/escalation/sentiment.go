package escalation

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var negativeKeywords = []string{
	// ja
	"わからない", "分からない", "わかりにくい", "困って", "困る", "最悪", "ひどい", "酷い",
	"遅い", "使えない", "できない", "出来ない", "だめ", "ダメ", "不満", "イライラ",
	"いい加減", "役に立たない", "意味がない", "ふざけ", "怒",
	// en
	"frustrat", "angry", "useless", "terrible", "worst", "not working", "doesn't work",
	"ridiculous", "annoying", "waste of time",
}

// NegativeHits counts keyword occurrences in text. Overlapping keywords are counted separately.
func NegativeHits(text string) int {
	text = strings.ToLower(norm.NFKC.String(text))
	hits := 0
	for _, k := range negativeKeywords {
		hits += strings.Count(text, k)
	}
	return hits
}
