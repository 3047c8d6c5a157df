package escalation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Trailing interrogative fillers, longest first. "MNPとは何ですか？" and "MNPって何？" both reduce to "mnp".
var trailingFillers = []string{
	"教えてください", "でしょうか", "について", "ですか", "ますか", "教えて",
	"とは", "って", "なに", "なの", "何", "か",
}

// Normalised questions shorter than this only match when identical, so "sim" and "esim" stay apart.
const shortQuestionRunes = 5

var leadingFillers = []string{"whatis", "whatare", "whats", "tellmeabout", "howdoi"}

// NormalizeQuestion folds width, lower-cases, drops punctuation/spaces and strips filler
// words so differently phrased versions of one question compare equal.
func NormalizeQuestion(s string) string {
	s = width.Fold.String(norm.NFKC.String(s))
	s = strings.ToLower(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	for _, p := range leadingFillers {
		if rest := strings.TrimPrefix(s, p); rest != s && rest != "" {
			s = rest
			break
		}
	}

	for {
		stripped := false
		for _, f := range trailingFillers {
			rest := strings.TrimSuffix(s, f)
			if rest != s && rest != "" {
				s = rest
				stripped = true
				break
			}
		}
		if !stripped {
			return s
		}
	}
}

// Similarity is 1 - levenshtein(a,b)/max(len(a),len(b)) over runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// LargestSimilarCluster returns the size of the largest group of questions that are all
// pairwise similar above threshold. Quadratic in the number of questions.
func LargestSimilarCluster(questions []string, threshold float64) int {
	normalized := make([]string, 0, len(questions))
	for _, q := range questions {
		if n := NormalizeQuestion(q); n != "" {
			normalized = append(normalized, n)
		}
	}

	n := len(normalized)
	similar := make([][]bool, n)
	for i := range similar {
		similar[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		similar[i][i] = true
		for j := i + 1; j < n; j++ {
			s := sameQuestion(normalized[i], normalized[j], threshold)
			similar[i][j], similar[j][i] = s, s
		}
	}

	best := 0
	for seed := 0; seed < n; seed++ {
		cluster := []int{seed}
		for j := 0; j < n; j++ {
			if j == seed {
				continue
			}
			fits := true
			for _, k := range cluster {
				if !similar[j][k] {
					fits = false
					break
				}
			}
			if fits {
				cluster = append(cluster, j)
			}
		}
		if len(cluster) > best {
			best = len(cluster)
		}
	}
	return best
}

func sameQuestion(a, b string, threshold float64) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < shortQuestionRunes || utf8.RuneCountInString(b) < shortQuestionRunes {
		return false
	}
	return Similarity(a, b) > threshold
}
