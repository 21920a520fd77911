package identity

import (
	"strings"
	"unicode"
)

// Scores assigned by the token heuristics. Edit similarity can exceed them
// for near-identical spellings.
const (
	// TokenSubsetScore: every token of one key appears in the other
	// ("bob" vs "bob smith").
	TokenSubsetScore = 0.90

	// TokenPrefixScore: tokens pair up in order and each pair is equal or
	// one is a prefix of the other ("bob s" vs "bob smith",
	// "rob smith" vs "robert smith").
	TokenPrefixScore = 0.85
)

// Similarity compares two normalized keys and returns a score in [0, 1].
// It is symmetric and deterministic. Keys whose numeric tokens differ score
// 0; otherwise the score is the best of the per-token edit similarity and
// the token heuristics.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ta, tb := strings.Fields(a), strings.Fields(b)
	if !sameNumbers(ta, tb) {
		return 0
	}

	best := tokenEditSimilarity(ta, tb)
	if len(ta) > len(tb) {
		ta, tb = tb, ta
	}
	if tokenSubset(ta, tb) && TokenSubsetScore > best {
		best = TokenSubsetScore
	}
	if tokenPrefix(ta, tb) && TokenPrefixScore > best {
		best = TokenPrefixScore
	}
	return best
}

// tokenEditSimilarity pairs the tokens of two keys of equal length and
// returns the weakest pair's edit similarity, so every token, the given name
// included, has to be close on its own ("dan lee" / "jan lee" scores as
// "dan" / "jan"). Keys of different lengths score 0.
func tokenEditSimilarity(ta, tb []string) float64 {
	if len(ta) != len(tb) || len(ta) == 0 {
		return 0
	}
	worst := 1.0
	for i := range ta {
		if s := editSimilarity(ta[i], tb[i]); s < worst {
			worst = s
		}
	}
	return worst
}

// sameNumbers reports whether both token lists carry the same numeric
// tokens in the same order. "speaker 1" and "speaker 2" are two people.
func sameNumbers(ta, tb []string) bool {
	na, nb := numbers(ta), numbers(tb)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func numbers(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if strings.IndexFunc(t, unicode.IsDigit) >= 0 {
			out = append(out, t)
		}
	}
	return out
}

// editSimilarity is 1 - levenshtein/maxlen over runes.
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// tokenSubset: all tokens of short occur in long (short is the shorter list).
func tokenSubset(short, long []string) bool {
	if len(short) == 0 || len(short) == len(long) {
		return false
	}
	have := make(map[string]int, len(long))
	for _, t := range long {
		have[t]++
	}
	for _, t := range short {
		if have[t] == 0 {
			return false
		}
		have[t]--
	}
	return true
}

// tokenPrefix pairs the first len(short) tokens positionally. The first
// token must match exactly or by prefix of at least two runes, so a lone
// initial never carries a match on its own.
func tokenPrefix(short, long []string) bool {
	if len(short) < 2 && len(long) < 2 {
		return false
	}
	if len(short) == 0 {
		return false
	}
	for i, s := range short {
		l := long[i]
		if s == l {
			continue
		}
		shorter, longer := s, l
		if len([]rune(shorter)) > len([]rune(longer)) {
			shorter, longer = longer, shorter
		}
		if !strings.HasPrefix(longer, shorter) {
			return false
		}
		if i == 0 && len([]rune(shorter)) < 2 {
			return false
		}
	}
	return true
}
