package titlematch

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// MinScore is the lowest score Rank returns.
const MinScore = 0.70

var numberRegex = regexp.MustCompile(`\b(\d+)\b`)

// Match is one ranked candidate.
type Match struct {
	Title string
	Score float64 // 0.0-1.0
}

// Score compares a query with one candidate title. Jaro-Winkler favours
// shared prefixes; a query found word-aligned inside the candidate scores
// at least 0.9, and sequence numbers that disagree are penalized.
func Score(query, candidate string) float64 {
	q, c := CleanTitle(query), CleanTitle(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	score := float64(edlib.JaroWinklerSimilarity(q, c))
	if strings.Contains(" "+c+" ", " "+q+" ") {
		score = max(score, 0.9+0.1*float64(len(q))/float64(len(c)))
	}
	return adjustScoreForNumbers(score, numberRegex.FindAllString(q, -1), numberRegex.FindAllString(c, -1))
}

// Rank scores every candidate against query and returns those at or above
// MinScore, best first, at most limit (0 means all). Ties keep candidate
// order.
func Rank(query string, candidates []string, limit int) []Match {
	var out []Match
	for _, c := range candidates {
		if s := Score(query, c); s >= MinScore {
			out = append(out, Match{Title: c, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func adjustScoreForNumbers(score float64, queryNums, candidateNums []string) float64 {
	if len(queryNums) == 0 {
		return score
	}
	if len(candidateNums) == 0 {
		return score * 0.85
	}
	candidateSet := make(map[string]bool, len(candidateNums))
	for _, n := range candidateNums {
		candidateSet[n] = true
	}
	for _, n := range queryNums {
		if candidateSet[n] {
			return min(score*1.05, 1.0)
		}
	}
	return score * 0.90
}
