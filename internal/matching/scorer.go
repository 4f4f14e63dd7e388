package matching

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/banking/compliance-engine/internal/domain"
)

// Metric weights for the combined name score. Fixed; they sum to 1.0.
const (
	jaroWinklerWeight = 0.4
	phoneticWeight    = 0.2
	tokenSetWeight    = 0.3
	editWeight        = 0.1
)

// Attribute weights for folding secondary attributes into the final score.
// Renormalized over the attributes both sides actually supply.
const (
	nameAttrWeight        = 0.4
	dobAttrWeight         = 0.3
	addressAttrWeight     = 0.2
	nationalityAttrWeight = 0.1
)

// Scorer computes weighted multi-metric similarity between a screening
// subject and a watchlist entry. Stateless and safe for concurrent use.
type Scorer struct{}

// NewScorer creates a similarity scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// NameScore returns the combined similarity of two raw names in [0,1].
// Both names are normalized before scoring. An exact normalized match
// short-circuits to 1.0; an empty side scores 0.0.
func (s *Scorer) NameScore(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	return jaroWinklerWeight*jaroWinkler(na, nb) +
		phoneticWeight*phoneticSimilarity(na, nb) +
		tokenSetWeight*tokenSetSimilarity(na, nb) +
		editWeight*editSimilarity(na, nb)
}

// Score compares a subject against one watchlist entry, scoring the
// canonical name and every alias and folding in whichever secondary
// attributes both sides provide. Absent attributes are skipped, never
// counted as a mismatch.
func (s *Scorer) Score(subject *domain.ScreeningSubject, entry *domain.WatchlistEntry) (float64, map[string]float64, string) {
	best := s.NameScore(subject.FullName, entry.Name)
	matchedAlias := ""
	for _, alias := range entry.Aliases {
		if as := s.NameScore(subject.FullName, alias); as > best {
			best = as
			matchedAlias = alias
		}
	}

	sub := map[string]float64{"name": best}

	weights := nameAttrWeight
	weighted := nameAttrWeight * best

	if subject.DateOfBirth != "" && entry.DateOfBirth != "" {
		ds := dobSimilarity(subject.DateOfBirth, entry.DateOfBirth)
		sub["date_of_birth"] = ds
		weights += dobAttrWeight
		weighted += dobAttrWeight * ds
	}
	if subject.Address != "" && entry.Address != "" {
		as := tokenSetSimilarity(Normalize(subject.Address), Normalize(entry.Address))
		sub["address"] = as
		weights += addressAttrWeight
		weighted += addressAttrWeight * as
	}
	if subject.Nationality != "" && entry.Nationality != "" {
		ns := 0.0
		if strings.EqualFold(subject.Nationality, entry.Nationality) {
			ns = 1.0
		}
		sub["nationality"] = ns
		weights += nationalityAttrWeight
		weighted += nationalityAttrWeight * ns
	}

	return weighted / weights, sub, matchedAlias
}

// jaroWinkler calculates Jaro-Winkler similarity between two strings,
// between 0 (no match) and 1 (exact match).
func jaroWinkler(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	matchDistance := max(len(s1), len(s2))/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	s1Matches := make([]bool, len(s1))
	s2Matches := make([]bool, len(s2))

	matches := 0
	transpositions := 0

	for i := 0; i < len(s1); i++ {
		start := max(0, i-matchDistance)
		end := min(i+matchDistance+1, len(s2))

		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < len(s1); i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(len(s1)) +
		float64(matches)/float64(len(s2)) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0

	prefix := 0
	for i := 0; i < min(4, min(len(s1), len(s2))); i++ {
		if s1[i] == s2[i] {
			prefix++
		} else {
			break
		}
	}

	return jaro + float64(prefix)*0.1*(1.0-jaro)
}

// phoneticSimilarity compares Soundex codes of the space-stripped names.
func phoneticSimilarity(s1, s2 string) float64 {
	if soundex(strings.ReplaceAll(s1, " ", "")) == soundex(strings.ReplaceAll(s2, " ", "")) {
		return 1.0
	}
	return 0.0
}

var soundexCodes = map[byte]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// soundex produces the four-character Soundex code of a lowercase word.
func soundex(s string) string {
	if len(s) == 0 {
		return ""
	}

	result := []byte{s[0] &^ 0x20} // uppercase first letter
	var prev byte
	if c, ok := soundexCodes[s[0]]; ok {
		prev = c
	}

	for i := 1; i < len(s) && len(result) < 4; i++ {
		code, ok := soundexCodes[s[i]]
		if !ok {
			// h and w do not reset the previous code
			if s[i] != 'h' && s[i] != 'w' {
				prev = 0
			}
			continue
		}
		if code != prev {
			result = append(result, code)
			prev = code
		}
	}

	for len(result) < 4 {
		result = append(result, '0')
	}
	return string(result)
}

// tokenSetSimilarity scores names robustly against token reordering:
// each token of the first name is paired with its best Jaro-Winkler match
// in the second, and the pairings are averaged.
func tokenSetSimilarity(s1, s2 string) float64 {
	t1 := strings.Fields(s1)
	t2 := strings.Fields(s2)
	if len(t1) == 0 || len(t2) == 0 {
		return 0.0
	}

	var total float64
	for _, a := range t1 {
		best := 0.0
		for _, b := range t2 {
			if sim := jaroWinkler(a, b); sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(t1))
}

// editSimilarity converts Levenshtein distance to a similarity in [0,1].
func editSimilarity(s1, s2 string) float64 {
	maxLen := max(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(s1, s2)
	return 1.0 - float64(dist)/float64(maxLen)
}

// dobSimilarity compares ISO dates: exact match scores 1.0, matching birth
// year 0.5, anything else 0.0.
func dobSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) >= 4 && len(b) >= 4 && a[:4] == b[:4] {
		return 0.5
	}
	return 0.0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
