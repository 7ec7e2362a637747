package matching

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Strategy names a string similarity algorithm
type Strategy string

const (
	StrategyJaroWinkler Strategy = "jaro_winkler"
	StrategyTokenSet    Strategy = "token_set"
	StrategyLevenshtein Strategy = "levenshtein"
)

// SimilarityFunc returns a similarity in [0, 1] for two normalized strings
type SimilarityFunc func(a, b string) float64

// Scorer picks and runs the similarity strategy for an identifier kind.
// The dispatch tables are built once in NewScorer and only read afterwards.
type Scorer struct {
	kindStrategies map[models.IdentifierKind]Strategy
	byKind         map[models.IdentifierKind]SimilarityFunc
	fallback       Strategy
	fallbackFunc   SimilarityFunc
}

// strategyFuncs maps each strategy to its implementation
var strategyFuncs = map[Strategy]SimilarityFunc{
	StrategyJaroWinkler: JaroWinkler,
	StrategyTokenSet:    TokenSet,
	StrategyLevenshtein: Levenshtein,
}

// NewScorer creates a Scorer with the default strategies: name-like kinds use
// Jaro-Winkler, addresses use token set and every other kind uses Levenshtein
func NewScorer() *Scorer {
	kindStrategies := map[models.IdentifierKind]Strategy{
		models.KindName:         StrategyJaroWinkler,
		models.KindOrganization: StrategyJaroWinkler,
		models.KindAlias:        StrategyJaroWinkler,
		models.KindAddress:      StrategyTokenSet,
	}
	byKind := make(map[models.IdentifierKind]SimilarityFunc, len(kindStrategies))
	for kind, strategy := range kindStrategies {
		byKind[kind] = strategyFuncs[strategy]
	}
	return &Scorer{
		kindStrategies: kindStrategies,
		byKind:         byKind,
		fallback:       StrategyLevenshtein,
		fallbackFunc:   strategyFuncs[StrategyLevenshtein],
	}
}

// StrategyFor returns the strategy used for a kind
func (s *Scorer) StrategyFor(kind models.IdentifierKind) Strategy {
	if strategy, ok := s.kindStrategies[kind]; ok {
		return strategy
	}
	return s.fallback
}

// Similarity compares two values of the given kind
func (s *Scorer) Similarity(kind models.IdentifierKind, a, b string) float64 {
	if a == b {
		return 1.0
	}
	if fn, ok := s.byKind[kind]; ok {
		return fn(a, b)
	}
	return s.fallbackFunc(a, b)
}

// JaroWinkler returns the Jaro-Winkler similarity
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}

// Levenshtein returns 1 - edit distance / longer length, counted in runes
func Levenshtein(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// TokenSet compares two strings as sets of words so reordered or partially
// repeated tokens ("main st 12" vs "12 main st") still score high
func TokenSet(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	var common, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Levenshtein(withA, withB)
	if base != "" {
		best = max(best, Levenshtein(base, withA), Levenshtein(base, withB))
	}
	return best
}

func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, t := range strings.Fields(s) {
		out[t] = true
	}
	return out
}

// PhoneticEqual reports whether every token of a and b shares a Double
// Metaphone code, position by position
func PhoneticEqual(a, b string) bool {
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) == 0 || len(ta) != len(tb) {
		return false
	}
	for i := range ta {
		pa, sa := matchr.DoubleMetaphone(ta[i])
		pb, sb := matchr.DoubleMetaphone(tb[i])
		if pa == "" || pb == "" {
			return false
		}
		if pa != pb && pa != sb && sa != pb {
			return false
		}
	}
	return true
}
