// Package condition analyzes predicate text for the optimizer: which
// identifiers a condition mentions, how selective it is, and whether it
// expresses an equi-join. The analysis is deliberately token-based and
// approximate; it is a seam, so a real expression parser could replace it
// without touching the optimizer passes.
package condition

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	pair "github.com/notEpsilon/go-pair"
)

// Analyzer inspects predicate text on behalf of the rewrite and search
// passes.
type Analyzer interface {
	// Identifiers returns every identifier token in the condition, in
	// order, including keywords and table qualifiers.
	Identifiers(condition string) []string

	// Columns returns the candidate column names: alphabetic identifiers
	// that are not reserved words and not written in all caps.
	Columns(condition string) mapset.Set[string]

	// Clauses splits a conjunction into its AND-separated parts.
	Clauses(condition string) []string

	// Selectivity estimates the fraction of rows the condition retains.
	Selectivity(condition string) float64

	// EquiJoin reports whether the condition contains an equality and
	// returns its two sides, best effort.
	EquiJoin(condition string) (pair.Pair[string, string], bool)

	// Conjoin combines two conditions into one conjunction.
	Conjoin(a, b string) string

	// IsNoOp reports whether the condition filters nothing.
	IsNoOp(condition string) bool
}

// Per-clause selectivity estimates. The floor keeps long conjunctions
// from collapsing to vanishing row counts.
const (
	equalitySelectivity = 0.1
	rangeSelectivity    = 0.3
	likeSelectivity     = 0.5
	defaultSelectivity  = 0.8
	minSelectivity      = 0.01
)

var (
	reserved = mapset.NewSet("AND", "OR", "NOT", "LIKE", "IN", "BETWEEN", "NULL")

	andSplit = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// TokenAnalyzer is the Analyzer the optimizer ships with. It never parses
// expressions; it scans identifier tokens and matches operator substrings.
type TokenAnalyzer struct{}

func (TokenAnalyzer) Identifiers(condition string) []string {
	var ids []string
	for i := 0; i < len(condition); {
		ch := condition[i]
		if isLetter(ch) {
			start := i
			for i < len(condition) && (isLetter(condition[i]) || isDigit(condition[i])) {
				i++
			}
			ids = append(ids, condition[start:i])
			continue
		}
		if isDigit(ch) {
			// A word starting with a digit is a number, not an
			// identifier. Consume the whole run so "100abc" does not
			// leak a bogus "abc" token.
			for i < len(condition) && (isLetter(condition[i]) || isDigit(condition[i])) {
				i++
			}
			continue
		}
		i++
	}
	return ids
}

func (a TokenAnalyzer) Columns(condition string) mapset.Set[string] {
	columns := mapset.NewSet[string]()
	for _, word := range a.Identifiers(condition) {
		if reserved.Contains(strings.ToUpper(word)) {
			continue
		}
		if isAlphabetic(word) && !isAllUpper(word) {
			columns.Add(word)
		}
	}
	return columns
}

func (TokenAnalyzer) Clauses(condition string) []string {
	return andSplit.Split(condition, -1)
}

// Selectivity classifies each AND-clause by its operator and multiplies
// the per-clause estimates. Range operators are checked before equality
// so ">=" and "<=" count as ranges.
func (a TokenAnalyzer) Selectivity(condition string) float64 {
	if condition == "" {
		return 1.0
	}

	selectivity := 1.0
	for _, clause := range a.Clauses(condition) {
		switch {
		case strings.ContainsAny(clause, "<>"):
			selectivity *= rangeSelectivity
		case strings.Contains(clause, "="):
			selectivity *= equalitySelectivity
		case strings.Contains(strings.ToUpper(clause), "LIKE"):
			selectivity *= likeSelectivity
		default:
			selectivity *= defaultSelectivity
		}
	}

	if selectivity < minSelectivity {
		return minSelectivity
	}
	return selectivity
}

// EquiJoin keys off the presence of "=" alone, so a ">=" comparison also
// reports true. The join cardinality estimate depends on that exact rule.
func (TokenAnalyzer) EquiJoin(condition string) (pair.Pair[string, string], bool) {
	if !strings.Contains(condition, "=") {
		return pair.Pair[string, string]{}, false
	}

	parts := strings.SplitN(condition, "=", 2)
	return pair.Pair[string, string]{
		First:  strings.TrimSpace(parts[0]),
		Second: strings.TrimSpace(parts[1]),
	}, true
}

func (TokenAnalyzer) Conjoin(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " AND " + b
}

// IsNoOp treats the empty condition, TRUE, and 1=1 as filtering nothing.
func (TokenAnalyzer) IsNoOp(condition string) bool {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true
	}
	if strings.EqualFold(trimmed, "TRUE") {
		return true
	}
	return strings.ReplaceAll(trimmed, " ", "") == "1=1"
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

// isAlphabetic reports whether the word is letters only. Underscored
// names like customer_id do not qualify as candidate columns.
func isAlphabetic(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if !('a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z') {
			return false
		}
	}
	return true
}

func isAllUpper(word string) bool {
	return word == strings.ToUpper(word)
}
