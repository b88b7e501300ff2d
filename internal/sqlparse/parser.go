// Package sqlparse turns single-SELECT query text into an unoptimized
// plan tree. It is a pattern parser, not a grammar: clauses are located
// with case-insensitive regular expressions over the normalized query,
// and the tree is assembled bottom-up in clause order. It covers the
// shapes the optimizer and its tools exercise; anything else comes back
// as a ParseError.
//
// Identifier case is preserved. Conditions travel through the optimizer
// as text, and the analyzer there reads case to tell columns from
// keywords, so uppercasing here would break filter pushdown.
package sqlparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	selectRe = regexp.MustCompile(`(?i)^SELECT\s+(.+?)\s+FROM\s`)
	fromRe   = regexp.MustCompile(`(?i)\bFROM\s+(.+?)(?:\s+WHERE\s|\s+GROUP\s+BY\s|\s+HAVING\s|\s+ORDER\s+BY\s|\s+LIMIT\s|$)`)
	whereRe  = regexp.MustCompile(`(?i)\bWHERE\s+(.+?)(?:\s+GROUP\s+BY\s|\s+HAVING\s|\s+ORDER\s+BY\s|\s+LIMIT\s|$)`)
	groupRe  = regexp.MustCompile(`(?i)\bGROUP\s+BY\s+(.+?)(?:\s+HAVING\s|\s+ORDER\s+BY\s|\s+LIMIT\s|$)`)
	orderRe  = regexp.MustCompile(`(?i)\bORDER\s+BY\s+(.+?)(?:\s+LIMIT\s|$)`)
	limitRe  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)

	joinSplit = regexp.MustCompile(`(?i)\s+(INNER|LEFT|RIGHT|FULL)\s+JOIN\s+`)
	onSplit   = regexp.MustCompile(`(?i)\s+ON\s+`)
	asSplit   = regexp.MustCompile(`(?i)\s+AS\s+`)
)

// Parser parses SELECT statements. It holds no state; aliases live in a
// per-call map, so one Parser can serve concurrent calls.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse builds the plan tree for query: scans and joins from the FROM
// clause, then Filter, Aggregate, Sort, Limit, and Project stacked on
// top in that order.
func (p *Parser) Parse(query string) (*plan.Node, error) {
	normalized := normalize(query)
	if normalized == "" {
		return nil, NewParseError(query, "empty query")
	}

	selectMatch := selectRe.FindStringSubmatch(normalized)
	if selectMatch == nil {
		return nil, NewParseError(query, "expected SELECT ... FROM")
	}
	fromMatch := fromRe.FindStringSubmatch(normalized)
	if fromMatch == nil {
		return nil, NewParseError(query, "missing FROM clause")
	}

	aliases := make(map[string]string)
	root, err := p.parseFrom(query, fromMatch[1], aliases)
	if err != nil {
		return nil, err
	}

	if m := whereRe.FindStringSubmatch(normalized); m != nil {
		root = plan.NewFilter(resolveAliases(strings.TrimSpace(m[1]), aliases), root)
	}
	if m := groupRe.FindStringSubmatch(normalized); m != nil {
		root = plan.NewAggregate(strings.TrimSpace(m[1]), root)
	}
	if m := orderRe.FindStringSubmatch(normalized); m != nil {
		root = plan.NewSort(strings.TrimSpace(m[1]), root)
	}
	if m := limitRe.FindStringSubmatch(normalized); m != nil {
		limit, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, NewParseError(query, "bad LIMIT value")
		}
		root = plan.NewLimit(limit, root)
	}

	columns := splitList(selectMatch[1])
	if len(columns) == 0 {
		return nil, NewParseError(query, "empty column list")
	}
	return plan.NewProject(columns, root), nil
}

// parseFrom handles the FROM segment: a comma list of tables, followed by
// any number of keyword joins. The ON condition of each join is taken
// from the same segment part that names its right table.
func (p *Parser) parseFrom(query, segment string, aliases map[string]string) (*plan.Node, error) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return nil, NewParseError(query, "missing table name")
	}

	keywords := joinSplit.FindAllStringSubmatch(segment, -1)
	parts := joinSplit.Split(segment, -1)

	root, err := p.parseTables(query, parts[0], aliases)
	if err != nil {
		return nil, err
	}

	for i, part := range parts[1:] {
		ref, condition := splitOn(part)
		right, err := p.parseTableRef(query, ref, aliases)
		if err != nil {
			return nil, err
		}
		joinType := strings.ToLower(keywords[i][1])
		root = plan.NewJoin(joinType, resolveAliases(condition, aliases), root, right)
	}
	return root, nil
}

// parseTables turns a comma-separated table list into left-deep cross
// joins.
func (p *Parser) parseTables(query, list string, aliases map[string]string) (*plan.Node, error) {
	var root *plan.Node
	for _, ref := range strings.Split(list, ",") {
		scan, err := p.parseTableRef(query, ref, aliases)
		if err != nil {
			return nil, err
		}
		if root == nil {
			root = scan
		} else {
			root = plan.NewJoin("cross", "", root, scan)
		}
	}
	return root, nil
}

// parseTableRef parses one "table" or "table AS alias" reference. The
// scan always carries the real table name; the alias is recorded so
// conditions written against it can be resolved.
func (p *Parser) parseTableRef(query, ref string, aliases map[string]string) (*plan.Node, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, NewParseError(query, "missing table name")
	}

	parts := asSplit.Split(ref, 2)
	table := strings.TrimSpace(parts[0])
	if table == "" {
		return nil, NewParseError(query, "missing table name")
	}
	if len(parts) == 2 {
		if alias := strings.TrimSpace(parts[1]); alias != "" {
			aliases[alias] = table
		}
	}
	return plan.NewScan(table), nil
}

// splitOn separates a join part into its table reference and ON
// condition. A join without ON gets an empty condition.
func splitOn(part string) (ref, condition string) {
	pieces := onSplit.Split(part, 2)
	if len(pieces) == 2 {
		return strings.TrimSpace(pieces[0]), strings.TrimSpace(pieces[1])
	}
	return strings.TrimSpace(part), ""
}

// resolveAliases rewrites alias qualifiers in a condition to real table
// names, so "o.amount > 100" attributes to the orders scan downstream.
// Only tokens directly followed by a dot are touched; a column that
// happens to share an alias name stays as written.
func resolveAliases(condition string, aliases map[string]string) string {
	if condition == "" || len(aliases) == 0 {
		return condition
	}

	var b strings.Builder
	for i := 0; i < len(condition); {
		ch := condition[i]
		if !isWordByte(ch) {
			b.WriteByte(ch)
			i++
			continue
		}
		start := i
		for i < len(condition) && isWordByte(condition[i]) {
			i++
		}
		word := condition[start:i]
		if table, ok := aliases[word]; ok && i < len(condition) && condition[i] == '.' {
			b.WriteString(table)
		} else {
			b.WriteString(word)
		}
	}
	return b.String()
}

func isWordByte(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' || ch == '_'
}

// splitList splits a comma list and drops empty entries.
func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// normalize collapses whitespace and strips a trailing semicolon. Case is
// preserved on purpose.
func normalize(query string) string {
	normalized := strings.TrimSpace(whitespace.ReplaceAllString(query, " "))
	normalized = strings.TrimSuffix(normalized, ";")
	return strings.TrimSpace(normalized)
}
