package rewrite

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/condition"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

// Rule transforms a single node after its children have been rewritten.
// Apply returns the replacement and true, or the input node and false.
type Rule interface {
	Name() string
	Apply(node *plan.Node) (*plan.Node, bool)
}

// DefaultRules returns the rule set in application order. Order matters:
// the first rule that changes a node wins that node for the pass.
func DefaultRules(analyzer condition.Analyzer) []Rule {
	return []Rule{
		pushFiltersDown{analyzer: analyzer},
		eliminateRedundantFilters{analyzer: analyzer},
		mergeFilters{analyzer: analyzer},
		reorderJoins{},
		pushProjectsDown{analyzer: analyzer},
		eliminateRedundantProjects{},
	}
}

// pushFiltersDown moves a Filter below a Join when every column it
// references belongs to exactly one side, and below a Project always,
// since projections pass columns through unchanged.
type pushFiltersDown struct {
	analyzer condition.Analyzer
}

func (pushFiltersDown) Name() string { return "push_filters_down" }

func (r pushFiltersDown) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindFilter || len(node.Children) != 1 {
		return node, false
	}

	cond := node.Props.(plan.FilterProps).Condition
	child := node.Children[0]

	switch child.Kind {
	case plan.KindJoin:
		return r.pushThroughJoin(node, child, cond)
	case plan.KindProject:
		inner := plan.NewFilter(cond, child.Children[0])
		return child.WithChildren(inner), true
	}

	// A Filter over a Scan or Aggregate is already as low as it goes.
	return node, false
}

func (r pushFiltersDown) pushThroughJoin(filter, join *plan.Node, cond string) (*plan.Node, bool) {
	left, right := join.Children[0], join.Children[1]

	leftClaims := r.claims(cond, left)
	rightClaims := r.claims(cond, right)

	switch {
	case leftClaims && !rightClaims:
		return join.WithChildren(plan.NewFilter(cond, left), right), true
	case rightClaims && !leftClaims:
		return join.WithChildren(left, plan.NewFilter(cond, right)), true
	}

	// Both sides or neither: attribution is ambiguous, leave the filter
	// where it is.
	return filter, false
}

// claims reports whether a join side can absorb the filter. The side
// must be a Scan and either be named in the condition (qualified
// references like "orders.amount") or be known to own every candidate
// column the condition mentions.
func (r pushFiltersDown) claims(cond string, side *plan.Node) bool {
	if side.Kind != plan.KindScan {
		return false
	}
	props := side.Props.(plan.ScanProps)
	if props.Table == "" {
		return false
	}

	for _, id := range r.analyzer.Identifiers(cond) {
		if id == props.Table {
			return true
		}
	}

	candidates := r.analyzer.Columns(cond)
	if candidates.Cardinality() == 0 || len(props.Columns) == 0 {
		return false
	}
	return candidates.IsSubset(mapset.NewSet(props.Columns...))
}

// eliminateRedundantFilters drops a Filter whose condition admits every
// row.
type eliminateRedundantFilters struct {
	analyzer condition.Analyzer
}

func (eliminateRedundantFilters) Name() string { return "eliminate_redundant_filters" }

func (r eliminateRedundantFilters) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindFilter || len(node.Children) != 1 {
		return node, false
	}
	if !r.analyzer.IsNoOp(node.Props.(plan.FilterProps).Condition) {
		return node, false
	}
	return node.Children[0], true
}

// mergeFilters collapses two directly stacked Filters into one
// conjunction.
type mergeFilters struct {
	analyzer condition.Analyzer
}

func (mergeFilters) Name() string { return "merge_filters" }

func (r mergeFilters) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindFilter || len(node.Children) != 1 {
		return node, false
	}
	child := node.Children[0]
	if child.Kind != plan.KindFilter || len(child.Children) != 1 {
		return node, false
	}

	outer := node.Props.(plan.FilterProps).Condition
	inner := child.Props.(plan.FilterProps).Condition
	return plan.NewFilter(r.analyzer.Conjoin(outer, inner), child.Children[0]), true
}

// reorderJoins swaps join inputs when the left side is estimated to be
// more than ten times larger than the right. Row estimates may be stale
// or zero before the cost pass; the swap is best effort and the search
// re-validates the order against actual costs later.
type reorderJoins struct{}

func (reorderJoins) Name() string { return "reorder_joins" }

func (reorderJoins) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindJoin || len(node.Children) != 2 {
		return node, false
	}

	left, right := node.Children[0], node.Children[1]
	if left.EstimatedRows > right.EstimatedRows*10 {
		return node.WithChildren(right, left), true
	}
	return node, false
}

// pushProjectsDown moves a Project below a Limit unconditionally, and
// below a Sort when the sort's columns survive the projection.
type pushProjectsDown struct {
	analyzer condition.Analyzer
}

func (pushProjectsDown) Name() string { return "push_projects_down" }

func (r pushProjectsDown) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindProject || len(node.Children) != 1 {
		return node, false
	}
	child := node.Children[0]

	switch child.Kind {
	case plan.KindLimit:
		// A limit references no columns; the projection can always run
		// first.
	case plan.KindSort:
		props := node.Props.(plan.ProjectProps)
		if !keepsAll(props.Columns) {
			ordered := r.analyzer.Columns(child.Props.(plan.SortProps).OrderBy)
			if !ordered.IsSubset(mapset.NewSet(props.Columns...)) {
				return node, false
			}
		}
	default:
		return node, false
	}

	pushed := node.WithChildren(child.Children[0])
	return child.WithChildren(pushed), true
}

// eliminateRedundantProjects drops a Project that keeps every column.
type eliminateRedundantProjects struct{}

func (eliminateRedundantProjects) Name() string { return "eliminate_redundant_projects" }

func (eliminateRedundantProjects) Apply(node *plan.Node) (*plan.Node, bool) {
	if node.Kind != plan.KindProject || len(node.Children) != 1 {
		return node, false
	}
	if !keepsAll(node.Props.(plan.ProjectProps).Columns) {
		return node, false
	}
	return node.Children[0], true
}

// keepsAll reports whether a projection passes every column through:
// no columns listed, or a single "*".
func keepsAll(columns []string) bool {
	if len(columns) == 0 {
		return true
	}
	return len(columns) == 1 && strings.TrimSpace(columns[0]) == "*"
}
