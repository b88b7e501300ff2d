// Package search is the cost-based half of the optimizer. It annotates a
// plan tree with statistics-derived row counts and costs, then explores a
// small set of physical alternatives per join, keeping the cheapest.
package search

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/condition"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

// Unit costs of the model. Scans pay I/O per row, filters and projections
// pay CPU per row, and each join method has its own formula built from
// these units.
const (
	ScanIOCostPerRow    = 0.1
	FilterCPUCostPerRow = 0.01
	ProjectCostPerRow   = 0.001

	NestedLoopCostPerRowPair = 0.01
	HashJoinCostPerRow       = 0.1
	MergeJoinSortCostFactor  = 0.01
	MergeJoinMergeCostPerRow = 0.05
)

// JoinMethods lists the physical join algorithms in declaration order,
// which is also the order ties are broken in.
var JoinMethods = [...]string{plan.NestedLoopJoin, plan.HashJoin, plan.MergeJoin}

// Estimator walks a plan tree bottom-up and returns a freshly built copy
// annotated with estimated rows, costs, and propagated statistics. The
// input tree is never touched.
//
// An Estimator caches table statistics for its lifetime so re-costing
// join alternatives does not hit the provider again. Create one per
// optimization call; statistics may change between calls.
type Estimator struct {
	provider stats.Provider
	analyzer condition.Analyzer
	tables   map[string]plan.Statistics
}

// NewEstimator returns an Estimator over the given provider, using the
// default token-based condition analyzer.
func NewEstimator(provider stats.Provider) *Estimator {
	return NewEstimatorWithAnalyzer(provider, condition.TokenAnalyzer{})
}

// NewEstimatorWithAnalyzer lets callers swap in their own condition
// analyzer.
func NewEstimatorWithAnalyzer(provider stats.Provider, analyzer condition.Analyzer) *Estimator {
	return &Estimator{
		provider: provider,
		analyzer: analyzer,
		tables:   make(map[string]plan.Statistics),
	}
}

// Estimate annotates the tree rooted at node. An unknown table fails the
// whole pass with the provider's not-found error; a silent zero-row
// default would poison every ancestor's cost comparison.
//
// Callers hand Estimate a tree that already passed plan.Validate; child
// counts per kind are assumed, not rechecked.
func (e *Estimator) Estimate(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	switch node.Kind {
	case plan.KindScan:
		return e.estimateScan(ctx, node)
	case plan.KindFilter:
		return e.estimateFilter(ctx, node)
	case plan.KindJoin:
		return e.estimateJoin(ctx, node)
	case plan.KindProject:
		return e.estimateProject(ctx, node)
	default:
		// Aggregate, Sort, and Limit carry no cost formula of their own;
		// rows, cost, and statistics pass through from the input.
		child, err := e.Estimate(ctx, node.Children[0])
		if err != nil {
			return nil, err
		}
		out := node.WithChildren(child)
		out.EstimatedRows = child.EstimatedRows
		out.EstimatedCost = child.EstimatedCost
		out.Stats = child.Stats
		return out, nil
	}
}

func (e *Estimator) estimateScan(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	table := node.Props.(plan.ScanProps).Table
	tableStats, err := e.tableStats(ctx, table)
	if err != nil {
		return nil, err
	}

	out := node.WithChildren()
	out.Stats = tableStats
	out.EstimatedRows = tableStats.RowCount
	out.EstimatedCost = float64(tableStats.RowCount) * ScanIOCostPerRow
	return out, nil
}

func (e *Estimator) estimateFilter(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	child, err := e.Estimate(ctx, node.Children[0])
	if err != nil {
		return nil, err
	}

	selectivity := e.analyzer.Selectivity(node.Props.(plan.FilterProps).Condition)

	out := node.WithChildren(child)
	out.EstimatedRows = clampRows(float64(child.EstimatedRows) * selectivity)
	out.EstimatedCost = child.EstimatedCost + float64(out.EstimatedRows)*FilterCPUCostPerRow
	out.Stats = child.Stats
	return out, nil
}

func (e *Estimator) estimateJoin(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	left, err := e.Estimate(ctx, node.Children[0])
	if err != nil {
		return nil, err
	}
	right, err := e.Estimate(ctx, node.Children[1])
	if err != nil {
		return nil, err
	}

	props := node.Props.(plan.JoinProps)

	method := props.Method
	var methodCost float64
	if props.IsPinned() && method != "" {
		// The alternative generator forced this method; cost it as asked
		// instead of picking the cheapest.
		methodCost = joinMethodCost(method, left.EstimatedRows, right.EstimatedRows)
	} else {
		method, methodCost = cheapestJoinMethod(left.EstimatedRows, right.EstimatedRows)
	}
	props.Method = method

	out := node.WithChildren(left, right)
	out.Props = props
	out.EstimatedRows = clampRows(e.joinCardinality(props.Condition, left, right))
	out.EstimatedCost = left.EstimatedCost + right.EstimatedCost + methodCost
	// A join has no single supplying scan; its statistics stay zero.
	return out, nil
}

func (e *Estimator) estimateProject(ctx context.Context, node *plan.Node) (*plan.Node, error) {
	child, err := e.Estimate(ctx, node.Children[0])
	if err != nil {
		return nil, err
	}

	out := node.WithChildren(child)
	out.EstimatedRows = child.EstimatedRows
	out.EstimatedCost = child.EstimatedCost + float64(child.EstimatedRows)*ProjectCostPerRow
	out.Stats = child.Stats
	return out, nil
}

// joinCardinality estimates the join's output size. Without an equality
// in the condition the join degenerates to a cross product; the cost
// formulas then penalize it naturally during selection. For equi-joins
// the estimate divides by the smaller distinct count carried up from the
// supplying scans, flooring at one when a side has no statistics (a join
// of joins, for example).
func (e *Estimator) joinCardinality(cond string, left, right *plan.Node) float64 {
	leftRows := float64(left.EstimatedRows)
	rightRows := float64(right.EstimatedRows)

	if _, ok := e.analyzer.EquiJoin(cond); !ok {
		return leftRows * rightRows
	}

	minDistinct := left.Stats.DistinctCount
	if right.Stats.DistinctCount < minDistinct {
		minDistinct = right.Stats.DistinctCount
	}
	if minDistinct < 1 {
		minDistinct = 1
	}

	return leftRows * rightRows / float64(minDistinct)
}

func (e *Estimator) tableStats(ctx context.Context, table string) (plan.Statistics, error) {
	if cached, ok := e.tables[table]; ok {
		return cached, nil
	}

	tableStats, err := e.provider.GetTableStats(ctx, table)
	if err != nil {
		return plan.Statistics{}, errors.Wrapf(err, "estimating scan of %s", table)
	}

	e.tables[table] = tableStats
	return tableStats, nil
}

// joinMethodCost evaluates one method's formula for the given input row
// counts.
func joinMethodCost(method string, leftRows, rightRows int64) float64 {
	l, r := float64(leftRows), float64(rightRows)

	switch method {
	case plan.NestedLoopJoin:
		return l * r * NestedLoopCostPerRowPair
	case plan.HashJoin:
		return (l + r) * HashJoinCostPerRow
	case plan.MergeJoin:
		sortCost := l*math.Log(l+1)*MergeJoinSortCostFactor + r*math.Log(r+1)*MergeJoinSortCostFactor
		return sortCost + (l+r)*MergeJoinMergeCostPerRow
	}
	return math.Inf(1)
}

// cheapestJoinMethod picks the minimum-cost method; ties keep the
// earliest in JoinMethods order.
func cheapestJoinMethod(leftRows, rightRows int64) (string, float64) {
	best := JoinMethods[0]
	bestCost := joinMethodCost(best, leftRows, rightRows)

	for _, method := range JoinMethods[1:] {
		if cost := joinMethodCost(method, leftRows, rightRows); cost < bestCost {
			best, bestCost = method, cost
		}
	}
	return best, bestCost
}

// clampRows rounds an estimate to whole rows with a floor of one. Any
// operator that has been estimated produces at least one row; zero would
// zero out every product above it.
func clampRows(estimate float64) int64 {
	rounded := math.Round(estimate)
	if rounded < 1 {
		return 1
	}
	return int64(rounded)
}
