package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

func testProvider() *stats.MemoryProvider {
	p := stats.NewMemoryProvider()
	p.Register("orders", plan.Statistics{RowCount: 1000, DistinctCount: 50, DataSize: 64000},
		"id", "customer_id", "amount", "status")
	p.Register("customers", plan.Statistics{RowCount: 500, DistinctCount: 500, DataSize: 32000},
		"id", "name", "email")
	p.Register("a", plan.Statistics{RowCount: 100, DistinctCount: 100})
	p.Register("b", plan.Statistics{RowCount: 10, DistinctCount: 10})
	p.Register("c", plan.Statistics{RowCount: 500, DistinctCount: 200})
	return p
}

func estimate(t *testing.T, tree *plan.Node) *plan.Node {
	t.Helper()
	got, err := NewEstimator(testProvider()).Estimate(context.Background(), tree)
	require.NoError(t, err)
	return got
}

func TestEstimateScan(t *testing.T) {
	got := estimate(t, plan.NewScan("orders"))

	require.Equal(t, int64(1000), got.EstimatedRows)
	require.Equal(t, 100.0, got.EstimatedCost)
	require.Equal(t, int64(50), got.Stats.DistinctCount)
}

func TestEstimateUnknownTableFails(t *testing.T) {
	tree := plan.NewJoin("inner", "customer_id = id",
		plan.NewScan("orders"), plan.NewScan("ghost"))

	got, err := NewEstimator(testProvider()).Estimate(context.Background(), tree)

	require.Error(t, err)
	require.True(t, stats.IsNotFound(err), "expected a not-found error, got %v", err)
	require.Nil(t, got, "no partial tree on failure")
}

func TestEstimateFilter(t *testing.T) {
	tests := []struct {
		name         string
		condition    string
		expectedRows int64
		expectedCost float64
	}{
		{"range", "amount > 100", 300, 103.0},
		{"equality", "status = 'open'", 100, 101.0},
		{"pattern", "status LIKE 'o%'", 500, 105.0},
		{"default", "flag", 800, 108.0},
		{"conjunction", "status = 'open' AND amount > 100", 30, 100.3},
		{"clamped floor", "a = 1 AND b = 2 AND c = 3 AND d = 4 AND e = 5", 10, 100.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimate(t, plan.NewFilter(tt.condition, plan.NewScan("orders")))

			require.Equal(t, tt.expectedRows, got.EstimatedRows)
			require.InDelta(t, tt.expectedCost, got.EstimatedCost, 1e-9)
		})
	}
}

func TestEstimateFilterPropagatesStatistics(t *testing.T) {
	got := estimate(t, plan.NewFilter("amount > 100", plan.NewScan("orders")))

	// The supplying scan's statistics ride up so a join above the filter
	// still sees the distinct count.
	require.Equal(t, int64(1000), got.Stats.RowCount)
	require.Equal(t, int64(50), got.Stats.DistinctCount)
}

func TestEstimateFilterRowFloor(t *testing.T) {
	p := stats.NewMemoryProvider()
	p.Register("tiny", plan.Statistics{RowCount: 2, DistinctCount: 2})

	tree := plan.NewFilter("a = 1 AND b = 2 AND c = 3", plan.NewScan("tiny"))
	got, err := NewEstimator(p).Estimate(context.Background(), tree)
	require.NoError(t, err)

	// 2 rows x 0.01 clamped selectivity rounds to 0; the floor keeps it
	// at one row.
	require.Equal(t, int64(1), got.EstimatedRows)
}

func TestJoinMethodFormulas(t *testing.T) {
	// The concrete ranking fixture: 100 x 10 rows.
	require.InDelta(t, 10.0, joinMethodCost(plan.NestedLoopJoin, 100, 10), 1e-9)
	require.InDelta(t, 11.0, joinMethodCost(plan.HashJoin, 100, 10), 1e-9)
	require.InDelta(t, 10.3549, joinMethodCost(plan.MergeJoin, 100, 10), 1e-3)

	method, cost := cheapestJoinMethod(100, 10)
	require.Equal(t, plan.NestedLoopJoin, method)
	require.InDelta(t, 10.0, cost, 1e-9)
}

func TestEstimateJoinPicksNestedLoopWhenSmall(t *testing.T) {
	got := estimate(t, plan.NewJoin("cross", "", plan.NewScan("a"), plan.NewScan("b")))

	require.Equal(t, plan.NestedLoopJoin, got.Props.(plan.JoinProps).Method)
	require.Equal(t, int64(1000), got.EstimatedRows)
	// Scan costs 10 + 1 plus the nested loop's 10.
	require.InDelta(t, 21.0, got.EstimatedCost, 1e-9)
}

func TestEstimateJoinPicksHashWhenLarge(t *testing.T) {
	got := estimate(t, plan.NewJoin("inner", "customer_id = id",
		plan.NewScan("orders"), plan.NewScan("customers")))

	require.Equal(t, plan.HashJoin, got.Props.(plan.JoinProps).Method)
	// Scan costs 100 + 50 plus the hash join's (1000+500) x 0.1.
	require.InDelta(t, 300.0, got.EstimatedCost, 1e-9)
}

func TestEquiJoinCardinality(t *testing.T) {
	// 1000 x 500 divided by min(50, 200).
	got := estimate(t, plan.NewJoin("inner", "customer_id = id",
		plan.NewScan("orders"), plan.NewScan("c")))

	require.Equal(t, int64(10000), got.EstimatedRows)
}

func TestCrossJoinCardinalityFallback(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"empty condition", ""},
		{"no equality", "amount < credit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimate(t, plan.NewJoin("cross", tt.condition,
				plan.NewScan("orders"), plan.NewScan("customers")))

			require.Equal(t, int64(500000), got.EstimatedRows)
		})
	}
}

func TestJoinAboveJoinFloorsDistinct(t *testing.T) {
	// The left side is itself a join, so no scan statistics reach the
	// outer join; the divisor floors at one and the estimate degrades to
	// the full product.
	inner := plan.NewJoin("cross", "", plan.NewScan("a"), plan.NewScan("b"))
	got := estimate(t, plan.NewJoin("inner", "x = y", inner, plan.NewScan("c")))

	require.Equal(t, int64(500000), got.EstimatedRows) // 1000 x 500 / 1
}

func TestEstimatePinnedJoinMethod(t *testing.T) {
	join := plan.NewJoin("cross", "", plan.NewScan("a"), plan.NewScan("b"))
	join.Props = join.Props.(plan.JoinProps).Pin(plan.MergeJoin)

	got := estimate(t, join)

	require.Equal(t, plan.MergeJoin, got.Props.(plan.JoinProps).Method)
	// 10 + 1 scan cost plus the merge join's 10.3549.
	require.InDelta(t, 21.3549, got.EstimatedCost, 1e-3)
}

func TestEstimateProject(t *testing.T) {
	got := estimate(t, plan.NewProject([]string{"id", "amount"}, plan.NewScan("orders")))

	require.Equal(t, int64(1000), got.EstimatedRows)
	require.InDelta(t, 101.0, got.EstimatedCost, 1e-9) // 100 + 1000 x 0.001
	require.Equal(t, int64(50), got.Stats.DistinctCount)
}

func TestEstimatePassThroughKinds(t *testing.T) {
	build := []struct {
		name string
		node func(child *plan.Node) *plan.Node
	}{
		{"aggregate", func(c *plan.Node) *plan.Node { return plan.NewAggregate("status", c) }},
		{"sort", func(c *plan.Node) *plan.Node { return plan.NewSort("amount DESC", c) }},
		{"limit", func(c *plan.Node) *plan.Node { return plan.NewLimit(10, c) }},
	}

	for _, tt := range build {
		t.Run(tt.name, func(t *testing.T) {
			got := estimate(t, tt.node(plan.NewFilter("amount > 100", plan.NewScan("orders"))))

			// No formula of their own: rows, cost, and statistics come
			// straight from the input.
			require.Equal(t, int64(300), got.EstimatedRows)
			require.InDelta(t, 103.0, got.EstimatedCost, 1e-9)
			require.Equal(t, int64(50), got.Stats.DistinctCount)
		})
	}
}

func TestEstimateLeavesInputIntact(t *testing.T) {
	in := plan.NewFilter("amount > 100", plan.NewScan("orders"))

	_, err := NewEstimator(testProvider()).Estimate(context.Background(), in)
	require.NoError(t, err)

	require.Zero(t, in.EstimatedRows)
	require.Zero(t, in.EstimatedCost)
	require.True(t, in.Children[0].Stats.Zero())
}

// countingProvider wraps a provider and counts lookups per table.
type countingProvider struct {
	inner   stats.Provider
	lookups map[string]int
}

func (c *countingProvider) GetTableStats(ctx context.Context, table string) (plan.Statistics, error) {
	c.lookups[table]++
	return c.inner.GetTableStats(ctx, table)
}

func TestEstimatorCachesTableLookups(t *testing.T) {
	counting := &countingProvider{inner: testProvider(), lookups: make(map[string]int)}
	est := NewEstimator(counting)

	// Same table scanned on both sides of a self join.
	tree := plan.NewJoin("cross", "", plan.NewScan("orders"), plan.NewScan("orders"))
	_, err := est.Estimate(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, 1, counting.lookups["orders"])

	// Re-estimating through the same estimator stays served by the cache.
	_, err = est.Estimate(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, 1, counting.lookups["orders"])
}
