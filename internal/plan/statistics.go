package plan

// Statistics describes one table as reported by a statistics provider.
// The estimator reads RowCount and DistinctCount; the remaining fields
// ride along for tooling and rendering.
type Statistics struct {
	RowCount      int64
	DistinctCount int64
	NullCount     int64
	MinVal        string
	MaxVal        string
	DataSize      int64
}

// Zero reports whether no statistics were attached.
func (s Statistics) Zero() bool {
	return s == (Statistics{})
}

// LogicalPlan pairs a fully optimized tree with its total estimated cost.
type LogicalPlan struct {
	Root      *Node
	TotalCost float64
}
