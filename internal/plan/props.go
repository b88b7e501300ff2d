package plan

// Props carries the kind-specific attributes of a Node. Exactly one Props
// type exists per Kind; the interface is sealed so the variant set stays
// closed.
type Props interface {
	// Kind returns the node kind these properties belong to.
	Kind() Kind

	clone() Props
}

// Join method names recorded in JoinProps.Method.
const (
	NestedLoopJoin = "nested_loop"
	HashJoin       = "hash_join"
	MergeJoin      = "merge_join"
)

// ScanProps names the table a Scan reads. Columns optionally records the
// table's column names; empty means unknown.
type ScanProps struct {
	Table   string
	Columns []string
}

func (p ScanProps) Kind() Kind { return KindScan }

func (p ScanProps) clone() Props {
	p.Columns = cloneStrings(p.Columns)
	return p
}

// FilterProps holds a Filter's predicate text.
type FilterProps struct {
	Condition string
}

func (p FilterProps) Kind() Kind   { return KindFilter }
func (p FilterProps) clone() Props { return p }

// ProjectProps lists the output columns of a Project. A single "*" keeps
// every input column unchanged.
type ProjectProps struct {
	Columns []string
}

func (p ProjectProps) Kind() Kind { return KindProject }

func (p ProjectProps) clone() Props {
	p.Columns = cloneStrings(p.Columns)
	return p
}

// JoinProps describes a Join: its type (inner, cross, ...), the ON
// condition, and the physical method once the search has picked one.
type JoinProps struct {
	Type      string
	Condition string
	Method    string

	// pinned marks a method forced by the alternative generator. The
	// estimator keeps a pinned method instead of picking the cheapest.
	pinned bool
}

func (p JoinProps) Kind() Kind   { return KindJoin }
func (p JoinProps) clone() Props { return p }

// Pin returns a copy of p with the join method forced to m.
func (p JoinProps) Pin(m string) JoinProps {
	p.Method = m
	p.pinned = true
	return p
}

// Unpin returns a copy of p with no method chosen, letting the estimator
// pick the cheapest one again.
func (p JoinProps) Unpin() JoinProps {
	p.Method = ""
	p.pinned = false
	return p
}

// IsPinned reports whether the method was forced by Pin.
func (p JoinProps) IsPinned() bool { return p.pinned }

// AggregateProps holds the grouping expression of an Aggregate.
type AggregateProps struct {
	GroupBy string
}

func (p AggregateProps) Kind() Kind   { return KindAggregate }
func (p AggregateProps) clone() Props { return p }

// SortProps holds the ordering expression of a Sort.
type SortProps struct {
	OrderBy string
}

func (p SortProps) Kind() Kind   { return KindSort }
func (p SortProps) clone() Props { return p }

// LimitProps holds the row cap of a Limit.
type LimitProps struct {
	Limit int64
}

func (p LimitProps) Kind() Kind   { return KindLimit }
func (p LimitProps) clone() Props { return p }

// propsEqual compares kind-specific attributes. The pinned flag on
// JoinProps is search bookkeeping and never participates.
func propsEqual(a, b Props) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch ap := a.(type) {
	case ScanProps:
		bp, ok := b.(ScanProps)
		return ok && ap.Table == bp.Table && stringsEqual(ap.Columns, bp.Columns)
	case FilterProps:
		bp, ok := b.(FilterProps)
		return ok && ap == bp
	case ProjectProps:
		bp, ok := b.(ProjectProps)
		return ok && stringsEqual(ap.Columns, bp.Columns)
	case JoinProps:
		bp, ok := b.(JoinProps)
		return ok && ap.Type == bp.Type && ap.Condition == bp.Condition && ap.Method == bp.Method
	case AggregateProps:
		bp, ok := b.(AggregateProps)
		return ok && ap == bp
	case SortProps:
		bp, ok := b.(SortProps)
		return ok && ap == bp
	case LimitProps:
		bp, ok := b.(LimitProps)
		return ok && ap == bp
	}
	return false
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
