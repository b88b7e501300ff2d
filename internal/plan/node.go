// Package plan defines the logical plan tree the optimizer works on.
//
// A plan is a tree of Nodes. Optimization passes never mutate a node that
// is already part of a tree; they build replacement nodes and reattach
// children, so a subtree handed to another component stays stable.
package plan

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the relational operator a Node represents. The set is
// closed; Validate rejects anything else.
type Kind int

const (
	KindScan Kind = iota
	KindFilter
	KindProject
	KindJoin
	KindAggregate
	KindSort
	KindLimit
)

var kindNames = [...]string{"Scan", "Filter", "Project", "Join", "Aggregate", "Sort", "Limit"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// arity returns the child count a kind requires: 0 for Scan, 2 for Join,
// 1 for everything else.
func (k Kind) arity() int {
	switch k {
	case KindScan:
		return 0
	case KindJoin:
		return 2
	default:
		return 1
	}
}

// Node is a single operator in a logical plan tree.
//
// EstimatedCost, EstimatedRows, and Stats start at zero and are filled in
// together by the cost estimation pass. They never participate in
// structural equality, so an estimated tree still equals its unestimated
// twin.
type Node struct {
	Kind     Kind
	Props    Props
	Children []*Node

	EstimatedCost float64
	EstimatedRows int64

	// Stats holds the table statistics backing the row estimates. Scans
	// get them from the provider; single-input operators carry their
	// child's copy upward. Joins keep the zero value.
	Stats Statistics

	// ID names this node instance in logs and rendered output. Copies
	// and rebuilt nodes get fresh IDs; nothing compares IDs.
	ID uuid.UUID
}

func newNode(kind Kind, props Props, children ...*Node) *Node {
	return &Node{
		Kind:     kind,
		Props:    props,
		Children: children,
		ID:       uuid.New(),
	}
}

// NewScan returns a leaf node reading table.
func NewScan(table string) *Node {
	return newNode(KindScan, ScanProps{Table: table})
}

// NewScanWithColumns returns a scan that also records the table's column
// names. Column metadata is what lets filter pushdown attribute an
// unqualified predicate to one side of a join.
func NewScanWithColumns(table string, columns []string) *Node {
	return newNode(KindScan, ScanProps{Table: table, Columns: cloneStrings(columns)})
}

// NewFilter wraps child with a predicate.
func NewFilter(condition string, child *Node) *Node {
	return newNode(KindFilter, FilterProps{Condition: condition}, child)
}

// NewProject wraps child with a column projection.
func NewProject(columns []string, child *Node) *Node {
	return newNode(KindProject, ProjectProps{Columns: cloneStrings(columns)}, child)
}

// NewJoin combines two inputs. The physical method stays empty until the
// cost-based search picks one.
func NewJoin(joinType, condition string, left, right *Node) *Node {
	return newNode(KindJoin, JoinProps{Type: joinType, Condition: condition}, left, right)
}

// NewAggregate groups child rows by the given expression.
func NewAggregate(groupBy string, child *Node) *Node {
	return newNode(KindAggregate, AggregateProps{GroupBy: groupBy}, child)
}

// NewSort orders child rows by the given expression.
func NewSort(orderBy string, child *Node) *Node {
	return newNode(KindSort, SortProps{OrderBy: orderBy}, child)
}

// NewLimit caps the number of rows flowing out of child.
func NewLimit(limit int64, child *Node) *Node {
	return newNode(KindLimit, LimitProps{Limit: limit}, child)
}

// WithChildren returns a copy of n holding the given children. The copy
// keeps n's kind and properties but none of its estimates: a node built
// from new inputs has not been costed yet.
func (n *Node) WithChildren(children ...*Node) *Node {
	return newNode(n.Kind, cloneProps(n.Props), children...)
}

// WithProps returns a copy of n carrying different properties and the
// same children. Like WithChildren, the copy is uncosted.
func (n *Node) WithProps(props Props) *Node {
	return newNode(n.Kind, props, n.Children...)
}

// Clone returns a deep copy of the tree rooted at n. Estimates and
// statistics are preserved; every node gets a fresh ID.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:          n.Kind,
		Props:         cloneProps(n.Props),
		EstimatedCost: n.EstimatedCost,
		EstimatedRows: n.EstimatedRows,
		Stats:         n.Stats,
		ID:            uuid.New(),
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports structural equality: same kinds, same properties, same
// child structure. Estimates, statistics, and IDs never participate.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || !propsEqual(a.Props, b.Props) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Label renders the operator with its defining attributes, for logs and
// tree printouts. Examples: "Scan(orders)", "Join(inner, a = b, hash_join)".
func (n *Node) Label() string {
	switch p := n.Props.(type) {
	case ScanProps:
		return fmt.Sprintf("Scan(%s)", p.Table)
	case FilterProps:
		return fmt.Sprintf("Filter(%s)", p.Condition)
	case ProjectProps:
		return fmt.Sprintf("Project(%s)", strings.Join(p.Columns, ", "))
	case JoinProps:
		parts := make([]string, 0, 3)
		if p.Type != "" {
			parts = append(parts, p.Type)
		}
		if p.Condition != "" {
			parts = append(parts, p.Condition)
		}
		if p.Method != "" {
			parts = append(parts, p.Method)
		}
		return fmt.Sprintf("Join(%s)", strings.Join(parts, ", "))
	case AggregateProps:
		return fmt.Sprintf("Aggregate(%s)", p.GroupBy)
	case SortProps:
		return fmt.Sprintf("Sort(%s)", p.OrderBy)
	case LimitProps:
		return fmt.Sprintf("Limit(%d)", p.Limit)
	}
	return n.Kind.String()
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneProps(p Props) Props {
	if p == nil {
		return nil
	}
	return p.clone()
}
