package plan

import "github.com/golang-collections/collections/stack"

// Limits bounds Validate's traversal. A zero field disables that check.
type Limits struct {
	MaxDepth int
	MaxNodes int
}

// DefaultLimits returns the guard rails the optimizer uses unless
// configured otherwise.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 64, MaxNodes: 4096}
}

type validateFrame struct {
	node  *Node
	depth int
}

// Validate checks the structural rules eagerly so the rewrite and search
// passes can assume a well-formed tree: per-kind child counts (Scan 0,
// Join 2, the rest 1), properties matching the node kind, no nil or
// shared nodes, and the depth and size guards in limits. An iterative
// walk keeps deep inputs from exhausting the goroutine stack before the
// depth guard fires.
func Validate(root *Node, limits Limits) error {
	if root == nil {
		return NewNilNode()
	}

	seen := make(map[*Node]struct{})
	frames := stack.New()
	frames.Push(validateFrame{node: root, depth: 1})
	nodes := 0

	for frames.Len() > 0 {
		f := frames.Pop().(validateFrame)
		n := f.node

		if _, dup := seen[n]; dup {
			return NewSharedNode(n.Kind)
		}
		seen[n] = struct{}{}

		nodes++
		if limits.MaxNodes > 0 && nodes > limits.MaxNodes {
			return &RecursionLimitError{
				Depth:    f.depth,
				Nodes:    nodes,
				MaxDepth: limits.MaxDepth,
				MaxNodes: limits.MaxNodes,
			}
		}
		if limits.MaxDepth > 0 && f.depth > limits.MaxDepth {
			return &RecursionLimitError{
				Depth:    f.depth,
				Nodes:    nodes,
				MaxDepth: limits.MaxDepth,
				MaxNodes: limits.MaxNodes,
			}
		}

		if n.Props == nil || n.Props.Kind() != n.Kind {
			return NewPropsMismatch(n.Kind)
		}
		if want := n.Kind.arity(); len(n.Children) != want {
			return NewWrongChildCount(n.Kind, len(n.Children), want)
		}

		for _, child := range n.Children {
			if child == nil {
				return NewNilNode()
			}
			frames.Push(validateFrame{node: child, depth: f.depth + 1})
		}
	}

	return nil
}
