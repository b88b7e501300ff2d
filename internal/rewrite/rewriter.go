// Package rewrite is the heuristic half of the optimizer: an ordered rule
// set applied to the plan tree until a whole-pass fixpoint. It is pure -
// no statistics access, no I/O - so the same input always rewrites to the
// same output.
package rewrite

import (
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/condition"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

// MaxIterations caps the number of whole-tree passes. The cap, not the
// fixpoint check, is what guarantees termination for a rule set that
// oscillates.
const MaxIterations = 10

// Stats records what a single Rewrite call did: how many whole-tree
// passes ran and how many rule applications changed a node. Values are
// per call, never shared between calls.
type Stats struct {
	Iterations   int `json:"iterations"`
	RulesApplied int `json:"rules_applied"`
}

// Rewriter applies a fixed rule list to plan trees.
type Rewriter struct {
	rules []Rule
}

// New returns a Rewriter over the given rules, applied in order.
func New(rules []Rule) *Rewriter {
	return &Rewriter{rules: rules}
}

// NewDefault returns a Rewriter with the standard rule set and the
// token-based condition analyzer.
func NewDefault() *Rewriter {
	return New(DefaultRules(condition.TokenAnalyzer{}))
}

// Rewrite runs whole-tree passes over root until two consecutive results
// are structurally equal or MaxIterations is reached. Each pass rebuilds
// the tree bottom-up; the input is never mutated.
func (r *Rewriter) Rewrite(root *plan.Node) (*plan.Node, Stats) {
	var stats Stats
	if root == nil {
		return nil, stats
	}

	current := root
	seen := map[[16]byte]struct{}{plan.Fingerprint(current): {}}

	for stats.Iterations < MaxIterations {
		stats.Iterations++
		next := r.rewriteNode(current, &stats)

		if plan.Equal(current, next) {
			break
		}

		// Rules that undo each other would never reach structural
		// equality; revisiting a shape we have already produced means
		// the passes are cycling, so stop there.
		fp := plan.Fingerprint(next)
		if _, cycling := seen[fp]; cycling {
			current = next
			break
		}
		seen[fp] = struct{}{}

		current = next
	}

	return current, stats
}

// rewriteNode rebuilds one node after rewriting its children, then gives
// each rule a chance at it. The first rule that produces a structurally
// different node wins the node for this pass; the rest are not tried.
func (r *Rewriter) rewriteNode(node *plan.Node, stats *Stats) *plan.Node {
	var rebuilt *plan.Node
	if len(node.Children) > 0 {
		children := make([]*plan.Node, len(node.Children))
		for i, child := range node.Children {
			children[i] = r.rewriteNode(child, stats)
		}
		rebuilt = node.WithChildren(children...)
	} else {
		rebuilt = node.WithChildren()
	}

	// Carry the estimates across the copy: reorder_joins reads them when
	// rewriting an already-costed tree.
	rebuilt.EstimatedCost = node.EstimatedCost
	rebuilt.EstimatedRows = node.EstimatedRows
	rebuilt.Stats = node.Stats

	for _, rule := range r.rules {
		if result, changed := rule.Apply(rebuilt); changed {
			stats.RulesApplied++
			return result
		}
	}

	return rebuilt
}
