package search

import (
	"context"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/condition"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

// Search selects the cheapest physical realization of a plan tree. The
// exploration is local, not exhaustive: per join it considers the child
// order swap and the non-chosen join methods, each re-costed bottom-up.
// The result is never costlier than the plain estimated input.
type Search struct {
	provider stats.Provider
	analyzer condition.Analyzer
}

// New returns a Search over the given provider, using the default
// token-based condition analyzer.
func New(provider stats.Provider) *Search {
	return NewWithAnalyzer(provider, condition.TokenAnalyzer{})
}

// NewWithAnalyzer lets callers swap in their own condition analyzer.
func NewWithAnalyzer(provider stats.Provider, analyzer condition.Analyzer) *Search {
	return &Search{provider: provider, analyzer: analyzer}
}

// Optimize estimates root and replaces each subtree, bottom-up, with its
// cheapest alternative. Given stable statistics the result is
// deterministic: candidates are evaluated in a fixed order and only a
// strictly lower cost displaces an earlier one.
//
// Like Estimator.Estimate, Optimize assumes root already passed
// plan.Validate.
func (s *Search) Optimize(ctx context.Context, root *plan.Node) (*plan.Node, error) {
	if root == nil {
		return nil, nil
	}

	// One estimator per call: the table cache must not outlive the call,
	// since statistics can change between calls.
	est := NewEstimatorWithAnalyzer(s.provider, s.analyzer)

	annotated, err := est.Estimate(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.optimizeNode(ctx, est, annotated)
}

// optimizeNode returns the cheapest realization of the subtree at node.
// Children are settled first and then shared, as immutable snapshots,
// by every candidate for the current node; each candidate gets its own
// clones so no two plans ever alias a child.
func (s *Search) optimizeNode(ctx context.Context, est *Estimator, node *plan.Node) (*plan.Node, error) {
	if len(node.Children) == 0 {
		return node, nil
	}

	children := make([]*plan.Node, len(node.Children))
	for i, child := range node.Children {
		optimized, err := s.optimizeNode(ctx, est, child)
		if err != nil {
			return nil, err
		}
		children[i] = optimized
	}

	// The baseline keeps the node's shape with the optimized children
	// attached, its join method cleared so the estimate re-picks it after
	// whatever happened to the children.
	baseline := candidate(node, children...)
	if props, ok := baseline.Props.(plan.JoinProps); ok {
		baseline.Props = props.Unpin()
	}

	best, err := est.Estimate(ctx, baseline)
	if err != nil {
		return nil, err
	}

	if node.Kind != plan.KindJoin {
		// No structural alternatives exist for the other kinds; the
		// baseline re-cost is the whole search.
		return best, nil
	}

	chosen := best.Props.(plan.JoinProps).Method
	for _, alt := range joinAlternatives(node, chosen, children) {
		costed, err := est.Estimate(ctx, alt)
		if err != nil {
			return nil, err
		}
		// Strictly cheaper or the baseline stays. Evaluation order makes
		// ties deterministic.
		if costed.EstimatedCost < best.EstimatedCost {
			best = costed
		}
	}

	return best, nil
}

// joinAlternatives builds the candidate set beyond the baseline: the
// child-order swap, then one candidate per join method the baseline did
// not choose, in declaration order.
func joinAlternatives(node *plan.Node, chosen string, children []*plan.Node) []*plan.Node {
	props := node.Props.(plan.JoinProps)

	swapped := candidate(node, children[1], children[0])
	swapped.Props = props.Unpin()
	alternatives := []*plan.Node{swapped}

	for _, method := range JoinMethods {
		if method == chosen {
			continue
		}
		pinned := candidate(node, children...)
		pinned.Props = props.Pin(method)
		alternatives = append(alternatives, pinned)
	}

	return alternatives
}

// candidate assembles one plan to cost: node's kind and properties over
// clones of the settled children.
func candidate(node *plan.Node, children ...*plan.Node) *plan.Node {
	cloned := make([]*plan.Node, len(children))
	for i, child := range children {
		cloned[i] = child.Clone()
	}
	return node.WithChildren(cloned...)
}
