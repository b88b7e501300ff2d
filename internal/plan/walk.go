package plan

import (
	"fmt"
	"strings"
)

// Walk visits node and every descendant in depth-first preorder, stopping
// at the first error.
func Walk(node *Node, visit func(*Node) error) error {
	if node == nil {
		return nil
	}

	if err := visit(node); err != nil {
		return err
	}

	for _, child := range node.Children {
		if err := Walk(child, visit); err != nil {
			return err
		}
	}

	return nil
}

// Count returns the total number of nodes in the tree.
func Count(node *Node) int {
	if node == nil {
		return 0
	}

	count := 1
	for _, child := range node.Children {
		count += Count(child)
	}

	return count
}

// Sprint renders the tree with two-space indentation, one node per line.
// Estimated nodes show their cost and row count.
func Sprint(node *Node) string {
	var b strings.Builder
	sprintNode(&b, node, 0)
	return b.String()
}

func sprintNode(b *strings.Builder, node *Node, depth int) {
	if node == nil {
		return
	}

	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(node.Label())
	if node.EstimatedCost > 0 || node.EstimatedRows > 0 {
		fmt.Fprintf(b, " (cost=%.2f rows=%d)", node.EstimatedCost, node.EstimatedRows)
	}
	b.WriteByte('\n')

	for _, child := range node.Children {
		sprintNode(b, child, depth+1)
	}
}
