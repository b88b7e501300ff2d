package plan

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// MalformedPlanError reports a tree that breaks the structural rules:
// wrong child count for a kind, properties of the wrong kind, a nil node,
// or a node reachable through more than one path.
type MalformedPlanError struct {
	Kind     Kind   // offending node kind (-1 when there is no node to blame)
	Children int    // observed child count (-1 when not a child-count problem)
	Reason   string // human-readable explanation
}

func (e *MalformedPlanError) Error() string {
	var parts []string

	if e.Kind >= 0 && int(e.Kind) < len(kindNames) {
		parts = append(parts, fmt.Sprintf("malformed plan at %s node", e.Kind))
	} else {
		parts = append(parts, "malformed plan")
	}

	if e.Children >= 0 {
		parts = append(parts, fmt.Sprintf("%d children", e.Children))
	}

	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	return strings.Join(parts, " - ")
}

func NewWrongChildCount(kind Kind, got, want int) *MalformedPlanError {
	return &MalformedPlanError{
		Kind:     kind,
		Children: got,
		Reason:   fmt.Sprintf("expected %d", want),
	}
}

func NewSharedNode(kind Kind) *MalformedPlanError {
	return &MalformedPlanError{
		Kind:     kind,
		Children: -1,
		Reason:   "node reachable through more than one path",
	}
}

func NewNilNode() *MalformedPlanError {
	return &MalformedPlanError{Kind: -1, Children: -1, Reason: "nil node"}
}

func NewPropsMismatch(kind Kind) *MalformedPlanError {
	return &MalformedPlanError{
		Kind:     kind,
		Children: -1,
		Reason:   "properties do not match node kind",
	}
}

// IsMalformedPlan reports whether err wraps a MalformedPlanError.
func IsMalformedPlan(err error) bool {
	var target *MalformedPlanError
	return errors.As(err, &target)
}

// RecursionLimitError reports a tree deeper or larger than the configured
// guard rails allow.
type RecursionLimitError struct {
	Depth    int
	Nodes    int
	MaxDepth int
	MaxNodes int
}

func (e *RecursionLimitError) Error() string {
	if e.MaxDepth > 0 && e.Depth > e.MaxDepth {
		return fmt.Sprintf("plan depth %d exceeds limit %d", e.Depth, e.MaxDepth)
	}
	return fmt.Sprintf("plan has more than %d nodes", e.MaxNodes)
}

// IsRecursionLimit reports whether err wraps a RecursionLimitError.
func IsRecursionLimit(err error) bool {
	var target *RecursionLimitError
	return errors.As(err, &target)
}
