package plan

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func sampleTree() *Node {
	join := NewJoin("inner", "id = user_id", NewScan("users"), NewScan("orders"))
	return NewProject([]string{"*"}, join)
}

// TestWalk verifies tree walking visits every node
func TestWalk(t *testing.T) {
	nodeCount := 0
	err := Walk(sampleTree(), func(n *Node) error {
		nodeCount++
		return nil
	})

	if err != nil {
		t.Errorf("Walk failed: %v", err)
	}

	// Project, Join, Scan (left), Scan (right) = 4 nodes
	if nodeCount != 4 {
		t.Errorf("Expected to visit 4 nodes, visited %d", nodeCount)
	}
}

// TestWalkStopsOnError verifies the first error aborts the walk
func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	visited := 0
	err := Walk(sampleTree(), func(n *Node) error {
		visited++
		if n.Kind == KindJoin {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Errorf("Expected the visitor error, got %v", err)
	}
	// Project then Join; the scans are never reached.
	if visited != 2 {
		t.Errorf("Expected 2 visits before the error, got %d", visited)
	}
}

// TestCount verifies node counting
func TestCount(t *testing.T) {
	if count := Count(sampleTree()); count != 4 {
		t.Errorf("Expected 4 nodes, got %d", count)
	}
	if count := Count(nil); count != 0 {
		t.Errorf("Expected 0 nodes for nil tree, got %d", count)
	}
}

// TestSprint verifies tree rendering
func TestSprint(t *testing.T) {
	output := Sprint(sampleTree())

	for _, want := range []string{"Project(*)", "Join(inner, id = user_id)", "Scan(users)", "Scan(orders)"} {
		if !strings.Contains(output, want) {
			t.Errorf("Tree output should contain %q, got:\n%s", want, output)
		}
	}

	// Children are indented below their parent.
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d:\n%s", len(lines), output)
	}
	if !strings.HasPrefix(lines[1], "  ") || !strings.HasPrefix(lines[2], "    ") {
		t.Errorf("Expected increasing indentation:\n%s", output)
	}
}

// TestSprintShowsEstimates verifies costed nodes render their estimates
func TestSprintShowsEstimates(t *testing.T) {
	scan := NewScan("orders")
	scan.EstimatedCost = 100.0
	scan.EstimatedRows = 1000

	output := Sprint(scan)
	if !strings.Contains(output, "cost=100.00") || !strings.Contains(output, "rows=1000") {
		t.Errorf("Expected estimates in output, got %q", output)
	}
}
