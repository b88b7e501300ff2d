package condition

import (
	"math"
	"testing"
)

// TestIdentifiers verifies identifier token scanning
func TestIdentifiers(t *testing.T) {
	a := TokenAnalyzer{}

	tests := []struct {
		condition string
		expected  []string
	}{
		{"amount > 100", []string{"amount"}},
		{"customer_id = id", []string{"customer_id", "id"}},
		{"orders.amount > 100", []string{"orders", "amount"}},
		{"a = 1 AND b = 2", []string{"a", "AND", "b"}},
		{"name LIKE 'A%'", []string{"name", "LIKE", "A"}},
		{"100abc > 5", nil},
		{"_private = 1", []string{"_private"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := a.Identifiers(tt.condition)
		if len(got) != len(tt.expected) {
			t.Errorf("Identifiers(%q) = %v, expected %v", tt.condition, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("Identifiers(%q)[%d] = %q, expected %q", tt.condition, i, got[i], tt.expected[i])
			}
		}
	}
}

// TestColumns verifies candidate column extraction
func TestColumns(t *testing.T) {
	a := TokenAnalyzer{}

	tests := []struct {
		condition string
		expected  []string
	}{
		{"amount > 100", []string{"amount"}},
		// customer_id carries an underscore and is not a candidate.
		{"customer_id = id", []string{"id"}},
		{"orders.amount > 100", []string{"orders", "amount"}},
		// Reserved words and all-caps identifiers are excluded.
		{"status = 'ACTIVE' AND region LIKE 'EU%'", []string{"status", "region"}},
		{"a BETWEEN x AND y", []string{"a", "x", "y"}},
		{"NOT NULL", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := a.Columns(tt.condition)
		if got.Cardinality() != len(tt.expected) {
			t.Errorf("Columns(%q) = %v, expected %v", tt.condition, got.ToSlice(), tt.expected)
			continue
		}
		for _, col := range tt.expected {
			if !got.Contains(col) {
				t.Errorf("Columns(%q) should contain %q, got %v", tt.condition, col, got.ToSlice())
			}
		}
	}
}

// TestClauses verifies AND splitting
func TestClauses(t *testing.T) {
	a := TokenAnalyzer{}

	clauses := a.Clauses("a = 1 AND b > 2 and c LIKE 'x%'")
	if len(clauses) != 3 {
		t.Fatalf("Expected 3 clauses, got %d: %v", len(clauses), clauses)
	}

	// No AND means one clause.
	if got := a.Clauses("a = 1"); len(got) != 1 {
		t.Errorf("Expected 1 clause, got %d", len(got))
	}

	// ANDs inside a word do not split.
	if got := a.Clauses("brand = 'x'"); len(got) != 1 {
		t.Errorf("Expected 1 clause for embedded AND, got %d: %v", len(got), got)
	}
}

// TestSelectivity verifies per-clause classification and the product
func TestSelectivity(t *testing.T) {
	a := TokenAnalyzer{}

	tests := []struct {
		condition string
		expected  float64
	}{
		{"", 1.0},
		{"status = 'active'", 0.1},
		{"amount > 100", 0.3},
		{"amount < 100", 0.3},
		// Range beats equality for >= and <=.
		{"amount >= 100", 0.3},
		{"amount <= 100", 0.3},
		{"name LIKE 'A%'", 0.5},
		{"flag", 0.8},
		{"a = 1 AND b > 2", 0.03},
		{"a > 1 AND b > 2", 0.09},
	}

	for _, tt := range tests {
		got := a.Selectivity(tt.condition)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Selectivity(%q) = %v, expected %v", tt.condition, got, tt.expected)
		}
	}
}

// TestSelectivityClamp verifies long conjunctions clamp to exactly the
// floor value
func TestSelectivityClamp(t *testing.T) {
	a := TokenAnalyzer{}

	cond := "a = 1 AND b = 2 AND c = 3 AND d = 4 AND e = 5"
	if got := a.Selectivity(cond); got != 0.01 {
		t.Errorf("Expected selectivity clamped to exactly 0.01, got %v", got)
	}
}

// TestEquiJoin verifies equality detection and side extraction
func TestEquiJoin(t *testing.T) {
	a := TokenAnalyzer{}

	sides, ok := a.EquiJoin("customer_id = id")
	if !ok {
		t.Fatal("Expected an equi-join")
	}
	if sides.First != "customer_id" || sides.Second != "id" {
		t.Errorf("Expected sides (customer_id, id), got (%s, %s)", sides.First, sides.Second)
	}

	if _, ok := a.EquiJoin("a < b"); ok {
		t.Error("A pure range condition should not be an equi-join")
	}
	if _, ok := a.EquiJoin(""); ok {
		t.Error("An empty condition should not be an equi-join")
	}

	// ">=" contains "=" and intentionally counts.
	if _, ok := a.EquiJoin("a >= b"); !ok {
		t.Error("A >= comparison should count as an equi-join for cardinality")
	}
}

// TestConjoin verifies condition merging
func TestConjoin(t *testing.T) {
	a := TokenAnalyzer{}

	if got := a.Conjoin("a = 1", "b = 2"); got != "a = 1 AND b = 2" {
		t.Errorf("Expected joined conjunction, got %q", got)
	}
	if got := a.Conjoin("", "b = 2"); got != "b = 2" {
		t.Errorf("Expected right side only, got %q", got)
	}
	if got := a.Conjoin("a = 1", ""); got != "a = 1" {
		t.Errorf("Expected left side only, got %q", got)
	}
}

// TestIsNoOp verifies no-op condition detection
func TestIsNoOp(t *testing.T) {
	a := TokenAnalyzer{}

	tests := []struct {
		condition string
		expected  bool
	}{
		{"", true},
		{"   ", true},
		{"TRUE", true},
		{"true", true},
		{"1=1", true},
		{"1 = 1", true},
		{"amount > 100", false},
		{"1=2", false},
	}

	for _, tt := range tests {
		if got := a.IsNoOp(tt.condition); got != tt.expected {
			t.Errorf("IsNoOp(%q) = %v, expected %v", tt.condition, got, tt.expected)
		}
	}
}
