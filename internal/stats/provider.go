// Package stats supplies per-table statistics to the optimizer. The
// estimator asks for them by table name and fails loudly when a table is
// unknown; a missing table never turns into a silent zero-row estimate.
package stats

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

// Provider answers statistics lookups. Implementations may sit on a
// database handle, so lookups take a context.
type Provider interface {
	GetTableStats(ctx context.Context, table string) (plan.Statistics, error)
}

// SchemaProvider is an optional capability for providers that also know
// table schemas. The optimizer discovers it by type assertion and uses
// the column names to annotate Scan nodes before rewriting.
type SchemaProvider interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// NotFoundError reports a table the provider has no statistics for.
type NotFoundError struct {
	Table string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no statistics for table %q", e.Table)
}

func NewNotFound(table string) *NotFoundError {
	return &NotFoundError{Table: table}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
