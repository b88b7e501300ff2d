package main

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/optimizer"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/sqlparse"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

var flags = struct {
	statsPath string
	jsonOut   bool
	verbose   bool
}{}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.statsPath, "stats", "", "Statistics source: a YAML fixture, or a sqlite catalog when the file ends in .db or .sqlite")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "Emit machine-readable JSON instead of tables")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Log optimizer lifecycle events")
	rootCmd.AddCommand(explainCmd, optimizeCmd, replCmd)
}

var rootCmd = &cobra.Command{
	Use:   "queryopt",
	Short: "Cost-based SQL query optimizer",
	Long: `queryopt parses a SELECT query, rewrites its plan with heuristic
rules, picks join methods by estimated cost, and prints the plan it
settled on. Table statistics come from the file named by --stats.`,
	Example: `  queryopt explain --stats stats.yaml "SELECT name FROM customers WHERE id = 7"
  queryopt optimize --stats catalog.db --json "SELECT * FROM orders"
  queryopt repl --stats stats.yaml`,
	SilenceUsage: true,
}

// openProvider builds the statistics provider named by --stats. A sqlite
// catalog is recognized by extension; anything else is read as a YAML
// fixture.
func openProvider() (stats.Provider, func(), error) {
	if flags.statsPath == "" {
		return nil, nil, errors.New("no statistics source: pass --stats <file>")
	}

	switch strings.ToLower(filepath.Ext(flags.statsPath)) {
	case ".db", ".sqlite":
		provider, err := stats.OpenSQL(flags.statsPath)
		if err != nil {
			return nil, nil, err
		}
		return provider, func() { _ = provider.Close() }, nil
	default:
		provider, err := stats.LoadYAML(flags.statsPath)
		if err != nil {
			return nil, nil, err
		}
		return provider, func() {}, nil
	}
}

func newOptimizer(provider stats.Provider) *optimizer.Optimizer {
	opt := optimizer.New(sqlparse.New(), provider)
	if flags.verbose {
		opt.AddObserver(optimizer.NewLoggingObserver())
	}
	return opt
}

// listTables enumerates the provider's tables; both provider kinds that
// openProvider returns can do this, each with its own signature.
func listTables(ctx context.Context, provider stats.Provider) ([]string, error) {
	switch p := provider.(type) {
	case *stats.MemoryProvider:
		return p.Tables(), nil
	case *stats.SQLProvider:
		return p.Tables(ctx)
	}
	return nil, errors.Newf("provider %T cannot list tables", provider)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
