package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/optimizer"
	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

var explainCmd = &cobra.Command{
	Use:   "explain [query]",
	Short: "Optimize a query and report the chosen plan with estimates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, closeFn, err := openProvider()
		if err != nil {
			return err
		}
		defer closeFn()

		opt := newOptimizer(provider)
		explanation, err := opt.Explain(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if flags.jsonOut {
			return writeJSON(cmd.OutOrStdout(), explanation)
		}
		printExplanation(cmd.OutOrStdout(), explanation)
		return nil
	},
}

func printExplanation(w io.Writer, explanation *optimizer.Explanation) {
	fmt.Fprintln(w, explanation.OriginalQuery)
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"operator", "properties", "cost", "rows"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(planRows(nil, explanation.OptimizedPlan, 0))
	table.Render()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "total cost %s, estimated rows %s\n",
		humanize.CommafWithDigits(explanation.TotalEstimatedCost, 2),
		humanize.Comma(explanation.TotalEstimatedRows))
	fmt.Fprintf(w, "rewrite: %d iterations, %d rules applied\n",
		explanation.RewriteStats.Iterations, explanation.RewriteStats.RulesApplied)
}

// planRows flattens the plan document into table rows, children indented
// under their parent.
func planRows(rows [][]string, doc *plan.Document, depth int) [][]string {
	if doc == nil {
		return rows
	}

	rows = append(rows, []string{
		strings.Repeat("  ", depth) + doc.Kind,
		propertyCell(doc.Properties),
		humanize.CommafWithDigits(doc.EstimatedCost, 2),
		humanize.Comma(doc.EstimatedRows),
	})
	for _, child := range doc.Children {
		rows = planRows(rows, child, depth+1)
	}
	return rows
}

// propertyKeys fixes the display order of the properties column. The set
// matches what plan documents carry per operator kind.
var propertyKeys = []string{
	"table", "join_type", "condition", "join_method",
	"columns", "group_by", "order_by", "limit",
}

func propertyCell(properties map[string]any) string {
	parts := make([]string, 0, len(properties))
	for _, key := range propertyKeys {
		value, ok := properties[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				parts = append(parts, key+"="+v)
			}
		case []string:
			if len(v) > 0 {
				parts = append(parts, key+"="+strings.Join(v, ","))
			}
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, ", ")
}
