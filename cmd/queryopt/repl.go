package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/stats"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive explain loop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, closeFn, err := openProvider()
		if err != nil {
			return err
		}
		defer closeFn()

		return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), provider)
	},
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, provider stats.Provider) error {
	scanner := bufio.NewScanner(in)
	opt := newOptimizer(provider)

	fmt.Fprintln(out, "queryopt interactive shell")
	fmt.Fprintln(out, "Type 'exit' or '\\q' to quit, 'tables' to list known tables.")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if line == "exit" || line == `\q` {
			return nil
		}

		if line == "tables" || line == `\d` {
			printTables(ctx, out, provider)
			continue
		}

		explanation, err := opt.Explain(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printExplanation(out, explanation)
	}
}

func printTables(ctx context.Context, w io.Writer, provider stats.Provider) {
	names, err := listTables(ctx, provider)
	if err != nil {
		fmt.Fprintf(w, "Error listing tables: %v\n", err)
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "No tables registered.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"table", "rows", "distinct", "data size"})
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, name := range names {
		s, err := provider.GetTableStats(ctx, name)
		if err != nil {
			fmt.Fprintf(w, "Error reading statistics for %s: %v\n", name, err)
			return
		}
		table.Append([]string{
			name,
			humanize.Comma(s.RowCount),
			humanize.Comma(s.DistinctCount),
			humanize.Bytes(uint64(s.DataSize)),
		})
	}
	table.Render()
}
