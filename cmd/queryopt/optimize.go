package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [query]",
	Short: "Optimize a query and print the chosen plan tree",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, closeFn, err := openProvider()
		if err != nil {
			return err
		}
		defer closeFn()

		opt := newOptimizer(provider)
		result, err := opt.Optimize(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		if flags.jsonOut {
			return writeJSON(cmd.OutOrStdout(), result.Root.Document())
		}
		fmt.Fprint(cmd.OutOrStdout(), plan.Sprint(result.Root))
		fmt.Fprintf(cmd.OutOrStdout(), "\ntotal cost %s\n",
			humanize.CommafWithDigits(result.TotalCost, 2))
		return nil
	},
}
