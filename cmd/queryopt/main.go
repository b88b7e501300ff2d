package main

import (
	"log/slog"
	"os"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/logging"
)

func main() {
	logger, closeFn := logging.SetupLogger()
	defer closeFn()

	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		closeFn()
		os.Exit(1)
	}
}
