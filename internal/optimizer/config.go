package optimizer

import "github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"

// Config holds configuration for the optimizer.
type Config struct {
	// MaxPlanDepth and MaxPlanNodes bound the trees Optimize accepts.
	// Zero disables the corresponding check.
	MaxPlanDepth int
	MaxPlanNodes int
}

// DefaultConfig returns the default optimizer configuration.
func DefaultConfig() Config {
	return Config{
		MaxPlanDepth: 64,
		MaxPlanNodes: 4096,
	}
}

func (c Config) limits() plan.Limits {
	return plan.Limits{MaxDepth: c.MaxPlanDepth, MaxNodes: c.MaxPlanNodes}
}
