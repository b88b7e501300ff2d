package stats

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

// statsFile is the on-disk fixture shape:
//
//	tables:
//	  orders:
//	    row_count: 1000
//	    distinct_count: 50
//	    columns: [id, customer_id, amount]
type statsFile struct {
	Tables map[string]tableSpec `yaml:"tables"`
}

type tableSpec struct {
	RowCount      int64    `yaml:"row_count"`
	DistinctCount int64    `yaml:"distinct_count"`
	NullCount     int64    `yaml:"null_count"`
	MinVal        string   `yaml:"min_val"`
	MaxVal        string   `yaml:"max_val"`
	DataSize      int64    `yaml:"data_size"`
	Columns       []string `yaml:"columns"`
}

// LoadYAML reads a statistics fixture from disk into a fresh
// MemoryProvider.
func LoadYAML(path string) (*MemoryProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading statistics file %s", path)
	}

	provider, err := ParseYAML(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing statistics file %s", path)
	}
	return provider, nil
}

// ParseYAML builds a provider from fixture bytes.
func ParseYAML(raw []byte) (*MemoryProvider, error) {
	var file statsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "unmarshaling statistics yaml")
	}

	provider := NewMemoryProvider()
	for name, spec := range file.Tables {
		provider.Register(name, plan.Statistics{
			RowCount:      spec.RowCount,
			DistinctCount: spec.DistinctCount,
			NullCount:     spec.NullCount,
			MinVal:        spec.MinVal,
			MaxVal:        spec.MaxVal,
			DataSize:      spec.DataSize,
		}, spec.Columns...)
	}
	return provider, nil
}
