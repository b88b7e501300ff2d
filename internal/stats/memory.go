package stats

import (
	"context"

	"github.com/google/btree"
	"github.com/sasha-s/go-deadlock"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

var (
	_ Provider       = (*MemoryProvider)(nil)
	_ SchemaProvider = (*MemoryProvider)(nil)
)

type tableEntry struct {
	name    string
	stats   plan.Statistics
	columns []string
}

func (e tableEntry) Less(than btree.Item) bool {
	return e.name < than.(tableEntry).name
}

// MemoryProvider keeps statistics in an ordered in-memory registry. It is
// safe for concurrent use, so a single provider can back any number of
// optimizer calls running in parallel.
type MemoryProvider struct {
	mu   deadlock.RWMutex
	tree *btree.BTree
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{tree: btree.New(8)}
}

// Register adds or replaces a table. Columns are optional schema
// metadata; when present the provider also serves TableColumns.
func (p *MemoryProvider) Register(table string, stats plan.Statistics, columns ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := tableEntry{name: table, stats: stats}
	if len(columns) > 0 {
		entry.columns = make([]string, len(columns))
		copy(entry.columns, columns)
	}
	p.tree.ReplaceOrInsert(entry)
}

func (p *MemoryProvider) GetTableStats(ctx context.Context, table string) (plan.Statistics, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	item := p.tree.Get(tableEntry{name: table})
	if item == nil {
		return plan.Statistics{}, NewNotFound(table)
	}
	return item.(tableEntry).stats, nil
}

func (p *MemoryProvider) TableColumns(ctx context.Context, table string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	item := p.tree.Get(tableEntry{name: table})
	if item == nil {
		return nil, NewNotFound(table)
	}

	entry := item.(tableEntry)
	columns := make([]string, len(entry.columns))
	copy(columns, entry.columns)
	return columns, nil
}

// Tables returns the registered table names in lexical order.
func (p *MemoryProvider) Tables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, p.tree.Len())
	p.tree.Ascend(func(i btree.Item) bool {
		names = append(names, i.(tableEntry).name)
		return true
	})
	return names
}
