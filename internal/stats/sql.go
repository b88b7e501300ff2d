package stats

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/topoftheblock/SQL-Query-Optimizer/internal/plan"
)

var (
	_ Provider       = (*SQLProvider)(nil)
	_ SchemaProvider = (*SQLProvider)(nil)
)

// SQLProvider reads statistics from a relational catalog, one row per
// table. ANALYZE-style collectors can write the catalog out of band; the
// optimizer only ever reads it.
type SQLProvider struct {
	db *sql.DB
}

// OpenSQL opens a sqlite-backed provider at path. ":memory:" gives a
// private throwaway catalog.
func OpenSQL(path string) (*SQLProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening statistics store %s", path)
	}
	return &SQLProvider{db: db}, nil
}

// NewSQLProvider wraps an existing handle, for callers sharing a catalog
// database with other components.
func NewSQLProvider(db *sql.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS table_statistics (
	table_name     TEXT PRIMARY KEY,
	row_count      INTEGER NOT NULL,
	distinct_count INTEGER NOT NULL DEFAULT 0,
	null_count     INTEGER NOT NULL DEFAULT 0,
	min_val        TEXT NOT NULL DEFAULT '',
	max_val        TEXT NOT NULL DEFAULT '',
	data_size      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS table_columns (
	table_name  TEXT NOT NULL,
	column_name TEXT NOT NULL,
	ordinal     INTEGER NOT NULL,
	PRIMARY KEY (table_name, ordinal)
);`

// Bootstrap creates the catalog schema if it does not exist yet.
func (p *SQLProvider) Bootstrap(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, bootstrapSchema)
	return errors.Wrap(err, "bootstrapping statistics schema")
}

// Save upserts one table's statistics and column list.
func (p *SQLProvider) Save(ctx context.Context, table string, stats plan.Statistics, columns ...string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting statistics save")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO table_statistics
		 (table_name, row_count, distinct_count, null_count, min_val, max_val, data_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table, stats.RowCount, stats.DistinctCount, stats.NullCount,
		stats.MinVal, stats.MaxVal, stats.DataSize); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "saving statistics for %s", table)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM table_columns WHERE table_name = ?`, table); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "clearing columns for %s", table)
	}
	for i, column := range columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO table_columns (table_name, column_name, ordinal) VALUES (?, ?, ?)`,
			table, column, i); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "saving columns for %s", table)
		}
	}

	return tx.Commit()
}

func (p *SQLProvider) GetTableStats(ctx context.Context, table string) (plan.Statistics, error) {
	var s plan.Statistics
	err := p.db.QueryRowContext(ctx,
		`SELECT row_count, distinct_count, null_count, min_val, max_val, data_size
		 FROM table_statistics WHERE table_name = ?`, table).
		Scan(&s.RowCount, &s.DistinctCount, &s.NullCount, &s.MinVal, &s.MaxVal, &s.DataSize)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Statistics{}, NewNotFound(table)
	}
	if err != nil {
		return plan.Statistics{}, errors.Wrapf(err, "reading statistics for %s", table)
	}
	return s, nil
}

func (p *SQLProvider) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT column_name FROM table_columns WHERE table_name = ? ORDER BY ordinal`, table)
	if err != nil {
		return nil, errors.Wrapf(err, "reading columns for %s", table)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// Tables returns the catalog's table names in lexical order.
func (p *SQLProvider) Tables(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT table_name FROM table_statistics ORDER BY table_name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing statistics tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

// Close releases the underlying database handle.
func (p *SQLProvider) Close() error {
	return p.db.Close()
}
