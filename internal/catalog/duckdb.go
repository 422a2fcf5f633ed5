package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/logging"
)

// DuckDBCatalog introspects one DuckDB database file into column descriptors
type DuckDBCatalog struct {
	db           *sql.DB
	dbID         string
	sampleValues int
}

// OpenDuckDB opens a DuckDB database file for introspection
func OpenDuckDB(dbID, path string, sampleValues int) (*DuckDBCatalog, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to open database %s", dbID)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to ping database %s", dbID)
	}

	return &DuckDBCatalog{
		db:           db,
		dbID:         dbID,
		sampleValues: sampleValues,
	}, nil
}

// DB exposes the underlying connection for probe execution against the
// same database file
func (c *DuckDBCatalog) DB() *sql.DB {
	return c.db
}

// ID returns the database identifier
func (c *DuckDBCatalog) ID() string {
	return c.dbID
}

// Close closes the underlying connection
func (c *DuckDBCatalog) Close() error {
	return c.db.Close()
}

// Columns introspects every user table and returns its column descriptors.
// Primary keys come from pragma_table_info; foreign keys are heuristic
// (non-pk *_id columns), matching how relationship inference treats untyped
// catalogs.
func (c *DuckDBCatalog) Columns(ctx context.Context) ([]ColumnDescriptor, error) {
	tables, err := c.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	var cols []ColumnDescriptor

	for _, table := range tables {
		tableCols, err := c.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}

		cols = append(cols, tableCols...)
	}

	return cols, nil
}

// tableNames lists the user tables of the main schema
func (c *DuckDBCatalog) tableNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer func() { _ = rows.Close() }()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table name")
		}

		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "error iterating tables")
	}

	return tables, nil
}

// tableColumns introspects a single table
func (c *DuckDBCatalog) tableColumns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, type, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to introspect table %s", table)
	}
	defer func() { _ = rows.Close() }()

	var cols []ColumnDescriptor

	for rows.Next() {
		var (
			name, colType string
			isPK          bool
		)

		if err := rows.Scan(&name, &colType, &isPK); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to scan column of %s", table)
		}

		col := ColumnDescriptor{
			Table: table,
			Name:  name,
			Type:  colType,
			IsPK:  isPK,
			IsFK:  !isPK && strings.HasSuffix(strings.ToLower(name), "_id"),
		}

		if c.sampleValues > 0 {
			col.SampleValues = c.sampleColumn(ctx, table, name)
		}

		cols = append(cols, col)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "error iterating columns of %s", table)
	}

	return cols, nil
}

// sampleColumn fetches a bounded set of distinct values. Failures are
// tolerated: a descriptor without samples is still useful.
func (c *DuckDBCatalog) sampleColumn(ctx context.Context, table, column string) []string {
	query := fmt.Sprintf(
		`SELECT DISTINCT CAST(%s AS VARCHAR) FROM %s WHERE %s IS NOT NULL LIMIT %d`,
		quoteIdent(column), quoteIdent(table), quoteIdent(column), c.sampleValues,
	)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		logging.Debugf("sampling %s.%s failed: %v", table, column, err)
		return nil
	}
	defer func() { _ = rows.Close() }()

	var values []string

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return values
		}

		values = append(values, v)
	}

	return values
}

// quoteIdent quotes a SQL identifier
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LoadDirectory introspects every DuckDB file in dir (*.db, *.duckdb) into a
// keyword index keyed by file basename. The connections stay open so probes
// can run against the same files; the caller owns closing the returned
// catalogs.
func LoadDirectory(ctx context.Context, dir string, sampleValues int) (*KeywordIndex, []*DuckDBCatalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.ErrTypeIO, "failed to read database directory %s", dir)
	}

	index := NewKeywordIndex()

	var catalogs []*DuckDBCatalog

	closeAll := func() {
		for _, cat := range catalogs {
			_ = cat.Close()
		}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".db" && ext != ".duckdb" {
			continue
		}

		dbID := strings.TrimSuffix(entry.Name(), ext)

		cat, err := OpenDuckDB(dbID, filepath.Join(dir, entry.Name()), sampleValues)
		if err != nil {
			closeAll()
			return nil, nil, err
		}

		cols, err := cat.Columns(ctx)
		if err != nil {
			_ = cat.Close()
			closeAll()

			return nil, nil, err
		}

		index.AddDatabase(dbID, cols)
		catalogs = append(catalogs, cat)

		logging.Debugf("loaded %d columns for database %s", len(cols), dbID)
	}

	return index, catalogs, nil
}
