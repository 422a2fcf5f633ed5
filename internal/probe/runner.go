package probe

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sqlscout/sqlscout/internal/logging"
)

// SQLRunner implements Service over database/sql connections registered per
// database id. Connections are shared lookups; the runner itself holds no
// per-query state and tolerates concurrent calls.
type SQLRunner struct {
	mu           sync.RWMutex
	databases    map[string]*sql.DB
	queryTimeout time.Duration
}

// NewSQLRunner creates a runner with the given per-probe timeout
func NewSQLRunner(queryTimeout time.Duration) *SQLRunner {
	return &SQLRunner{
		databases:    make(map[string]*sql.DB),
		queryTimeout: queryTimeout,
	}
}

// Register attaches a database connection under an id
func (r *SQLRunner) Register(dbID string, db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.databases[dbID] = db
}

// ExecProbe validates and executes a read-only statement, capping returned
// rows at rowLimit. Failures are encoded in the Result, never in the error
// return.
func (r *SQLRunner) ExecProbe(
	ctx context.Context,
	dbID, sqlText string,
	rowLimit int,
) (*Result, error) {
	if err := ValidateReadOnly(sqlText); err != nil {
		return Rejected(err.Error()), nil
	}

	r.mu.RLock()
	db, ok := r.databases[dbID]
	r.mu.RUnlock()

	if !ok {
		return &Result{
			Status:       StatusError,
			ErrorType:    ErrExecution,
			ErrorMessage: "unknown database: " + dbID,
			Summary:      map[string]interface{}{"message": "database not registered"},
		}, nil
	}

	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)

		defer cancel()
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		logging.Debugf("probe against %s failed: %v", dbID, err)

		return &Result{
			Status:       StatusError,
			ErrorType:    classifyError(ctx, err),
			ErrorMessage: truncateMessage(err.Error()),
			Summary:      map[string]interface{}{"message": "probe failed"},
		}, nil
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return &Result{
			Status:       StatusError,
			ErrorType:    ErrExecution,
			ErrorMessage: truncateMessage(err.Error()),
			Summary:      map[string]interface{}{"message": "probe failed"},
		}, nil
	}

	var (
		sampleRows []map[string]interface{}
		rowCount   int
		truncated  bool
	)

	for rows.Next() {
		rowCount++

		if rowCount > rowLimit {
			truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return &Result{
				Status:       StatusError,
				ErrorType:    ErrExecution,
				ErrorMessage: truncateMessage(err.Error()),
				Summary:      map[string]interface{}{"message": "probe failed"},
			}, nil
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}

		sampleRows = append(sampleRows, row)
	}

	if err := rows.Err(); err != nil {
		return &Result{
			Status:       StatusError,
			ErrorType:    classifyError(ctx, err),
			ErrorMessage: truncateMessage(err.Error()),
			Summary:      map[string]interface{}{"message": "probe failed"},
		}, nil
	}

	return &Result{
		Status:     StatusOK,
		RowCount:   len(sampleRows),
		SampleRows: sampleRows,
		Summary: map[string]interface{}{
			"row_count": len(sampleRows),
			"columns":   columns,
			"truncated": truncated,
		},
	}, nil
}

// normalizeValue converts driver-specific values into JSON-friendly ones
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}

	return v
}
