// Package probe executes restricted, read-only SQL statements against a
// target database and returns normalized outcomes. A failed probe is data,
// not an error: callers surface the classification to the model so it can
// self-correct.
package probe

import (
	"context"
	"fmt"
	"strings"
)

// Probe statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error classifications legible to the planning model
const (
	ErrRejected  = "rejected"  // statement refused before execution
	ErrSyntax    = "syntax"    // database reported a parse error
	ErrExecution = "execution" // statement failed at runtime
	ErrTimeout   = "timeout"   // execution exceeded its deadline
)

const maxErrorMessageLen = 200

// Result is the normalized outcome of one probe execution
type Result struct {
	Status       string                   `json:"status"`
	RowCount     int                      `json:"row_count"`
	SampleRows   []map[string]interface{} `json:"sample_rows,omitempty"`
	ErrorType    string                   `json:"error_type,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Summary      map[string]interface{}   `json:"summary,omitempty"`
}

// Service defines safe, read-only execution of probe SQL. Implementations
// must reject non-read-only statements and cap returned rows at rowLimit.
type Service interface {
	ExecProbe(ctx context.Context, dbID, sqlText string, rowLimit int) (*Result, error)
}

// ValidateReadOnly rejects statements that are not plain SELECT queries
func ValidateReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return fmt.Errorf("probe SQL cannot be empty")
	}

	lowerSQL := strings.ToLower(trimmed)

	if !strings.HasPrefix(lowerSQL, "select") && !strings.HasPrefix(lowerSQL, "with") {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	// A single trailing semicolon is tolerated; anything else that could
	// smuggle a second statement is not.
	if idx := strings.Index(lowerSQL, ";"); idx >= 0 && idx != len(lowerSQL)-1 {
		return fmt.Errorf("multiple statements are not allowed")
	}

	dangerousPatterns := []string{
		"drop table", "drop database", "delete from", "truncate",
		"alter table", "create table", "insert into", "update ",
		"grant ", "revoke ", "attach ", "install ", "copy ",
		"pragma ", "export ", "import ",
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerSQL, pattern) {
			return fmt.Errorf("SQL contains non-read-only operation: %s", strings.TrimSpace(pattern))
		}
	}

	return nil
}

// Rejected builds a rejection result without touching the database
func Rejected(reason string) *Result {
	return &Result{
		Status:       StatusError,
		ErrorType:    ErrRejected,
		ErrorMessage: truncateMessage(reason),
		Summary:      map[string]interface{}{"message": "probe rejected"},
	}
}

// classifyError maps a database error onto the probe error taxonomy
func classifyError(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "syntax") || strings.Contains(msg, "parser") {
		return ErrSyntax
	}

	return ErrExecution
}

// truncateMessage bounds an error message so observations stay prompt-sized
func truncateMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}

	return msg[:maxErrorMessageLen]
}
