package probe

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr bool
	}{
		{name: "plain select", sql: "SELECT * FROM orders"},
		{name: "select with trailing semicolon", sql: "SELECT 1;"},
		{name: "cte", sql: "WITH t AS (SELECT 1) SELECT * FROM t"},
		{name: "leading whitespace", sql: "   SELECT name FROM customers"},
		{name: "mixed case", sql: "Select Count(*) From orders"},

		{name: "empty", sql: "", wantErr: true},
		{name: "whitespace only", sql: "   ", wantErr: true},
		{name: "insert", sql: "INSERT INTO orders VALUES (1)", wantErr: true},
		{name: "update", sql: "UPDATE orders SET amount = 0", wantErr: true},
		{name: "delete disguised in select", sql: "SELECT 1; DELETE FROM orders", wantErr: true},
		{name: "multiple statements", sql: "SELECT 1; SELECT 2", wantErr: true},
		{name: "drop", sql: "DROP TABLE orders", wantErr: true},
		{name: "pragma", sql: "SELECT * FROM x WHERE y IN (PRAGMA database_list)", wantErr: true},
		{name: "attach", sql: "SELECT 1 FROM t; ATTACH 'x.db'", wantErr: true},
		{name: "install extension", sql: "SELECT install ('httpfs')", wantErr: true},
		{name: "copy", sql: "SELECT 1 UNION ALL COPY t TO 'f.csv'", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnly(tt.sql)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRejected(t *testing.T) {
	result := Rejected("only SELECT statements are allowed")

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, ErrRejected, result.ErrorType)
	assert.Equal(t, "only SELECT statements are allowed", result.ErrorMessage)
}

func TestClassifyError(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ErrSyntax, classifyError(ctx, fmt.Errorf("Parser Error: unexpected token")))
	assert.Equal(t, ErrSyntax, classifyError(ctx, fmt.Errorf("syntax error at or near FROM")))
	assert.Equal(t, ErrExecution, classifyError(ctx, fmt.Errorf("table orders does not exist")))

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	assert.Equal(t, ErrTimeout, classifyError(canceled, fmt.Errorf("query interrupted")))
}

func TestTruncateMessage(t *testing.T) {
	long := strings.Repeat("x", 500)

	assert.Len(t, truncateMessage(long), maxErrorMessageLen)
	assert.Equal(t, "short", truncateMessage("short"))
}
