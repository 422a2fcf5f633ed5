package testutil

import (
	"context"
	"fmt"

	"github.com/sqlscout/sqlscout/internal/catalog"
	"github.com/sqlscout/sqlscout/internal/probe"
)

// MockGateway replays scripted responses in order. When the script runs out
// it keeps returning the last response, so engine loops never block on it.
type MockGateway struct {
	Responses []string
	Err       error
	Calls     int
	Prompts   []string
}

// NewMockGateway creates a gateway that replays the given responses
func NewMockGateway(responses ...string) *MockGateway {
	return &MockGateway{Responses: responses}
}

// Chat returns the next scripted response
func (m *MockGateway) Chat(_ context.Context, prompt string) (string, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)

	if m.Err != nil {
		return "", m.Err
	}

	if len(m.Responses) == 0 {
		return "", fmt.Errorf("mock gateway has no responses")
	}

	idx := m.Calls - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}

	return m.Responses[idx], nil
}

// SearchCall records the arguments of one SearchColumns invocation
type SearchCall struct {
	DBID    string
	Query   string
	Exclude []string
	TopK    int
}

// MockIndex implements catalog.Index over a fixed column list with optional
// error injection and full call recording
type MockIndex struct {
	Columns   []catalog.ColumnDescriptor
	SearchErr error
	Calls     []SearchCall

	// Delegate, when set, replaces the default fixture scan entirely.
	Delegate func(query string, exclude []string, topK int) []catalog.ColumnDescriptor
}

// NewMockIndex creates an index over the given columns
func NewMockIndex(cols []catalog.ColumnDescriptor) *MockIndex {
	return &MockIndex{Columns: cols}
}

// SearchColumns returns columns whose identity contains any query term,
// honoring exclude and topK the way the real index does
func (m *MockIndex) SearchColumns(
	_ context.Context,
	dbID, query string,
	exclude []string,
	topK int,
) ([]catalog.ColumnDescriptor, error) {
	m.Calls = append(m.Calls, SearchCall{DBID: dbID, Query: query, Exclude: exclude, TopK: topK})

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	if m.Delegate != nil {
		return m.Delegate(query, exclude, topK), nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []catalog.ColumnDescriptor

	for _, col := range m.Columns {
		if excluded[col.ID()] {
			continue
		}

		out = append(out, col)

		if topK > 0 && len(out) >= topK {
			break
		}
	}

	return out, nil
}

// ListTables returns the distinct tables of the fixture in order of first
// appearance
func (m *MockIndex) ListTables(_ context.Context, _ string) ([]string, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	seen := make(map[string]bool)

	var tables []string

	for _, col := range m.Columns {
		if !seen[col.Table] {
			seen[col.Table] = true

			tables = append(tables, col.Table)
		}
	}

	return tables, nil
}

// ProbeCall records the arguments of one ExecProbe invocation
type ProbeCall struct {
	DBID     string
	SQL      string
	RowLimit int
}

// MockProbe implements probe.Service with scripted results per SQL text and
// a default result for everything else
type MockProbe struct {
	Results map[string]*probe.Result
	Default *probe.Result
	Err     error
	Calls   []ProbeCall
}

// NewMockProbe creates a probe service whose default result is a clean
// zero-row success
func NewMockProbe() *MockProbe {
	return &MockProbe{
		Results: make(map[string]*probe.Result),
		Default: &probe.Result{
			Status:  probe.StatusOK,
			Summary: map[string]interface{}{"row_count": 0},
		},
	}
}

// ExecProbe returns the scripted result for the statement, or the default
func (m *MockProbe) ExecProbe(
	_ context.Context,
	dbID, sqlText string,
	rowLimit int,
) (*probe.Result, error) {
	m.Calls = append(m.Calls, ProbeCall{DBID: dbID, SQL: sqlText, RowLimit: rowLimit})

	if m.Err != nil {
		return nil, m.Err
	}

	if result, ok := m.Results[sqlText]; ok {
		return result, nil
	}

	return m.Default, nil
}
