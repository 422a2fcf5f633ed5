// Package api defines the external request and response shapes of the
// question-answering pipeline.
package api

import (
	"time"

	"github.com/sqlscout/sqlscout/internal/pipeline"
	"github.com/sqlscout/sqlscout/internal/schemalink"
)

// Default request option values
const (
	DefaultTemperature  = 0.3
	DefaultMaxLatencyMS = 5000
)

// QueryRequest is one natural-language question against the catalog,
// attributed to a user and session
type QueryRequest struct {
	UserID    string       `json:"user_id,omitempty"`
	SessionID string       `json:"session_id,omitempty"`
	QueryText string       `json:"query_text"`
	Database  string       `json:"database,omitempty"` // empty means route automatically
	Options   QueryOptions `json:"options"`
}

// QueryOptions tunes per-request pipeline behavior
type QueryOptions struct {
	Temperature  float64 `json:"temperature"`
	ReadOnly     bool    `json:"readonly"`
	MaxLatencyMS int     `json:"max_latency_ms"`
}

// DefaultQueryOptions returns the option values applied when a caller sends
// none
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		Temperature:  DefaultTemperature,
		ReadOnly:     true,
		MaxLatencyMS: DefaultMaxLatencyMS,
	}
}

// ToRequest converts the external payload into the pipeline's input shape
func (r QueryRequest) ToRequest() pipeline.Request {
	return pipeline.Request{
		UserID:      r.UserID,
		SessionID:   r.SessionID,
		Question:    r.QueryText,
		Database:    r.Database,
		Temperature: r.Options.Temperature,
		ReadOnly:    r.Options.ReadOnly,
		MaxLatency:  time.Duration(r.Options.MaxLatencyMS) * time.Millisecond,
	}
}

// QueryResponse is the external result of one pipeline run
type QueryResponse struct {
	ID           string                                `json:"id"`
	SessionID    string                                `json:"session_id,omitempty"`
	Question     string                                `json:"question"`
	Database     string                                `json:"database,omitempty"`
	SQL          string                                `json:"sql,omitempty"`
	Schema       map[string]schemalink.SerializedTable `json:"schema,omitempty"`
	SampleRows   []map[string]interface{}              `json:"sample_rows,omitempty"`
	Steps        int                                   `json:"steps"`
	ForcedStop   bool                                  `json:"forced_stop"`
	Summaries    map[string]string                     `json:"summaries,omitempty"`
	LatencyMS    int64                                 `json:"latency_ms"`
	ErrorType    string                                `json:"error_type,omitempty"`
	ErrorMessage string                                `json:"error_message,omitempty"`
}

// FromContext converts a finished query context into the response shape
func FromContext(qc *pipeline.QueryContext) *QueryResponse {
	record := qc.Snapshot()

	resp := &QueryResponse{
		ID:        record.ID,
		SessionID: record.SessionID,
		Question:  record.Question,
		Database:  record.DatabaseID,
		SQL:       record.FinalSQL,
		Schema:    record.Schema,
		Steps:     len(record.Trace),
		Summaries: record.AgentSummaries,
	}

	if len(record.Trace) > 0 {
		resp.ForcedStop = record.Trace[len(record.Trace)-1].ForcedStop
	}

	if result := record.VerifyResult; result != nil {
		resp.SampleRows = result.SampleRows
		resp.ErrorType = result.ErrorType
		resp.ErrorMessage = result.ErrorMessage
	}

	if !record.Metrics.FinishedAt.IsZero() {
		resp.LatencyMS = record.Metrics.FinishedAt.Sub(record.Metrics.StartedAt).Milliseconds()
	}

	return resp
}
