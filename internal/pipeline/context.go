// Package pipeline composes routing, schema linking, SQL generation, and
// verification into one question-answering flow over registered databases.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sqlscout/sqlscout/internal/probe"
	"github.com/sqlscout/sqlscout/internal/schemalink"
)

// Request carries one question and its caller identity into a pipeline run.
// Database, when set, pins the run to that database instead of routing.
type Request struct {
	UserID      string        `json:"user_id,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	Question    string        `json:"question"`
	Database    string        `json:"database,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	ReadOnly    bool          `json:"read_only"`
	MaxLatency  time.Duration `json:"max_latency,omitempty"`
}

// Metrics records stage completion timestamps for one query
type Metrics struct {
	StartedAt   time.Time `json:"started_at"`
	RoutedAt    time.Time `json:"routed_at,omitempty"`
	LinkedAt    time.Time `json:"linked_at,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	VerifiedAt  time.Time `json:"verified_at,omitempty"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

// QueryContext is the shared working record of one question as it moves
// through the pipeline stages. The linking engine streams partial schema
// state into it, so a reader holding the context mid-run sees progress.
type QueryContext struct {
	mu sync.Mutex

	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id,omitempty"`
	SessionID       string                  `json:"session_id,omitempty"`
	ReadOnly        bool                    `json:"read_only"`
	Question        string                  `json:"question"`
	DatabaseID      string                  `json:"database_id,omitempty"`
	CandidateTables []string                `json:"candidate_tables,omitempty"`
	Schema          schemalink.LinkedSchema `json:"-"`
	Trace           schemalink.Trace        `json:"trace,omitempty"`
	SQLCandidates   []string                `json:"sql_candidates,omitempty"`
	FinalSQL        string                  `json:"final_sql,omitempty"`
	VerifyResult    *probe.Result           `json:"verify_result,omitempty"`
	AgentSummaries  map[string]string       `json:"agent_summaries,omitempty"`
	Metrics         Metrics                 `json:"metrics"`
}

// NewQueryContext creates a context for one request with a fresh id,
// carrying the caller identity through every stage and into persistence
func NewQueryContext(req Request) *QueryContext {
	return &QueryContext{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		ReadOnly:       req.ReadOnly,
		Question:       req.Question,
		AgentSummaries: make(map[string]string),
		Metrics:        Metrics{StartedAt: time.Now()},
	}
}

// UpdateLinking receives the evolving schema and trace from the linking
// engine after every step
func (qc *QueryContext) UpdateLinking(schema schemalink.LinkedSchema, trace schemalink.Trace) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.Schema = schema
	qc.Trace = trace
}

// LinkingProgress returns the current schema and trace under the lock
func (qc *QueryContext) LinkingProgress() (schemalink.LinkedSchema, schemalink.Trace) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	return qc.Schema, qc.Trace
}

// AddSummary records a per-stage summary line
func (qc *QueryContext) AddSummary(stage, summary string) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	qc.AgentSummaries[stage] = summary
}

// Record is the persistence shape of a completed query context
type Record struct {
	ID              string                                `json:"id"`
	UserID          string                                `json:"user_id,omitempty"`
	SessionID       string                                `json:"session_id,omitempty"`
	ReadOnly        bool                                  `json:"read_only"`
	Question        string                                `json:"question"`
	DatabaseID      string                                `json:"database_id,omitempty"`
	CandidateTables []string                              `json:"candidate_tables,omitempty"`
	Schema          map[string]schemalink.SerializedTable `json:"schema,omitempty"`
	Trace           schemalink.Trace                      `json:"trace,omitempty"`
	SQLCandidates   []string                              `json:"sql_candidates,omitempty"`
	FinalSQL        string                                `json:"final_sql,omitempty"`
	VerifyResult    *probe.Result                         `json:"verify_result,omitempty"`
	AgentSummaries  map[string]string                     `json:"agent_summaries,omitempty"`
	Metrics         Metrics                               `json:"metrics"`
}

// Snapshot converts the context into its persistence record
func (qc *QueryContext) Snapshot() *Record {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	var schema map[string]schemalink.SerializedTable
	if qc.Schema != nil {
		schema = qc.Schema.Serialize()
	}

	return &Record{
		ID:              qc.ID,
		UserID:          qc.UserID,
		SessionID:       qc.SessionID,
		ReadOnly:        qc.ReadOnly,
		Question:        qc.Question,
		DatabaseID:      qc.DatabaseID,
		CandidateTables: qc.CandidateTables,
		Schema:          schema,
		Trace:           qc.Trace,
		SQLCandidates:   qc.SQLCandidates,
		FinalSQL:        qc.FinalSQL,
		VerifyResult:    qc.VerifyResult,
		AgentSummaries:  qc.AgentSummaries,
		Metrics:         qc.Metrics,
	}
}
