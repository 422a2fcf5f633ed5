package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscout/sqlscout/internal/pipeline"
	"github.com/sqlscout/sqlscout/internal/probe"
	"github.com/sqlscout/sqlscout/internal/schemalink"
	"github.com/sqlscout/sqlscout/internal/testutil"
)

func TestFromContext(t *testing.T) {
	qc := pipeline.NewQueryContext(pipeline.Request{
		Question:  testutil.TestQuestion,
		SessionID: "s-7",
	})
	qc.DatabaseID = testutil.TestDatabaseID
	qc.FinalSQL = "SELECT SUM(amount) FROM orders"
	qc.VerifyResult = &probe.Result{
		Status:     probe.StatusOK,
		RowCount:   1,
		SampleRows: []map[string]interface{}{{"sum": 350}},
	}

	qc.UpdateLinking(
		schemalink.BuildLinkedSchema(testutil.SalesColumns()),
		schemalink.Trace{
			{Step: 0},
			{Step: 1, ForcedStop: true},
		},
	)

	qc.Metrics.FinishedAt = qc.Metrics.StartedAt.Add(1500 * time.Millisecond)

	resp := FromContext(qc)

	assert.Equal(t, qc.ID, resp.ID)
	assert.Equal(t, "s-7", resp.SessionID)
	assert.Equal(t, testutil.TestQuestion, resp.Question)
	assert.Equal(t, testutil.TestDatabaseID, resp.Database)
	assert.Equal(t, "SELECT SUM(amount) FROM orders", resp.SQL)
	assert.Equal(t, 2, resp.Steps)
	assert.True(t, resp.ForcedStop)
	assert.Equal(t, int64(1500), resp.LatencyMS)

	require.Len(t, resp.SampleRows, 1)
	require.Contains(t, resp.Schema, "orders")
	assert.Empty(t, resp.ErrorType)
}

func TestFromContextVerificationFailure(t *testing.T) {
	qc := pipeline.NewQueryContext(pipeline.Request{Question: testutil.TestQuestion})
	qc.VerifyResult = &probe.Result{
		Status:       probe.StatusError,
		ErrorType:    probe.ErrSyntax,
		ErrorMessage: "bad SQL",
	}

	resp := FromContext(qc)

	assert.Equal(t, probe.ErrSyntax, resp.ErrorType)
	assert.Equal(t, "bad SQL", resp.ErrorMessage)
	assert.False(t, resp.ForcedStop)

	// An unfinished run reports zero latency rather than a negative one.
	assert.Zero(t, resp.LatencyMS)
}

func TestDefaultQueryOptions(t *testing.T) {
	opts := DefaultQueryOptions()

	assert.Equal(t, 0.3, opts.Temperature)
	assert.True(t, opts.ReadOnly)
	assert.Equal(t, 5000, opts.MaxLatencyMS)
}

func TestQueryRequestToRequest(t *testing.T) {
	req := QueryRequest{
		UserID:    "u-42",
		SessionID: "s-7",
		QueryText: testutil.TestQuestion,
		Database:  testutil.TestDatabaseID,
		Options:   DefaultQueryOptions(),
	}

	pr := req.ToRequest()

	assert.Equal(t, "u-42", pr.UserID)
	assert.Equal(t, "s-7", pr.SessionID)
	assert.Equal(t, testutil.TestQuestion, pr.Question)
	assert.Equal(t, testutil.TestDatabaseID, pr.Database)
	assert.Equal(t, 0.3, pr.Temperature)
	assert.True(t, pr.ReadOnly)
	assert.Equal(t, 5*time.Second, pr.MaxLatency)
}
