package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscout/sqlscout/internal/schemalink"
	"github.com/sqlscout/sqlscout/internal/store"
	"github.com/sqlscout/sqlscout/internal/testutil"
)

func newTestOrchestrator(t *testing.T, gateway *testutil.MockGateway) (*Orchestrator, *store.ContextStore) {
	t.Helper()

	index := testutil.NewMockIndex(testutil.SalesColumns())
	probes := testutil.NewMockProbe()

	cfg := schemalink.DefaultConfig()
	cfg.MaxSteps = 2
	cfg.InitialTopM = 4

	contexts, err := store.NewContextStore(t.TempDir())
	require.NoError(t, err)

	orchestrator := NewOrchestrator(
		NewRouter(index, []string{testutil.TestDatabaseID}),
		schemalink.NewEngine(gateway, index, probes, cfg),
		NewGenerator(gateway),
		NewVerifier(probes, 5),
		contexts,
	)

	return orchestrator, contexts
}

func TestAnswerEndToEnd(t *testing.T) {
	gateway := testutil.NewMockGateway(
		// Linking: one retrieve step, then stop.
		`[{"type": "retrieve_schema", "query": "orders amount"}]`,
		`[{"type": "stop_action"}]`,
		// Generation.
		"```sql\nSELECT SUM(amount) FROM orders\n```",
	)

	orchestrator, contexts := newTestOrchestrator(t, gateway)

	qc, err := orchestrator.Answer(context.Background(), Request{Question: testutil.TestQuestion})
	require.NoError(t, err)

	assert.NotEmpty(t, qc.ID)
	assert.Equal(t, testutil.TestDatabaseID, qc.DatabaseID)
	assert.Equal(t, "SELECT SUM(amount) FROM orders", qc.FinalSQL)
	require.NotNil(t, qc.VerifyResult)

	schema, trace := qc.LinkingProgress()
	assert.Positive(t, schema.ColumnCount())
	assert.Len(t, trace, 2)

	// Every stage left a summary.
	for _, stage := range []string{"router", "linker", "generator", "verifier"} {
		assert.Contains(t, qc.AgentSummaries, stage)
	}

	assert.False(t, qc.Metrics.FinishedAt.IsZero())

	// The record was persisted under the query id.
	ids, err := contexts.List()
	require.NoError(t, err)
	assert.Equal(t, []string{qc.ID}, ids)

	var record Record
	require.NoError(t, contexts.Load(qc.ID, &record))

	assert.Equal(t, qc.FinalSQL, record.FinalSQL)
	assert.NotEmpty(t, record.Schema)
}

func TestAnswerSinkSeesPartialProgress(t *testing.T) {
	gateway := testutil.NewMockGateway(
		`[{"type": "retrieve_schema", "query": "orders"}]`,
		`[{"type": "stop_action"}]`,
		"```sql\nSELECT 1\n```",
	)

	orchestrator, _ := newTestOrchestrator(t, gateway)

	qc, err := orchestrator.Answer(context.Background(), Request{Question: testutil.TestQuestion})
	require.NoError(t, err)

	// The engine streamed its state into the context; the trace survives.
	_, trace := qc.LinkingProgress()
	require.Len(t, trace, 2)
	assert.Equal(t, schemalink.ActionStop, trace[1].Actions[0].Type)
}

func TestAnswerRecordsCallerIdentity(t *testing.T) {
	gateway := testutil.NewMockGateway(
		`[{"type": "stop_action"}]`,
		"```sql\nSELECT 1\n```",
	)

	orchestrator, contexts := newTestOrchestrator(t, gateway)

	qc, err := orchestrator.Answer(context.Background(), Request{
		UserID:    "u-42",
		SessionID: "s-7",
		Question:  testutil.TestQuestion,
		ReadOnly:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "u-42", qc.UserID)
	assert.Equal(t, "s-7", qc.SessionID)
	assert.True(t, qc.ReadOnly)

	// Identity travels into the persisted record.
	var record Record
	require.NoError(t, contexts.Load(qc.ID, &record))

	assert.Equal(t, "u-42", record.UserID)
	assert.Equal(t, "s-7", record.SessionID)
	assert.True(t, record.ReadOnly)
}

func TestAnswerPinnedDatabase(t *testing.T) {
	gateway := testutil.NewMockGateway(
		`[{"type": "stop_action"}]`,
		"```sql\nSELECT 1\n```",
	)

	index := testutil.NewMockIndex(testutil.SalesColumns())

	orchestrator := NewOrchestrator(
		NewRouter(index, []string{"inventory", testutil.TestDatabaseID}),
		schemalink.NewEngine(gateway, index, testutil.NewMockProbe(), schemalink.DefaultConfig()),
		NewGenerator(gateway),
		NewVerifier(testutil.NewMockProbe(), 5),
		nil,
	)

	qc, err := orchestrator.Answer(context.Background(), Request{
		Question: testutil.TestQuestion,
		Database: testutil.TestDatabaseID,
	})
	require.NoError(t, err)

	assert.Equal(t, testutil.TestDatabaseID, qc.DatabaseID)
	assert.Contains(t, qc.AgentSummaries["router"], "requested database")

	// Pinning skips selection: the first index call already targets the
	// requested database.
	require.NotEmpty(t, index.Calls)
	assert.Equal(t, testutil.TestDatabaseID, index.Calls[0].DBID)
}

func TestAnswerUnknownPinnedDatabase(t *testing.T) {
	gateway := testutil.NewMockGateway(`[{"type": "stop_action"}]`)

	orchestrator, _ := newTestOrchestrator(t, gateway)

	_, err := orchestrator.Answer(context.Background(), Request{
		Question: testutil.TestQuestion,
		Database: "warehouse",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse")
}

func TestAnswerRoutingFailure(t *testing.T) {
	gateway := testutil.NewMockGateway(`[{"type": "stop_action"}]`)

	index := testutil.NewMockIndex(nil)

	orchestrator := NewOrchestrator(
		NewRouter(index, nil),
		schemalink.NewEngine(gateway, index, testutil.NewMockProbe(), schemalink.DefaultConfig()),
		NewGenerator(gateway),
		NewVerifier(testutil.NewMockProbe(), 5),
		nil,
	)

	qc, err := orchestrator.Answer(context.Background(), Request{Question: testutil.TestQuestion})
	require.Error(t, err)

	// The partial context still identifies the question.
	assert.Equal(t, testutil.TestQuestion, qc.Question)
	assert.Empty(t, qc.DatabaseID)
}
