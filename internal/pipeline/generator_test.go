package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscout/sqlscout/internal/schemalink"
	"github.com/sqlscout/sqlscout/internal/testutil"
)

func testSchema() schemalink.LinkedSchema {
	return schemalink.BuildLinkedSchema(testutil.SalesColumns())
}

func TestGenerateFromFencedResponse(t *testing.T) {
	gateway := testutil.NewMockGateway(
		"Here is the query:\n```sql\nSELECT name, SUM(amount) FROM orders JOIN customers ON customers.id = orders.customer_id GROUP BY name\n```",
	)

	generator := NewGenerator(gateway)

	candidates, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0], "SUM(amount)")

	// The prompt carries the linked schema.
	require.Len(t, gateway.Prompts, 1)
	assert.Contains(t, gateway.Prompts[0], "orders(")
	assert.Contains(t, gateway.Prompts[0], testutil.TestQuestion)
}

func TestGenerateMultipleCandidates(t *testing.T) {
	gateway := testutil.NewMockGateway(
		"```sql\nSELECT 1\n```\nor alternatively\n```sql\nSELECT 2\n```",
	)

	generator := NewGenerator(gateway)

	candidates, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, candidates)
}

func TestGenerateBareResponse(t *testing.T) {
	gateway := testutil.NewMockGateway("SELECT COUNT(*) FROM orders")

	generator := NewGenerator(gateway)

	candidates, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT COUNT(*) FROM orders"}, candidates)
}

func TestGenerateJSONArrayResponse(t *testing.T) {
	gateway := testutil.NewMockGateway(`["SELECT 1", "WITH t AS (SELECT 2) SELECT * FROM t"]`)

	generator := NewGenerator(gateway)

	candidates, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	require.NoError(t, err)

	assert.Len(t, candidates, 2)
}

func TestGenerateDefaultsWhenUnusable(t *testing.T) {
	gateway := testutil.NewMockGateway("I cannot answer this question.")

	generator := NewGenerator(gateway)

	candidates, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT 1;"}, candidates)
}

func TestGenerateGatewayError(t *testing.T) {
	gateway := testutil.NewMockGateway()
	gateway.Err = fmt.Errorf("connection refused")

	generator := NewGenerator(gateway)

	_, err := generator.Generate(
		context.Background(),
		testutil.TestQuestion, testutil.TestDatabaseID,
		testSchema(),
	)
	assert.Error(t, err)
}

func TestExtractSQLIgnoresNonQueries(t *testing.T) {
	candidates := extractSQL("```sql\nDROP TABLE orders\n```")
	assert.Empty(t, candidates)
}
