package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/llm"
	"github.com/sqlscout/sqlscout/internal/schemalink"
)

const (
	generatorColumnsPerTable = 10

	// defaultSQL is emitted when the model yields nothing usable, so the
	// verifier always has a statement to probe.
	defaultSQL = "SELECT 1;"
)

// Generator turns a linked schema and question into SQL candidates
type Generator struct {
	gateway llm.Gateway
}

// NewGenerator creates a generator over the given gateway
func NewGenerator(gateway llm.Gateway) *Generator {
	return &Generator{gateway: gateway}
}

// Generate asks the model for SQL candidates grounded in the linked schema.
// It always returns at least one candidate.
func (g *Generator) Generate(
	ctx context.Context,
	question, dbID string,
	schema schemalink.LinkedSchema,
) ([]string, error) {
	response, err := g.gateway.Chat(ctx, g.buildPrompt(question, dbID, schema))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "SQL generation failed")
	}

	candidates := extractSQL(response)
	if len(candidates) == 0 {
		candidates = []string{defaultSQL}
	}

	return candidates, nil
}

// buildPrompt renders the generation prompt: question plus the linked schema
// bounded to generatorColumnsPerTable columns per table
func (g *Generator) buildPrompt(question, dbID string, schema schemalink.LinkedSchema) string {
	var b strings.Builder

	b.WriteString("You are a SQL generation agent. ")
	b.WriteString("Write DuckDB SQL answering the question using ONLY the tables and columns below.\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Database: %s\n", dbID)
	b.WriteString("Schema:\n")

	for _, table := range schema.Tables() {
		set := schema[table]

		cols := set.Columns
		if len(cols) > generatorColumnsPerTable {
			cols = cols[:generatorColumnsPerTable]
		}

		parts := make([]string, 0, len(cols))
		for _, col := range cols {
			parts = append(parts, fmt.Sprintf("%s %s", col.Name, col.Type))
		}

		fmt.Fprintf(&b, "  %s(%s)\n", table, strings.Join(parts, ", "))
	}

	b.WriteString("Respond with one or more SELECT statements, each in its own ```sql fence.")

	return b.String()
}

// extractSQL pulls SQL statements out of a model response. Fenced blocks win;
// otherwise the whole response is treated as one statement when it looks like
// a query.
func extractSQL(response string) []string {
	var candidates []string

	rest := response

	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}

		rest = rest[start+3:]

		// Skip the language tag line.
		if idx := strings.Index(rest, "\n"); idx >= 0 && looksLikeTag(rest[:idx]) {
			rest = rest[idx+1:]
		}

		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}

		if stmt := strings.TrimSpace(rest[:end]); isQuery(stmt) {
			candidates = append(candidates, stmt)
		}

		rest = rest[end+3:]
	}

	if len(candidates) > 0 {
		return candidates
	}

	// Some models respond with a JSON array of statements instead.
	var fromJSON []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &fromJSON); err == nil {
		for _, stmt := range fromJSON {
			if isQuery(strings.TrimSpace(stmt)) {
				candidates = append(candidates, strings.TrimSpace(stmt))
			}
		}

		if len(candidates) > 0 {
			return candidates
		}
	}

	if stmt := strings.TrimSpace(response); isQuery(stmt) {
		return []string{stmt}
	}

	return nil
}

// isQuery reports whether a statement starts like a read-only query
func isQuery(stmt string) bool {
	lower := strings.ToLower(stmt)

	return strings.HasPrefix(lower, "select") || strings.HasPrefix(lower, "with")
}

// looksLikeTag reports whether a fence's first line is a language tag rather
// than SQL
func looksLikeTag(line string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(line))

	return trimmed == "" || trimmed == "sql" || trimmed == "duckdb"
}
