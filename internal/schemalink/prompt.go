package schemalink

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	promptColumnsPerTable = 5
	promptTraceWindow     = 2

	// Rough chars-per-token estimate used for advisory budget truncation.
	charsPerToken = 4
)

// buildPrompt renders the deterministic planning prompt for the current
// state: goal, question, candidate tables, a truncated schema summary, the
// recent trace window, and the closed action vocabulary
func buildPrompt(st *state, cfg Config) string {
	var b strings.Builder

	b.WriteString("You are a schema linking agent for a NL2SQL system. ")
	b.WriteString("Goal: maximize recall of relevant columns while keeping the linked schema minimal.\n")
	fmt.Fprintf(&b, "Question: %s\n", st.question)
	fmt.Fprintf(&b, "Database: %s\n", st.dbID)
	fmt.Fprintf(&b, "Candidate tables: %s\n", strings.Join(st.candidateTables, ", "))
	fmt.Fprintf(&b, "Current linked schema (truncated): %s\n", schemaSummary(st.schema, cfg.PromptTokenBudget))
	fmt.Fprintf(&b, "Recent trace:\n%s\n", traceWindow(st.trace))
	b.WriteString("Allowed actions: retrieve_schema, explore_schema, verify_schema, add_schema, stop_action.\n")
	b.WriteString("Fields per action: type, plus query/top_k (retrieve_schema), sql (explore_schema, verify_schema), columns (add_schema).\n")
	b.WriteString("Respond with ONLY a JSON array of actions. ")
	b.WriteString("Include at least one feedback action (retrieve_schema, explore_schema, or verify_schema) per step.")

	return b.String()
}

// schemaSummary renders at most promptColumnsPerTable columns per table,
// dropping trailing tables once the advisory token budget is exceeded
func schemaSummary(schema LinkedSchema, tokenBudget int) string {
	if len(schema) == 0 {
		return "(empty)"
	}

	charBudget := tokenBudget * charsPerToken / 2
	if charBudget <= 0 {
		charBudget = 1 << 16
	}

	var (
		parts []string
		used  int
	)

	for _, table := range schema.Tables() {
		set := schema[table]

		cols := set.Columns
		truncated := ""

		if len(cols) > promptColumnsPerTable {
			cols = cols[:promptColumnsPerTable]
			truncated = fmt.Sprintf(", +%d more", len(set.Columns)-promptColumnsPerTable)
		}

		colParts := make([]string, 0, len(cols))
		for _, col := range cols {
			colParts = append(colParts, fmt.Sprintf("%s:%s", col.Name, col.Type))
		}

		part := fmt.Sprintf("%s: %s%s", table, strings.Join(colParts, ", "), truncated)

		if used+len(part) > charBudget && len(parts) > 0 {
			parts = append(parts, fmt.Sprintf("(… %d more tables omitted)", len(schema)-len(parts)))
			break
		}

		parts = append(parts, part)
		used += len(part)
	}

	return strings.Join(parts, "; ")
}

// traceWindow renders the last steps of the trace for short-term context
func traceWindow(trace Trace) string {
	if len(trace) == 0 {
		return "(none)"
	}

	start := len(trace) - promptTraceWindow
	if start < 0 {
		start = 0
	}

	var lines []string

	for _, step := range trace[start:] {
		actions, _ := json.Marshal(step.Actions)
		observations, _ := json.Marshal(step.Observations)
		lines = append(lines, fmt.Sprintf(
			"step %d: actions=%s observations=%s",
			step.Step, actions, observations,
		))
	}

	return strings.Join(lines, "\n")
}
