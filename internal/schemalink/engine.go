// Package schemalink implements the iterative schema-linking loop: a
// bounded-horizon alternation of planner-proposed actions and deterministic
// tool execution that accumulates the minimal schema subset needed to answer
// a question.
package schemalink

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlscout/sqlscout/internal/catalog"
	"github.com/sqlscout/sqlscout/internal/llm"
	"github.com/sqlscout/sqlscout/internal/logging"
	"github.com/sqlscout/sqlscout/internal/probe"
)

// Config holds the tunable parameters of the linking loop
type Config struct {
	InitialTopM        int
	RetrieveTopK       int
	MaxSteps           int
	PromptTokenBudget  int
	MinFeedbackActions int
	ProbeRowLimit      int
	EnableExplore      bool
	EnableVerify       bool
}

// DefaultConfig returns the default loop parameters
func DefaultConfig() Config {
	return Config{
		InitialTopM:        80,
		RetrieveTopK:       5,
		MaxSteps:           8,
		PromptTokenBudget:  4000,
		MinFeedbackActions: 1,
		ProbeRowLimit:      5,
		EnableExplore:      true,
		EnableVerify:       true,
	}
}

// ProgressSink receives the evolving schema and trace after every step, so
// callers inspecting shared state mid-run see partial progress
type ProgressSink interface {
	UpdateLinking(schema LinkedSchema, trace Trace)
}

// Engine owns one run's working state and drives the planning loop. An
// Engine is stateless between runs; concurrent runs need only share
// collaborators that tolerate concurrent reads.
type Engine struct {
	gateway llm.Gateway
	index   catalog.Index
	probes  probe.Service
	config  Config
}

// NewEngine creates a schema-linking engine with its tool dependencies
func NewEngine(gateway llm.Gateway, index catalog.Index, probes probe.Service, config Config) *Engine {
	return &Engine{
		gateway: gateway,
		index:   index,
		probes:  probes,
		config:  config,
	}
}

// Run executes the linking loop for one question. It always returns a
// schema (possibly just the seed) and the full trace: tool and transport
// failures are folded into observations, and budget exhaustion is recorded
// on the trace rather than reported as an error.
func (e *Engine) Run(
	ctx context.Context,
	question, dbID string,
	candidateTables []string,
	sink ProgressSink,
) (LinkedSchema, Trace) {
	st := e.seed(ctx, question, dbID, candidateTables)

	e.publish(sink, st)

	for st.step < e.config.MaxSteps {
		actions := e.plan(ctx, st)

		observations := make([]Observation, 0, len(actions))
		feedbackActions := 0

		for _, action := range actions {
			if obs := e.dispatch(ctx, action, st); obs != nil {
				observations = append(observations, *obs)
			}

			if action.IsFeedback() {
				feedbackActions++
			}
		}

		if feedbackActions < e.config.MinFeedbackActions {
			observations = append(observations, Observation{
				Warning: "no_feedback_action",
				Detail:  "add retrieve_schema/explore_schema/verify_schema",
			})
		}

		st.trace = append(st.trace, TraceStep{
			Step:         st.step,
			Actions:      actions,
			Observations: observations,
		})

		e.publish(sink, st)

		if containsStop(actions) {
			logging.Debugf("schema linking stopped naturally at step %d", st.step)
			break
		}

		st.step++
	}

	if st.step >= e.config.MaxSteps && len(st.trace) > 0 {
		st.trace[len(st.trace)-1].ForcedStop = true

		logging.Debugf("schema linking exhausted %d steps", e.config.MaxSteps)
		e.publish(sink, st)
	}

	return st.schema, st.trace
}

// seed issues the initial wide retrieval and builds the run state
func (e *Engine) seed(ctx context.Context, question, dbID string, candidateTables []string) *state {
	seedCols, err := e.index.SearchColumns(ctx, dbID, question, nil, e.config.InitialTopM)
	if err != nil {
		// The run still proceeds: the model can retrieve its way back.
		logging.Warnf("seed retrieval for %s failed: %v", dbID, err)
	}

	seen := make(map[string]bool, len(seedCols))
	for _, col := range seedCols {
		seen[col.ID()] = true
	}

	return &state{
		dbID:            dbID,
		question:        question,
		candidateTables: candidateTables,
		schema:          BuildLinkedSchema(seedCols),
		seenColumns:     seen,
		retrieveCache:   make(map[string][]catalog.ColumnDescriptor),
	}
}

// plan asks the gateway for this step's actions. A transport failure is
// handled exactly like an unparseable response: substitute a marked stop.
func (e *Engine) plan(ctx context.Context, st *state) []Action {
	raw, err := e.gateway.Chat(ctx, buildPrompt(st, e.config))
	if err != nil {
		logging.Warnf("gateway failed at step %d: %v", st.step, err)
		return []Action{{Type: ActionStop, ParseFallback: true}}
	}

	actions, fellBack := ParseActions(raw)
	if fellBack {
		logging.Warnf("unparseable planner response at step %d", st.step)
	}

	return actions
}

// dispatch executes a single action against the tools and returns its
// observation
func (e *Engine) dispatch(ctx context.Context, action Action, st *state) *Observation {
	switch action.Type {
	case ActionRetrieveSchema:
		return e.retrieveSchema(ctx, action, st)

	case ActionExploreSchema:
		if e.config.EnableExplore {
			return e.exploreSchema(ctx, action, st)
		}

	case ActionVerifySchema:
		if e.config.EnableVerify {
			return e.verifySchema(ctx, action, st)
		}

	case ActionAddSchema:
		return e.addSchema(ctx, action, st)

	case ActionStop:
		return &Observation{Action: ActionStop}
	}

	// Unrecognized (or disabled) action types stay visible in the trace
	// instead of crashing the loop.
	return &Observation{Action: ActionUnknown, Detail: action.Raw()}
}

// retrieveSchema stages candidate columns in the run cache. It does not
// link anything: linking happens only through add_schema.
func (e *Engine) retrieveSchema(ctx context.Context, action Action, st *state) *Observation {
	query := action.Query
	if query == "" {
		query = st.question
	}

	topK := action.TopK
	if topK <= 0 {
		topK = e.config.RetrieveTopK
	}

	cols, err := e.index.SearchColumns(ctx, st.dbID, query, st.excludeSeen(), topK)
	if err != nil {
		return &Observation{
			Action:    ActionRetrieveSchema,
			Query:     query,
			Status:    probe.StatusError,
			ErrorType: "retrieval",
			Message:   err.Error(),
		}
	}

	cacheKey := fmt.Sprintf("step-%d-%d", st.step, len(st.retrieveCache))
	st.retrieveCache[cacheKey] = cols

	returned := make([]string, 0, len(cols))
	for _, col := range cols {
		returned = append(returned, col.ID())
	}

	return &Observation{
		Action:   ActionRetrieveSchema,
		Query:    query,
		Returned: returned,
	}
}

// exploreSchema forwards an open-ended discovery query to the probe service
func (e *Engine) exploreSchema(ctx context.Context, action Action, st *state) *Observation {
	result, err := e.probes.ExecProbe(ctx, st.dbID, action.SQL, e.config.ProbeRowLimit)
	if err != nil {
		return &Observation{
			Action:    ActionExploreSchema,
			Status:    probe.StatusError,
			ErrorType: probe.ErrExecution,
			Message:   err.Error(),
		}
	}

	return &Observation{
		Action:  ActionExploreSchema,
		Status:  result.Status,
		Summary: result.Summary,
	}
}

// verifySchema probes a specific hypothesis; failures carry a
// classification the model can act on next step
func (e *Engine) verifySchema(ctx context.Context, action Action, st *state) *Observation {
	result, err := e.probes.ExecProbe(ctx, st.dbID, action.SQL, e.config.ProbeRowLimit)
	if err != nil {
		return &Observation{
			Action:    ActionVerifySchema,
			Status:    probe.StatusError,
			ErrorType: probe.ErrExecution,
			Message:   err.Error(),
		}
	}

	return &Observation{
		Action:    ActionVerifySchema,
		Status:    result.Status,
		ErrorType: result.ErrorType,
		Message:   result.ErrorMessage,
	}
}

// addSchema resolves requested column identities and merges them into the
// linked schema. Unresolvable requests are dropped from the merge; the
// observation reports only what was actually added.
func (e *Engine) addSchema(ctx context.Context, action Action, st *state) *Observation {
	resolved := e.resolveColumns(ctx, action.Columns, st)

	st.schema.Merge(resolved)

	added := make([]string, 0, len(resolved))
	for _, col := range resolved {
		st.seenColumns[col.ID()] = true

		added = append(added, col.ID())
	}

	return &Observation{Action: ActionAddSchema, Added: added}
}

// resolveColumns resolves identifiers against the union of cached
// retrieval results, falling back to a single-result retrieval per miss
func (e *Engine) resolveColumns(ctx context.Context, names []string, st *state) []catalog.ColumnDescriptor {
	cacheIndex := st.cachedColumns()

	var resolved []catalog.ColumnDescriptor

	for _, name := range names {
		if col, ok := cacheIndex[name]; ok {
			resolved = append(resolved, col)
			continue
		}

		table, column, _ := strings.Cut(name, ".")

		fetched, err := e.index.SearchColumns(
			ctx,
			st.dbID,
			strings.TrimSpace(table+" "+column),
			st.excludeSeen(),
			1,
		)
		if err != nil || len(fetched) == 0 {
			logging.Debugf("add_schema could not resolve %s", name)
			continue
		}

		resolved = append(resolved, fetched[0])
	}

	return resolved
}

// publish writes the evolving schema and trace to the sink, if any
func (e *Engine) publish(sink ProgressSink, st *state) {
	if sink != nil {
		sink.UpdateLinking(st.schema, st.trace)
	}
}

// containsStop reports whether any action this step was a stop
func containsStop(actions []Action) bool {
	for _, action := range actions {
		if action.Type == ActionStop {
			return true
		}
	}

	return false
}
