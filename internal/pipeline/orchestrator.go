package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/logging"
	"github.com/sqlscout/sqlscout/internal/probe"
	"github.com/sqlscout/sqlscout/internal/schemalink"
)

// ContextSaver persists a finished query record. Save returns the location
// it wrote to.
type ContextSaver interface {
	Save(id string, record interface{}) (string, error)
}

// Orchestrator runs the full question-answering pipeline: route, link,
// generate, verify, persist
type Orchestrator struct {
	router    *Router
	engine    *schemalink.Engine
	generator *Generator
	verifier  *Verifier
	saver     ContextSaver
}

// NewOrchestrator wires the pipeline stages together. saver may be nil when
// persistence is not wanted.
func NewOrchestrator(
	router *Router,
	engine *schemalink.Engine,
	generator *Generator,
	verifier *Verifier,
	saver ContextSaver,
) *Orchestrator {
	return &Orchestrator{
		router:    router,
		engine:    engine,
		generator: generator,
		verifier:  verifier,
		saver:     saver,
	}
}

// Answer runs one request through every stage and returns the completed
// context. Stage failures after routing still return the partial context so
// callers can inspect how far the question got.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*QueryContext, error) {
	qc := NewQueryContext(req)

	if req.MaxLatency > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, req.MaxLatency)
		defer cancel()
	}

	logging.Infof("answering question %s (user=%s session=%s)", qc.ID, req.UserID, req.SessionID)

	plan, err := o.route(ctx, req)
	if err != nil {
		return qc, errors.Wrap(err, errors.ErrTypeRetrieval, "routing failed")
	}

	question := req.Question

	qc.DatabaseID = plan.DatabaseID
	qc.CandidateTables = plan.CandidateTables
	qc.Metrics.RoutedAt = time.Now()
	qc.AddSummary("router", fmt.Sprintf("selected %s (%s)", plan.DatabaseID, plan.Reason))

	schema, trace := o.engine.Run(ctx, question, plan.DatabaseID, plan.CandidateTables, qc)

	qc.Metrics.LinkedAt = time.Now()
	qc.AddSummary("linker", linkerSummary(schema, trace))

	candidates, err := o.generator.Generate(ctx, question, plan.DatabaseID, schema)
	if err != nil {
		return o.finish(qc), err
	}

	qc.SQLCandidates = candidates
	qc.Metrics.GeneratedAt = time.Now()
	qc.AddSummary("generator", fmt.Sprintf("%d candidates", len(candidates)))

	finalSQL, result, err := o.verifier.Verify(ctx, plan.DatabaseID, candidates)
	if err != nil {
		return o.finish(qc), err
	}

	qc.FinalSQL = finalSQL
	qc.VerifyResult = result
	qc.Metrics.VerifiedAt = time.Now()
	qc.AddSummary("verifier", verifierSummary(result))

	return o.finish(qc), nil
}

// route honors a pinned database on the request, otherwise lets the router
// pick one
func (o *Orchestrator) route(ctx context.Context, req Request) (*RoutePlan, error) {
	if req.Database != "" {
		return o.router.RouteTo(ctx, req.Database, req.Question)
	}

	return o.router.Route(ctx, req.Question)
}

// finish stamps the end time and persists the record
func (o *Orchestrator) finish(qc *QueryContext) *QueryContext {
	qc.Metrics.FinishedAt = time.Now()

	if o.saver != nil {
		if path, err := o.saver.Save(qc.ID, qc.Snapshot()); err != nil {
			logging.Warnf("failed to persist query context %s: %v", qc.ID, err)
		} else {
			logging.Debugf("persisted query context to %s", path)
		}
	}

	return qc
}

// linkerSummary describes one linking run in a line
func linkerSummary(schema schemalink.LinkedSchema, trace schemalink.Trace) string {
	forced := false
	if len(trace) > 0 {
		forced = trace[len(trace)-1].ForcedStop
	}

	return fmt.Sprintf(
		"%d tables, %d columns in %d steps (forced stop: %t)",
		len(schema), schema.ColumnCount(), len(trace), forced,
	)
}

// verifierSummary describes the verification outcome in a line
func verifierSummary(result *probe.Result) string {
	if result == nil {
		return "no result"
	}

	if result.Status == probe.StatusOK {
		return fmt.Sprintf("ok, %d sample rows", result.RowCount)
	}

	return fmt.Sprintf("failed (%s): %s", result.ErrorType, result.ErrorMessage)
}
