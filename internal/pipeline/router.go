package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sqlscout/sqlscout/internal/catalog"
	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/logging"
)

const routerCandidateTopK = 20

// RoutePlan is the router's decision for one question
type RoutePlan struct {
	DatabaseID      string   `json:"database_id"`
	CandidateTables []string `json:"candidate_tables"`
	Reason          string   `json:"reason"`
}

// Router selects the target database and a candidate table list for a
// question using the column index
type Router struct {
	index     catalog.Index
	databases []string
}

// NewRouter creates a router over the given database ids
func NewRouter(index catalog.Index, databases []string) *Router {
	return &Router{
		index:     index,
		databases: databases,
	}
}

// Route picks the database whose columns best match the question. Candidate
// tables are ordered by first appearance among the matching columns, with
// the remaining tables appended so the planner always sees the full catalog.
func (r *Router) Route(ctx context.Context, question string) (*RoutePlan, error) {
	if len(r.databases) == 0 {
		return nil, errors.New(errors.ErrTypeConfig, "no databases registered")
	}

	if len(r.databases) == 1 {
		return r.plan(ctx, r.databases[0], question, "single database")
	}

	type scored struct {
		dbID string
		hits int
	}

	best := scored{dbID: r.databases[0], hits: -1}

	for _, dbID := range r.databases {
		cols, err := r.index.SearchColumns(ctx, dbID, question, nil, routerCandidateTopK)
		if err != nil {
			logging.Warnf("routing probe against %s failed: %v", dbID, err)
			continue
		}

		// Ties keep the alphabetically first id so routing stays
		// deterministic.
		if len(cols) > best.hits || (len(cols) == best.hits && dbID < best.dbID) {
			best = scored{dbID: dbID, hits: len(cols)}
		}
	}

	if best.hits < 0 {
		return nil, errors.New(errors.ErrTypeRetrieval, "no database matched the question")
	}

	return r.plan(ctx, best.dbID, question, fmt.Sprintf("%d matching columns", best.hits))
}

// RouteTo builds the candidate plan for an explicitly requested database,
// bypassing selection
func (r *Router) RouteTo(ctx context.Context, dbID, question string) (*RoutePlan, error) {
	for _, known := range r.databases {
		if known == dbID {
			return r.plan(ctx, dbID, question, "requested database")
		}
	}

	return nil, errors.Newf(errors.ErrTypeValidation, "unknown database: %s", dbID)
}

// plan builds the candidate table ordering for the chosen database
func (r *Router) plan(ctx context.Context, dbID, question, reason string) (*RoutePlan, error) {
	matched, err := r.index.SearchColumns(ctx, dbID, question, nil, routerCandidateTopK)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var tables []string

	for _, col := range matched {
		if !seen[col.Table] {
			seen[col.Table] = true

			tables = append(tables, col.Table)
		}
	}

	all, err := r.index.ListTables(ctx, dbID)
	if err != nil {
		return nil, err
	}

	var rest []string

	for _, table := range all {
		if !seen[table] {
			rest = append(rest, table)
		}
	}

	sort.Strings(rest)

	return &RoutePlan{
		DatabaseID:      dbID,
		CandidateTables: append(tables, rest...),
		Reason:          strings.TrimSpace(reason),
	}, nil
}
