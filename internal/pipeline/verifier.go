package pipeline

import (
	"context"

	"github.com/sqlscout/sqlscout/internal/errors"
	"github.com/sqlscout/sqlscout/internal/probe"
)

// Verifier probes SQL candidates in order and picks the first that executes
// cleanly
type Verifier struct {
	probes   probe.Service
	rowLimit int
}

// NewVerifier creates a verifier with the given sample row limit
func NewVerifier(probes probe.Service, rowLimit int) *Verifier {
	return &Verifier{
		probes:   probes,
		rowLimit: rowLimit,
	}
}

// Verify probes each candidate and returns the first successful one with its
// result. When every candidate fails, the first candidate and its failure
// result are returned so callers still have a classified outcome to report.
func (v *Verifier) Verify(
	ctx context.Context,
	dbID string,
	candidates []string,
) (string, *probe.Result, error) {
	if len(candidates) == 0 {
		return "", nil, errors.New(errors.ErrTypeValidation, "no SQL candidates to verify")
	}

	var firstResult *probe.Result

	for _, candidate := range candidates {
		result, err := v.probes.ExecProbe(ctx, dbID, candidate, v.rowLimit)
		if err != nil {
			return "", nil, errors.Wrap(err, errors.ErrTypeProbe, "verification probe failed")
		}

		if result.Status == probe.StatusOK {
			return candidate, result, nil
		}

		if firstResult == nil {
			firstResult = result
		}
	}

	return candidates[0], firstResult, nil
}
