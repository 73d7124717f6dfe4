package certificate

import (
	"context"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// StepCallback receives the step transitions of a run, in the order the verifier produces them.
// A non-nil return means the update was rejected and the verifier should stop.
type StepCallback func(update verification.StepUpdate) error

// Verifier performs the actual checks on a certificate.
type Verifier interface {
	// Plan returns the steps Verify will report on, before any of them runs.
	Plan(def *Definition) ([]verification.StepTemplate, error)

	// Verify runs the checks, reporting each step transition through onStep, and returns the terminal outcome.
	Verify(ctx context.Context, def *Definition, onStep StepCallback) (verification.Outcome, error)
}
