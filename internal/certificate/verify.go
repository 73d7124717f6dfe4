package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// InternalErrorFinalStep is the verdict committed when the verifier fails or panics.
var InternalErrorFinalStep = verification.FinalStep{
	Label:       "Verification error",
	Description: "An internal error occurred while verifying this certificate. Please try again later.",
}

// IncompleteFinalStep is the verdict committed when the verifier reports success but
// not every step of the run resolved to SUCCESS.
var IncompleteFinalStep = verification.FinalStep{
	Label:       "Verification failed",
	Description: "One or more verification steps did not complete successfully.",
}

// VerifyCertificate runs one verification of the loaded certificate and returns its result.
//
// The run proceeds as follows:
//  1. the step queue is reset to the verifier's plan and the status set to STARTED
//  2. CERTIFICATE_VERIFY is published
//  3. each step transition reported by the verifier is applied to the queue and republished as CERTIFICATE_VERIFY_STEP
//  4. the overall status is SUCCESS only if the verifier reports success and every step is SUCCESS
//  5. the result is committed and CERTIFICATE_VERIFIED is published
//
// Verifier errors and panics are recovered into a FAILURE result. If the run is superseded
// (a new certificate was loaded or another run started) its late writes are dropped and
// a zero Result is returned.
//
// When verification is disabled the call returns immediately and leaves the state untouched.
func (s *Store) VerifyCertificate(ctx context.Context) (verification.Result, error) {
	s.mu.Lock()
	def := s.definition
	s.mu.Unlock()

	if def == nil {
		return verification.Result{}, verification.NewNoCertificateError()
	}
	return s.verify(ctx, def)
}

// verify runs one verification of def. The run is dropped before it starts if def is no longer
// the loaded certificate, which is how a superseded automatic run ends.
func (s *Store) verify(ctx context.Context, def *Definition) (verification.Result, error) {
	s.mu.Lock()
	disabled := s.options.DisableVerify
	s.mu.Unlock()

	if disabled {
		s.logger.Debug("verification disabled - skipping", slog.String("certificate_id", def.ID))
		return verification.Result{}, nil
	}

	queue, err := s.planQueue(def)
	if err != nil {
		return verification.Result{}, err
	}

	started := time.Now()
	generation, ok := s.startRun(def, queue)
	if !ok {
		s.logger.Debug("certificate replaced before the run started - dropping run",
			slog.String("certificate_id", def.ID))
		return verification.Result{}, nil
	}

	onStep := func(update verification.StepUpdate) error {
		return s.applyStep(def, generation, update)
	}

	outcome, invokeErr := s.invokeVerifier(ctx, def, onStep)
	if invokeErr != nil {
		s.logger.Warn("verifier failed",
			slog.String("certificate_id", def.ID),
			slog.Uint64("generation", generation),
			slog.String("error", invokeErr.Error()))
	}

	result, err := s.commitRun(def, generation, outcome, invokeErr)
	if err != nil {
		// superseded - not an error for the caller
		s.logger.Debug("dropping result of superseded run",
			slog.String("certificate_id", def.ID),
			slog.String("reason", err.Error()))
		return verification.Result{}, nil
	}

	s.logger.Info("verification completed",
		slog.String("certificate_id", def.ID),
		slog.Uint64("generation", generation),
		slog.String("status", string(result.Status)),
		slog.Duration("duration", time.Since(started)))
	return result, nil
}

// startRun installs the new queue, moves the status to STARTED and publishes CERTIFICATE_VERIFY.
// It returns false if def is no longer the loaded certificate.
func (s *Store) startRun(def *Definition, queue *verification.Queue) (uint64, bool) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.definition != def {
		s.mu.Unlock()
		return 0, false
	}
	s.generation++
	s.queue = queue
	s.status = verification.StatusStarted
	s.result = nil
	generation := s.generation
	s.mu.Unlock()

	s.logger.Info("verification started",
		slog.String("certificate_id", def.ID),
		slog.Uint64("generation", generation))

	s.bus.Publish(events.NewVerifyEvent(def.ID, generation))
	return generation, true
}

// applyStep is the step callback handed to the verifier.
func (s *Store) applyStep(def *Definition, generation uint64, update verification.StepUpdate) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.generation != generation {
		current := s.generation
		s.mu.Unlock()
		err := verification.NewStaleRunError(generation, current)
		s.logger.Debug("dropping step update of superseded run",
			slog.String("step", update.Code),
			slog.String("reason", err.Error()))
		return err
	}

	if _, err := s.queue.UpdateStepStatus(update.Code, update.Status, update.Options()...); err != nil {
		s.mu.Unlock()
		s.logger.Error("invalid step update from verifier",
			slog.String("certificate_id", def.ID),
			slog.String("step", update.Code),
			slog.String("status", string(update.Status)),
			slog.String("error", err.Error()))
		return err
	}
	step, _ := s.queue.Step(update.Code)
	s.mu.Unlock()

	s.logger.Debug("step updated",
		slog.String("certificate_id", def.ID),
		slog.String("step", step.Code),
		slog.String("status", string(step.Status)))

	s.bus.Publish(events.NewStepEvent(def.ID, generation, step))
	return nil
}

// invokeVerifier calls the verifier, converting errors and panics into VERIFIER_INVOCATION_FAILURE.
func (s *Store) invokeVerifier(ctx context.Context, def *Definition, onStep StepCallback) (outcome verification.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = verification.Outcome{}
			err = verification.WrapVerifierInvocationError(fmt.Errorf("panic: %v", r), "verifier panicked")
		}
	}()

	outcome, err = s.verifier.Verify(ctx, def, onStep)
	if err != nil {
		return outcome, verification.WrapVerifierInvocationError(err, "verifier returned an error")
	}
	return outcome, nil
}

// commitRun stores the final result of the run and publishes CERTIFICATE_VERIFIED,
// unless the run has been superseded.
func (s *Store) commitRun(def *Definition, generation uint64, outcome verification.Outcome, invokeErr error) (verification.Result, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.generation != generation {
		current := s.generation
		s.mu.Unlock()
		return verification.Result{}, verification.NewStaleRunError(generation, current)
	}
	result := deriveResult(outcome, invokeErr, s.queue.OrderedSteps())
	s.status = result.Status
	s.result = &result
	s.mu.Unlock()

	s.bus.Publish(events.NewVerifiedEvent(def.ID, generation, result))
	return result, nil
}

// deriveResult computes the overall result of a run.
func deriveResult(outcome verification.Outcome, invokeErr error, steps []verification.Step) verification.Result {
	if invokeErr != nil {
		return verification.Result{Status: verification.StatusFailure, FinalStep: InternalErrorFinalStep}
	}
	if outcome.Status.IsSuccess() && verification.AllSucceeded(steps) {
		return verification.Result{Status: verification.StatusSuccess, FinalStep: outcome.Message}
	}
	if outcome.Status == verification.StatusFailure && outcome.Message != (verification.FinalStep{}) {
		return verification.Result{Status: verification.StatusFailure, FinalStep: outcome.Message}
	}
	return verification.Result{Status: verification.StatusFailure, FinalStep: IncompleteFinalStep}
}
