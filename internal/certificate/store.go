package certificate

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// Options are the viewer configuration flags.
type Options struct {
	// DisableAutoVerify stops UpdateCertificateDefinition from starting a run on load.
	DisableAutoVerify bool

	// DisableVerify turns VerifyCertificate into a no-op.
	DisableVerify bool
}

// State is a snapshot of the store.
type State struct {
	Options    Options
	Definition *Definition
	Steps      []verification.Step
	Status     verification.Status
	Result     *verification.Result

	// Generation is the run generation token. It changes on every load and every run.
	Generation uint64
}

// InitialState returns the empty state the store starts with.
func InitialState(opts Options) State {
	return State{
		Options: opts,
		Status:  verification.StatusNotStarted,
	}
}

// Store owns the certificate state and serialises every write to it.
//
// Events are published under publishMu after the run generation has been checked, so a superseded
// run never publishes after the CERTIFICATE_VERIFY of the run that replaced it. Listeners must not
// start a run synchronously.
type Store struct {
	publishMu sync.Mutex

	mu         sync.Mutex
	options    Options
	definition *Definition
	queue      *verification.Queue
	status     verification.Status
	result     *verification.Result
	generation uint64

	verifier Verifier
	bus      *events.Bus
	logger   *slog.Logger

	background sync.WaitGroup
}

// NewStore creates a store in its initial state. A nil bus or logger are replaced by private no-op instances.
func NewStore(opts Options, verifier Verifier, bus *events.Bus, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Store{
		options:  opts,
		queue:    verification.NewQueue(),
		status:   verification.StatusNotStarted,
		verifier: verifier,
		bus:      bus,
		logger:   logger,
	}
}

// Bus returns the event bus the store publishes to.
func (s *Store) Bus() *events.Bus { return s.bus }

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := InitialState(s.options)
	st.Definition = s.definition
	st.Steps = s.queue.OrderedSteps()
	st.Status = s.status
	st.Generation = s.generation
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

// Generation returns the current run generation token.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// UpdateCertificateDefinition replaces the loaded certificate.
//
// The step queue is reset to the verifier's plan for the new certificate (all steps NOT_STARTED),
// the previous result is cleared and any run still in flight is superseded.
// Unless auto verification is disabled a new run is started in the background; use Wait to block on it.
func (s *Store) UpdateCertificateDefinition(ctx context.Context, def *Definition) error {
	if def == nil {
		return verification.NewInvalidDefinitionError("certificate definition is nil")
	}

	queue, err := s.planQueue(def)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	s.definition = def
	s.queue = queue
	s.status = verification.StatusNotStarted
	s.result = nil
	opts := s.options
	generation := s.generation
	s.mu.Unlock()

	s.logger.Info("certificate loaded",
		slog.String("certificate_id", def.ID),
		slog.Int("steps", queue.Len()),
		slog.Uint64("generation", generation))

	if opts.DisableAutoVerify || opts.DisableVerify {
		return nil
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.verify(context.WithoutCancel(ctx), def); err != nil {
			s.logger.Error("automatic verification failed",
				slog.String("certificate_id", def.ID),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Wait blocks until every background run started by UpdateCertificateDefinition has returned.
func (s *Store) Wait() {
	s.background.Wait()
}

// planQueue asks the verifier for its plan and loads it into a fresh queue.
func (s *Store) planQueue(def *Definition) (*verification.Queue, error) {
	plan, err := s.verifier.Plan(def)
	if err != nil {
		return nil, verification.WrapInvalidDefinitionError(err, "verifier could not plan the verification")
	}

	queue := verification.NewQueue()
	if err := queue.Initialize(plan); err != nil {
		return nil, err
	}
	return queue, nil
}
