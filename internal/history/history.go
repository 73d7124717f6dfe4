package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/verification"
)

// ErrInvalidRun is returned when a run without a certificate id or a terminal status is recorded.
var ErrInvalidRun = errors.New("run must have a certificate id and a finished status")

// Run is one completed verification.
type Run struct {
	ID            uuid.UUID              `json:"id"`
	CertificateID string                 `json:"certificateId"`
	Generation    uint64                 `json:"runGeneration"`
	Status        verification.Status    `json:"status"`
	FinalStep     verification.FinalStep `json:"finalStep"`
	CompletedAt   time.Time              `json:"completedAt"`
}

// Recorder stores runs.
type Recorder interface {
	// Record stores run. A zero ID is replaced by a new random id.
	Record(ctx context.Context, run Run) (Run, error)

	// ListByCertificate returns the runs recorded for certificateID, most recent first.
	// limit <= 0 returns every run.
	ListByCertificate(ctx context.Context, certificateID string, limit int) ([]Run, error)
}

// RunFromEvent builds a Run from a CERTIFICATE_VERIFIED event.
func RunFromEvent(event events.Event) (Run, bool) {
	if event.Name != events.CertificateVerified || event.Detail.Result == nil {
		return Run{}, false
	}
	return Run{
		ID:            uuid.New(),
		CertificateID: event.Detail.CertificateID,
		Generation:    event.Detail.RunGeneration,
		Status:        event.Detail.Result.Status,
		FinalStep:     event.Detail.Result.FinalStep,
		CompletedAt:   event.Time.UTC(),
	}, true
}

// Subscribe records every completed run published on bus.
//
// Listeners run synchronously on the publisher's goroutine so recording uses its own short timeout.
// Recording failures are logged and do not affect the verification run.
func Subscribe(bus *events.Bus, recorder Recorder, timeout time.Duration, logger *slog.Logger) (events.Subscription, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return bus.Subscribe(events.CertificateVerified, func(event events.Event) {
		run, ok := RunFromEvent(event)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		stored, err := recorder.Record(ctx, run)
		if err != nil {
			logger.Error("failed to record verification run",
				slog.String("certificate_id", run.CertificateID),
				slog.String("error", err.Error()))
			return
		}
		logger.Debug("verification run recorded",
			slog.String("run_id", stored.ID.String()),
			slog.String("certificate_id", stored.CertificateID),
			slog.String("status", string(stored.Status)))
	})
}

func validate(run *Run) error {
	if run.CertificateID == "" || !run.Status.IsFinished() {
		return ErrInvalidRun
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}
	return nil
}
