package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/api"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/events"
	"github.com/information-sharing-networks/blockcerts-viewer/internal/logger"
)

const (
	// eventStreamBuffer is the number of events queued per client before events are dropped
	eventStreamBuffer = 64

	eventStreamHeartbeat = 15 * time.Second
)

// streamMessage is the data line of a server-sent event.
type streamMessage struct {
	Detail events.Detail `json:"detail"`
}

// HandleEvents godoc
//
//	@Summary		Stream verification events
//	@Description	Streams the verification lifecycle as server-sent events, in publication order:
//	@Description
//	@Description	- `certificate-verify` when a run starts
//	@Description	- `certificate-verify-step` each time a step changes status (`detail.step`)
//	@Description	- `certificate-verified` when a run completes (`detail.result`)
//	@Description
//	@Description	Each event is written as `event: <name>` followed by `data: {"detail": {...}}`.
//	@Description	A slow client that falls more than 64 events behind loses events; the `id` field is a per-connection sequence number so gaps can be detected.
//	@Tags			Certificate
//	@Produce		text/event-stream
//
//	@Success		200	{string}	string	"Event stream"
//
//	@Router			/v1/events [get]
func HandleEvents(bus *events.Bus, done <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.ContextRequestLogger(r.Context())
		rc := http.NewResponseController(w)

		clientID := uuid.New().String()
		queue := make(chan events.Event, eventStreamBuffer)

		subs, err := bus.SubscribeAll(func(e events.Event) {
			select {
			case queue <- e:
			default:
				reqLogger.Warn("event stream client is too slow - dropping event",
					slog.String("client_id", clientID),
					slog.String("event", string(e.Name)))
			}
		})
		if err != nil {
			api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "failed to subscribe to events"))
			return
		}
		defer bus.Unsubscribe(subs...)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if err := rc.Flush(); err != nil {
			reqLogger.Error("event stream not supported by response writer", slog.String("error", err.Error()))
			return
		}

		reqLogger.Debug("event stream opened", slog.String("client_id", clientID))
		logger.ContextWithLogAttrs(r.Context(), slog.String("client_id", clientID))

		heartbeat := time.NewTicker(eventStreamHeartbeat)
		defer heartbeat.Stop()

		var sequence uint64
		for {
			select {
			case <-r.Context().Done():
				reqLogger.Debug("event stream closed", slog.String("client_id", clientID))
				return

			case <-done:
				reqLogger.Debug("event stream closed by server shutdown", slog.String("client_id", clientID))
				return

			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}

			case e := <-queue:
				sequence++
				if err := writeEvent(w, sequence, e); err != nil {
					reqLogger.Debug("event stream write failed",
						slog.String("client_id", clientID),
						slog.String("error", err.Error()))
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, id uint64, e events.Event) error {
	data, err := json.Marshal(streamMessage{Detail: e.Detail})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, e.Name, data)
	return err
}
