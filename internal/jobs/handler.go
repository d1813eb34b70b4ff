package jobs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/handlers"
	"github.com/scopeline/scopeline/pkg/routes"
)

type Handler struct {
	store  Store
	broker *Broker
	logger *slog.Logger
}

func NewHandler(store Store, broker *Broker, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		broker: broker,
		logger: logger,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/jobs",
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.find},
			{Method: http.MethodGet, Pattern: "/{id}/events", Handler: h.events},
		},
	}
}

// find serves the polling fallback: the job's current state as one document.
func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return
	}

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, job)
}

// events streams job progress as server-sent events. The current state is
// sent first so a reconnecting client never waits for the next transition,
// then live events follow until the job reaches a terminal state.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	events, cancel := h.broker.Subscribe(id)
	defer cancel()

	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := Snapshot(job)
	if err := writeEvent(w, flusher, snapshot); err != nil {
		return
	}
	if snapshot.Terminal() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, flusher, event); err != nil {
				return
			}
			if event.Terminal() {
				return
			}
		}
	}
}

// Snapshot renders a job's current state as the event a live subscriber
// would have received at that point.
func Snapshot(job *Job) Event {
	event := Event{
		Type:     EventProgress,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
	}
	switch job.Status {
	case StatusCompleted:
		event.Type = EventCompleted
		event.Result = job.Result
	case StatusFailed:
		event.Type = EventFailed
		event.Error = job.Error
	}
	return event
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
