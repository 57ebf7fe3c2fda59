package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/engine"
	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// Handler exposes the engine over HTTP. Private routes scope the
// practitioner via the X-Practitioner-Id header set by the gateway;
// the public availability route takes it as a query parameter.
type Handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func New(eng *engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: eng, logger: logger}
}

func practitionerIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Practitioner-Id"))
}

func parseWeekday(raw string) (time.Weekday, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > 6 {
		return 0, false
	}
	return time.Weekday(n), true
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Validation failures are the caller's fault, never retried here.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, horizon.ErrSlotNotFound),
		errors.Is(err, horizon.ErrBlockNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, horizon.ErrSlotFullyBooked),
		errors.Is(err, horizon.ErrPastDateBlocked),
		errors.Is(err, horizon.ErrPastDateImmutable),
		errors.Is(err, horizon.ErrHorizonMissing),
		errors.Is(err, horizon.ErrBookedSlots):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrOutOfRangeTime),
		errors.Is(err, schedule.ErrWorkingHoursInverted),
		errors.Is(err, schedule.ErrNoActiveDays),
		errors.Is(err, schedule.ErrIncompleteSlotDefinition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("availability request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
