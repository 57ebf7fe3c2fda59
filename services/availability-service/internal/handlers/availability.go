package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
)

// GetAvailability is the public read path: effective slots for one
// practitioner on one date, blocks and bookings already applied.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	practitionerID := strings.TrimSpace(r.URL.Query().Get("practitioner_id"))
	if practitionerID == "" {
		http.Error(w, "missing practitioner_id", http.StatusBadRequest)
		return
	}
	date, err := horizon.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	day, err := h.engine.DaySlots(r.Context(), practitionerID, date)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"practitioner_id": practitionerID,
		"date":            day.Date,
		"state":           day.State,
		"slots":           day.Slots,
	})
}
