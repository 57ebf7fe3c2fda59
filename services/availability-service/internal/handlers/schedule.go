package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/engine"
	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// GetSchedule returns the practitioner's weekly template plus the
// bounds of the materialized horizon, if any.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	cal, err := h.engine.Snapshot(r.Context(), practitionerID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	resp := map[string]any{
		"practitioner_id": practitionerID,
		"template":        cal.Template,
		"blocks":          cal.Blocks,
	}
	if cal.Horizon != nil {
		resp["horizon_start"] = cal.Horizon.HorizonStart
		resp["horizon_end"] = cal.Horizon.HorizonEnd
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// UpdateDay edits one weekday of the template: hours, slot duration and
// the enabled flag land as a single transition.
func (h *Handler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Weekday             int                 `json:"weekday"`
		Enabled             *bool               `json:"enabled"`
		Start               *schedule.TimeOfDay `json:"start"`
		End                 *schedule.TimeOfDay `json:"end"`
		SlotDurationMinutes *int                `json:"slot_duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "weekday must be 0 (Sunday) through 6", http.StatusBadRequest)
		return
	}

	err := h.engine.UpdateDay(r.Context(), practitionerID, time.Weekday(req.Weekday), engine.DayUpdate{
		Enabled:             req.Enabled,
		Start:               req.Start,
		End:                 req.End,
		SlotDurationMinutes: req.SlotDurationMinutes,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Breaks upserts (PUT) or removes (DELETE) a named break on one weekday.
func (h *Handler) Breaks(w http.ResponseWriter, r *http.Request) {
	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Weekday int                `json:"weekday"`
			Name    string             `json:"name"`
			Enabled bool               `json:"enabled"`
			Start   schedule.TimeOfDay `json:"start"`
			End     schedule.TimeOfDay `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "missing break name", http.StatusBadRequest)
			return
		}
		if req.Weekday < 0 || req.Weekday > 6 {
			http.Error(w, "weekday must be 0 (Sunday) through 6", http.StatusBadRequest)
			return
		}
		err := h.engine.UpsertBreak(r.Context(), practitionerID, time.Weekday(req.Weekday), schedule.Break{
			Name:    req.Name,
			Enabled: req.Enabled,
			Start:   req.Start,
			End:     req.End,
		})
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		weekday, ok := parseWeekday(r.URL.Query().Get("weekday"))
		if !ok {
			http.Error(w, "weekday must be 0 (Sunday) through 6", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			http.Error(w, "missing break name", http.StatusBadRequest)
			return
		}
		if err := h.engine.RemoveBreak(r.Context(), practitionerID, weekday, name); err != nil {
			h.writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Materialize builds (or rebuilds from today) the concrete slot horizon.
func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	h.horizonOp(w, r, 1, h.engine.Materialize)
}

// Extend grows the materialized horizon by whole weeks. Zero weeks is a
// permitted no-op.
func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	h.horizonOp(w, r, 0, h.engine.Extend)
}

func (h *Handler) horizonOp(w http.ResponseWriter, r *http.Request, minWeeks int, op func(ctx context.Context, practitionerID string, weeks int) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Weeks int `json:"weeks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Weeks < minWeeks {
		http.Error(w, fmt.Sprintf("weeks must be at least %d", minWeeks), http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), practitionerID, req.Weeks); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blocks creates (POST) or lifts (DELETE) an ad-hoc block on a
// materialized date.
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req struct {
			Date     string              `json:"date"`
			Start    *schedule.TimeOfDay `json:"start"`
			End      *schedule.TimeOfDay `json:"end"`
			WholeDay bool                `json:"whole_day"`
			Reason   string              `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		date, err := horizon.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.Reason = strings.TrimSpace(req.Reason)

		var blk horizon.BlockedInterval
		if req.WholeDay {
			blk, err = h.engine.BlockWholeDay(r.Context(), practitionerID, date, req.Reason)
		} else {
			if req.Start == nil || req.End == nil {
				http.Error(w, "interval block requires start and end", http.StatusBadRequest)
				return
			}
			if req.Start.Compare(*req.End) >= 0 {
				http.Error(w, "block start must precede end", http.StatusBadRequest)
				return
			}
			blk, err = h.engine.BlockInterval(r.Context(), practitionerID, date, *req.Start, *req.End, req.Reason)
		}
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(blk)

	case http.MethodDelete:
		date, err := horizon.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start, err := schedule.ParseTimeOfDay(strings.TrimSpace(r.URL.Query().Get("start")))
		if err != nil {
			http.Error(w, "invalid start, want HH:MM", http.StatusBadRequest)
			return
		}
		end, err := schedule.ParseTimeOfDay(strings.TrimSpace(r.URL.Query().Get("end")))
		if err != nil {
			http.Error(w, "invalid end, want HH:MM", http.StatusBadRequest)
			return
		}
		if err := h.engine.Unblock(r.Context(), practitionerID, date, start, end); err != nil {
			h.writeEngineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// OccupySlot books one unit of capacity on a concrete slot.
func (h *Handler) OccupySlot(w http.ResponseWriter, r *http.Request) {
	h.slotOp(w, r, h.engine.OccupySlot)
}

// ReleaseSlot returns one unit of capacity to a concrete slot.
func (h *Handler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	h.slotOp(w, r, h.engine.ReleaseSlot)
}

func (h *Handler) slotOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, practitionerID string, date horizon.Date, start schedule.TimeOfDay) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	practitionerID := practitionerIDFromHeader(r)
	if practitionerID == "" {
		http.Error(w, "missing X-Practitioner-Id", http.StatusBadRequest)
		return
	}

	var req struct {
		Date  string             `json:"date"`
		Start schedule.TimeOfDay `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := horizon.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), practitionerID, date, req.Start); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
