package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"stationsync/internal/store"
	"stationsync/internal/ws"
)

// RecordHandlers covers the /api/records/{id} routes.
type RecordHandlers struct {
	store  store.Store
	hub    *ws.Hub
	logger *zap.Logger
}

// NewRecordHandlers returns the handler set.
func NewRecordHandlers(st store.Store, hub *ws.Hub, logger *zap.Logger) *RecordHandlers {
	return &RecordHandlers{store: st, hub: hub, logger: logger}
}

type recordPatchRequest struct {
	StartOfDay *int     `json:"startOfDay"`
	GivenOut   *int     `json:"givenOut"`
	Remaining  *int     `json:"remaining"`
	NeedRepair *int     `json:"needRepair"`
	Damaged    *int     `json:"damaged"`
	Earnings   *float64 `json:"earnings"`
	Notes      *string  `json:"notes"`
}

// Item dispatches PUT/PATCH/DELETE on /api/records/{id}.
func (h *RecordHandlers) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/records/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req recordPatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rec, err := h.store.UpdateRecord(r.Context(), id, store.RecordPatch{
			StartOfDay: req.StartOfDay,
			GivenOut:   req.GivenOut,
			Remaining:  req.Remaining,
			NeedRepair: req.NeedRepair,
			Damaged:    req.Damaged,
			Earnings:   req.Earnings,
			Notes:      req.Notes,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.hub.Broadcast("record.updated", rec)
		writeJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := h.store.DeleteRecord(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		h.hub.Broadcast("record.deleted", map[string]string{"id": id})
		writeJSON(w, http.StatusOK, map[string]string{"id": id})

	default:
		w.Header().Set("Allow", "PUT, PATCH, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
