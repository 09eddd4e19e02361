package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"stationsync/internal/models"
	"stationsync/internal/store"
	"stationsync/internal/ws"
)

// StationHandlers covers the station CRUD routes and the per-station record
// routes nested under them.
type StationHandlers struct {
	store  store.Store
	hub    *ws.Hub
	logger *zap.Logger
}

// NewStationHandlers returns the handler set.
func NewStationHandlers(st store.Store, hub *ws.Hub, logger *zap.Logger) *StationHandlers {
	return &StationHandlers{store: st, hub: hub, logger: logger}
}

type stationRequest struct {
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	Location     string `json:"location"`
	Type         string `json:"type"`
	BatteryCount int    `json:"batteryCount"`
	Status       string `json:"status"`
	IoTStatus    string `json:"iotStatus"`
}

type stationPatchRequest struct {
	Name         *string `json:"name"`
	Contact      *string `json:"contact"`
	Location     *string `json:"location"`
	Type         *string `json:"type"`
	BatteryCount *int    `json:"batteryCount"`
	Status       *string `json:"status"`
	IoTStatus    *string `json:"iotStatus"`
}

// Collection handles GET and POST on /api/stations.
func (h *StationHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Item dispatches /api/stations/{id} and /api/stations/{id}/records.
func (h *StationHandlers) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/stations/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		h.item(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "records":
		h.records(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *StationHandlers) list(w http.ResponseWriter, r *http.Request) {
	stations, err := h.store.ListStations(r.Context())
	if err != nil {
		h.logger.Error("list stations failed", zap.Error(err))
		writeStoreError(w, err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *StationHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	station := &models.Station{
		ID:           models.NewStationID(),
		Name:         req.Name,
		Contact:      req.Contact,
		Location:     req.Location,
		Type:         req.Type,
		BatteryCount: req.BatteryCount,
		Status:       status,
		IoTStatus:    req.IoTStatus,
		CreatedAt:    models.NowISO(),
	}
	if err := h.store.CreateStation(r.Context(), station); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast("station.created", station)
	writeJSON(w, http.StatusCreated, station)
}

func (h *StationHandlers) item(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		station, err := h.store.GetStation(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, station)

	case http.MethodPut, http.MethodPatch:
		var req stationPatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		station, err := h.store.UpdateStation(r.Context(), id, store.StationPatch{
			Name:         req.Name,
			Contact:      req.Contact,
			Location:     req.Location,
			Type:         req.Type,
			BatteryCount: req.BatteryCount,
			Status:       req.Status,
			IoTStatus:    req.IoTStatus,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.hub.Broadcast("station.updated", station)
		writeJSON(w, http.StatusOK, station)

	case http.MethodDelete:
		station, err := h.store.DeleteStation(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.hub.Broadcast("station.deleted", map[string]string{"id": station.ID})
		writeJSON(w, http.StatusOK, station)

	default:
		w.Header().Set("Allow", "GET, PUT, PATCH, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type recordRequest struct {
	Date       string  `json:"date"`
	StartOfDay int     `json:"startOfDay"`
	GivenOut   int     `json:"givenOut"`
	Remaining  int     `json:"remaining"`
	NeedRepair int     `json:"needRepair"`
	Damaged    int     `json:"damaged"`
	Earnings   float64 `json:"earnings"`
	Notes      string  `json:"notes"`
}

func (h *StationHandlers) records(w http.ResponseWriter, r *http.Request, stationID string) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		records, err := h.store.ListRecords(r.Context(), stationID, q.Get("from"), q.Get("to"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if records == nil {
			records = []models.Record{}
		}
		writeJSON(w, http.StatusOK, records)

	case http.MethodPost:
		var req recordRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		date := req.Date
		if date == "" {
			date = models.Today()
		}
		rec := &models.Record{
			StationID:  stationID,
			Date:       date,
			StartOfDay: req.StartOfDay,
			GivenOut:   req.GivenOut,
			Remaining:  req.Remaining,
			NeedRepair: req.NeedRepair,
			Damaged:    req.Damaged,
			Earnings:   req.Earnings,
			Notes:      req.Notes,
		}
		stored, wasUpdate, err := h.store.UpsertRecord(r.Context(), rec)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if wasUpdate {
			h.hub.Broadcast("record.updated", stored)
			writeJSON(w, http.StatusOK, stored)
			return
		}
		h.hub.Broadcast("record.created", stored)
		writeJSON(w, http.StatusCreated, stored)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
