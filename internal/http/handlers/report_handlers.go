package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"stationsync/internal/report"
)

// ReportHandlers covers the aggregation and maintenance routes.
type ReportHandlers struct {
	reports *report.Service
	logger  *zap.Logger
}

// NewReportHandlers returns the handler set.
func NewReportHandlers(reports *report.Service, logger *zap.Logger) *ReportHandlers {
	return &ReportHandlers{reports: reports, logger: logger}
}

// Aggregate handles GET /api/reports/aggregate?period=month&from=&to=.
func (h *ReportHandlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = report.PeriodMonth
	}

	buckets, err := h.reports.Aggregate(r.Context(), period, q.Get("from"), q.Get("to"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if buckets == nil {
		buckets = []report.Bucket{}
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Maintenance handles GET /api/maintenance.
func (h *ReportHandlers) Maintenance(w http.ResponseWriter, r *http.Request) {
	rollup, err := h.reports.Maintenance(r.Context())
	if err != nil {
		h.logger.Error("maintenance report failed", zap.Error(err))
		writeStoreError(w, err)
		return
	}
	if rollup == nil {
		rollup = []report.StationMaintenance{}
	}
	writeJSON(w, http.StatusOK, rollup)
}
