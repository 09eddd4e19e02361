// Package report computes time-bucketed aggregates and the maintenance view
// over the active backend. Dates are "YYYY-MM-DD" strings, so bucketing is a
// prefix truncation and range filtering is a lexical comparison.
package report

import (
	"context"
	"fmt"
	"sort"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

// Aggregation periods.
const (
	PeriodDay   = "day"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// Bucket is one aggregated period.
type Bucket struct {
	Period    string  `json:"period"`
	GivenOut  int     `json:"givenOut"`
	Remaining int     `json:"remaining"`
	Earnings  float64 `json:"earnings"`
	Count     int     `json:"count"`
}

// StationMaintenance is the per-station maintenance rollup.
type StationMaintenance struct {
	Station    models.Station `json:"station"`
	NeedRepair int            `json:"needRepair"`
	Damaged    int            `json:"damaged"`
	// Latest is the most recent record with a nonzero repair or damage count.
	Latest models.Record `json:"latestRecord"`
}

// Service runs reports over the active store.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func prefixLen(period string) (int, error) {
	switch period {
	case PeriodDay:
		return 10, nil
	case PeriodMonth:
		return 7, nil
	case PeriodYear:
		return 4, nil
	default:
		return 0, &store.ValidationError{Field: "period", Reason: "must be day, month or year"}
	}
}

// Aggregate sums records per calendar bucket in ascending period order. The
// optional from/to bounds are inclusive "YYYY-MM-DD" strings.
func (s *Service) Aggregate(ctx context.Context, period, from, to string) ([]Bucket, error) {
	n, err := prefixLen(period)
	if err != nil {
		return nil, err
	}
	if from != "" && !store.ValidDate(from) {
		return nil, &store.ValidationError{Field: "from", Reason: "must be YYYY-MM-DD"}
	}
	if to != "" && !store.ValidDate(to) {
		return nil, &store.ValidationError{Field: "to", Reason: "must be YYYY-MM-DD"}
	}

	records, err := s.store.AllRecords(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	byPeriod := make(map[string]*Bucket)
	for i := range records {
		r := &records[i]
		if len(r.Date) < n {
			continue
		}
		key := r.Date[:n]
		b, ok := byPeriod[key]
		if !ok {
			b = &Bucket{Period: key}
			byPeriod[key] = b
		}
		b.GivenOut += r.GivenOut
		b.Remaining += r.Remaining
		b.Earnings += r.Earnings
		b.Count++
	}

	out := make([]Bucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

// Maintenance groups records that flagged repairs or damage by station,
// summing the counts and carrying the most recent qualifying record. Records
// whose station no longer exists are skipped.
func (s *Service) Maintenance(ctx context.Context) ([]StationMaintenance, error) {
	stations, err := s.store.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("maintenance: %w", err)
	}
	records, err := s.store.AllRecords(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("maintenance: %w", err)
	}

	byID := make(map[string]models.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}

	rollup := make(map[string]*StationMaintenance)
	for i := range records {
		r := &records[i]
		if r.NeedRepair <= 0 && r.Damaged <= 0 {
			continue
		}
		st, ok := byID[r.StationID]
		if !ok {
			continue
		}
		m, ok := rollup[r.StationID]
		if !ok {
			m = &StationMaintenance{Station: st}
			rollup[r.StationID] = m
		}
		m.NeedRepair += r.NeedRepair
		m.Damaged += r.Damaged
		if r.Date >= m.Latest.Date {
			m.Latest = *r
		}
	}

	out := make([]StationMaintenance, 0, len(rollup))
	for _, m := range rollup {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Station.ID < out[j].Station.ID })
	return out, nil
}
