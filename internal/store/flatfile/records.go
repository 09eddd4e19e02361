package flatfile

import (
	"context"
	"sort"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

// ListRecords returns a station's records newest date first, bounded by the
// optional inclusive [from, to] range.
func (s *Store) ListRecords(ctx context.Context, stationID, from, to string) ([]models.Record, error) {
	s.muRecords.Lock()
	defer s.muRecords.Unlock()

	var out []models.Record
	for _, r := range s.records {
		if r.StationID == stationID && store.InDateRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// AllRecords returns every record in ascending date order, bounded by the
// optional inclusive [from, to] range.
func (s *Store) AllRecords(ctx context.Context, from, to string) ([]models.Record, error) {
	s.muRecords.Lock()
	defer s.muRecords.Unlock()

	var out []models.Record
	for _, r := range s.records {
		if store.InDateRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// UpsertRecord inserts or updates the record for (rec.StationID, rec.Date).
// A linear scan over the in-memory array finds the existing pair; at this
// dataset scale that is the whole index.
func (s *Store) UpsertRecord(ctx context.Context, rec *models.Record) (*models.Record, bool, error) {
	if err := store.ValidateRecord(rec.StationID, rec.Date, rec.Earnings); err != nil {
		return nil, false, err
	}
	if !s.stationExists(rec.StationID) {
		return nil, false, store.ErrNotFound
	}

	s.muRecords.Lock()
	defer s.muRecords.Unlock()

	for i := range s.records {
		existing := &s.records[i]
		if existing.StationID != rec.StationID || existing.Date != rec.Date {
			continue
		}
		existing.StartOfDay = rec.StartOfDay
		existing.GivenOut = rec.GivenOut
		existing.Remaining = rec.Remaining
		existing.NeedRepair = rec.NeedRepair
		existing.Damaged = rec.Damaged
		existing.Earnings = rec.Earnings
		existing.Notes = rec.Notes
		existing.UpdatedAt = models.NowISO()
		if err := s.persist(RecordsFile, s.records); err != nil {
			return nil, false, err
		}
		stored := *existing
		return &stored, true, nil
	}

	stored := *rec
	if stored.ID == "" {
		stored.ID = models.NewRecordID()
	}
	if stored.CreatedAt == "" {
		stored.CreatedAt = models.NowISO()
	}
	s.records = append(s.records, stored)
	if err := s.persist(RecordsFile, s.records); err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

// UpdateRecord applies the patch to the record with the given id.
func (s *Store) UpdateRecord(ctx context.Context, id string, patch store.RecordPatch) (*models.Record, error) {
	s.muRecords.Lock()
	defer s.muRecords.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		r := &s.records[i]
		if patch.StartOfDay != nil {
			r.StartOfDay = *patch.StartOfDay
		}
		if patch.GivenOut != nil {
			r.GivenOut = *patch.GivenOut
		}
		if patch.Remaining != nil {
			r.Remaining = *patch.Remaining
		}
		if patch.NeedRepair != nil {
			r.NeedRepair = *patch.NeedRepair
		}
		if patch.Damaged != nil {
			r.Damaged = *patch.Damaged
		}
		if patch.Earnings != nil {
			if *patch.Earnings < 0 {
				return nil, &store.ValidationError{Field: "earnings", Reason: "must be >= 0"}
			}
			r.Earnings = *patch.Earnings
		}
		if patch.Notes != nil {
			r.Notes = *patch.Notes
		}
		r.UpdatedAt = models.NowISO()
		if err := s.persist(RecordsFile, s.records); err != nil {
			return nil, err
		}
		updated := *r
		return &updated, nil
	}
	return nil, store.ErrNotFound
}

// DeleteRecord removes the record with the given id.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.muRecords.Lock()
	defer s.muRecords.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return s.persist(RecordsFile, s.records)
		}
	}
	return store.ErrNotFound
}
