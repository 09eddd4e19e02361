package flatfile

import (
	"context"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

// ListStations returns all stations in stored order.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	s.muStations.Lock()
	defer s.muStations.Unlock()
	out := make([]models.Station, len(s.stations))
	copy(out, s.stations)
	return out, nil
}

// GetStation returns the station with the given id.
func (s *Store) GetStation(ctx context.Context, id string) (*models.Station, error) {
	s.muStations.Lock()
	defer s.muStations.Unlock()
	for i := range s.stations {
		if s.stations[i].ID == id {
			st := s.stations[i]
			return &st, nil
		}
	}
	return nil, store.ErrNotFound
}

// CreateStation appends a station and persists the collection.
func (s *Store) CreateStation(ctx context.Context, station *models.Station) error {
	if err := store.ValidateStation(station.ID, station.Name, station.BatteryCount); err != nil {
		return err
	}

	s.muStations.Lock()
	defer s.muStations.Unlock()
	for i := range s.stations {
		if s.stations[i].ID == station.ID {
			return store.ErrConflict
		}
	}
	s.stations = append(s.stations, *station)
	return s.persist(StationsFile, s.stations)
}

// UpdateStation applies the patch to an existing station.
func (s *Store) UpdateStation(ctx context.Context, id string, patch store.StationPatch) (*models.Station, error) {
	s.muStations.Lock()
	defer s.muStations.Unlock()

	for i := range s.stations {
		if s.stations[i].ID != id {
			continue
		}
		st := &s.stations[i]
		if patch.Name != nil {
			st.Name = *patch.Name
		}
		if patch.Contact != nil {
			st.Contact = *patch.Contact
		}
		if patch.Location != nil {
			st.Location = *patch.Location
		}
		if patch.Type != nil {
			st.Type = *patch.Type
		}
		if patch.BatteryCount != nil {
			if *patch.BatteryCount < 0 {
				return nil, &store.ValidationError{Field: "batteryCount", Reason: "must be >= 0"}
			}
			st.BatteryCount = *patch.BatteryCount
		}
		if patch.Status != nil {
			st.Status = *patch.Status
		}
		if patch.IoTStatus != nil {
			st.IoTStatus = *patch.IoTStatus
		}
		if err := s.persist(StationsFile, s.stations); err != nil {
			return nil, err
		}
		updated := *st
		return &updated, nil
	}
	return nil, store.ErrNotFound
}

// DeleteStation removes the station and every record referencing it, the
// flat-file equivalent of the relational cascade.
func (s *Store) DeleteStation(ctx context.Context, id string) (*models.Station, error) {
	s.muStations.Lock()
	defer s.muStations.Unlock()

	idx := -1
	for i := range s.stations {
		if s.stations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, store.ErrNotFound
	}

	deleted := s.stations[idx]
	s.stations = append(s.stations[:idx], s.stations[idx+1:]...)
	if err := s.persist(StationsFile, s.stations); err != nil {
		return nil, err
	}

	s.muRecords.Lock()
	defer s.muRecords.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.StationID != id {
			kept = append(kept, r)
		}
	}
	removed := len(s.records) - len(kept)
	s.records = kept
	if removed > 0 {
		if err := s.persist(RecordsFile, s.records); err != nil {
			return nil, err
		}
	}
	return &deleted, nil
}

func (s *Store) stationExists(id string) bool {
	s.muStations.Lock()
	defer s.muStations.Unlock()
	for i := range s.stations {
		if s.stations[i].ID == id {
			return true
		}
	}
	return false
}
