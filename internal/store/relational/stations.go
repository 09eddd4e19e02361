package relational

import (
	"context"
	"database/sql"
	"errors"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

const stationColumns = `id, COALESCE(name,''), COALESCE(contact,''), COALESCE(location,''),
COALESCE(type,''), COALESCE(battery_count,0), COALESCE(status,''), COALESCE(iot_status,''), COALESCE(created_at,'')`

func scanStation(row interface{ Scan(...any) error }) (*models.Station, error) {
	var st models.Station
	err := row.Scan(&st.ID, &st.Name, &st.Contact, &st.Location,
		&st.Type, &st.BatteryCount, &st.Status, &st.IoTStatus, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStations returns all stations, oldest first.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.query(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// GetStation returns the station with the given id.
func (s *Store) GetStation(ctx context.Context, id string) (*models.Station, error) {
	st, err := scanStation(s.queryRow(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return st, err
}

// CreateStation inserts a new station; the id must be unused.
func (s *Store) CreateStation(ctx context.Context, station *models.Station) error {
	if err := store.ValidateStation(station.ID, station.Name, station.BatteryCount); err != nil {
		return err
	}
	if _, err := s.GetStation(ctx, station.ID); err == nil {
		return store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err := s.exec(ctx, `
INSERT INTO stations(id, name, contact, location, type, battery_count, status, iot_status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		station.ID, station.Name, station.Contact, station.Location,
		station.Type, station.BatteryCount, station.Status, station.IoTStatus, station.CreatedAt)
	return err
}

// UpdateStation applies the patch to an existing station and returns the
// updated row.
func (s *Store) UpdateStation(ctx context.Context, id string, patch store.StationPatch) (*models.Station, error) {
	st, err := s.GetStation(ctx, id)
	if err != nil {
		return nil, err
	}

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

	_, err = s.exec(ctx, `
UPDATE stations SET name=?, contact=?, location=?, type=?, battery_count=?, status=?, iot_status=? WHERE id=?`,
		st.Name, st.Contact, st.Location, st.Type, st.BatteryCount, st.Status, st.IoTStatus, id)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteStation removes the station; the foreign key cascades to its
// records. The deleted station is returned.
func (s *Store) DeleteStation(ctx context.Context, id string) (*models.Station, error) {
	st, err := s.GetStation(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, `DELETE FROM stations WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return st, nil
}
