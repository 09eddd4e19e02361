package relational

import (
	"context"
	"errors"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

// Insert-if-absent operations back the flat-file import. Each checks the
// row's natural key first and reports whether it inserted, so re-running an
// import never duplicates or overwrites data.

// InsertUserIfAbsent inserts the user unless the username already exists.
func (s *Store) InsertUserIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	_, err := s.FindUser(ctx, user.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	_, err = s.exec(ctx, `
INSERT INTO users(id, username, password, reset_token, reset_expiry, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.ResetToken, user.ResetTokenExpiry, user.CreatedAt)
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertStationIfAbsent inserts the station unless its id already exists.
func (s *Store) InsertStationIfAbsent(ctx context.Context, station *models.Station) (bool, error) {
	_, err := s.GetStation(ctx, station.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	_, err = s.exec(ctx, `
INSERT INTO stations(id, name, contact, location, type, battery_count, status, iot_status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		station.ID, station.Name, station.Contact, station.Location,
		station.Type, station.BatteryCount, station.Status, station.IoTStatus, station.CreatedAt)
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertRecordIfAbsent inserts the record unless its (station_id, date) pair
// already exists. The record's station must exist or the row is skipped.
func (s *Store) InsertRecordIfAbsent(ctx context.Context, rec *models.Record) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(1) FROM records WHERE station_id = ? AND date = ?`,
		rec.StationID, rec.Date).Scan(&n)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.GetStation(ctx, rec.StationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	stored := *rec
	if stored.ID == "" {
		stored.ID = models.NewRecordID()
	}
	_, err = s.exec(ctx, `
INSERT INTO records(id, station_id, date, start_of_day, given_out, remaining, need_repair, damaged, earnings, notes, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.StationID, stored.Date, stored.StartOfDay, stored.GivenOut,
		stored.Remaining, stored.NeedRepair, stored.Damaged, stored.Earnings,
		stored.Notes, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return false, err
	}
	return true, nil
}
