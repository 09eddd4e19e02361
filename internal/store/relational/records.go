package relational

import (
	"context"
	"database/sql"
	"errors"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

const recordColumns = `id, station_id, date, COALESCE(start_of_day,0), COALESCE(given_out,0),
COALESCE(remaining,0), COALESCE(need_repair,0), COALESCE(damaged,0), COALESCE(earnings,0),
COALESCE(notes,''), COALESCE(created_at,''), COALESCE(updated_at,'')`

func scanRecord(row interface{ Scan(...any) error }) (*models.Record, error) {
	var r models.Record
	err := row.Scan(&r.ID, &r.StationID, &r.Date, &r.StartOfDay, &r.GivenOut,
		&r.Remaining, &r.NeedRepair, &r.Damaged, &r.Earnings,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRecords(rows *sql.Rows) ([]models.Record, error) {
	defer rows.Close()
	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListRecords returns a station's records newest date first, bounded by the
// optional inclusive [from, to] range. ISO dates compare lexically, so the
// bounds are plain string comparisons.
func (s *Store) ListRecords(ctx context.Context, stationID, from, to string) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE station_id = ?`
	args := []any{stationID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date DESC`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// AllRecords returns every record in ascending date order, bounded by the
// optional inclusive [from, to] range.
func (s *Store) AllRecords(ctx context.Context, from, to string) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE 1=1`
	var args []any
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY date ASC, station_id ASC`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

// UpsertRecord inserts or updates the record for (rec.StationID, rec.Date):
// an existing pair has its mutable fields replaced and updated_at set, an
// absent pair gets a fresh id. The lookup-then-write pair is not wrapped in
// a transaction; one process owns all writes to a given key.
func (s *Store) UpsertRecord(ctx context.Context, rec *models.Record) (*models.Record, bool, error) {
	if err := store.ValidateRecord(rec.StationID, rec.Date, rec.Earnings); err != nil {
		return nil, false, err
	}
	if _, err := s.GetStation(ctx, rec.StationID); err != nil {
		return nil, false, err
	}

	existing, err := scanRecord(s.queryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE station_id = ? AND date = ?`,
		rec.StationID, rec.Date))
	switch {
	case err == nil:
		now := models.NowISO()
		_, err := s.exec(ctx, `
UPDATE records SET start_of_day=?, given_out=?, remaining=?, need_repair=?, damaged=?, earnings=?, notes=?, updated_at=?
WHERE id=?`,
			rec.StartOfDay, rec.GivenOut, rec.Remaining, rec.NeedRepair,
			rec.Damaged, rec.Earnings, rec.Notes, now, existing.ID)
		if err != nil {
			return nil, false, err
		}
		stored := *rec
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = now
		return &stored, true, nil

	case errors.Is(err, sql.ErrNoRows):
		stored := *rec
		if stored.ID == "" {
			stored.ID = models.NewRecordID()
		}
		if stored.CreatedAt == "" {
			stored.CreatedAt = models.NowISO()
		}
		_, err := s.exec(ctx, `
INSERT INTO records(id, station_id, date, start_of_day, given_out, remaining, need_repair, damaged, earnings, notes, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stored.ID, stored.StationID, stored.Date, stored.StartOfDay, stored.GivenOut,
			stored.Remaining, stored.NeedRepair, stored.Damaged, stored.Earnings,
			stored.Notes, stored.CreatedAt, stored.UpdatedAt)
		if err != nil {
			return nil, false, err
		}
		return &stored, false, nil

	default:
		return nil, false, err
	}
}

// UpdateRecord applies the patch to the record with the given id.
func (s *Store) UpdateRecord(ctx context.Context, id string, patch store.RecordPatch) (*models.Record, error) {
	r, err := scanRecord(s.queryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

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

	_, err = s.exec(ctx, `
UPDATE records SET start_of_day=?, given_out=?, remaining=?, need_repair=?, damaged=?, earnings=?, notes=?, updated_at=?
WHERE id=?`,
		r.StartOfDay, r.GivenOut, r.Remaining, r.NeedRepair, r.Damaged,
		r.Earnings, r.Notes, r.UpdatedAt, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRecord removes the record with the given id.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
