// Package store defines the persistence contract every StationSync backend
// implements. Exactly one backend is selected at startup and owned by the
// application for the process lifetime; callers depend only on Store.
//
// Operations are synchronous and single-writer per process: multi-statement
// sequences (the upsert's lookup-then-write pair) are not transactional,
// which is acceptable because no two callers write the same natural key
// concurrently within one process.
package store

import (
	"context"

	"stationsync/internal/models"
)

// Backend kinds reported by Kind.
const (
	KindRelational = "relational"
	KindFlatFile   = "flatfile"
)

// StationPatch updates a subset of station fields; nil means unchanged.
type StationPatch struct {
	Name         *string
	Contact      *string
	Location     *string
	Type         *string
	BatteryCount *int
	Status       *string
	IoTStatus    *string
}

// RecordPatch updates a subset of record fields; nil means unchanged.
// Date is not patchable: (stationId, date) is the record's natural key.
type RecordPatch struct {
	StartOfDay *int
	GivenOut   *int
	Remaining  *int
	NeedRepair *int
	Damaged    *int
	Earnings   *float64
	Notes      *string
}

// Store is the uniform CRUD contract over the selected backend.
type Store interface {
	// Kind reports which backend variant is active.
	Kind() string

	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id string) (*models.Station, error)
	// CreateStation persists a station whose ID and CreatedAt were generated
	// by the caller. Returns ErrConflict for a duplicate id.
	CreateStation(ctx context.Context, station *models.Station) error
	UpdateStation(ctx context.Context, id string, patch StationPatch) (*models.Station, error)
	// DeleteStation removes the station and cascades to its records.
	// The deleted station is returned.
	DeleteStation(ctx context.Context, id string) (*models.Station, error)

	// ListRecords returns a station's records, newest date first. The
	// optional bounds are inclusive "YYYY-MM-DD" strings.
	ListRecords(ctx context.Context, stationID, from, to string) ([]models.Record, error)
	// AllRecords returns every record in ascending date order, optionally
	// bounded. Used by the reporting engine.
	AllRecords(ctx context.Context, from, to string) ([]models.Record, error)
	// UpsertRecord writes rec keyed on (StationID, Date): an existing pair
	// is updated in place (wasUpdate=true), otherwise a new record with a
	// fresh id is inserted. Returns the stored record.
	UpsertRecord(ctx context.Context, rec *models.Record) (stored *models.Record, wasUpdate bool, err error)
	UpdateRecord(ctx context.Context, id string, patch RecordPatch) (*models.Record, error)
	DeleteRecord(ctx context.Context, id string) error

	// FindUser looks up by username, the user natural key.
	FindUser(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
	// SetResetToken stores (or clears, with empty values) a password-reset
	// token and its expiry for the user.
	SetResetToken(ctx context.Context, username, token, expiry string) error
	FindUserByResetToken(ctx context.Context, token string) (*models.User, error)

	Close() error
}
