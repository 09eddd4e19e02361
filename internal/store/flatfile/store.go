// Package flatfile stores the StationSync entities as JSON arrays mirrored
// 1:1 between in-memory slices and files in the data directory. Mutations
// update the slice first and then persist the whole collection through the
// atomic file store, so a crash mid-write leaves the previous consistent
// file on disk.
package flatfile

import (
	"errors"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"stationsync/internal/atomicfile"
	"stationsync/internal/models"
)

// Dataset file names inside the data directory.
const (
	UsersFile    = "users.json"
	StationsFile = "stations.json"
	RecordsFile  = "records.json"
)

// Store is the flat-file backend. One mutex guards each collection: the
// mutate-then-persist sequence is not re-entrant safe and must never run
// concurrently for the same entity type.
type Store struct {
	dir    string
	logger *zap.Logger

	muUsers    sync.Mutex
	muStations sync.Mutex
	muRecords  sync.Mutex

	users    []models.User
	stations []models.Station
	records  []models.Record
}

// Open loads the dataset from dir, creating empty collections for missing or
// unparsable files. A legacy map-shaped users file is converted to the array
// format once and persisted.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	s := &Store{dir: dir, logger: logger}

	s.users = loadUsers(filepath.Join(dir, UsersFile), logger)

	if ok := atomicfile.ReadJSON(filepath.Join(dir, StationsFile), &s.stations); !ok {
		s.stations = nil
	}
	if ok := atomicfile.ReadJSON(filepath.Join(dir, RecordsFile), &s.records); !ok {
		s.records = nil
	}

	logger.Info("flat-file store opened",
		zap.String("dir", dir),
		zap.Int("users", len(s.users)),
		zap.Int("stations", len(s.stations)),
		zap.Int("records", len(s.records)))
	return s, nil
}

// Kind reports the backend variant.
func (s *Store) Kind() string { return "flatfile" }

// Close is a no-op: every mutation is already durable on return.
func (s *Store) Close() error { return nil }

// Reload re-reads every collection from disk. Called after a backup restore
// so subsequent reads reflect the restored files.
func (s *Store) Reload() {
	s.muUsers.Lock()
	s.users = loadUsers(filepath.Join(s.dir, UsersFile), s.logger)
	s.muUsers.Unlock()

	s.muStations.Lock()
	var stations []models.Station
	atomicfile.ReadJSON(filepath.Join(s.dir, StationsFile), &stations)
	s.stations = stations
	s.muStations.Unlock()

	s.muRecords.Lock()
	var records []models.Record
	atomicfile.ReadJSON(filepath.Join(s.dir, RecordsFile), &records)
	s.records = records
	s.muRecords.Unlock()

	s.logger.Info("flat-file store reloaded from disk")
}

// persist writes one collection. A degraded (non-atomic) write is logged and
// treated as success; any other failure is returned to the caller after the
// in-memory state has already advanced, matching mutate-then-persist.
func (s *Store) persist(base string, v any) error {
	err := atomicfile.WriteJSON(filepath.Join(s.dir, base), v)
	if errors.Is(err, atomicfile.ErrDegradedWrite) {
		s.logger.Warn("atomic replace unavailable, wrote file directly",
			zap.String("file", base), zap.Error(err))
		return nil
	}
	return err
}
