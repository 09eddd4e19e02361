// Package migrate copies the flat-file dataset into the relational backend.
// It runs once on the first relational boot and on demand from the admin API;
// every row is inserted only if its natural key is absent, so repeat runs are
// no-ops.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stationsync/internal/backup"
	"stationsync/internal/models"
	"stationsync/internal/store/flatfile"
	"stationsync/internal/store/relational"
)

// Counts reports how many rows an import inserted per entity.
type Counts struct {
	Users    int `json:"users"`
	Stations int `json:"stations"`
	Records  int `json:"records"`
}

// Importer reads the JSON dataset from a data directory and loads it into a
// relational store.
type Importer struct {
	dataDir string
	target  *relational.Store
	backups *backup.Manager
	logger  *zap.Logger
}

// NewImporter builds an importer over dataDir targeting the given store.
func NewImporter(dataDir string, target *relational.Store, backups *backup.Manager, logger *zap.Logger) *Importer {
	return &Importer{dataDir: dataDir, target: target, backups: backups, logger: logger}
}

// Run backs up the JSON files and imports them. Missing or unreadable files
// contribute nothing; individual bad rows are skipped and logged, never
// aborting the rest of the import.
func (im *Importer) Run(ctx context.Context) (Counts, error) {
	if _, err := im.backups.All(); err != nil {
		return Counts{}, err
	}

	var counts Counts

	users := im.loadUsers()
	for i := range users {
		if users[i].Username == "" {
			im.logger.Warn("skipping user without username during import")
			continue
		}
		if users[i].ID == 0 {
			users[i].ID = models.NewUserID()
		}
		inserted, err := im.target.InsertUserIfAbsent(ctx, &users[i])
		if err != nil {
			im.logger.Warn("skipping user during import",
				zap.String("username", users[i].Username), zap.Error(err))
			continue
		}
		if inserted {
			counts.Users++
		}
	}

	var stations []models.Station
	im.loadJSON(flatfile.StationsFile, &stations)
	for i := range stations {
		if stations[i].ID == "" {
			im.logger.Warn("skipping station without id during import")
			continue
		}
		inserted, err := im.target.InsertStationIfAbsent(ctx, &stations[i])
		if err != nil {
			im.logger.Warn("skipping station during import",
				zap.String("station", stations[i].ID), zap.Error(err))
			continue
		}
		if inserted {
			counts.Stations++
		}
	}

	var records []models.Record
	im.loadJSON(flatfile.RecordsFile, &records)
	for i := range records {
		if records[i].StationID == "" || records[i].Date == "" {
			im.logger.Warn("skipping record without station or date during import")
			continue
		}
		inserted, err := im.target.InsertRecordIfAbsent(ctx, &records[i])
		if err != nil {
			im.logger.Warn("skipping record during import",
				zap.String("station", records[i].StationID),
				zap.String("date", records[i].Date), zap.Error(err))
			continue
		}
		if inserted {
			counts.Records++
		}
	}

	im.logger.Info("flat-file import finished",
		zap.Int("users", counts.Users),
		zap.Int("stations", counts.Stations),
		zap.Int("records", counts.Records))
	return counts, nil
}

func (im *Importer) loadUsers() []models.User {
	data, err := os.ReadFile(filepath.Join(im.dataDir, flatfile.UsersFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			im.logger.Warn("users file unreadable, importing none", zap.Error(err))
		}
		return nil
	}
	users, _, err := flatfile.DecodeUsers(data)
	if err != nil {
		im.logger.Warn("users file unparsable, importing none", zap.Error(err))
		return nil
	}
	return users
}

func (im *Importer) loadJSON(base string, out any) {
	data, err := os.ReadFile(filepath.Join(im.dataDir, base))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			im.logger.Warn("dataset file unreadable, importing none",
				zap.String("file", base), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		im.logger.Warn("dataset file unparsable, importing none",
			zap.String("file", base), zap.Error(err))
	}
}
