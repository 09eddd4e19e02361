package flatfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"stationsync/internal/models"
	"stationsync/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func addStation(t *testing.T, s *Store, id, name string) *models.Station {
	t.Helper()
	st := &models.Station{
		ID:        id,
		Name:      name,
		Status:    "active",
		CreatedAt: models.NowISO(),
	}
	if err := s.CreateStation(context.Background(), st); err != nil {
		t.Fatalf("create station %s: %v", id, err)
	}
	return st
}

func TestStationCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	addStation(t, s, "ST1", "North Depot")

	got, err := s.GetStation(ctx, "ST1")
	if err != nil {
		t.Fatalf("get station: %v", err)
	}
	if got.Name != "North Depot" {
		t.Fatalf("expected name North Depot, got %q", got.Name)
	}

	if err := s.CreateStation(ctx, &models.Station{ID: "ST1", Name: "Dup"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}

	newName := "South Depot"
	updated, err := s.UpdateStation(ctx, "ST1", store.StationPatch{Name: &newName})
	if err != nil {
		t.Fatalf("update station: %v", err)
	}
	if updated.Name != newName {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}

	if _, err := s.GetStation(ctx, "STX"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestUpsertRecordIdempotentKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addStation(t, s, "ST1", "Depot")

	first, wasUpdate, err := s.UpsertRecord(ctx, &models.Record{
		StationID: "ST1", Date: "2024-03-01", GivenOut: 3, Earnings: 120,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if wasUpdate {
		t.Fatal("first upsert should insert")
	}

	second, wasUpdate, err := s.UpsertRecord(ctx, &models.Record{
		StationID: "ST1", Date: "2024-03-01", GivenOut: 5, Earnings: 200,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !wasUpdate {
		t.Fatal("second upsert should update in place")
	}
	if second.ID != first.ID {
		t.Fatalf("upsert must keep the record id: %q vs %q", second.ID, first.ID)
	}
	if second.GivenOut != 5 || second.Earnings != 200 {
		t.Fatalf("unexpected merged record: %+v", second)
	}
	if second.UpdatedAt == "" {
		t.Fatal("update must stamp updatedAt")
	}

	records, err := s.ListRecords(ctx, "ST1", "", "")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record for the day, got %d", len(records))
	}
}

func TestUpsertRecordUnknownStation(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.UpsertRecord(context.Background(), &models.Record{
		StationID: "STX", Date: "2024-03-01",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertRecordValidation(t *testing.T) {
	s := newTestStore(t)
	addStation(t, s, "ST1", "Depot")

	var verr *store.ValidationError
	_, _, err := s.UpsertRecord(context.Background(), &models.Record{StationID: "ST1", Date: "March 1"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for bad date, got %v", err)
	}
	_, _, err = s.UpsertRecord(context.Background(), &models.Record{StationID: "ST1", Date: "2024-03-01", Earnings: -5})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for negative earnings, got %v", err)
	}
}

func TestDeleteStationCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addStation(t, s, "ST1", "Depot")
	addStation(t, s, "ST2", "Other")

	for _, date := range []string{"2024-03-01", "2024-03-02"} {
		if _, _, err := s.UpsertRecord(ctx, &models.Record{StationID: "ST1", Date: date}); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
	if _, _, err := s.UpsertRecord(ctx, &models.Record{StationID: "ST2", Date: "2024-03-01"}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if _, err := s.DeleteStation(ctx, "ST1"); err != nil {
		t.Fatalf("delete station: %v", err)
	}

	all, err := s.AllRecords(ctx, "", "")
	if err != nil {
		t.Fatalf("all records: %v", err)
	}
	if len(all) != 1 || all[0].StationID != "ST2" {
		t.Fatalf("expected only ST2 records to survive, got %+v", all)
	}
}

func TestListRecordsOrderAndRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	addStation(t, s, "ST1", "Depot")

	for _, date := range []string{"2024-01-05", "2024-03-01", "2024-02-10"} {
		if _, _, err := s.UpsertRecord(ctx, &models.Record{StationID: "ST1", Date: date}); err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}

	records, err := s.ListRecords(ctx, "ST1", "", "")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	want := []string{"2024-03-01", "2024-02-10", "2024-01-05"}
	for i, date := range want {
		if records[i].Date != date {
			t.Fatalf("expected %s at index %d, got %s", date, i, records[i].Date)
		}
	}

	ranged, err := s.ListRecords(ctx, "ST1", "2024-02-01", "2024-02-28")
	if err != nil {
		t.Fatalf("list ranged: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Date != "2024-02-10" {
		t.Fatalf("expected the single february record, got %+v", ranged)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	addStation(t, s, "ST1", "Depot")
	if _, _, err := s.UpsertRecord(ctx, &models.Record{StationID: "ST1", Date: "2024-03-01", GivenOut: 2}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	reopened, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stations, err := reopened.ListStations(ctx)
	if err != nil {
		t.Fatalf("list stations: %v", err)
	}
	if len(stations) != 1 || stations[0].ID != "ST1" {
		t.Fatalf("expected ST1 after reopen, got %+v", stations)
	}
	records, err := reopened.ListRecords(ctx, "ST1", "", "")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 || records[0].GivenOut != 2 {
		t.Fatalf("expected persisted record after reopen, got %+v", records)
	}
}

func TestLegacyUsersMapConverted(t *testing.T) {
	dir := t.TempDir()
	legacy := []byte(`{"admin":{"hash":"$2a$10$abc"},"operator":"$2a$10$def"}`)
	if err := os.WriteFile(filepath.Join(dir, UsersFile), legacy, 0o644); err != nil {
		t.Fatalf("seed legacy file: %v", err)
	}

	s, err := Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two converted users, got %d", len(users))
	}
	if users[0].Username != "admin" || users[0].PasswordHash != "$2a$10$abc" {
		t.Fatalf("unexpected converted user: %+v", users[0])
	}
	if users[1].Username != "operator" || users[1].PasswordHash != "$2a$10$def" {
		t.Fatalf("unexpected converted user: %+v", users[1])
	}

	// The file itself is rewritten in array form.
	data, err := os.ReadFile(filepath.Join(dir, UsersFile))
	if err != nil {
		t.Fatalf("read users file: %v", err)
	}
	if data[0] != '[' {
		t.Fatalf("expected array-form users file, got %s", data[:1])
	}
}

func TestUserPasswordUpdateClearsResetToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, &models.User{ID: 1, Username: "admin", PasswordHash: "h1"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SetResetToken(ctx, "admin", "tok", "2099-01-01T00:00:00Z"); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	if err := s.UpdateUserPassword(ctx, "admin", "h2"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	u, err := s.FindUser(ctx, "admin")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.PasswordHash != "h2" || u.ResetToken != "" || u.ResetTokenExpiry != "" {
		t.Fatalf("expected fresh hash and cleared token, got %+v", u)
	}
	if _, err := s.FindUserByResetToken(ctx, "tok"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("consumed token must not resolve, got %v", err)
	}
}
