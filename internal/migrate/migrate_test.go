package migrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"stationsync/internal/backup"
	"stationsync/internal/models"
	"stationsync/internal/store/flatfile"
	"stationsync/internal/store/relational"
)

func writeJSONFile(t *testing.T, dir, base string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", base, err)
	}
	if err := os.WriteFile(filepath.Join(dir, base), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", base, err)
	}
}

func newImporter(t *testing.T, dataDir string) (*Importer, *relational.Store) {
	t.Helper()
	rel, err := relational.Open(context.Background(), relational.Options{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "import.sqlite"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open relational store: %v", err)
	}
	t.Cleanup(func() { rel.Close() })

	backups := backup.NewManager(dataDir, zap.NewNop())
	return NewImporter(dataDir, rel, backups, zap.NewNop()), rel
}

func seedDataset(t *testing.T, dir string) {
	t.Helper()
	writeJSONFile(t, dir, flatfile.UsersFile, []models.User{
		{ID: 1, Username: "admin", PasswordHash: "h1", CreatedAt: "2024-01-01T00:00:00Z"},
	})
	writeJSONFile(t, dir, flatfile.StationsFile, []models.Station{
		{ID: "ST1", Name: "Depot", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "ST2", Name: "Annex", CreatedAt: "2024-01-02T00:00:00Z"},
	})
	writeJSONFile(t, dir, flatfile.RecordsFile, []models.Record{
		{ID: "RC1", StationID: "ST1", Date: "2024-01-10", GivenOut: 3},
		{ID: "RC2", StationID: "ST2", Date: "2024-01-10", GivenOut: 1},
		{ID: "RC3", StationID: "STGONE", Date: "2024-01-10", GivenOut: 9},
	})
}

func TestImportCountsAndOrphanSkip(t *testing.T) {
	dir := t.TempDir()
	seedDataset(t, dir)
	im, rel := newImporter(t, dir)
	ctx := context.Background()

	counts, err := im.Run(ctx)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if counts.Users != 1 || counts.Stations != 2 || counts.Records != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	// The orphan record referencing a missing station is not imported.
	all, err := rel.AllRecords(ctx, "", "")
	if err != nil {
		t.Fatalf("all records: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two imported records, got %d", len(all))
	}
}

func TestImportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	seedDataset(t, dir)
	im, _ := newImporter(t, dir)
	ctx := context.Background()

	if _, err := im.Run(ctx); err != nil {
		t.Fatalf("first import: %v", err)
	}
	counts, err := im.Run(ctx)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if counts.Users != 0 || counts.Stations != 0 || counts.Records != 0 {
		t.Fatalf("second run must insert nothing, got %+v", counts)
	}
}

func TestImportBacksUpFirst(t *testing.T) {
	dir := t.TempDir()
	seedDataset(t, dir)
	im, _ := newImporter(t, dir)

	if _, err := im.Run(context.Background()); err != nil {
		t.Fatalf("import: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected a backup per dataset file, got %d", len(entries))
	}
}

func TestImportLegacyUsersMap(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, flatfile.UsersFile),
		[]byte(`{"admin":{"hash":"$2a$10$abc"}}`), 0o644); err != nil {
		t.Fatalf("seed legacy users: %v", err)
	}
	im, rel := newImporter(t, dir)
	ctx := context.Background()

	counts, err := im.Run(ctx)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if counts.Users != 1 {
		t.Fatalf("expected one imported user, got %+v", counts)
	}
	u, err := rel.FindUser(ctx, "admin")
	if err != nil {
		t.Fatalf("find imported user: %v", err)
	}
	if u.PasswordHash != "$2a$10$abc" {
		t.Fatalf("unexpected hash: %q", u.PasswordHash)
	}
}

func TestImportMissingFiles(t *testing.T) {
	dir := t.TempDir()
	im, _ := newImporter(t, dir)

	counts, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("import with no files: %v", err)
	}
	if counts != (Counts{}) {
		t.Fatalf("expected zero counts, got %+v", counts)
	}
}
