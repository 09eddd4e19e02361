package atomicfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "data.json")

	if err := WriteFile(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestWriteFileReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	if err := WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Fatalf("got %q, want %q", got, "second")
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	for i := 0; i < 5; i++ {
		if err := WriteFile(path, []byte("v")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

// An interrupted write never corrupts the committed file: a reader sees the
// prior content until the rename happens, because the new bytes only ever
// exist under a temp name.
func TestInterruptedWritePreservesPriorContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	if err := WriteJSON(path, map[string]int{"v": 1}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	// Simulate a crash mid-write: partial bytes land in a temp file that is
	// never renamed.
	tmp, err := os.CreateTemp(dir, "data.json.tmp-*")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := tmp.Write([]byte(`{"v":`)); err != nil {
		t.Fatalf("partial write: %v", err)
	}
	tmp.Close()

	var got map[string]int
	if ok := ReadJSON(path, &got); !ok {
		t.Fatal("ReadJSON reported failure for committed file")
	}
	if got["v"] != 1 {
		t.Fatalf("got %v, want v=1", got)
	}
}

func TestReadJSONFallsBack(t *testing.T) {
	dir := t.TempDir()

	var out []string
	if ok := ReadJSON(filepath.Join(dir, "missing.json"), &out); ok {
		t.Fatal("expected ok=false for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if ok := ReadJSON(bad, &out); ok {
		t.Fatal("expected ok=false for unparsable file")
	}
	if out != nil {
		t.Fatalf("fallback target mutated: %v", out)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")

	in := []string{"a", "b"}
	if err := WriteJSON(path, in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out []string
	if ok := ReadJSON(path, &out); !ok {
		t.Fatal("ReadJSON failed")
	}
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("round trip mismatch: %v", out)
	}
}
