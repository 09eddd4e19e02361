// Package backup snapshots the flat-file dataset into an append-only backups
// directory and restores chosen snapshots back over the active files.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DatasetFiles are the interchange files covered by every snapshot.
var DatasetFiles = []string{"users.json", "stations.json", "records.json"}

// ErrNoBackups is returned when a restore is requested and the backups
// directory holds nothing usable.
var ErrNoBackups = errors.New("backup: no backups available")

// Result reports what a restore touched.
type Result struct {
	RestoredCount int      `json:"restoredCount"`
	Files         []string `json:"files"`
}

// Manager copies dataset files between the data dir and the backups dir.
// Backups are plain copies named <base>.<timestamp>.bak; timestamps keep the
// listing lexically chronological.
type Manager struct {
	dataDir    string
	backupsDir string
	logger     *zap.Logger
}

// NewManager builds a manager rooted at dataDir, with backups under
// dataDir/backups.
func NewManager(dataDir string, logger *zap.Logger) *Manager {
	return &Manager{
		dataDir:    dataDir,
		backupsDir: filepath.Join(dataDir, "backups"),
		logger:     logger,
	}
}

// Dir returns the backups directory.
func (m *Manager) Dir() string { return m.backupsDir }

// All snapshots every existing dataset file. Missing sources are skipped,
// not errors. Returns the number of files backed up.
func (m *Manager) All() (int, error) {
	if err := os.MkdirAll(m.backupsDir, 0o755); err != nil {
		return 0, fmt.Errorf("create backups dir: %w", err)
	}

	ts := timestamp()
	copied := 0
	for _, base := range DatasetFiles {
		src := filepath.Join(m.dataDir, base)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := m.backupName(base, ts)
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("backup %s: %w", base, err)
		}
		copied++
		m.logger.Info("backed up dataset file",
			zap.String("source", src),
			zap.String("backup", filepath.Base(dst)))
	}
	return copied, nil
}

// List returns all backup filenames in lexical (chronological) order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bak") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// RestoreLatest copies the newest backup of each dataset file back over the
// active file. Dataset files with no backup are left alone.
func (m *Manager) RestoreLatest() (Result, error) {
	names, err := m.List()
	if err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		return Result{}, ErrNoBackups
	}

	chosen := make(map[string]string, len(DatasetFiles))
	for _, base := range DatasetFiles {
		// Lexical order means the last match is the most recent.
		for _, name := range names {
			if strings.HasPrefix(name, base+".") {
				chosen[base] = name
			}
		}
	}
	return m.Restore(chosen)
}

// Restore copies the named backup of each dataset file over the active file.
// Keys are dataset base names ("records.json"), values backup filenames as
// returned by List.
func (m *Manager) Restore(files map[string]string) (Result, error) {
	res := Result{}
	for _, base := range DatasetFiles {
		name, ok := files[base]
		if !ok || name == "" {
			continue
		}
		src := filepath.Join(m.backupsDir, filepath.Base(name))
		if _, err := os.Stat(src); err != nil {
			return res, fmt.Errorf("backup %s: %w", name, err)
		}
		dst := filepath.Join(m.dataDir, base)
		if err := copyFile(src, dst); err != nil {
			return res, fmt.Errorf("restore %s: %w", base, err)
		}
		res.RestoredCount++
		res.Files = append(res.Files, filepath.Base(name))
		m.logger.Info("restored dataset file",
			zap.String("backup", filepath.Base(name)),
			zap.String("target", dst))
	}
	if res.RestoredCount == 0 {
		return res, ErrNoBackups
	}
	return res, nil
}

// backupName never reuses an existing name: if two backups land inside the
// same timestamp granularity a monotonic suffix disambiguates them.
func (m *Manager) backupName(base, ts string) string {
	name := filepath.Join(m.backupsDir, fmt.Sprintf("%s.%s.bak", base, ts))
	for n := 1; ; n++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = filepath.Join(m.backupsDir, fmt.Sprintf("%s.%s-%d.bak", base, ts, n))
	}
}

// timestamp has nanosecond precision so successive snapshots get strictly
// increasing names and lexical order stays chronological.
func timestamp() string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z")
	ts = strings.ReplaceAll(ts, ":", "-")
	return strings.ReplaceAll(ts, ".", "-")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
