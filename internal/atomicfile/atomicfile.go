// Package atomicfile writes files so that readers only ever observe the last
// fully committed version: content goes to a uniquely named temp file in the
// destination directory and is renamed over the target in one step.
package atomicfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDegradedWrite wraps a direct (non-atomic) write performed after the
// rename step failed. The file content is intact; only the atomicity
// guarantee was lost for this write. Callers should log and continue.
var ErrDegradedWrite = errors.New("atomicfile: degraded non-atomic write")

// WriteFile atomically replaces path with data. The parent directory is
// created on first use. If the final rename fails (for example across
// devices) the data is written directly and ErrDegradedWrite is returned
// wrapped with the rename cause.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := true
	defer func() {
		if cleanup {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		cleanup = false
		if werr := os.WriteFile(path, data, 0o644); werr != nil {
			return fmt.Errorf("direct write after failed rename: %w", werr)
		}
		return fmt.Errorf("%w: %w", ErrDegradedWrite, err)
	}
	cleanup = false

	syncDir(dir)
	return nil
}

// WriteJSON marshals v with two-space indentation (the interchange format)
// and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, data)
}

// ReadJSON decodes path into out. A missing or unparsable file leaves out
// untouched and reports ok=false; callers fall back to their zero dataset.
func ReadJSON(path string, out any) (ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// syncDir makes the rename durable on filesystems that require a directory
// sync. Failure is ignored: the rename itself already succeeded.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
