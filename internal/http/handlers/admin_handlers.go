package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"stationsync/internal/backup"
	"stationsync/internal/migrate"
	"stationsync/internal/store"
)

// AdminHandlers covers the backup, restore and migration routes.
type AdminHandlers struct {
	store   store.Store
	backups *backup.Manager
	// importFn runs the flat-file import into the relational backend. Nil
	// when the relational backend is not available this process.
	importFn func(ctx context.Context) (migrate.Counts, error)
	// afterRestore re-reads restored files into memory; nil for backends
	// that read from disk on every call.
	afterRestore func()
	logger       *zap.Logger
}

// NewAdminHandlers returns the handler set.
func NewAdminHandlers(st store.Store, backups *backup.Manager, importFn func(ctx context.Context) (migrate.Counts, error), afterRestore func(), logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{store: st, backups: backups, importFn: importFn, afterRestore: afterRestore, logger: logger}
}

// Backup handles POST /api/admin/backup.
func (h *AdminHandlers) Backup(w http.ResponseWriter, r *http.Request) {
	n, err := h.backups.All()
	if err != nil {
		h.logger.Error("backup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"backedUp": n})
}

// Backups handles GET /api/admin/backups.
func (h *AdminHandlers) Backups(w http.ResponseWriter, r *http.Request) {
	names, err := h.backups.List()
	if err != nil {
		h.logger.Error("list backups failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list backups failed")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// Restore handles POST /api/admin/restore. An empty body restores the most
// recent backup of each file; a {"files": {base: backupName}} body restores
// the named backups.
func (h *AdminHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files map[string]string `json:"files"`
	}
	if r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	var (
		result backup.Result
		err    error
	)
	if len(req.Files) > 0 {
		result, err = h.backups.Restore(req.Files)
	} else {
		result, err = h.backups.RestoreLatest()
	}
	if err != nil {
		if errors.Is(err, backup.ErrNoBackups) {
			writeError(w, http.StatusNotFound, "no backups available")
			return
		}
		h.logger.Error("restore failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "restore failed")
		return
	}

	if h.afterRestore != nil {
		h.afterRestore()
	}
	writeJSON(w, http.StatusOK, result)
}

// Migrate handles POST /api/admin/migrate, importing the flat-file dataset
// into the relational backend.
func (h *AdminHandlers) Migrate(w http.ResponseWriter, r *http.Request) {
	if h.importFn == nil {
		writeError(w, http.StatusConflict, "relational backend not active")
		return
	}
	counts, err := h.importFn(r.Context())
	if err != nil {
		h.logger.Error("migration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "migration failed")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Health handles GET /health.
func (h *AdminHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.store.Kind(),
	})
}
