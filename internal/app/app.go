// Package app assembles the application graph: backend selection, the
// one-time flat-file import, and the HTTP layer.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stationsync/internal/auth"
	"stationsync/internal/backup"
	"stationsync/internal/config"
	httpserver "stationsync/internal/http"
	"stationsync/internal/http/handlers"
	"stationsync/internal/http/middleware"
	"stationsync/internal/migrate"
	"stationsync/internal/report"
	"stationsync/internal/session"
	"stationsync/internal/store"
	"stationsync/internal/store/flatfile"
	"stationsync/internal/store/relational"
	"stationsync/internal/ws"
)

// Meta key marking that the flat-file dataset was imported once.
const importedMetaKey = "flatfile_imported"

// App wires StationSync dependencies.
type App struct {
	server   *httpserver.Server
	store    store.Store
	sessions *session.Tracker
	logger   *zap.Logger
}

// New constructs the application graph. The backend is chosen once here: the
// configured relational engine when it can be opened, the flat-file store
// otherwise. Driver "json" skips the relational probe.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	backups := backup.NewManager(cfg.Data.Dir, logger)

	st, rel, err := selectBackend(ctx, cfg, backups, logger)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTLDuration())
	authSvc := auth.NewService(st, hasher, tokens, logger)

	sessions := session.NewTracker(ctx, session.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.SessionTTL(),
	}, logger)

	reports := report.NewService(st)
	hub := ws.NewHub(logger)

	var importFn func(ctx context.Context) (migrate.Counts, error)
	if rel != nil {
		importer := migrate.NewImporter(cfg.Data.Dir, rel, backups, logger)
		importFn = importer.Run
	}
	var afterRestore func()
	if ff, ok := st.(*flatfile.Store); ok {
		afterRestore = ff.Reload
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:    handlers.NewAuthHandlers(authSvc, st, sessions, logger),
		StationHandlers: handlers.NewStationHandlers(st, hub, logger),
		RecordHandlers:  handlers.NewRecordHandlers(st, hub, logger),
		ReportHandlers:  handlers.NewReportHandlers(reports, logger),
		AdminHandlers:   handlers.NewAdminHandlers(st, backups, importFn, afterRestore, logger),
		WSHandler:       handlers.NewWSHandler(hub, authSvc, logger),
	}, middleware.AuthMiddleware(tokens))

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	return &App{
		server:   server,
		store:    st,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// selectBackend opens the configured backend, falling back to flat files
// when the relational engine is unavailable. Both failing is fatal.
func selectBackend(ctx context.Context, cfg *config.Config, backups *backup.Manager, logger *zap.Logger) (store.Store, *relational.Store, error) {
	if cfg.Database.Driver == config.DriverJSON {
		ff, err := flatfile.Open(cfg.Data.Dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open flat-file store: %w", err)
		}
		return ff, nil, nil
	}

	rel, err := relational.Open(ctx, relational.Options{
		Driver: cfg.Database.Driver,
		Path:   cfg.SQLitePath(),
		DSN:    cfg.Database.DSN,
	}, logger)
	if err != nil {
		logger.Warn("relational backend unavailable, falling back to flat files",
			zap.String("driver", cfg.Database.Driver), zap.Error(err))
		ff, ffErr := flatfile.Open(cfg.Data.Dir, logger)
		if ffErr != nil {
			return nil, nil, fmt.Errorf("app: no usable backend: relational: %v, flat-file: %w", err, ffErr)
		}
		return ff, nil, nil
	}

	if err := firstRunImport(ctx, cfg, rel, backups, logger); err != nil {
		logger.Warn("first-run import failed, continuing with existing rows", zap.Error(err))
	}
	return rel, rel, nil
}

// firstRunImport loads the flat-file dataset into a freshly adopted
// relational backend exactly once, marked via the meta table.
func firstRunImport(ctx context.Context, cfg *config.Config, rel *relational.Store, backups *backup.Manager, logger *zap.Logger) error {
	done, err := rel.GetMeta(ctx, importedMetaKey)
	if err != nil {
		return err
	}
	if done == "true" {
		return nil
	}

	importer := migrate.NewImporter(cfg.Data.Dir, rel, backups, logger)
	counts, err := importer.Run(ctx)
	if err != nil {
		return err
	}
	if err := rel.SetMeta(ctx, importedMetaKey, "true"); err != nil {
		return err
	}
	logger.Info("imported flat-file dataset",
		zap.Int("users", counts.Users),
		zap.Int("stations", counts.Stations),
		zap.Int("records", counts.Records))
	return nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases the backend and the session tracker.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("failed to close session tracker", zap.Error(err))
	}
}
