package httpserver

import (
	"net/http"

	"stationsync/internal/http/handlers"
	"stationsync/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers    *handlers.AuthHandlers
	StationHandlers *handlers.StationHandlers
	RecordHandlers  *handlers.RecordHandlers
	ReportHandlers  *handlers.ReportHandlers
	AdminHandlers   *handlers.AdminHandlers
	WSHandler       *handlers.WSHandler
}

// NewRouter wires HTTP routes with middleware. Register, login, the
// password-reset pair, health and the websocket endpoint are public;
// everything else requires a bearer token.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, http.HandlerFunc(deps.AdminHandlers.Health)))

	mux.Handle("/api/register", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Register)))
	mux.Handle("/api/login", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Login)))
	mux.Handle("/api/forgot-password", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.ForgotPassword)))
	mux.Handle("/api/reset-password", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.ResetPassword)))

	// The websocket endpoint authenticates through its token query param.
	mux.Handle("/ws", method(http.MethodGet, http.HandlerFunc(deps.WSHandler.Serve)))

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, authMiddleware)
	}

	mux.Handle("/api/users", method(http.MethodGet, authenticated(deps.AuthHandlers.Users)))
	mux.Handle("/api/session", method(http.MethodGet, authenticated(deps.AuthHandlers.Session)))
	mux.Handle("/api/logout", method(http.MethodPost, authenticated(deps.AuthHandlers.Logout)))

	mux.Handle("/api/stations", authenticated(deps.StationHandlers.Collection))
	mux.Handle("/api/stations/", authenticated(deps.StationHandlers.Item))
	mux.Handle("/api/records/", authenticated(deps.RecordHandlers.Item))

	mux.Handle("/api/reports/aggregate", method(http.MethodGet, authenticated(deps.ReportHandlers.Aggregate)))
	mux.Handle("/api/maintenance", method(http.MethodGet, authenticated(deps.ReportHandlers.Maintenance)))

	mux.Handle("/api/admin/backup", method(http.MethodPost, authenticated(deps.AdminHandlers.Backup)))
	mux.Handle("/api/admin/backups", method(http.MethodGet, authenticated(deps.AdminHandlers.Backups)))
	mux.Handle("/api/admin/restore", method(http.MethodPost, authenticated(deps.AdminHandlers.Restore)))
	mux.Handle("/api/admin/migrate", method(http.MethodPost, authenticated(deps.AdminHandlers.Migrate)))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
