package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/auth"
	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/directory"
	"taskdeck.dev/internal/obs"
	"taskdeck.dev/internal/task"
)

const maxRequestBody = 1 << 20

// ReadyProbe checks downstream readiness, currently just a DB ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the domain services.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth     *auth.Service
	dir      *directory.Service
	tasks    *task.Service
	gate     *authz.Gate
	recorder *audit.Recorder

	rateBurst  int
	ratePerSec int
}

// New wires routes over the given services.
func New(rp ReadyProbe, version string, authSvc *auth.Service, dir *directory.Service, tasks *task.Service, gate *authz.Gate, recorder *audit.Recorder) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       authSvc,
		dir:        dir,
		tasks:      tasks,
		gate:       gate,
		recorder:   recorder,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)

	a.mux.HandleFunc("/v1/tasks", a.handleTasksCollection)
	a.mux.HandleFunc("/v1/tasks/reorder", a.handleTasksReorder)
	a.mux.HandleFunc("/v1/tasks/", a.handleTaskResource)

	a.mux.HandleFunc("/v1/organizations", a.handleOrgsCollection)
	a.mux.HandleFunc("/v1/organizations/", a.handleOrgResource)

	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/v1/audit", a.handleAuditQuery)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, maxRequestBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "taskdeck-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "taskdeck-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
