package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"evenue.org/api/spec"
	"evenue.org/internal/auth"
	"evenue.org/internal/catalog"
	"evenue.org/internal/obs"
)

const serviceName = "evenue-api"

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the wiring for the HTTP layer.
type Options struct {
	Ready   ReadyProbe
	Version string
	Auth    *auth.Service
	Catalog *catalog.Service

	MaxBodyBytes    int64
	RateLimitRPS    float64
	RateLimitBurst  int
	CORSAllowOrigin string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	auth       *auth.Service
	catalog    *catalog.Service
	opts       Options
}

func New(opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 50
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 100
	}

	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: opts.Ready,
		version:    opts.Version,
		auth:       opts.Auth,
		catalog:    opts.Catalog,
		opts:       opts,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)

	// catalog
	a.mux.HandleFunc("/v1/venues", a.handleVenuesCollection)
	a.mux.HandleFunc("/v1/venues/", a.handleVenueResource)
	a.mux.HandleFunc("/v1/events", a.handleEventsCollection)
	a.mux.HandleFunc("/v1/events/", a.handleEventResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = Logging(h)
	h = RateLimit(h, a.opts.RateLimitRPS, a.opts.RateLimitBurst)
	h = RequestID(h)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(h, a.opts.CORSAllowOrigin)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}
