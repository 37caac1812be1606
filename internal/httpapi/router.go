// Package httpapi exposes the services over a JSON HTTP API.
//
// Routes live under /api. Successful responses are {"message", "data"}
// envelopes, failures are rendered from go-errors categories. Listing
// endpoints answer from a response cache keyed "{prefix}:{request uri}",
// the same prefixes the invalidation policy purges after writes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/invalidation"
	"github.com/goliatone/go-jastip/internal/service"
	"github.com/gorilla/mux"
)

// DefaultResponseTTL is how long a cached listing response is served.
const DefaultResponseTTL = 600 * time.Second

// Services are the operations the API serves.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Resi      *service.ResiService
	Transaksi *service.TransaksiService
}

// Config tunes the router.
type Config struct {
	// Development adds stack traces to error responses.
	Development    bool
	AllowedOrigins []string
	ResponseTTL    time.Duration
}

type api struct {
	svc         Services
	cache       cache.CacheService
	logger      *slog.Logger
	origins     []string
	responseTTL time.Duration
	development bool
}

// NewRouter builds the handler for every route.
func NewRouter(svc Services, responses cache.CacheService, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{
		svc:         svc,
		cache:       responses,
		logger:      logger.With("component", "http"),
		origins:     cfg.AllowedOrigins,
		responseTTL: cfg.ResponseTTL,
		development: cfg.Development,
	}
	if a.responseTTL <= 0 {
		a.responseTTL = DefaultResponseTTL
	}

	r := mux.NewRouter()
	root := r.PathPrefix("/api").Subrouter()
	root.HandleFunc("/health", a.health).Methods(http.MethodGet)

	staff := a.authorize(domain.RoleAdmin, domain.RoleCashier)
	admin := a.authorize(domain.RoleAdmin)

	authR := root.PathPrefix("/auth").Subrouter()
	authR.HandleFunc("/register", a.register).Methods(http.MethodPost)
	authR.HandleFunc("/login", a.login).Methods(http.MethodPost)
	authR.Handle("/me", chain(http.HandlerFunc(a.me), a.authenticate)).Methods(http.MethodGet)
	authR.Handle("/password", chain(http.HandlerFunc(a.changePassword), a.authenticate)).Methods(http.MethodPut)

	users := root.PathPrefix("/users").Subrouter()
	users.Handle("", chain(http.HandlerFunc(a.createUser), a.identifyOptional)).Methods(http.MethodPost)
	users.Handle("", chain(http.HandlerFunc(a.listUsers), a.authenticate, admin, a.cached(invalidation.PrefixUsers))).Methods(http.MethodGet)
	users.Handle("/search", chain(http.HandlerFunc(a.searchUsers), a.authenticate, admin)).Methods(http.MethodGet)
	users.Handle("/{id:[0-9]+}", chain(http.HandlerFunc(a.getUser), a.authenticate, a.selfOrStaff, a.cached(invalidation.PrefixUser))).Methods(http.MethodGet)
	users.Handle("/{id:[0-9]+}", chain(http.HandlerFunc(a.updateUser), a.authenticate, admin)).Methods(http.MethodPut)

	resi := root.PathPrefix("/resi").Subrouter()
	resi.Handle("", chain(http.HandlerFunc(a.createResi), a.authenticate, admin)).Methods(http.MethodPost)
	resi.Handle("", chain(http.HandlerFunc(a.listResi), a.authenticate, staff, a.cached(invalidation.PrefixResi))).Methods(http.MethodGet)
	resi.Handle("/search", chain(http.HandlerFunc(a.searchResi), a.authenticate, staff)).Methods(http.MethodGet)
	resi.Handle("/posisi", chain(http.HandlerFunc(a.updatePosisi), a.authenticate, staff)).Methods(http.MethodPut)
	resi.Handle("/{noResi}", chain(http.HandlerFunc(a.getResi), a.authenticate)).Methods(http.MethodGet)
	resi.Handle("/{noResi}", chain(http.HandlerFunc(a.updateResi), a.authenticate, staff)).Methods(http.MethodPut)
	resi.Handle("/{noResi}", chain(http.HandlerFunc(a.deleteResi), a.authenticate, admin)).Methods(http.MethodDelete)

	trx := root.PathPrefix("/transaksi").Subrouter()
	trx.Handle("", chain(http.HandlerFunc(a.createTransaksi), a.authenticate, staff)).Methods(http.MethodPost)
	trx.Handle("", chain(http.HandlerFunc(a.listTransaksi), a.authenticate, staff, a.cached(invalidation.PrefixTransaksi))).Methods(http.MethodGet)
	trx.Handle("/search", chain(http.HandlerFunc(a.searchTransaksi), a.authenticate, staff, a.cached(invalidation.PrefixTransaksi))).Methods(http.MethodGet)

	a.fallbacks(r, root, authR, users, resi, trx)

	// CORS runs ahead of routing so preflight requests never reach mux.
	return chain(r, a.requestID, a.accessLog, a.cors)
}

// fallbacks installs the JSON 404 and 405 handlers. mux only consults the
// handlers of the router that matched the path prefix, so every subrouter
// needs its own.
func (a *api) fallbacks(routers ...*mux.Router) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		a.writeError(w, req, domain.NotFound("route", req.URL.Path))
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		a.writeJSONError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})
	for _, r := range routers {
		r.NotFoundHandler = notFound
		r.MethodNotAllowedHandler = notAllowed
	}
}

func (a *api) writeJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorEnvelope{
		Success:   "error",
		Message:   message,
		RequestID: RequestID(r.Context()),
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "Server is running", map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
