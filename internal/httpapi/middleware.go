package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-jastip/cache"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderCache     = "X-Cache"
)

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// recorder captures the status and size of a response and, when body is
// set, a copy of what was written.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
	body   *bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	if r.body != nil {
		r.body.Write(p)
	}
	n, err := r.ResponseWriter.Write(p)
	r.size += n
	return n, err
}

func (a *api) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (a *api) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		a.logger.InfoContext(r.Context(), "http request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"bytes", rec.size,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// cors admits requests from the configured origins. Requests without an
// Origin header are not cross-origin and pass through. A "*" entry admits
// every origin.
func (a *api) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !a.allowedOrigin(origin) {
			a.writeError(w, r, domain.Forbidden("origin not allowed"))
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Expose-Headers", HeaderRequestID)
		h.Set("Access-Control-Max-Age", "3600")
		h.Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) allowedOrigin(origin string) bool {
	return slices.Contains(a.origins, "*") || slices.Contains(a.origins, origin)
}

// bearer extracts the token of an "Authorization: Bearer <token>" header.
func bearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// identify resolves the token to claims and refreshes the role from the
// current user record, so role changes apply to tokens already issued.
func (a *api) identify(r *http.Request) (*auth.Claims, error) {
	token, ok := bearer(r)
	if !ok {
		return nil, domain.Unauthorized("missing bearer token")
	}
	claims, err := a.svc.Auth.Authenticate(token)
	if err != nil {
		return nil, err
	}

	user, err := a.svc.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		return nil, domain.Unauthorized("token user no longer exists")
	}
	claims.Role = user.Role
	return claims, nil
}

// authenticate rejects requests without a valid bearer token.
func (a *api) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.identify(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// identifyOptional attaches claims when a valid token is present and lets
// anonymous requests through.
func (a *api) identifyOptional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearer(r); ok {
			if claims, err := a.identify(r); err == nil {
				r = r.WithContext(auth.WithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// authorize admits authenticated callers holding one of roles.
func (a *api) authorize(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.FromContext(r.Context())
			if !ok {
				a.writeError(w, r, domain.Unauthorized("user not authenticated"))
				return
			}
			if !claims.HasRole(roles...) {
				a.writeError(w, r, domain.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cached serves GET responses from the cache at "{prefix}:{request uri}".
// Only 2xx bodies are stored. Mutations purge the prefix.
func (a *api) cached(prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := cache.Key(prefix, r.URL.RequestURI())

			var body []byte
			if a.cache.Lookup(r.Context(), key, &body) {
				a.logger.DebugContext(r.Context(), "response cache hit", "key", key)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set(HeaderCache, "HIT")
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(body)
				return
			}

			w.Header().Set(HeaderCache, "MISS")
			rec := &recorder{ResponseWriter: w, body: new(bytes.Buffer)}
			next.ServeHTTP(rec, r)

			if rec.status >= 200 && rec.status < 300 {
				a.cache.Set(r.Context(), key, rec.body.Bytes(), a.responseTTL)
			}
		})
	}
}

// chain wraps h with middleware, outermost first.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
