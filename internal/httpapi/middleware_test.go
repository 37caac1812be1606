package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/internal/pagination"
	"github.com/goliatone/go-jastip/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, origins ...string) *api {
	t.Helper()
	return &api{
		cache:       testsupport.NewCache(t),
		logger:      testsupport.DiscardLogger,
		origins:     origins,
		responseTTL: time.Minute,
	}
}

func TestPageRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/resi?limit=5&cursor=12", nil)
	req, err := pageRequest(r)
	require.NoError(t, err)
	assert.Equal(t, pagination.Request{Limit: 5, Cursor: 12}, req)

	r = httptest.NewRequest(http.MethodGet, "/api/resi", nil)
	req, err = pageRequest(r)
	require.NoError(t, err)
	assert.Equal(t, pagination.Request{}, req)

	for _, query := range []string{"limit=ten", "cursor=1.5"} {
		r = httptest.NewRequest(http.MethodGet, "/api/resi?"+query, nil)
		_, err = pageRequest(r)
		require.Error(t, err, query)
		e := domain.AsError(err)
		require.NotNil(t, e)
		assert.Equal(t, errors.CategoryValidation, e.Category)
		assert.Len(t, e.ValidationErrors, 1)
	}
}

func TestFilterRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/resi/search?keyword=jne&limit=2&cursor=9", nil)
	f, err := filterRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "jne", f.Keyword)
	assert.Equal(t, 2, f.Limit)
	assert.Equal(t, int64(9), f.Cursor)
}

func TestPageBody(t *testing.T) {
	body := pageBody("resi", pagination.Page[string]{
		Items:       []string{"JP1001"},
		NextCursor:  3,
		TotalPages:  2,
		MaxCursor:   5,
		HasNextPage: true,
	})
	assert.Equal(t, []string{"JP1001"}, body["resi"])
	assert.Equal(t, int64(3), body["next_cursor"])
	assert.Equal(t, true, body["has_next_page"])
}

func TestBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"Bearer   abc ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		token, ok := bearer(r)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		if tt.ok {
			assert.Equal(t, tt.token, token)
		}
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCORS(t *testing.T) {
	a := newTestAPI(t, "http://localhost:5173")
	h := a.requestID(a.cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	t.Run("no origin passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodOptions, "/api/resi", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	})

	t.Run("unknown origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "http://evil.example")
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var body errorEnvelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "error", body.Success)
		assert.Equal(t, rec.Header().Get(HeaderRequestID), body.RequestID)
	})

	t.Run("wildcard", func(t *testing.T) {
		a := newTestAPI(t, "*")
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "http://anywhere.example")
		a.cors(http.NotFoundHandler()).ServeHTTP(rec, r)
		assert.Equal(t, "http://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAuthorize(t *testing.T) {
	a := newTestAPI(t)
	h := a.authorize(domain.RoleAdmin, domain.RoleCashier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(claims *auth.Claims) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if claims != nil {
			r = r.WithContext(auth.WithClaims(r.Context(), claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Claims{UserID: 1, Role: domain.RoleUser}))
	assert.Equal(t, http.StatusOK, serve(&auth.Claims{UserID: 3, Role: domain.RoleAdmin}))
	assert.Equal(t, http.StatusOK, serve(&auth.Claims{UserID: 4, Role: domain.RoleCashier}))
}

func TestCached(t *testing.T) {
	a := newTestAPI(t)
	calls := 0
	status := http.StatusOK
	h := a.cached("resi")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeData(w, status, "ok", map[string]int{"calls": calls})
	}))

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	first := get("/api/resi?limit=10")
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))

	second := get("/api/resi?limit=10")
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, "MISS", get("/api/resi?limit=5").Header().Get(HeaderCache))
	assert.Equal(t, 2, calls)

	assert.Positive(t, a.cache.DeleteByPrefix(context.Background(), "resi"))
	assert.Equal(t, "MISS", get("/api/resi?limit=10").Header().Get(HeaderCache))

	status = http.StatusInternalServerError
	get("/api/resi?limit=1")
	rec := get("/api/resi?limit=1")
	assert.Equal(t, "MISS", rec.Header().Get(HeaderCache), "error responses are not stored")

	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/resi", strings.NewReader("{}")))
	assert.Empty(t, post.Header().Get(HeaderCache))
}
