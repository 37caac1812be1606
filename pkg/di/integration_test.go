package di

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-jastip/internal/auth"
	"github.com/goliatone/go-jastip/internal/domain"
	"github.com/goliatone/go-jastip/pkg/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

type apiResponse struct {
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Success   string          `json:"success"`
	RequestID string          `json:"request_id"`
	Error     *struct {
		Category         string `json:"category"`
		TextCode         string `json:"text_code"`
		RequestID        string `json:"request_id"`
		ValidationErrors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"validation_errors"`
	} `json:"error"`
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
	seeded  testsupport.Seeded
	tokens  *auth.Tokens
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()

	db, seeded := testsupport.NewSeededDB(t)
	config := DefaultConfig()
	config.JWTSecret = "integration-secret"
	config.HTTP.AllowedOrigins = []string{testOrigin}

	container, err := NewContainer(db, config, testsupport.DiscardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return &apiClient{
		t:       t,
		handler: container.Handler(),
		seeded:  seeded,
		tokens:  auth.NewTokens(config.JWTSecret, time.Hour),
	}
}

// token signs a token for one of the seeded users: 0 Budi (USER), 1 Siti
// (USER), 2 Admin (ADMIN), 3 Mitchell (CASHIER).
func (c *apiClient) token(user int) string {
	c.t.Helper()
	token, err := c.tokens.Issue(c.seeded.Users[user])
	require.NoError(c.t, err)
	return token
}

func (c *apiClient) do(method, path, token string, body any) (*httptest.ResponseRecorder, apiResponse) {
	c.t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out), string(resp.Data))
	return out
}

type resiPage struct {
	Resi []struct {
		NoResi      string `json:"no_resi"`
		StatusPaket string `json:"status_paket"`
	} `json:"resi"`
	NextCursor  int64 `json:"next_cursor"`
	TotalPages  int   `json:"total_pages"`
	MaxCursor   int   `json:"max_cursor"`
	HasNextPage bool  `json:"has_next_page"`
}

func TestEndToEndPickupFlow(t *testing.T) {
	c := newAPIClient(t)
	cashier := c.token(3)

	rec, resp := c.do(http.MethodGet, "/api/resi?limit=10", cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	page := decodeData[resiPage](t, resp)
	require.Len(t, page.Resi, 5)
	assert.Equal(t, 5, page.MaxCursor)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNextPage)

	rec, _ = c.do(http.MethodGet, "/api/resi?limit=10", cashier, nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "second listing is served from the response cache")

	rec, resp = c.do(http.MethodPost, "/api/transaksi", cashier, map[string]any{
		"user_id":            c.seeded.Users[0].ID,
		"nomor_resi":         []string{"jp1001", "JP1002"},
		"tanggal_diambil":    "2024-05-01T10:00:00Z",
		"metode_pembayaran":  "CASH",
		"alamat_pengambilan": "TANJUNG",
		"catatan":            "ambil sore",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Transaksi created successfully", resp.Message)

	trx := decodeData[struct {
		FeeJastip    string `json:"fee_jastip"`
		JumlahCod    string `json:"jumlah_cod"`
		FeeCod       string `json:"fee_cod"`
		NamaPenerima struct {
			Name string `json:"name"`
		} `json:"nama_penerima"`
		NomorResi []struct {
			NomorResi   string `json:"nomor_resi"`
			StatusPaket string `json:"status_paket"`
		} `json:"nomor_resi"`
	}](t, resp)
	assert.Equal(t, "16000", trx.FeeJastip)
	assert.Equal(t, "50000", trx.JumlahCod)
	assert.Equal(t, "2500", trx.FeeCod)
	assert.Equal(t, "Budi Santoso", trx.NamaPenerima.Name)
	require.Len(t, trx.NomorResi, 2)
	assert.Equal(t, "DITERIMA", trx.NomorResi[0].StatusPaket)

	rec, resp = c.do(http.MethodGet, "/api/resi?limit=10", cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "pickup purges cached resi listings")
	status := map[string]string{}
	for _, r := range decodeData[resiPage](t, resp).Resi {
		status[r.NoResi] = r.StatusPaket
	}
	assert.Equal(t, "DITERIMA", status["JP1001"])
	assert.Equal(t, "DITERIMA", status["JP1002"])
	assert.Equal(t, "DIPROSES", status["SPX2001ITC"])

	rec, resp = c.do(http.MethodGet, "/api/transaksi/search?keyword=jp1002", cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeData[struct {
		Transaksi []json.RawMessage `json:"transaksi"`
	}](t, resp)
	assert.Len(t, found.Transaksi, 1)

	rec, _ = c.do(http.MethodPost, "/api/transaksi", cashier, map[string]any{
		"user_id":            c.seeded.Users[0].ID,
		"nomor_resi":         []string{"JP1001"},
		"tanggal_diambil":    "2024-05-02T10:00:00Z",
		"metode_pembayaran":  "CASH",
		"alamat_pengambilan": "TANJUNG",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, "a resi is picked up once")
}

func TestResiLifecycle(t *testing.T) {
	c := newAPIClient(t)
	admin := c.token(2)

	rec, resp := c.do(http.MethodPost, "/api/resi", admin, map[string]any{
		"user_id":          c.seeded.Users[1].ID,
		"nomor_resi":       "jnt7001",
		"tanggal_diterima": "2024-04-20T08:00:00Z",
		"posisi_paket":     "Gudang Tanjung",
		"estimasi_tiba":    "2024-04-23T08:00:00Z",
		"fee_jastip":       "10000",
		"status_cod":       true,
		"jumlah_cod":       "75000",
		"fee_cod":          "3000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[struct {
		NoResi              string `json:"no_resi"`
		StatusPembayaranCod string `json:"status_pembayaran_cod"`
	}](t, resp)
	assert.Equal(t, "JNT7001", created.NoResi)
	assert.Equal(t, "BELUM_BAYAR", created.StatusPembayaranCod)

	rec, resp = c.do(http.MethodPut, "/api/resi/posisi", admin, map[string]any{
		"nomor_resi":   []string{"JNT7001", "JP1001"},
		"posisi_paket": "Kapal KM5",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decodeData[map[string]any](t, resp)["updated"])

	rec, resp = c.do(http.MethodGet, "/api/resi/jnt7001", c.token(1), nil)
	require.Equal(t, http.StatusOK, rec.Code, "owners see their resi")
	assert.Equal(t, "Kapal KM5", decodeData[map[string]any](t, resp)["posisi_paket"])

	rec, _ = c.do(http.MethodGet, "/api/resi/JNT7001", c.token(0), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other customers do not")

	rec, _ = c.do(http.MethodDelete, "/api/resi/JNT7001", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = c.do(http.MethodGet, "/api/resi/JNT7001", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	c := newAPIClient(t)

	rec, _ := c.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":            "rina wati",
		"email":           "rina@example.com",
		"password":        "rahasia123",
		"whatsapp_number": "081277770001",
		"address":         "Jl. Pelabuhan 9",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, resp := c.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "rina@example.com",
		"password": "rahasia123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decodeData[struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	}](t, resp)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "Rina Wati", login.Name)

	rec, resp = c.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rina@example.com", decodeData[map[string]any](t, resp)["email"])

	rec, _ = c.do(http.MethodPut, "/api/auth/password", login.Token, map[string]any{
		"old_password": "rahasia123",
		"new_password": "baru12345",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = c.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "rina@example.com",
		"password": "rahasia123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", resp.Message)
}

func TestAuthorization(t *testing.T) {
	c := newAPIClient(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   int // -1 for anonymous
		want   int
	}{
		{"anonymous listing", http.MethodGet, "/api/resi", -1, http.StatusUnauthorized},
		{"customer listing resi", http.MethodGet, "/api/resi", 0, http.StatusForbidden},
		{"cashier listing resi", http.MethodGet, "/api/resi", 3, http.StatusOK},
		{"cashier listing users", http.MethodGet, "/api/users", 3, http.StatusForbidden},
		{"admin listing users", http.MethodGet, "/api/users", 2, http.StatusOK},
		{"cashier deleting resi", http.MethodDelete, "/api/resi/JP1001", 3, http.StatusForbidden},
		{"customer reading self", http.MethodGet, "/api/users/1", 0, http.StatusOK},
		{"customer reading someone else", http.MethodGet, "/api/users/2", 0, http.StatusForbidden},
		{"cashier reading a customer", http.MethodGet, "/api/users/2", 3, http.StatusOK},
		{"customer creating transaksi", http.MethodPost, "/api/transaksi", 0, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := ""
			if tt.user >= 0 {
				token = c.token(tt.user)
			}
			rec, _ := c.do(tt.method, tt.path, token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec, resp := c.do(http.MethodGet, "/api/resi", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.TextCode)
}

func TestRoleChangesApplyToIssuedTokens(t *testing.T) {
	c := newAPIClient(t)
	siti := c.token(1)

	rec, _ := c.do(http.MethodGet, "/api/transaksi", siti, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = c.do(http.MethodPut, "/api/users/2", c.token(2), map[string]any{"role": "CASHIER"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = c.do(http.MethodGet, "/api/transaksi", siti, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicUserCreation(t *testing.T) {
	c := newAPIClient(t)
	input := map[string]any{
		"name":            "dewi lestari",
		"whatsapp_number": "081299990001",
		"address":         "Jl. Yos Sudarso 3",
		"role":            "ADMIN",
	}

	rec, resp := c.do(http.MethodPost, "/api/users", "", input)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, string(domain.RoleUser), decodeData[map[string]any](t, resp)["role"], "anonymous callers cannot pick a role")

	input["whatsapp_number"] = "081299990002"
	input["role"] = "CASHIER"
	rec, resp = c.do(http.MethodPost, "/api/users", c.token(2), input)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, string(domain.RoleCashier), decodeData[map[string]any](t, resp)["role"])
}

func TestErrorPropagation(t *testing.T) {
	c := newAPIClient(t)
	cashier := c.token(3)

	rec, resp := c.do(http.MethodPost, "/api/transaksi", cashier, map[string]any{
		"user_id":            c.seeded.Users[0].ID,
		"nomor_resi":         []string{"JP1001", "NOPE404"},
		"tanggal_diambil":    "2024-05-01T10:00:00Z",
		"metode_pembayaran":  "CASH",
		"alamat_pengambilan": "TANJUNG",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "error", resp.Success)
	assert.Equal(t, rec.Header().Get("X-Request-Id"), resp.RequestID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation", resp.Error.Category)
	assert.NotEmpty(t, resp.Error.ValidationErrors)

	rec, _ = c.do(http.MethodPost, "/api/transaksi", cashier, map[string]any{"user_id": 999, "nomor_resi": []string{"JP1001"},
		"tanggal_diambil": "2024-05-01T10:00:00Z", "metode_pembayaran": "CASH", "alamat_pengambilan": "TANJUNG"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = c.do(http.MethodGet, "/api/resi?limit=abc", cashier, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = c.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", resp.Success)

	rec, _ = c.do(http.MethodPatch, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	c := newAPIClient(t)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/resi", nil)
	preflight.Header.Set("Origin", testOrigin)
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, preflight)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	foreign := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	foreign.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	c.handler.ServeHTTP(rec, foreign)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = c.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "requests without an origin are not cross-origin")
}
