package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"bookmart/internal/apiclient"
	"bookmart/internal/cart"
	"bookmart/internal/session"
	"bookmart/internal/snapshot"
)

// fakeRemote stands in for the marketplace API. Responses use the
// remote envelope shape; login picks the role from the email prefix.
type fakeRemote struct {
	srv       *httptest.Server
	cartCalls atomic.Int64
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/user/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false, "message": "invalid credentials",
			})
			return
		}
		role, _, _ := strings.Cut(req.Email, "@")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"accessToken": "tok-" + role,
				"role":        role,
				"email":       req.Email,
				"firstName":   "Test",
			},
		})
	})

	mux.HandleFunc("/api/user/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"accessToken": "tok-" + req.Role,
				"role":        req.Role,
				"email":       req.Email,
				"firstName":   "Test",
			},
		})
	})

	mux.HandleFunc("/api/user/gethomebooks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"newArrivals": []map[string]any{{"_id": "b1", "title": "Dune"}},
			},
		})
	})

	mux.HandleFunc("/api/books/getbooks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"items": []map[string]any{
				{"_id": "b1", "title": "Dune", "price": 12.5},
			},
			"pagination": map[string]any{"page": 1, "totalPages": 1, "totalItems": 1},
		})
	})

	mux.HandleFunc("/api/cart/getcart", func(w http.ResponseWriter, _ *http.Request) {
		f.cartCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"items": []map[string]any{
				{"bookId": "b1", "title": "Dune", "unitPrice": 100, "quantity": 2},
			},
		})
	})

	mux.HandleFunc("/api/cart/updatequantity", func(w http.ResponseWriter, _ *http.Request) {
		f.cartCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	mux.HandleFunc("/api/admin/getstats", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"totalCustomers": 3, "totalBooks": 7},
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

type testEnv struct {
	handler http.Handler
	remote  *fakeRemote
}

func newTestEnv(t *testing.T, loginLimit int) *testEnv {
	t.Helper()
	remote := newFakeRemote(t)
	mr := miniredis.RunT(t)
	api := apiclient.New(remote.srv.URL)
	srv, err := New(Config{
		API:                     api,
		Sessions:                session.NewStore(session.Config{}),
		Reconciler:              cart.NewReconciler(api, snapshot.NewMemoryStore()),
		RedisAddr:               mr.Addr(),
		LoginRateLimitPerMinute: loginLimit,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{handler: srv.Router(), remote: remote}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookies(role string) []*http.Cookie {
	return []*http.Cookie{
		{Name: "accessToken", Value: "tok-" + role},
		{Name: "role", Value: role},
		{Name: "email", Value: role + "@shop.test"},
		{Name: "firstName", Value: "Test"},
	}
}

func TestLoginEstablishesSessionAndRedirects(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodPost, "/login", `{"email":"admin@shop.test","password":"secret"}`)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/admin" {
		t.Fatalf("Location = %q, want /admin", got)
	}
	cookies := rec.Result().Cookies()
	byName := map[string]string{}
	for _, c := range cookies {
		byName[c.Name] = c.Value
	}
	if byName["accessToken"] != "tok-admin" {
		t.Fatalf("accessToken cookie = %q", byName["accessToken"])
	}
	if byName["role"] != "admin" {
		t.Fatalf("role cookie = %q", byName["role"])
	}
}

func TestLoginFailurePassesRemoteMessage(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodPost, "/login", `{"email":"customer@shop.test","password":"wrong"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "accessToken" && c.Value != "" {
			t.Fatal("failed login must not set a token cookie")
		}
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)
	body := `{"email":"customer@shop.test","password":"secret"}`
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/login", body); rec.Code != http.StatusFound {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/login", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRegisterRoleValidation(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodPost, "/register",
		`{"email":"new@shop.test","password":"secret","firstName":"New","role":"superuser"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/register",
		`{"email":"new@shop.test","password":"secret","firstName":"New","role":"customer"}`)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/viewbooks" {
		t.Fatalf("got %d -> %q, want 302 -> /viewbooks", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/cart", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("got %d -> %q, want 302 -> /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuardBouncesWrongRole(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/admin", "", sessionCookies("customer")...)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/unauthorized" {
		t.Fatalf("got %d -> %q, want 302 -> /unauthorized", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthenticatedLoginFormForwardsToLanding(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/login", "", sessionCookies("seller")...)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/sellerbooks" {
		t.Fatalf("got %d -> %q, want 302 -> /sellerbooks", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHomeServesPublicBooks(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Dune") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCartPageReturnsRecomputedTotals(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/cart", "", sessionCookies("customer")...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		TotalQuantity int     `json:"totalQuantity"`
		TotalPrice    float64 `json:"totalPrice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalQuantity != 2 || page.TotalPrice != 200 {
		t.Fatalf("totals = %d / %v, want 2 / 200", page.TotalQuantity, page.TotalPrice)
	}
}

func TestCartSummaryServesSnapshotWithoutRemoteCall(t *testing.T) {
	env := newTestEnv(t, 100)
	cookies := sessionCookies("customer")

	// Prime the mirror through a real fetch.
	if rec := env.do(t, http.MethodGet, "/cart", "", cookies...); rec.Code != http.StatusOK {
		t.Fatalf("prime fetch: %d", rec.Code)
	}
	before := env.remote.cartCalls.Load()

	rec := env.do(t, http.MethodGet, "/cart/summary", "", cookies...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := env.remote.cartCalls.Load(); got != before {
		t.Fatalf("summary hit the remote api (%d calls, was %d)", got, before)
	}
	if !strings.Contains(rec.Body.String(), `"cached":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCartUpdateOnColdMirrorReturnsFreshPage(t *testing.T) {
	env := newTestEnv(t, 100)
	cookies := sessionCookies("customer")

	// No prior fetch: the mirror holds nothing, but the remote update
	// succeeds. The response must be the refetched cart, not an error.
	rec := env.do(t, http.MethodPost, "/cart/update", `{"bookId":"b1","quantity":2}`, cookies...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		TotalQuantity int     `json:"totalQuantity"`
		TotalPrice    float64 `json:"totalPrice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalQuantity != 2 || page.TotalPrice != 200 {
		t.Fatalf("totals = %d / %v, want 2 / 200", page.TotalQuantity, page.TotalPrice)
	}
}

func TestCartSummaryColdMirrorHasEmptyItems(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/cart/summary", "", sessionCookies("customer")...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("cold summary must serialize an empty item list, got %s", rec.Body.String())
	}
}

func TestCartUpdateRejectsLowQuantityLocally(t *testing.T) {
	env := newTestEnv(t, 100)
	cookies := sessionCookies("customer")
	before := env.remote.cartCalls.Load()

	rec := env.do(t, http.MethodPost, "/cart/update", `{"bookId":"b1","quantity":0}`, cookies...)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := env.remote.cartCalls.Load(); got != before {
		t.Fatal("low quantity must be rejected before any remote call")
	}
}

func TestLogoutClearsCookiesAndRedirectsHome(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodPost, "/logout", "", sessionCookies("customer")...)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d -> %q, want 302 -> /", rec.Code, rec.Header().Get("Location"))
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge != -1 {
			t.Fatalf("cookie %s MaxAge = %d, want -1", c.Name, c.MaxAge)
		}
	}
}

func TestAdminDashboardForAdmin(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/admin", "", sessionCookies("admin")...)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "totalCustomers") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestResponsesCarrySecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, 100)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing X-Content-Type-Options")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
}
