// Package server exposes the browser-facing routes of the marketplace
// gateway. Every navigation is gated by the route guard before any
// handler runs; handlers read the restored session from the request
// context and talk to the remote API through typed clients.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bookmart/internal/apiclient"
	"bookmart/internal/cart"
	"bookmart/internal/ratelimit"
	"bookmart/internal/routeguard"
	"bookmart/internal/session"
	"bookmart/internal/util"
	"bookmart/pkg/domain"
)

const defaultPageLimit = 10

// Config wires required dependencies for the HTTP server.
type Config struct {
	API                        *apiclient.Client
	Sessions                   *session.Store
	Reconciler                 *cart.Reconciler
	RedisAddr                  string
	RedisPassword              string
	LoginRateLimitPerMinute    int
	RegisterRateLimitPerMinute int
	TrustedProxies             *util.TrustedProxies
	DefaultPageLimit           int
}

// Server exposes HTTP endpoints for the marketplace gateway.
type Server struct {
	api             *apiclient.Client
	sessions        *session.Store
	guard           *routeguard.Guard
	carts           *cart.Reconciler
	mux             *http.ServeMux
	trusted         *util.TrustedProxies
	pageLimit       int
	loginLimiter    *ratelimit.Limiter
	registerLimiter *ratelimit.Limiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	registerLimit := cfg.RegisterRateLimitPerMinute
	if registerLimit <= 0 {
		registerLimit = 5
	}
	newLimiter := func(name string, limit int) (*ratelimit.Limiter, error) {
		prefix := "bookmart:gateway:ratelimit:" + name
		limiter, err := ratelimit.New(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	registerLimiter, err := newLimiter("register", registerLimit)
	if err != nil {
		return nil, err
	}
	pageLimit := cfg.DefaultPageLimit
	if pageLimit <= 0 {
		pageLimit = defaultPageLimit
	}
	s := &Server{
		api:             cfg.API,
		sessions:        cfg.Sessions,
		guard:           routeguard.New(cfg.Sessions),
		carts:           cfg.Reconciler,
		mux:             http.NewServeMux(),
		trusted:         cfg.TrustedProxies,
		pageLimit:       pageLimit,
		loginLimiter:    loginLimiter,
		registerLimiter: registerLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the full middleware chain.
// The guard sits inside the hygiene middleware so even redirects carry
// request ids and access logs.
func (s *Server) Router() http.Handler {
	guarded := s.guard.Wrap(s.mux)
	chain := util.WithRequestLog("gateway", guarded)
	chain = util.WithRequestID(chain)
	chain = util.WithCORS(chain)
	return util.WithSecurityHeaders(chain)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/logout", s.handleLogout)
	s.mux.HandleFunc("/unauthorized", s.handleUnauthorized)

	// public pages
	s.mux.HandleFunc("/", s.handleHome)
	s.mux.HandleFunc("/about", s.handleAbout)
	s.mux.HandleFunc("/viewonebook/", s.handleViewOneBook)

	// customer pages and actions
	s.mux.HandleFunc("/viewbooks", s.handleViewBooks)
	s.mux.HandleFunc("/cart", s.handleCartPage)
	s.mux.HandleFunc("/cart/summary", s.handleCartSummary)
	s.mux.HandleFunc("/cart/add", s.handleCartAdd)
	s.mux.HandleFunc("/cart/remove", s.handleCartRemove)
	s.mux.HandleFunc("/cart/update", s.handleCartUpdate)
	s.mux.HandleFunc("/cart/clear", s.handleCartClear)
	s.mux.HandleFunc("/wishlist", s.handleWishlistPage)
	s.mux.HandleFunc("/wishlist/add", s.handleWishlistAdd)
	s.mux.HandleFunc("/wishlist/remove", s.handleWishlistRemove)
	s.mux.HandleFunc("/checkout", s.handleCheckout)
	s.mux.HandleFunc("/checkout/address", s.handleCheckoutAddress)
	s.mux.HandleFunc("/checkout/placeorder", s.handlePlaceOrder)
	s.mux.HandleFunc("/vieworders", s.handleViewOrders)
	s.mux.HandleFunc("/customerprofile", s.handleProfilePage)
	s.mux.HandleFunc("/editprofile", s.handleEditProfile)

	// seller pages and actions
	s.mux.HandleFunc("/sellerdashboard", s.handleSellerDashboard)
	s.mux.HandleFunc("/sellerbooks", s.handleSellerBooks)
	s.mux.HandleFunc("/addbook", s.handleAddBook)
	s.mux.HandleFunc("/updatebook/", s.handleUpdateBook)
	s.mux.HandleFunc("/sellerorders", s.handleSellerOrders)
	s.mux.HandleFunc("/sellersingleorder/", s.handleSellerSingleOrder)
	s.mux.HandleFunc("/sellerprofile", s.handleProfilePage)

	// admin pages and actions
	s.mux.HandleFunc("/admin", s.handleAdminDashboard)
	s.mux.HandleFunc("/admin/customers", s.handleAdminCustomers)
	s.mux.HandleFunc("/admin/sellers", s.handleAdminSellers)
	s.mux.HandleFunc("/admin/users/", s.handleAdminUserAction)
	s.mux.HandleFunc("/admin/sellerbooks/", s.handleAdminSellerBooks)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusForbidden, map[string]string{
		"error": "you do not have access to this page",
	})
}

// paging extracts page/limit query params with defaults.
func (s *Server) paging(r *http.Request) (int, int) {
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	limit := s.pageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

func decodeBody(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRemoteError maps a remote-call failure onto the response: the
// API's own message and status when known, 502 otherwise. The caller's
// local state is untouched either way.
func writeRemoteError(w http.ResponseWriter, err error) {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, "marketplace api unavailable")
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trusted),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.Limiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// sessionFor pulls the guard-restored session out of the context.
func sessionFor(r *http.Request) domain.Session {
	return session.FromContext(r.Context())
}
