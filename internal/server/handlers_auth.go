package server

import (
	"net/http"

	"bookmart/internal/apiclient"
	"bookmart/internal/routeguard"
	"bookmart/pkg/domain"
)

// handleLogin authenticates against the remote API, establishes the
// session cookies and redirects to the role's landing page. GET is
// allowed through so the guard's inverse redirect has a form to show;
// it just returns the page shell.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts, try again shortly") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	res, err := s.api.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "failure", "email", req.Email)
		writeRemoteError(w, err)
		return
	}
	sess := res.Session()
	if !sess.Authenticated() || sess.Corrupt() {
		s.audit(r, "login", "failure", "email", req.Email, "reason", "bad_auth_payload")
		writeError(w, http.StatusBadGateway, "login response missing credentials")
		return
	}
	s.sessions.Establish(w, sess)
	s.audit(r, "login", "success", "email", sess.Email, "role", string(sess.Role))
	http.Redirect(w, r, routeguard.LandingPath(sess.Role), http.StatusFound)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]string{"page": "register"})
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts, try again shortly") {
		s.audit(r, "register", "rate_limited")
		return
	}
	var req apiclient.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "first name, email and password are required")
		return
	}
	if _, ok := domain.ParseRole(req.Role); !ok {
		writeError(w, http.StatusBadRequest, "role must be customer, seller or admin")
		return
	}
	res, err := s.api.Register(req)
	if err != nil {
		s.audit(r, "register", "failure", "email", req.Email)
		writeRemoteError(w, err)
		return
	}
	sess := res.Session()
	if !sess.Authenticated() || sess.Corrupt() {
		// Some deployments require login after registration and
		// return no token. Send the user to the login form.
		s.audit(r, "register", "success", "email", req.Email, "auto_login", false)
		http.Redirect(w, r, routeguard.LoginPath, http.StatusFound)
		return
	}
	s.sessions.Establish(w, sess)
	s.audit(r, "register", "success", "email", sess.Email, "role", string(sess.Role))
	http.Redirect(w, r, routeguard.LandingPath(sess.Role), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	sess := sessionFor(r)
	s.sessions.Clear(w)
	s.audit(r, "logout", "success", "email", sess.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}
