package server

import (
	"net/http"
	"strings"

	"bookmart/pkg/domain"
)

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.api.AdminStats(sessionFor(r).Token)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminCustomers(w http.ResponseWriter, r *http.Request) {
	s.listUsersByRole(w, r, domain.RoleCustomer)
}

func (s *Server) handleAdminSellers(w http.ResponseWriter, r *http.Request) {
	s.listUsersByRole(w, r, domain.RoleSeller)
}

func (s *Server) listUsersByRole(w http.ResponseWriter, r *http.Request, role domain.Role) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	users, pagination, err := s.api.AdminUsers(sessionFor(r).Token, role, page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": pagination,
	})
}

// handleAdminUserAction serves POST /admin/users/{id}/block and
// POST /admin/users/{id}/delete.
func (s *Server) handleAdminUserAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	token := sessionFor(r).Token
	switch action {
	case "block":
		var req struct {
			Blocked bool `json:"isBlocked"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := s.api.SetUserBlocked(token, id, req.Blocked)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		s.audit(r, "user_block_change", "success", "user_id", id, "blocked", req.Blocked)
		writeJSON(w, http.StatusOK, user)
	case "delete":
		if err := s.api.DeleteUser(token, id); err != nil {
			writeRemoteError(w, err)
			return
		}
		s.audit(r, "user_delete", "success", "user_id", id)
		writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleAdminSellerBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sellerID := strings.TrimPrefix(r.URL.Path, "/admin/sellerbooks/")
	if sellerID == "" || strings.Contains(sellerID, "/") {
		http.NotFound(w, r)
		return
	}
	page, limit := s.paging(r)
	books, pagination, err := s.api.AdminSellerBooks(sessionFor(r).Token, sellerID, page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"books":      books,
		"pagination": pagination,
	})
}
