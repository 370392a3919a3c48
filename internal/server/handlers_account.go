package server

import (
	"io"
	"net/http"
	"strings"

	"bookmart/pkg/domain"
)

func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	profile, err := s.api.Profile(sessionFor(r).Token)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// profileFormFields are the editable profile attributes forwarded to
// the remote API verbatim.
var profileFormFields = []string{"firstName", "lastName", "phone"}

// handleEditProfile forwards the multipart form to the remote API and,
// on success, re-issues the session cookies so the displayed name and
// phone stay in sync with the account.
func (s *Server) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	fields := make(map[string]string)
	for _, name := range profileFormFields {
		if v := r.FormValue(name); v != "" {
			fields[name] = v
		}
	}
	imageName, image, closeImage, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImage()

	sess := sessionFor(r)
	profile, err := s.api.UpdateProfile(sess.Token, fields, imageName, image)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	sess.FirstName = profile.FirstName
	sess.LastName = profile.LastName
	sess.Phone = profile.Phone
	s.sessions.Establish(w, sess)
	writeJSON(w, http.StatusOK, profile)
}

// formFile pulls an optional file field out of a parsed multipart
// form. A missing file is not an error; the returned reader is nil.
func formFile(r *http.Request, field string) (string, io.Reader, func(), error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return "", nil, func() {}, nil
	}
	if err != nil {
		return "", nil, func() {}, err
	}
	return header.Filename, file, func() { _ = file.Close() }, nil
}

func (s *Server) handleSellerDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.api.SellerStats(sessionFor(r).Token)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSellerBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	books, pagination, err := s.api.SellerBooks(sessionFor(r).Token, page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"books":      books,
		"pagination": pagination,
	})
}

var bookFormFields = []string{"title", "author", "description", "price", "category", "stock"}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	fields := make(map[string]string)
	for _, name := range bookFormFields {
		if v := r.FormValue(name); v != "" {
			fields[name] = v
		}
	}
	if fields["title"] == "" || fields["price"] == "" {
		writeError(w, http.StatusBadRequest, "title and price are required")
		return
	}
	imageName, image, closeImage, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImage()

	book, err := s.api.CreateBook(sessionFor(r).Token, fields, imageName, image)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/updatebook/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	fields := make(map[string]string)
	for _, name := range bookFormFields {
		if v := r.FormValue(name); v != "" {
			fields[name] = v
		}
	}
	imageName, image, closeImage, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}
	defer closeImage()

	book, err := s.api.UpdateBook(sessionFor(r).Token, id, fields, imageName, image)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	orders, pagination, err := s.api.SellerOrders(sessionFor(r).Token, page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": pagination,
	})
}

// handleSellerSingleOrder serves GET /sellersingleorder/{id} and
// POST /sellersingleorder/{id}/status.
func (s *Server) handleSellerSingleOrder(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sellersingleorder/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	token := sessionFor(r).Token
	switch {
	case action == "" && r.Method == http.MethodGet:
		order, err := s.api.SellerOrder(token, id)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	case action == "status" && (r.Method == http.MethodPost || r.Method == http.MethodPatch):
		var req struct {
			BookID string `json:"bookId"`
			Status string `json:"status"`
		}
		if err := decodeBody(r, &req); err != nil || req.BookID == "" {
			writeError(w, http.StatusBadRequest, "bookId and status are required")
			return
		}
		status, ok := parseOrderItemStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "status must be processing, shipped, delivered or cancelled")
			return
		}
		order, err := s.api.UpdateOrderItemStatus(token, id, req.BookID, status)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		s.audit(r, "order_status_change", "success", "order_id", id, "book_id", req.BookID, "status", string(status))
		writeJSON(w, http.StatusOK, order)
	case action != "" && action != "status":
		http.NotFound(w, r)
	default:
		methodNotAllowed(w)
	}
}

func parseOrderItemStatus(raw string) (domain.OrderItemStatus, bool) {
	switch domain.OrderItemStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.OrderItemProcessing:
		return domain.OrderItemProcessing, true
	case domain.OrderItemShipped:
		return domain.OrderItemShipped, true
	case domain.OrderItemDelivered:
		return domain.OrderItemDelivered, true
	case domain.OrderItemCancelled:
		return domain.OrderItemCancelled, true
	}
	return "", false
}
