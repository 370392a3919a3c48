package server

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"bookmart/internal/apiclient"
	"bookmart/internal/cart"
	"bookmart/pkg/domain"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.api.HomeBooks()
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"page": "about"})
}

func (s *Server) handleViewBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	q := apiclient.BookQuery{
		Page:     page,
		Limit:    limit,
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	books, pagination, err := s.api.ListBooks(sessionFor(r).Token, q)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"books":      books,
		"pagination": pagination,
	})
}

func (s *Server) handleViewOneBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/viewonebook/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	book, err := s.api.GetBook(sessionFor(r).Token, id)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// mirrorPayload is the shape every cart and wishlist response uses, so
// the client can re-render totals from any mutation response.
func mirrorPayload(m domain.Mirror, p *domain.Pagination) map[string]any {
	if m.Items == nil {
		m.Items = []domain.LineItem{}
	}
	payload := map[string]any{
		"items":         m.Items,
		"totalQuantity": m.TotalQuantity,
		"totalPrice":    m.TotalPrice,
	}
	if p != nil {
		payload["pagination"] = p
	}
	return payload
}

func (s *Server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	mirror, pagination, err := s.carts.FetchCart(sessionFor(r), page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mirrorPayload(mirror, pagination))
}

// handleCartSummary serves the last mirrored cart state without a
// remote round trip. The header badge polls this.
func (s *Server) handleCartSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	mirror, ok := s.carts.Cached(cart.CollectionCart, sessionFor(r))
	payload := mirrorPayload(mirror, nil)
	payload["cached"] = ok
	writeJSON(w, http.StatusOK, payload)
}

type bookRef struct {
	BookID string `json:"bookId"`
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bookRef
	if err := decodeBody(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	if err := s.carts.AddToCart(sessionFor(r), req.BookID); err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "added to cart"})
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bookRef
	if err := decodeBody(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	sess := sessionFor(r)
	mirror, err := s.carts.RemoveFromCart(sess, req.BookID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotMirrored) {
			// Mirror drifted from the remote cart. Refetch so the
			// client gets a consistent view.
			mirror, pagination, ferr := s.carts.FetchCart(sess, 1, s.pageLimit)
			if ferr != nil {
				writeRemoteError(w, ferr)
				return
			}
			writeJSON(w, http.StatusOK, mirrorPayload(mirror, pagination))
			return
		}
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mirrorPayload(mirror, nil))
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		BookID   string `json:"bookId"`
		Quantity int    `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	sess := sessionFor(r)
	mirror, err := s.carts.UpdateQuantity(sess, req.BookID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrQuantityTooLow):
			writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		case errors.Is(err, cart.ErrItemNotMirrored):
			// The remote update went through but the mirror never held
			// the item. Refetch so the client gets a consistent view.
			mirror, pagination, ferr := s.carts.FetchCart(sess, 1, s.pageLimit)
			if ferr != nil {
				writeRemoteError(w, ferr)
				return
			}
			writeJSON(w, http.StatusOK, mirrorPayload(mirror, pagination))
		default:
			writeRemoteError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, mirrorPayload(mirror, nil))
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.carts.ClearCart(sessionFor(r)); err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

func (s *Server) handleWishlistPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	mirror, pagination, err := s.carts.FetchWishlist(sessionFor(r), page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mirrorPayload(mirror, pagination))
}

func (s *Server) handleWishlistAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bookRef
	if err := decodeBody(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	if err := s.carts.AddToWishlist(sessionFor(r), req.BookID); err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "added to wishlist"})
}

func (s *Server) handleWishlistRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req bookRef
	if err := decodeBody(r, &req); err != nil || req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	sess := sessionFor(r)
	mirror, err := s.carts.RemoveFromWishlist(sess, req.BookID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotMirrored) {
			mirror, pagination, ferr := s.carts.FetchWishlist(sess, 1, s.pageLimit)
			if ferr != nil {
				writeRemoteError(w, ferr)
				return
			}
			writeJSON(w, http.StatusOK, mirrorPayload(mirror, pagination))
			return
		}
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mirrorPayload(mirror, nil))
}

// handleCheckout assembles the checkout page: the cart mirror and the
// saved addresses, fetched concurrently.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess := sessionFor(r)
	var (
		mirror    domain.Mirror
		addresses []domain.Address
	)
	g, _ := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		mirror, _, err = s.carts.FetchCart(sess, 1, s.pageLimit)
		return err
	})
	g.Go(func() error {
		var err error
		addresses, err = s.api.Addresses(sess.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		writeRemoteError(w, err)
		return
	}
	payload := mirrorPayload(mirror, nil)
	payload["addresses"] = addresses
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCheckoutAddress(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var addr domain.Address
		if err := decodeBody(r, &addr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		addresses, err := s.api.AddAddress(sessionFor(r).Token, addr)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
	case http.MethodPatch:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		var addr domain.Address
		if err := decodeBody(r, &addr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		addresses, err := s.api.UpdateAddress(sessionFor(r).Token, id, addr)
		if err != nil {
			writeRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.api.DeleteAddress(sessionFor(r).Token, id); err != nil {
			writeRemoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "address removed"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		AddressID string `json:"addressId"`
	}
	if err := decodeBody(r, &req); err != nil || req.AddressID == "" {
		writeError(w, http.StatusBadRequest, "addressId is required")
		return
	}
	sess := sessionFor(r)
	order, err := s.api.PlaceOrder(sess.Token, req.AddressID)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	// The remote side consumed the cart into the order.
	s.carts.InvalidateCart(sess)
	s.audit(r, "place_order", "success", "email", sess.Email, "order_id", order.ID)
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleViewOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page, limit := s.paging(r)
	orders, pagination, err := s.api.Orders(sessionFor(r).Token, page, limit)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": pagination,
	})
}
