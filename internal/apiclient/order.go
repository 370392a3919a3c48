package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"bookmart/pkg/domain"
)

// Addresses returns the caller's address book in canonical form. The API
// is loose about the payload shape; see normalizeAddresses.
func (c *Client) Addresses(token string) ([]domain.Address, error) {
	env, err := c.doJSON(http.MethodGet, "/api/orders/getaddresses", token, nil, nil)
	if err != nil {
		return nil, err
	}
	return normalizeAddresses(env.payload())
}

// AddAddress appends to the address book and returns the updated book.
func (c *Client) AddAddress(token string, addr domain.Address) ([]domain.Address, error) {
	env, err := c.doJSON(http.MethodPost, "/api/orders/addaddress", token, nil, addr)
	if err != nil {
		return nil, err
	}
	return normalizeAddresses(env.payload())
}

// UpdateAddress replaces one entry and returns the updated book.
func (c *Client) UpdateAddress(token, id string, addr domain.Address) ([]domain.Address, error) {
	path := fmt.Sprintf("/api/orders/updateaddress/%s", url.PathEscape(id))
	env, err := c.doJSON(http.MethodPatch, path, token, nil, addr)
	if err != nil {
		return nil, err
	}
	return normalizeAddresses(env.payload())
}

// DeleteAddress removes one entry.
func (c *Client) DeleteAddress(token, id string) error {
	path := fmt.Sprintf("/api/orders/deleteaddress/%s", url.PathEscape(id))
	_, err := c.doJSON(http.MethodDelete, path, token, nil, nil)
	return err
}

// PlaceOrder turns the server-side cart into an order against the chosen
// address.
func (c *Client) PlaceOrder(token, addressID string) (domain.Order, error) {
	payload := map[string]string{"addressId": addressID}
	env, err := c.doJSON(http.MethodPost, "/api/orders/placeorder", token, nil, payload)
	if err != nil {
		return domain.Order{}, err
	}
	var order domain.Order
	if err := decodeInto(env, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// Orders lists the calling customer's orders.
func (c *Client) Orders(token string, page, limit int) ([]domain.Order, *domain.Pagination, error) {
	env, err := c.doJSON(http.MethodGet, "/api/orders/getorders", token, pageValues(page, limit), nil)
	if err != nil {
		return nil, nil, err
	}
	var orders []domain.Order
	if err := decodeInto(env, &orders); err != nil {
		return nil, nil, err
	}
	return orders, env.Pagination, nil
}

// SellerOrders lists orders containing the calling seller's books.
func (c *Client) SellerOrders(token string, page, limit int) ([]domain.Order, *domain.Pagination, error) {
	env, err := c.doJSON(http.MethodGet, "/api/orders/getsellerorders", token, pageValues(page, limit), nil)
	if err != nil {
		return nil, nil, err
	}
	var orders []domain.Order
	if err := decodeInto(env, &orders); err != nil {
		return nil, nil, err
	}
	return orders, env.Pagination, nil
}

// SellerOrder fetches one order scoped to the calling seller's items.
func (c *Client) SellerOrder(token, id string) (domain.Order, error) {
	path := fmt.Sprintf("/api/orders/getsellersingleorder/%s", url.PathEscape(id))
	env, err := c.doJSON(http.MethodGet, path, token, nil, nil)
	if err != nil {
		return domain.Order{}, err
	}
	var order domain.Order
	if err := decodeInto(env, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// UpdateOrderItemStatus transitions one order item's fulfilment status.
func (c *Client) UpdateOrderItemStatus(token, orderID, bookID string, status domain.OrderItemStatus) (domain.Order, error) {
	payload := map[string]string{
		"orderId": orderID,
		"bookId":  bookID,
		"status":  string(status),
	}
	env, err := c.doJSON(http.MethodPatch, "/api/orders/updateitemstatus", token, nil, payload)
	if err != nil {
		return domain.Order{}, err
	}
	var order domain.Order
	if err := decodeInto(env, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// normalizeAddresses accepts every payload shape the API is known to emit
// and returns one canonical slice. Accepted shapes, in probe order:
//
//   - flat array:      [{...}, {...}]
//   - wrapped array:   {"addresses": [{...}]}
//   - single object:   {...}
//   - null / absent:   empty slice
//
// Anything else is a decode error, not silently dropped.
func normalizeAddresses(raw json.RawMessage) ([]domain.Address, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []domain.Address{}, nil
	}
	var flat []domain.Address
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var wrapped struct {
		Addresses []domain.Address `json:"addresses"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Addresses != nil {
		return wrapped.Addresses, nil
	}
	var single domain.Address
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("unrecognized address payload: %w", err)
	}
	if single == (domain.Address{}) {
		return []domain.Address{}, nil
	}
	return []domain.Address{single}, nil
}
