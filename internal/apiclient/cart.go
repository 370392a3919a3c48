package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"bookmart/pkg/domain"
)

// CollectionPage is one remote page of cart or wishlist items.
type CollectionPage struct {
	Items      []domain.LineItem
	Pagination *domain.Pagination
}

func pageValues(page, limit int) url.Values {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	return values
}

// GetCart fetches the authoritative cart page. An empty cart is reported
// by the API as an error envelope; callers detect it via IsEmptyCollection.
func (c *Client) GetCart(token string, page, limit int) (CollectionPage, error) {
	env, err := c.doJSON(http.MethodGet, "/api/cart/getcart", token, pageValues(page, limit), nil)
	if err != nil {
		return CollectionPage{}, err
	}
	var items []domain.LineItem
	if err := decodeInto(env, &items); err != nil {
		return CollectionPage{}, err
	}
	return CollectionPage{Items: items, Pagination: env.Pagination}, nil
}

// AddToCart adds one unit of a book. The response carries no item data,
// only the success flag; the caller refetches to see the change.
func (c *Client) AddToCart(token, bookID string) error {
	payload := map[string]string{"bookId": bookID}
	_, err := c.doJSON(http.MethodPost, "/api/cart/addtocart", token, nil, payload)
	return err
}

// RemoveFromCart deletes one line item.
func (c *Client) RemoveFromCart(token, bookID string) error {
	path := fmt.Sprintf("/api/cart/removefromcart/%s", url.PathEscape(bookID))
	_, err := c.doJSON(http.MethodDelete, path, token, nil, nil)
	return err
}

// UpdateCartQuantity sets the quantity of one line item.
func (c *Client) UpdateCartQuantity(token, bookID string, quantity int) error {
	payload := map[string]any{"bookId": bookID, "quantity": quantity}
	_, err := c.doJSON(http.MethodPatch, "/api/cart/updatequantity", token, nil, payload)
	return err
}

// ClearCart removes every line item.
func (c *Client) ClearCart(token string) error {
	_, err := c.doJSON(http.MethodDelete, "/api/cart/clearcart", token, nil, nil)
	return err
}
