package apiclient

import (
	"fmt"
	"net/http"
	"net/url"

	"bookmart/pkg/domain"
)

// GetWishlist fetches the authoritative wishlist page. Entries carry an
// implicit quantity of 1. The empty-wishlist sentinel error is detected
// via IsEmptyCollection.
func (c *Client) GetWishlist(token string, page, limit int) (CollectionPage, error) {
	env, err := c.doJSON(http.MethodGet, "/api/wishlist/getwishlist", token, pageValues(page, limit), nil)
	if err != nil {
		return CollectionPage{}, err
	}
	var items []domain.LineItem
	if err := decodeInto(env, &items); err != nil {
		return CollectionPage{}, err
	}
	return CollectionPage{Items: items, Pagination: env.Pagination}, nil
}

// AddToWishlist adds a book; success is flag-only, like the cart add.
func (c *Client) AddToWishlist(token, bookID string) error {
	payload := map[string]string{"bookId": bookID}
	_, err := c.doJSON(http.MethodPost, "/api/wishlist/addtowishlist", token, nil, payload)
	return err
}

// RemoveFromWishlist deletes one entry.
func (c *Client) RemoveFromWishlist(token, bookID string) error {
	path := fmt.Sprintf("/api/wishlist/removefromwishlist/%s", url.PathEscape(bookID))
	_, err := c.doJSON(http.MethodDelete, path, token, nil, nil)
	return err
}
