package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"bookmart/pkg/domain"
)

// BookQuery narrows a catalog listing.
type BookQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

func (q BookQuery) values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	return values
}

// ListBooks returns one catalog page.
func (c *Client) ListBooks(token string, q BookQuery) ([]domain.Book, *domain.Pagination, error) {
	env, err := c.doJSON(http.MethodGet, "/api/books/getbooks", token, q.values(), nil)
	if err != nil {
		return nil, nil, err
	}
	var books []domain.Book
	if err := decodeInto(env, &books); err != nil {
		return nil, nil, err
	}
	return books, env.Pagination, nil
}

// GetBook fetches one book; works without a session for public pages.
func (c *Client) GetBook(token, id string) (domain.Book, error) {
	path := fmt.Sprintf("/api/books/getonebook/%s", url.PathEscape(id))
	env, err := c.doJSON(http.MethodGet, path, token, nil, nil)
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.Book
	if err := decodeInto(env, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// CreateBook uploads a new catalog entry with its cover image.
func (c *Client) CreateBook(token string, fields map[string]string, imageName string, image io.Reader) (domain.Book, error) {
	env, err := c.doMultipart(http.MethodPost, "/api/books/addbook", token, fields, "image", imageName, image)
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.Book
	if err := decodeInto(env, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// UpdateBook patches an existing entry; image may be nil to keep the
// current cover.
func (c *Client) UpdateBook(token, id string, fields map[string]string, imageName string, image io.Reader) (domain.Book, error) {
	path := fmt.Sprintf("/api/books/updatebook/%s", url.PathEscape(id))
	env, err := c.doMultipart(http.MethodPatch, path, token, fields, "image", imageName, image)
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.Book
	if err := decodeInto(env, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// SellerBooks lists the calling seller's own catalog page.
func (c *Client) SellerBooks(token string, page, limit int) ([]domain.Book, *domain.Pagination, error) {
	q := BookQuery{Page: page, Limit: limit}
	env, err := c.doJSON(http.MethodGet, "/api/books/getsellerbooks", token, q.values(), nil)
	if err != nil {
		return nil, nil, err
	}
	var books []domain.Book
	if err := decodeInto(env, &books); err != nil {
		return nil, nil, err
	}
	return books, env.Pagination, nil
}
