package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"bookmart/pkg/domain"
)

// AdminStats reads the admin dashboard counters.
func (c *Client) AdminStats(token string) (domain.AdminStats, error) {
	env, err := c.doJSON(http.MethodGet, "/api/admin/getstats", token, nil, nil)
	if err != nil {
		return domain.AdminStats{}, err
	}
	var out domain.AdminStats
	if err := decodeInto(env, &out); err != nil {
		return domain.AdminStats{}, err
	}
	return out, nil
}

// AdminUsers lists accounts of one role, paginated.
func (c *Client) AdminUsers(token string, role domain.Role, page, limit int) ([]domain.User, *domain.Pagination, error) {
	values := url.Values{"role": {string(role)}}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	env, err := c.doJSON(http.MethodGet, "/api/admin/getusers", token, values, nil)
	if err != nil {
		return nil, nil, err
	}
	var users []domain.User
	if err := decodeInto(env, &users); err != nil {
		return nil, nil, err
	}
	return users, env.Pagination, nil
}

// SetUserBlocked blocks or unblocks one account.
func (c *Client) SetUserBlocked(token, userID string, blocked bool) (domain.User, error) {
	path := fmt.Sprintf("/api/admin/blockuser/%s", url.PathEscape(userID))
	payload := map[string]bool{"isBlocked": blocked}
	env, err := c.doJSON(http.MethodPatch, path, token, nil, payload)
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	if err := decodeInto(env, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeleteUser removes one account.
func (c *Client) DeleteUser(token, userID string) error {
	path := fmt.Sprintf("/api/admin/deleteuser/%s", url.PathEscape(userID))
	_, err := c.doJSON(http.MethodDelete, path, token, nil, nil)
	return err
}

// AdminSellerBooks lists one seller's catalog, paginated.
func (c *Client) AdminSellerBooks(token, sellerID string, page, limit int) ([]domain.Book, *domain.Pagination, error) {
	path := fmt.Sprintf("/api/admin/getsellerbooks/%s", url.PathEscape(sellerID))
	env, err := c.doJSON(http.MethodGet, path, token, pageValues(page, limit), nil)
	if err != nil {
		return nil, nil, err
	}
	var books []domain.Book
	if err := decodeInto(env, &books); err != nil {
		return nil, nil, err
	}
	return books, env.Pagination, nil
}
