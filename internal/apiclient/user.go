package apiclient

import (
	"io"
	"net/http"

	"bookmart/pkg/domain"
)

// AuthResult is the flattened payload of a successful login or register.
type AuthResult struct {
	Token     string `json:"accessToken"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Session converts the auth payload into a client session.
func (a AuthResult) Session() domain.Session {
	role, _ := domain.ParseRole(a.Role)
	return domain.Session{
		Token:     a.Token,
		Role:      role,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
	}
}

// RegisterRequest carries the account creation fields.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// Register creates an account and returns the issued session payload.
func (c *Client) Register(req RegisterRequest) (AuthResult, error) {
	env, err := c.doJSON(http.MethodPost, "/api/user/register", "", nil, req)
	if err != nil {
		return AuthResult{}, err
	}
	var out AuthResult
	if err := decodeInto(env, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// Login authenticates and returns the issued session payload.
func (c *Client) Login(email, password string) (AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}
	env, err := c.doJSON(http.MethodPost, "/api/user/login", "", nil, payload)
	if err != nil {
		return AuthResult{}, err
	}
	var out AuthResult
	if err := decodeInto(env, &out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}

// Profile reads the caller's profile.
func (c *Client) Profile(token string) (domain.Profile, error) {
	env, err := c.doJSON(http.MethodGet, "/api/user/profile", token, nil, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	var out domain.Profile
	if err := decodeInto(env, &out); err != nil {
		return domain.Profile{}, err
	}
	return out, nil
}

// UpdateProfile patches profile fields; image may be nil.
func (c *Client) UpdateProfile(token string, fields map[string]string, imageName string, image io.Reader) (domain.Profile, error) {
	env, err := c.doMultipart(http.MethodPatch, "/api/user/updateprofile", token, fields, "image", imageName, image)
	if err != nil {
		return domain.Profile{}, err
	}
	var out domain.Profile
	if err := decodeInto(env, &out); err != nil {
		return domain.Profile{}, err
	}
	return out, nil
}

// SellerStats reads the seller dashboard counters.
func (c *Client) SellerStats(token string) (domain.SellerStats, error) {
	env, err := c.doJSON(http.MethodGet, "/api/user/getsellerstats", token, nil, nil)
	if err != nil {
		return domain.SellerStats{}, err
	}
	var out domain.SellerStats
	if err := decodeInto(env, &out); err != nil {
		return domain.SellerStats{}, err
	}
	return out, nil
}

// HomeBooks reads the public featured lists.
func (c *Client) HomeBooks() (domain.HomeBooks, error) {
	env, err := c.doJSON(http.MethodGet, "/api/user/gethomebooks", "", nil, nil)
	if err != nil {
		return domain.HomeBooks{}, err
	}
	var out domain.HomeBooks
	if err := decodeInto(env, &out); err != nil {
		return domain.HomeBooks{}, err
	}
	return out, nil
}
