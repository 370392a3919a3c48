// Package apiclient holds the typed clients for the remote marketplace
// REST API. Every response uses the same envelope
// {success, message, data|items, pagination?}; failures surface as
// *APIError carrying the server's human-readable message.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookmart/pkg/domain"
)

// APIError represents a remote API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsEmptyCollection reports the "collection is empty" sentinel the API
// returns for a cart or wishlist with no items. Callers normalize it to a
// successful empty result; it is the only error given that treatment.
func IsEmptyCollection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "cart is empty") || strings.Contains(msg, "wishlist is empty")
}

// Client calls the marketplace API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a marketplace API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Items      json.RawMessage    `json:"items"`
	Pagination *domain.Pagination `json:"pagination"`
}

// payload returns data when present, items otherwise.
func (e envelope) payload() json.RawMessage {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return e.Data
	}
	return e.Items
}

func (c *Client) doJSON(method, path, token string, query url.Values, payload any) (envelope, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, err
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(method, path, token, query, body, contentType)
}

func (c *Client) doMultipart(method, path, token string, fields map[string]string, fileField, filename string, file io.Reader) (envelope, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return envelope{}, err
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			return envelope{}, err
		}
		if _, err := io.Copy(part, file); err != nil {
			return envelope{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return envelope{}, err
	}
	return c.do(method, path, token, nil, body, writer.FormDataContentType())
}

func (c *Client) do(method, path, token string, query url.Values, body io.Reader, contentType string) (envelope, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return envelope{}, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)
	if resp.StatusCode >= 400 || (decodeErr == nil && !env.Success) {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return envelope{}, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return envelope{}, decodeErr
	}
	return env, nil
}

// decodeInto unmarshals the envelope payload into out; a missing payload
// leaves out at its zero value.
func decodeInto(env envelope, out any) error {
	raw := env.payload()
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}
