// Package parcelapi is an HTTP client for the parcel backend, used when
// drafts are replayed by a process that does not own the database.
package parcelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("parcel api: status %d", e.Status)
	}
	return fmt.Sprintf("parcel api: status %d: %s", e.Status, e.Message)
}

// Client implements ports.ParcelGateway over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL. token is sent as a bearer token when
// not empty.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

type tokenKey struct{}

// WithToken makes calls made with ctx authenticate as token instead of the
// client's default, so a replay can act for each draft's owner.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// CreateParcel posts a new parcel and returns the stored record.
func (c *Client) CreateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	var out domain.ParcelRecord
	if err := c.do(ctx, http.MethodPost, "/v1/parcels", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateParcel sends a partial update keyed by rec.ID.
func (c *Client) UpdateParcel(ctx context.Context, rec domain.ParcelRecord) (*domain.ParcelRecord, error) {
	var out domain.ParcelRecord
	if err := c.do(ctx, http.MethodPut, "/v1/parcels", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteParcel removes a parcel. A missing parcel is not an error.
func (c *Client) DeleteParcel(ctx context.Context, id int64) error {
	err := c.do(ctx, http.MethodDelete, "/v1/parcels?id="+strconv.FormatInt(id, 10), nil, nil)
	if se, ok := err.(*StatusError); ok && se.Status == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token
	if t, ok := ctx.Value(tokenKey{}).(string); ok && t != "" {
		token = t
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &StatusError{Status: resp.StatusCode, Message: apiErr.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
