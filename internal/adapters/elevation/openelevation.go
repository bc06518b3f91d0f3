package elevation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// OpenElevation queries an open-elevation compatible lookup endpoint.
// Values are returned as reported.
type OpenElevation struct {
	baseURL string
	client  *http.Client
}

// NewOpenElevation creates the provider for baseURL, e.g.
// https://api.open-elevation.com.
func NewOpenElevation(baseURL string, client *http.Client) *OpenElevation {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenElevation{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (o *OpenElevation) Name() string { return "open-elevation" }

type lookupResponse struct {
	Results []struct {
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// Elevation returns the elevation of p in metres.
func (o *OpenElevation) Elevation(ctx context.Context, p domain.GeoPoint) (float64, error) {
	q := url.Values{}
	q.Set("locations", strconv.FormatFloat(p.Latitude, 'f', -1, 64)+","+strconv.FormatFloat(p.Longitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/v1/lookup?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, o.fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, o.fail(fmt.Errorf("status %d", resp.StatusCode))
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, o.fail(fmt.Errorf("decode: %w", err))
	}
	if len(body.Results) == 0 || body.Results[0].Elevation == nil {
		return 0, o.fail(errors.New("no results"))
	}
	return *body.Results[0].Elevation, nil
}

func (o *OpenElevation) fail(err error) error {
	return &domain.TransientProviderError{Provider: o.Name(), Err: err}
}
