// Package weather fetches current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/climatrack/climatrack/internal/core/domain"
)

// OpenWeather implements ports.WeatherProvider against the current weather
// endpoint in metric units.
type OpenWeather struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenWeather creates a client. baseURL is normally
// https://api.openweathermap.org.
func NewOpenWeather(baseURL, apiKey string, client *http.Client) *OpenWeather {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenWeather{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

type currentResponse struct {
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Dt int64 `json:"dt"`
}

// ByCoordinates returns the conditions at p.
func (o *OpenWeather) ByCoordinates(ctx context.Context, p domain.GeoPoint) (*domain.Weather, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	return o.current(ctx, q)
}

// ByPlace returns the conditions for a place name.
func (o *OpenWeather) ByPlace(ctx context.Context, place string) (*domain.Weather, error) {
	q := url.Values{}
	q.Set("q", place)
	return o.current(ctx, q)
}

func (o *OpenWeather) current(ctx context.Context, q url.Values) (*domain.Weather, error) {
	q.Set("units", "metric")
	q.Set("appid", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &domain.TransientProviderError{Provider: "openweathermap", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, &domain.TransientProviderError{Provider: "openweathermap", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.TransientProviderError{Provider: "openweathermap", Err: fmt.Errorf("decode: %w", err)}
	}

	w := &domain.Weather{
		Place:       body.Name,
		Location:    &domain.GeoPoint{Latitude: body.Coord.Lat, Longitude: body.Coord.Lon},
		Temperature: body.Main.Temp,
		FeelsLike:   body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		Pressure:    body.Main.Pressure,
		WindSpeed:   body.Wind.Speed,
		ObservedAt:  time.Unix(body.Dt, 0).UTC(),
	}
	if len(body.Weather) > 0 {
		w.Description = body.Weather[0].Description
		w.Icon = body.Weather[0].Icon
	}
	return w, nil
}
