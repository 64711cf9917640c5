// internal/service/geocode/geocode.go

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"collabmap/internal/domain/maplib"
)

// Geocoder converts a free-text address into coordinates. Results are
// best effort; callers must tolerate failure and leave coordinates unset.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*maplib.LatLng, error)
}

// Config contains geocoder configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NominatimGeocoder resolves addresses against a Nominatim-compatible
// search endpoint.
type NominatimGeocoder struct {
	cfg        Config
	httpClient *http.Client
}

// NewNominatimGeocoder creates a geocoder for the configured endpoint.
func NewNominatimGeocoder(cfg Config) *NominatimGeocoder {
	return &NominatimGeocoder{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the first match for the address, or nil when the
// service finds nothing.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (*maplib.LatLng, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.cfg.BaseURL, url.QueryEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building geocode request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode service returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding geocode response: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}

	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	return &maplib.LatLng{Lat: lat, Lng: lng}, nil
}
