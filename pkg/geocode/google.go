package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"fieldtrack/pkg/request"
)

const defaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider implements Provider against the Google reverse
// geocoding API.
type GoogleProvider struct {
	request     *request.Client
	APIKey      string
	APIEndpoint string // Optional override for testing
}

// NewGoogleProvider creates a provider using the shared request client.
func NewGoogleProvider(r *request.Client, apiKey string) *GoogleProvider {
	return &GoogleProvider{request: r, APIKey: apiKey}
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// ReverseGeocode resolves a coordinate to address components.
// A response with zero results yields (nil, nil).
func (p *GoogleProvider) ReverseGeocode(ctx context.Context, lat, lng float64) (*Result, error) {
	endpoint := p.APIEndpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode endpoint: %w", err)
	}

	q := u.Query()
	q.Add("latlng", fmt.Sprintf("%.6f,%.6f", lat, lng))
	q.Add("key", p.APIKey)
	u.RawQuery = q.Encode()

	cacheKey := fmt.Sprintf("geocode:%.3f,%.3f", lat, lng)
	body, err := p.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		return nil, err
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, nil
	}

	best := resp.Results[0]
	result := &Result{FormattedAddress: best.FormattedAddress}
	for _, comp := range best.AddressComponents {
		result.Components = append(result.Components, Component{
			LongName: comp.LongName,
			Types:    comp.Types,
		})
	}
	return result, nil
}
