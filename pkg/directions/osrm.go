package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"fieldtrack/pkg/geo"
	"fieldtrack/pkg/request"
)

const defaultOSRMEndpoint = "https://router.project-osrm.org"

// OSRMProvider implements Provider against an OSRM routing server.
type OSRMProvider struct {
	request     *request.Client
	APIEndpoint string // Optional override for testing
}

// NewOSRMProvider creates a provider using the shared request client.
func NewOSRMProvider(r *request.Client) *OSRMProvider {
	return &OSRMProvider{request: r}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// Route requests a driving route through origin, waypoints, and dest,
// returning the road-following polyline as a coordinate list.
func (p *OSRMProvider) Route(ctx context.Context, origin, dest geo.Point, waypoints []geo.Point) ([]geo.Point, error) {
	endpoint := p.APIEndpoint
	if endpoint == "" {
		endpoint = defaultOSRMEndpoint
	}

	coords := make([]string, 0, len(waypoints)+2)
	coords = append(coords, fmt.Sprintf("%.6f,%.6f", origin.Lng, origin.Lat))
	for _, wp := range waypoints {
		coords = append(coords, fmt.Sprintf("%.6f,%.6f", wp.Lng, wp.Lat))
	}
	coords = append(coords, fmt.Sprintf("%.6f,%.6f", dest.Lng, dest.Lat))

	u := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson",
		endpoint, strings.Join(coords, ";"))

	body, err := p.request.Get(ctx, u, "")
	if err != nil {
		return nil, err
	}

	var resp osrmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, fmt.Errorf("osrm returned no route (code %q)", resp.Code)
	}

	line, ok := resp.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("osrm geometry is not a LineString")
	}

	path := make([]geo.Point, 0, len(line))
	for _, pt := range line {
		path = append(path, geo.Point{Lat: pt.Lat(), Lng: pt.Lon()})
	}
	return path, nil
}
