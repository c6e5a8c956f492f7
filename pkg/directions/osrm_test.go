package directions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/pkg/cache"
	"fieldtrack/pkg/db"
	"fieldtrack/pkg/geo"
	"fieldtrack/pkg/request"
	"fieldtrack/pkg/tracker"
)

func newRequestClient(t *testing.T) *request.Client {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "osrm_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return request.New(cache.NewSQLiteCache(d), tracker.New(), request.ClientConfig{BaseDelay: 10 * time.Millisecond})
}

func TestOSRMProvider_Route(t *testing.T) {
	var gotPath string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"geometry": {
					"type": "LineString",
					"coordinates": [[79.8612, 6.9271], [79.8650, 6.9300], [79.8700, 6.9350]]
				}
			}]
		}`))
	}))
	defer svr.Close()

	p := NewOSRMProvider(newRequestClient(t))
	p.APIEndpoint = svr.URL

	origin := geo.Point{Lat: 6.9271, Lng: 79.8612}
	dest := geo.Point{Lat: 6.9350, Lng: 79.8700}
	wp := geo.Point{Lat: 6.9300, Lng: 79.8650}

	path, err := p.Route(context.Background(), origin, dest, []geo.Point{wp})
	require.NoError(t, err)
	require.Len(t, path, 3)

	// OSRM takes lng,lat pairs joined by semicolons.
	assert.Equal(t, "/route/v1/driving/79.861200,6.927100;79.865000,6.930000;79.870000,6.935000", gotPath)

	// Response coordinates come back as lat/lng points.
	assert.Equal(t, geo.Point{Lat: 6.9271, Lng: 79.8612}, path[0])
	assert.Equal(t, geo.Point{Lat: 6.9350, Lng: 79.8700}, path[2])
}

func TestOSRMProvider_NoRoute(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer svr.Close()

	p := NewOSRMProvider(newRequestClient(t))
	p.APIEndpoint = svr.URL

	_, err := p.Route(context.Background(), geo.Point{}, geo.Point{Lat: 1, Lng: 1}, nil)
	assert.Error(t, err)
}
