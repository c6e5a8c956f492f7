package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/pkg/tracker"
	"fieldtrack/pkg/version"
)

func newTestServer(t *testing.T, shutdown func()) *httptest.Server {
	t.Helper()
	manager := newTestManager(t)
	srv := NewServer("localhost:0",
		NewReplayHandler(manager),
		NewStreamHandler(manager, 250*time.Millisecond),
		NewStatsHandler(tracker.New(), nil),
		shutdown)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, func() {})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestServer_Version(t *testing.T) {
	ts := newTestServer(t, func() {})

	resp, err := http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, version.Version, payload["version"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, func() {})

	resp, err := http.Get(ts.URL + "/api/replay/load")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Shutdown(t *testing.T) {
	var called int32
	ts := newTestServer(t, func() { atomic.AddInt32(&called, 1) })

	resp, err := http.Post(ts.URL+"/api/shutdown", "", http.NoBody)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&called) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("shutdown callback never invoked")
}
