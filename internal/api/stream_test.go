package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldtrack/pkg/model"
	"fieldtrack/pkg/tracker"
)

func TestStreamHandler(t *testing.T) {
	manager := newTestManager(t)
	h := NewStreamHandler(manager, 10*time.Millisecond)
	replay := NewReplayHandler(manager)
	loadSession(t, replay)

	srv := NewServer("localhost:0", replay, h, NewStatsHandler(tracker.New(), nil), func() {})
	svr := httptest.NewServer(srv.Handler)
	defer svr.Close()

	wsURL := "ws" + strings.TrimPrefix(svr.URL, "http") + "/api/replay/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var state model.DisplayState
	require.NoError(t, conn.ReadJSON(&state))
	assert.Equal(t, 3, state.PointCount)
	assert.Equal(t, "paused", state.State)

	// Subsequent frames keep arriving at the stream interval.
	require.NoError(t, conn.ReadJSON(&state))
	assert.NotEmpty(t, state.SessionID)
}
