package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/events"
)

type fakeSource map[string]domain.Snapshot

func (f fakeSource) Snapshot(_ context.Context, id string) (domain.Snapshot, error) {
	snap, ok := f[id]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("session %s: %w", id, apierrors.ErrSessionNotFound)
	}
	return snap, nil
}

func newTestServer(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := startHub(t, testHubConfig())
	source := fakeSource{"s1": sampleSnapshot("s1")}
	h := NewHandler(hub, source, origins, false, apierrors.NewErrorHandler(logger, false), logger)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func readMessage(t *testing.T, conn *websocket.Conn) events.WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_ConnectReceivesSnapshot(t *testing.T) {
	hub, srv := newTestServer(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "?session=s1"), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	connect := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeConnect, connect.Type)

	snap := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeDashboardSnapshot, snap.Type)
	assert.Equal(t, "s1", snap.SessionID)

	assert.Equal(t, 1, hub.SessionClientCount("s1"))

	// Later state changes are pushed too
	hub.PublishSnapshot(context.Background(), "s1", sampleSnapshot("s1"))
	pushed := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeDashboardSnapshot, pushed.Type)

	hub.CloseSession("s1")
	closed := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeSessionClosed, closed.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)
}

func TestHandler_Rejections(t *testing.T) {
	_, srv := newTestServer(t, []string{"http://allowed.example"})

	tests := []struct {
		name       string
		query      string
		origin     string
		wantStatus int
		wantType   string
	}{
		{
			name:       "missing session",
			query:      "",
			wantStatus: http.StatusBadRequest,
			wantType:   apierrors.TypeValidation,
		},
		{
			name:       "unknown session",
			query:      "?session=nope",
			wantStatus: http.StatusNotFound,
			wantType:   apierrors.TypeSessionNotFound,
		},
		{
			name:       "foreign origin",
			query:      "?session=s1",
			origin:     "http://evil.example",
			wantStatus: http.StatusForbidden,
			wantType:   apierrors.TypeWebSocketUpgrade,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.query), header)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantType != "" {
				var problem map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
				assert.Equal(t, tt.wantType, problem["type"])
			}
		})
	}
}

func TestHandler_AllowedOrigin(t *testing.T) {
	_, srv := newTestServer(t, []string{"http://allowed.example"})

	header := http.Header{}
	header.Set("Origin", "http://allowed.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?session=s1"), header)
	require.NoError(t, err)
	conn.Close()
}
