package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/shared/testutil"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/events"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Telemetry.TraceToStdout = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	return a
}

// startApp serves a on a random local port until the test ends.
func startApp(t *testing.T, a *Application) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("application did not stop")
		}
	})
	return ln.Addr().String()
}

func request(t *testing.T, a *Application, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/api/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "ready", method: http.MethodGet, path: "/api/health/ready", wantStatus: http.StatusOK, wantBody: `"status":"ready"`},
		{name: "live", method: http.MethodGet, path: "/api/health/live", wantStatus: http.StatusOK, wantBody: `"websocket_clients":0`},
		{name: "version", method: http.MethodGet, path: "/api/version", wantStatus: http.StatusOK, wantBody: `"version":"dev"`},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound, wantType: apierrors.TypeNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/api/version", wantStatus: http.StatusMethodNotAllowed, wantType: apierrors.TypeMethodNotAllowed},
		{name: "unknown session", method: http.MethodGet, path: "/api/sessions/0b1c/summary", wantStatus: http.StatusNotFound, wantType: apierrors.TypeSessionNotFound},
		{name: "websocket without session", method: http.MethodGet, path: "/ws", wantStatus: http.StatusBadRequest, wantType: apierrors.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(t, a, tt.method, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.wantType != "" {
				var problem map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, tt.wantType, problem["type"])
			}
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	a := newTestApp(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://elsewhere.example")
	rec = httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestApplication_MetricsEndpoint(t *testing.T) {
	a := newTestApp(t, testConfig())

	request(t, a, http.MethodPost, "/api/sessions")

	rec := request(t, a, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "churn_active_sessions")
}

func TestApplication_ClientLogs(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	a, err := NewApplication(testConfig(), logger)
	require.NoError(t, err)

	body := `{"level":"error","message":"chart failed to render","source":"dashboard.js"}`
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, logs.ContainsMessage("chart failed to render"))
}

func TestApplication_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimit.RPS = 1
	cfg.Security.RateLimit.Burst = 2
	a := newTestApp(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, request(t, a, http.MethodGet, "/api/health").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestApplication_ServeEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig())
	addr := startApp(t, a)
	base := "http://" + addr

	// Create a session
	resp, err := http.Post(base+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	var info domain.SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, info.ID)

	// Watch it
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws?session="+info.ID, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, events.MessageTypeConnect, readEvent(t, conn).Type)
	initial := readSnapshot(t, conn)
	assert.Nil(t, initial.Data.Dataset)

	// Upload the sample dataset
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "telco.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, testutil.TelcoCSV(testutil.SampleCustomers()...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err = http.Post(base+"/api/sessions/"+info.ID+"/dataset", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loaded := readSnapshot(t, conn)
	assert.Equal(t, 16, loaded.Data.Summary.Count)
	assert.Equal(t, info.ID, loaded.SessionID)

	// Narrow it
	req, err := http.NewRequest(http.MethodPut, base+"/api/sessions/"+info.ID+"/filters",
		strings.NewReader(`{"contract":"Two year"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	filtered := readSnapshot(t, conn)
	assert.Equal(t, 2, filtered.Data.Summary.Count)
	assert.Equal(t, "Two year", filtered.Data.Filters.Contract)

	// Close it
	req, err = http.NewRequest(http.MethodDelete, base+"/api/sessions/"+info.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, events.MessageTypeSessionClosed, readEvent(t, conn).Type)
}

func TestApplication_SweepsIdleSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard.SessionTTL = 20 * time.Millisecond
	cfg.Dashboard.SweepInterval = 10 * time.Millisecond
	a := newTestApp(t, cfg)

	_, err := a.Dashboard.CreateSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, a.Dashboard.SessionCount())

	startApp(t, a)
	assert.Eventually(t, func() bool { return a.Dashboard.SessionCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestApplication_RunFailsOnBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	a := newTestApp(t, cfg)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to listen on 127.0.0.1:%d", cfg.Server.Port))
}

func readEvent(t *testing.T, conn *websocket.Conn) events.WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readSnapshot(t *testing.T, conn *websocket.Conn) events.DashboardSnapshotMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg events.DashboardSnapshotMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, events.MessageTypeDashboardSnapshot, msg.Type)
	return msg
}
