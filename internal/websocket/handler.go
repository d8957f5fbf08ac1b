package websocket

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/davallejo/telco-churn-dashboard/internal/config"
	apierrors "github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/internal/infrastructure"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// SnapshotSource produces the current dashboard snapshot for a session.
type SnapshotSource interface {
	Snapshot(ctx context.Context, sessionID string) (domain.Snapshot, error)
}

// Handler upgrades /ws?session=<id> requests and attaches the connection to
// the hub. The first data message a client receives is the session's
// current snapshot.
type Handler struct {
	hub          *Hub
	source       SnapshotSource
	upgrader     websocket.Upgrader
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewHandler creates the upgrade handler. Origins are checked against
// allowedOrigins unless devMode is set.
func NewHandler(hub *Hub, source SnapshotSource, allowedOrigins []string, devMode bool, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.handler"))

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	h := &Handler{
		hub:          hub,
		source:       source,
		errorHandler: errorHandler,
		logger:       logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  hub.cfg.ReadBufferSize,
		WriteBufferSize: hub.cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Same-origin and non-browser clients send no Origin
			if origin == "" || devMode || allowed[origin] {
				return true
			}
			logger.WarnContext(r.Context(), "websocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", allowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			errorHandler.HandleError(w, r, apierrors.WebSocketUpgradeError(status, reason))
		},
	}
	return h
}

// NewHandlerFromConfig wires a Handler from the security settings.
func NewHandlerFromConfig(hub *Hub, source SnapshotSource, cfg *config.Config, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	return NewHandler(hub, source, cfg.Security.AllowedOrigins, cfg.Logging.Development, errorHandler, logger)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("session", "session query parameter is required"))
		return
	}

	snap, err := h.source.Snapshot(ctx, sessionID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied
		return
	}

	traceID := infrastructure.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = middleware.GetReqID(ctx)
	}
	client := NewClient(h.hub, NewConnection(conn), sessionID, traceID, h.logger)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.logger.InfoContext(infrastructure.WithSessionID(ctx, sessionID), "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go client.WritePump()
	go client.ReadPump()

	h.hub.SendSnapshot(client.context(), client, snap)
}
