package handlers

import (
	"net/http"

	"go.uber.org/zap"

	authsvc "github.com/ssmoliagin/weekendguide/internal/services/auth"
	notificationssvc "github.com/ssmoliagin/weekendguide/internal/services/notifications"
)

type NotificationsHandler struct {
	hub    *notificationssvc.Hub
	logger *zap.Logger
}

func NewNotificationsHandler(hub *notificationssvc.Hub, logger *zap.Logger) *NotificationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationsHandler{hub: hub, logger: logger}
}

// WS upgrades the request; the response is owned by the websocket after that.
func (h *NotificationsHandler) WS(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.hub == nil {
		writeUnavailable(w, "NOTIFICATIONS_UNAVAILABLE", "notifications are unavailable")
		return
	}

	if err := h.hub.Serve(w, r, identity.UID); err != nil {
		h.logger.Debug("notifications websocket rejected", zap.String("uid", identity.UID), zap.Error(err))
	}
}
