package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/middleware"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades authenticated requests into hub clients.
// Browsers cannot set headers on a WebSocket handshake, so the JWT
// travels in the token query parameter.
type WebSocketHandler struct {
	hub      *websocket.Hub
	verifier middleware.TokenVerifier
	origins  map[string]struct{}
	upgrader ws.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, verifier middleware.TokenVerifier, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		origins:  make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		h.origins[o] = struct{}{}
	}
	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from a configured CORS origin.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.origins[origin]; ok {
		return true
	}
	log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
	return false
}

func (h *WebSocketHandler) authenticate(c echo.Context) (int32, error) {
	token := c.QueryParam("token")
	if token == "" {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	userID, err := h.verifier.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket token rejected")
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return userID, nil
}

// HandleWS serves GET /ws?token=
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	userID, err := h.authenticate(c)
	if err != nil {
		return err
	}
	if h.hub.AtCapacity(userID) {
		return echo.NewHTTPError(http.StatusTooManyRequests, websocket.ErrTooManyConnections.Error())
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, userID, h.hub)
	if err := h.hub.Register(client); err != nil {
		// A concurrent handshake took the last slot.
		if errors.Is(err, websocket.ErrTooManyConnections) {
			_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.ClosePolicyViolation, err.Error()))
		}
		_ = client.Close()
		return nil
	}

	log.Info().
		Int32("user_id", userID).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()
	return nil
}
