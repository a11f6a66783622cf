package controllers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"pharmacie-admin/internal/authz"
	"pharmacie-admin/internal/orders"
	"pharmacie-admin/internal/services"
	"pharmacie-admin/pkg/config"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/service"
	appwebsocket "pharmacie-admin/pkg/websocket"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

type WebSocketController struct {
	hub         *appwebsocket.Hub
	jwtService  service.JWTService
	authService services.AuthServiceInterface
	bus         *eventbus.Bus
	ordersCfg   config.OrdersConfig
	upgrader    websocket.Upgrader
	logger      *zap.Logger

	// pollers holds the sessions whose pending orders are already watched.
	pollers sync.Map
}

func NewWebSocketController(
	hub *appwebsocket.Hub,
	jwtService service.JWTService,
	authService services.AuthServiceInterface,
	bus *eventbus.Bus,
	ordersCfg config.OrdersConfig,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketController {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WebSocketController{
		hub:         hub,
		jwtService:  jwtService,
		authService: authService,
		bus:         bus,
		ordersCfg:   ordersCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		logger: logger,
	}
}

func (ctrl *WebSocketController) ServeWs(c echo.Context) error {
	tokenString := c.QueryParam("token")
	if tokenString == "" {
		return c.String(http.StatusUnauthorized, "missing token")
	}

	claims, err := ctrl.jwtService.ValidateToken(tokenString)
	if err != nil {
		return c.String(http.StatusUnauthorized, "invalid token")
	}

	conn, err := ctrl.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		ctrl.logger.Error("WebSocket: upgrade failed", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(ctrl.hub, conn, claims.SessionID)
	if !ctrl.hub.Register(client) {
		ctrl.logger.Warn("WebSocket: hub stopped, connection refused", zap.String("session", claims.SessionID))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return conn.Close()
	}

	go ctrl.serve(client)

	ctrl.logger.Info("WebSocket: client connected", zap.String("session", claims.SessionID))
	return nil
}

// serve runs the pumps of one connection and, for the first connection of a
// session allowed to see orders, the pending-orders poller. Everything stops
// when the shell disconnects.
func (ctrl *WebSocketController) serve(client *appwebsocket.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg conc.WaitGroup

	wg.Go(client.WritePump)

	sessionID := client.SessionID
	if authz.Can(ctrl.authService.Permissions(ctx, sessionID), authz.ViewCommandes) {
		if _, running := ctrl.pollers.LoadOrStore(sessionID, struct{}{}); !running {
			wg.Go(func() {
				defer ctrl.pollers.Delete(sessionID)
				poller := orders.NewPoller(ctrl.authService.Provider(sessionID), sessionID, ctrl.ordersCfg, ctrl.bus, ctrl.logger)
				err := poller.Run(ctx)
				if errors.Is(err, apperrors.ErrSessionExpired) {
					ctrl.logger.Info("WebSocket: poller stopped, session expired", zap.String("session", sessionID))
				}
			})
		}
	}

	client.ReadPump()
	cancel()
	wg.Wait()
}
