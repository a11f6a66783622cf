package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

// The websocket handshake authenticates itself from the token query
// parameter, so it stays outside the secure group.
func runWebSocketRouter(api *echo.Group, wsCtrl *controllers.WebSocketController) {
	api.GET("/ws", wsCtrl.ServeWs)
}
