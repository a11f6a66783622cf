package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runMenuRouter(secureGroup *echo.Group, menuCtrl *controllers.MenuController) {
	secureGroup.GET("/menu", menuCtrl.GetMenu)
	secureGroup.POST("/menu/select", menuCtrl.Select)
}
