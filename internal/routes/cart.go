package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runCartRouter(secureGroup *echo.Group, cartCtrl *controllers.CartController) {
	cartGroup := secureGroup.Group("/cart")
	{
		cartGroup.GET("", cartCtrl.Get)
		cartGroup.POST("/lines", cartCtrl.AddLine)
		cartGroup.PATCH("/lines/:produit_id", cartCtrl.SetQuantity)
		cartGroup.DELETE("/lines/:produit_id", cartCtrl.RemoveLine)
		cartGroup.POST("/submit", cartCtrl.Submit)
	}
}
