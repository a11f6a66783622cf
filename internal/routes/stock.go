package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runStockRouter(secureGroup *echo.Group, stockCtrl *controllers.StockController) {
	secureGroup.GET("/stock", stockCtrl.Stock)
	secureGroup.GET("/produits-with-stock", stockCtrl.ProduitsWithStock)
	secureGroup.POST("/stock-reception", stockCtrl.Receive)
}
