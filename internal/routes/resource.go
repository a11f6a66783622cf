package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runResourceRouter(secureGroup *echo.Group, resourceCtrl *controllers.ResourceController) {
	secureGroup.GET("/resources", resourceCtrl.Resources)

	resourceGroup := secureGroup.Group("/resources/:resource")
	{
		resourceGroup.GET("", resourceCtrl.List)
		resourceGroup.POST("", resourceCtrl.Create)
		resourceGroup.GET("/many", resourceCtrl.GetMany)
		resourceGroup.GET("/reference", resourceCtrl.GetManyReference)
		resourceGroup.GET("/:id", resourceCtrl.GetOne)
		resourceGroup.PATCH("/:id", resourceCtrl.Update)
		resourceGroup.DELETE("/:id", resourceCtrl.Delete)
	}
}
