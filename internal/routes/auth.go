package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runAuthRouter(api, secureGroup *echo.Group, authCtrl *controllers.AuthController) {
	api.POST("/auth/login", authCtrl.Login)

	authGroup := secureGroup.Group("/auth")
	{
		authGroup.POST("/logout", authCtrl.Logout)
		authGroup.GET("/me", authCtrl.Me)
		authGroup.POST("/permissions/reload", authCtrl.ReloadPermissions)
	}
}
