package routes

import (
	"pharmacie-admin/internal/controllers"

	"github.com/labstack/echo/v4"
)

func runJournalRouter(secureGroup *echo.Group, journalCtrl *controllers.JournalController) {
	secureGroup.GET("/journals", journalCtrl.List)
	secureGroup.GET("/journals/export", journalCtrl.Export)
}
