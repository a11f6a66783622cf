package routes

import (
	"pharmacie-admin/internal/controllers"
	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/navigation"
	"pharmacie-admin/internal/permissions"
	"pharmacie-admin/internal/registry"
	"pharmacie-admin/internal/services"
	"pharmacie-admin/pkg/config"
	"pharmacie-admin/pkg/eventbus"
	"pharmacie-admin/pkg/middleware"
	"pharmacie-admin/pkg/service"
	"pharmacie-admin/pkg/storage"
	"pharmacie-admin/pkg/websocket"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Loggers struct {
	Main      *zap.Logger
	Auth      *zap.Logger
	Resources *zap.Logger
	Orders    *zap.Logger
}

// Deps are the process-wide components the routes are built on.
type Deps struct {
	Client  *dataprovider.Client
	Storage storage.Storage
	Bus     *eventbus.Bus
	Hub     *websocket.Hub
	JWT     service.JWTService
}

// InitRouter mounts the API under /api. The returned function releases the
// per-session state the services hold.
func InitRouter(e *echo.Echo, deps Deps, loggers *Loggers, cfg *config.Config) (func(), error) {
	loggers.Main.Info("InitRouter: building routes")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, loggers.Auth)

	reg, err := registry.Default()
	if err != nil {
		return nil, err
	}
	stores := permissions.NewStores(deps.Storage, deps.Bus, loggers.Main)

	authService := services.NewAuthService(deps.Client, deps.Storage, stores, deps.JWT, deps.Bus, loggers.Auth)
	menuService := services.NewMenuService(
		navigation.NewComposer(reg),
		stores,
		authService.AccessChecker,
		deps.Hub,
		deps.Bus,
		loggers.Main,
	)
	deps.Hub.OnSessionClosed(menuService.Forget)
	resourceService := services.NewResourceService(reg, stores, authService, loggers.Resources)
	cartService := services.NewCartService(deps.Storage, authService, loggers.Orders)
	stockService := services.NewStockService(authService, loggers.Resources)
	journalService := services.NewJournalService(authService, loggers.Main)

	secureGroup := api.Group("", authMW.Auth)

	runAuthRouter(api, secureGroup, controllers.NewAuthController(authService, menuService, loggers.Auth))
	runMenuRouter(secureGroup, controllers.NewMenuController(menuService, loggers.Main))
	runResourceRouter(secureGroup, controllers.NewResourceController(resourceService, loggers.Resources))
	runCartRouter(secureGroup, controllers.NewCartController(cartService, loggers.Orders))
	runStockRouter(secureGroup, controllers.NewStockController(stockService, loggers.Resources))
	runJournalRouter(secureGroup, controllers.NewJournalController(journalService, loggers.Main))
	runWebSocketRouter(api, controllers.NewWebSocketController(
		deps.Hub, deps.JWT, authService, deps.Bus, cfg.Orders, cfg.Server.AllowedOrigins, loggers.Orders,
	))

	loggers.Main.Info("InitRouter: routes ready")
	return menuService.Close, nil
}
