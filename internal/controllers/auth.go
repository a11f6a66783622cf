package controllers

import (
	"net/http"

	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/services"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthController struct {
	authService services.AuthServiceInterface
	menuService services.MenuServiceInterface
	logger      *zap.Logger
}

func NewAuthController(
	authService services.AuthServiceInterface,
	menuService services.MenuServiceInterface,
	logger *zap.Logger,
) *AuthController {
	return &AuthController{
		authService: authService,
		menuService: menuService,
		logger:      logger,
	}
}

func (ctrl *AuthController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

func (ctrl *AuthController) Login(c echo.Context) error {
	var payload dto.LoginDTO

	if err := c.Bind(&payload); err != nil {
		ctrl.logger.Error("Login: failed to bind payload", zap.Error(err))
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid login payload"))
	}

	if err := c.Validate(&payload); err != nil {
		ctrl.logger.Debug("Login: validation failed", zap.Error(err))
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.authService.Login(c.Request().Context(), payload)
	if err != nil {
		ctrl.logger.Warn("Login: authentication failed", zap.String("username", payload.Username), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}

	return utils.SuccessResponse(c, res, "logged in", http.StatusOK)
}

func (ctrl *AuthController) Logout(c echo.Context) error {
	sessionID, err := utils.GetSessionIDFromCtx(c.Request().Context())
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	if err := ctrl.authService.Logout(c.Request().Context(), sessionID); err != nil {
		ctrl.logger.Error("Logout: failed to clear session", zap.String("session", sessionID), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}
	ctrl.menuService.Forget(sessionID)

	return utils.SuccessResponse(c, nil, "logged out", http.StatusOK)
}

// Me answers the shell's auth check: it fails with 401 once the session can
// no longer be refreshed, and otherwise returns identity and permissions.
func (ctrl *AuthController) Me(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	if err := ctrl.authService.CheckAuth(ctx, sessionID); err != nil {
		return ctrl.errorResponse(c, err)
	}

	identity, err := ctrl.authService.Identity(ctx, sessionID)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	return utils.SuccessResponse(c, dto.AuthResponseDTO{
		Identity:    identity,
		Permissions: ctrl.authService.Permissions(ctx, sessionID),
	}, "session active", http.StatusOK)
}

func (ctrl *AuthController) ReloadPermissions(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	set, err := ctrl.authService.ReloadPermissions(ctx, sessionID)
	if err != nil {
		ctrl.logger.Warn("ReloadPermissions: failed", zap.String("session", sessionID), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}

	return utils.SuccessResponse(c, set, "permissions reloaded", http.StatusOK)
}
