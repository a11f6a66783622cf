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

type MenuController struct {
	menuService services.MenuServiceInterface
	logger      *zap.Logger
}

func NewMenuController(menuService services.MenuServiceInterface, logger *zap.Logger) *MenuController {
	return &MenuController{menuService: menuService, logger: logger}
}

func (ctrl *MenuController) GetMenu(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	menu := ctrl.menuService.Menu(ctx, sessionID, c.QueryParam("path"))
	return utils.SuccessResponse(c, menu, "menu composed", http.StatusOK)
}

func (ctrl *MenuController) Select(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.SelectMenuDTO
	if err := c.Bind(&payload); err != nil {
		return utils.ErrorResponse(c, apperrors.NewBadRequestError("invalid selection payload"), ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	res, err := ctrl.menuService.Select(ctx, sessionID, payload)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, res, "entry selected", http.StatusOK)
}
