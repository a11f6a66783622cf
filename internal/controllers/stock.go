package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/services"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type StockController struct {
	stockService services.StockServiceInterface
	logger       *zap.Logger
}

func NewStockController(stockService services.StockServiceInterface, logger *zap.Logger) *StockController {
	return &StockController{stockService: stockService, logger: logger}
}

func (ctrl *StockController) Stock(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	res, err := ctrl.stockService.Stock(ctx, sessionID, page, strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, res, "stock", http.StatusOK)
}

func (ctrl *StockController) ProduitsWithStock(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	res, err := ctrl.stockService.ProduitsWithStock(ctx, sessionID, strings.TrimSpace(c.QueryParam("q")))
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, res, "products", http.StatusOK)
}

func (ctrl *StockController) Receive(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	var payload dto.StockReceptionDTO
	if err := c.Bind(&payload); err != nil {
		ctrl.logger.Debug("Receive: failed to bind payload", zap.Error(err))
		return utils.ErrorResponse(c, apperrors.NewBadRequestError("invalid reception payload"), ctrl.logger)
	}
	if err := c.Validate(&payload); err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	res, err := ctrl.stockService.Receive(ctx, sessionID, payload)
	if err != nil {
		ctrl.logger.Warn("Receive: stock reception rejected", zap.String("session", sessionID), zap.Error(err))
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, res, "stock received", http.StatusCreated)
}
