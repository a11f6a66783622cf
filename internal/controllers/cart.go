package controllers

import (
	"net/http"
	"strconv"

	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/services"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CartController struct {
	cartService services.CartServiceInterface
	logger      *zap.Logger
}

func NewCartController(cartService services.CartServiceInterface, logger *zap.Logger) *CartController {
	return &CartController{cartService: cartService, logger: logger}
}

func (ctrl *CartController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

func produitIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("produit_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError("invalid produit_id")
	}
	return id, nil
}

func (ctrl *CartController) Get(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	cart, err := ctrl.cartService.Get(ctx, sessionID)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, cart, "cart", http.StatusOK)
}

func (ctrl *CartController) AddLine(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	var payload dto.AddCartLineDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid cart line"))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	cart, err := ctrl.cartService.Add(ctx, sessionID, payload)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, cart, "product added", http.StatusOK)
}

func (ctrl *CartController) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	produitID, err := produitIDParam(c)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	var payload dto.SetCartQuantityDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid quantity"))
	}

	cart, err := ctrl.cartService.SetQuantity(ctx, sessionID, produitID, payload.QuantiteDemandee)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, cart, "quantity updated", http.StatusOK)
}

func (ctrl *CartController) RemoveLine(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	produitID, err := produitIDParam(c)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	cart, err := ctrl.cartService.Remove(ctx, sessionID, produitID)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, cart, "product removed", http.StatusOK)
}

func (ctrl *CartController) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	var payload dto.SubmitCartDTO
	if err := c.Bind(&payload); err != nil {
		return ctrl.errorResponse(c, apperrors.NewBadRequestError("invalid order payload"))
	}
	if err := c.Validate(&payload); err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.cartService.Submit(ctx, sessionID, payload)
	if err != nil {
		ctrl.logger.Warn("Submit: quick order rejected", zap.String("session", sessionID), zap.Error(err))
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "order "+res.NumeroCommande+" created", http.StatusCreated)
}
