package controllers

import (
	"fmt"
	"net/http"
	"time"

	"pharmacie-admin/internal/dto"
	"pharmacie-admin/internal/services"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type JournalController struct {
	journalService services.JournalServiceInterface
	logger         *zap.Logger
}

func NewJournalController(journalService services.JournalServiceInterface, logger *zap.Logger) *JournalController {
	return &JournalController{journalService: journalService, logger: logger}
}

func (ctrl *JournalController) filter(c echo.Context) (dto.JournalFilterDTO, error) {
	var filter dto.JournalFilterDTO
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return filter, apperrors.NewBadRequestError("invalid journal filter")
	}
	if err := c.Validate(&filter); err != nil {
		return filter, err
	}
	return filter, nil
}

func (ctrl *JournalController) List(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	filter, err := ctrl.filter(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	page, err := ctrl.journalService.List(ctx, sessionID, filter)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	return utils.SuccessResponse(c, page, "journal", http.StatusOK)
}

func (ctrl *JournalController) Export(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	filter, err := ctrl.filter(c)
	if err != nil {
		return utils.ErrorResponse(c, err, ctrl.logger)
	}

	f, err := ctrl.journalService.Export(ctx, sessionID, filter)
	if err != nil {
		ctrl.logger.Error("Export: journal export failed", zap.String("session", sessionID), zap.Error(err))
		return utils.ErrorResponse(c, err, ctrl.logger)
	}
	defer f.Close()

	fileName := fmt.Sprintf("journal_%s.xlsx", time.Now().Format("2006-01-02_15-04"))
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response().Writer)
}
