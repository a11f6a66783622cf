package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/internal/services"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ResourceController struct {
	resourceService services.ResourceServiceInterface
	logger          *zap.Logger
}

func NewResourceController(resourceService services.ResourceServiceInterface, logger *zap.Logger) *ResourceController {
	return &ResourceController{resourceService: resourceService, logger: logger}
}

func (ctrl *ResourceController) errorResponse(c echo.Context, err error) error {
	return utils.ErrorResponse(c, err, ctrl.logger)
}

// decodeRecord reads a JSON object body keeping numbers as written.
func decodeRecord(c echo.Context, optional bool) (dataprovider.Record, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	var rec dataprovider.Record
	if err := dec.Decode(&rec); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, apperrors.NewBadRequestError("body must be a JSON object")
	}
	return rec, nil
}

func (ctrl *ResourceController) Resources(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, ctrl.resourceService.Resources(ctx, sessionID), "resources", http.StatusOK)
}

func (ctrl *ResourceController) List(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.resourceService.List(ctx, sessionID, c.Param("resource"), utils.ParseQuery(c.QueryParams()))
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "records", http.StatusOK)
}

func (ctrl *ResourceController) GetOne(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.resourceService.GetOne(ctx, sessionID, c.Param("resource"), c.Param("id"))
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "record", http.StatusOK)
}

func (ctrl *ResourceController) GetMany(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	var ids []string
	for _, id := range strings.Split(c.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	res, err := ctrl.resourceService.GetMany(ctx, sessionID, c.Param("resource"), ids)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "records", http.StatusOK)
}

func (ctrl *ResourceController) GetManyReference(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	res, err := ctrl.resourceService.GetManyReference(ctx, sessionID,
		c.Param("resource"), c.QueryParam("target"), c.QueryParam("id"), utils.ParseQuery(c.QueryParams()))
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, res, "records", http.StatusOK)
}

func (ctrl *ResourceController) Create(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	data, err := decodeRecord(c, false)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	rec, err := ctrl.resourceService.Create(ctx, sessionID, c.Param("resource"), data)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, rec, "record created", http.StatusCreated)
}

func (ctrl *ResourceController) Update(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	data, err := decodeRecord(c, false)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	rec, err := ctrl.resourceService.Update(ctx, sessionID, c.Param("resource"), c.Param("id"), data)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, rec, "record updated", http.StatusOK)
}

// Delete accepts the shell's copy of the record as an optional body and
// returns it once the backend removed the record.
func (ctrl *ResourceController) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID, err := utils.GetSessionIDFromCtx(ctx)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	previous, err := decodeRecord(c, true)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}

	rec, err := ctrl.resourceService.Delete(ctx, sessionID, c.Param("resource"), c.Param("id"), previous)
	if err != nil {
		return ctrl.errorResponse(c, err)
	}
	return utils.SuccessResponse(c, rec, "record deleted", http.StatusOK)
}
