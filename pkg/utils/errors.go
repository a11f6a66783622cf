package utils

import (
	"errors"
	"net/http"

	apperrors "pharmacie-admin/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var ErrorList = map[error]int{
	apperrors.ErrSessionExpired:             http.StatusUnauthorized,
	apperrors.ErrUnauthorized:               http.StatusUnauthorized,
	apperrors.ErrInvalidCredentials:         http.StatusUnauthorized,
	apperrors.ErrInvalidToken:               http.StatusUnauthorized,
	apperrors.ErrTokenExpired:               http.StatusUnauthorized,
	apperrors.ErrTokenNotYetValid:           http.StatusUnauthorized,
	apperrors.ErrTokenNotFound:              http.StatusUnauthorized,
	apperrors.ErrInvalidSigningMethod:       http.StatusUnauthorized,
	apperrors.ErrEmptyAuthHeader:            http.StatusUnauthorized,
	apperrors.ErrInvalidAuthHeader:          http.StatusUnauthorized,
	apperrors.ErrSessionIDNotFoundInContext: http.StatusUnauthorized,
	apperrors.ErrForbidden:                  http.StatusForbidden,
	apperrors.ErrNotFound:                   http.StatusNotFound,
	apperrors.ErrUnknownResource:            http.StatusNotFound,
	apperrors.ErrBadRequest:                 http.StatusBadRequest,
	apperrors.ErrBackendDown:                http.StatusBadGateway,
}

// ErrorResponse writes err as the JSON envelope. Backend errors keep their
// status and raw payload so form validation messages reach the shell.
func ErrorResponse(ctx echo.Context, err error, logger *zap.Logger) error {
	code := http.StatusInternalServerError
	message := "internal server error"
	var body interface{} = struct{}{}

	var httpErr *apperrors.HttpError
	var backendErr *apperrors.BackendError
	var validationErrs validator.ValidationErrors
	var inputErr *apperrors.InvalidInputError

	switch {
	case errors.As(err, &httpErr):
		code, message = httpErr.Code, httpErr.Message
		if httpErr.Details != nil {
			body = httpErr.Details
		}
	case errors.As(err, &validationErrs):
		code, message = http.StatusBadRequest, "validation failed"
		body = validationDetails(validationErrs)
	case errors.As(err, &inputErr):
		code, message = http.StatusBadRequest, inputErr.Message
	case errors.As(err, &backendErr) && !errors.Is(err, apperrors.ErrSessionExpired):
		code, message = backendErr.Status, http.StatusText(backendErr.Status)
		if len(backendErr.Body) > 0 {
			body = backendErr.Body
		}
	default:
		for target, status := range ErrorList {
			if errors.Is(err, target) {
				code, message = status, target.Error()
				break
			}
		}
	}

	if logger != nil {
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", ctx.Path()), zap.Int("status", code), zap.Error(err))
		} else {
			logger.Debug("request rejected", zap.String("path", ctx.Path()), zap.Int("status", code), zap.Error(err))
		}
	}

	return ctx.JSON(code, &HttpResponse{
		Status:  false,
		Body:    body,
		Message: message,
	})
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
