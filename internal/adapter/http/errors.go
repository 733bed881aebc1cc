package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loanflow-backend/internal/domain/loan"
)

// ErrorMapper turns domain errors into responses. Authorization detail is only exposed
// outside production.
type ErrorMapper struct {
	ExposeDetail bool
	Log          *zap.Logger
}

func (m ErrorMapper) Write(c echo.Context, err error) error {
	var (
		ve *loan.ValidationError
		ae *loan.AuthorizationError
		pe *loan.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	case errors.As(err, &ae):
		resp := ErrorResponse{Error: "forbidden"}
		if m.ExposeDetail {
			resp.Detail = map[string]any{"actorId": ae.ActorID, "reason": ae.Reason}
			for k, v := range ae.Detail {
				resp.Detail[k] = v
			}
		}
		return c.JSON(http.StatusForbidden, resp)
	case errors.Is(err, loan.ErrNotFound),
		errors.Is(err, loan.ErrReturnRequestNotFound),
		errors.Is(err, loan.ErrExtensionNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, loan.ErrAlreadyApproved), errors.Is(err, loan.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &pe):
		m.logger().Error("persistence failure", zap.String("op", pe.Op), zap.Error(pe.Err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable, please retry"})
	}
	m.logger().Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func (m ErrorMapper) logger() *zap.Logger {
	if m.Log == nil {
		return zap.L()
	}
	return m.Log
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindAndValidate reports false after writing the 400 or 422 response itself.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
