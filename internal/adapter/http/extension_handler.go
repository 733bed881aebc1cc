package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/usecase/extension"
)

type ExtensionHandler struct {
	uc   *extension.Usecase
	errs ErrorMapper
}

func NewExtensionHandler(uc *extension.Usecase, errs ErrorMapper) *ExtensionHandler {
	return &ExtensionHandler{uc: uc, errs: errs}
}

type requestExtensionReq struct {
	RequestedReturnDate string `json:"requestedReturnDate" validate:"required,date"`
	Reason              string `json:"reason"              validate:"max=1000"`
}

func (h *ExtensionHandler) RequestExtension(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req requestExtensionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, _ := parseDate(req.RequestedReturnDate)
	dto, err := h.uc.Request(c.Request().Context(), extension.RequestInput{
		LoanID:              loanID,
		RequestedReturnDate: date,
		Reason:              req.Reason,
		Actor:               middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type decideExtensionReq struct {
	Approved *bool  `json:"approved" validate:"required"`
	Note     string `json:"note"     validate:"max=1000"`
}

func (h *ExtensionHandler) DecideExtension(c echo.Context) error {
	loanID, extID := c.Param("loan_id"), c.Param("extension_id")
	if loanID == "" || extID == "" {
		return badRequest(c, "missing loan_id or extension_id path param")
	}
	var req decideExtensionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Decide(c.Request().Context(), extension.DecideInput{
		LoanID:      loanID,
		ExtensionID: extID,
		Approved:    *req.Approved,
		Note:        req.Note,
		Actor:       middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
