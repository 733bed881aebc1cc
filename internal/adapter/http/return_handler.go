package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/usecase/returns"
)

type ReturnHandler struct {
	uc   *returns.Usecase
	errs ErrorMapper
}

func NewReturnHandler(uc *returns.Usecase, errs ErrorMapper) *ReturnHandler {
	return &ReturnHandler{uc: uc, errs: errs}
}

type submitReturnReq struct {
	Note string `json:"note" validate:"max=1000"`
}

func (h *ReturnHandler) SubmitReturn(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req submitReturnReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Submit(c.Request().Context(), returns.SubmitInput{
		LoanID: loanID,
		Note:   req.Note,
		Actor:  middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type returnActionReq struct {
	RequestID string `json:"requestId" validate:"notblank"`
	Action    string `json:"action"    validate:"notblank"`
	Note      string `json:"note"      validate:"max=1000"`
	Condition string `json:"condition" validate:"max=191"`
}

func (h *ReturnHandler) ReturnAction(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req returnActionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	action, err := returns.ParseAction(req.Action)
	if err != nil {
		return h.errs.Write(c, err)
	}
	dto, err := h.uc.Act(c.Request().Context(), returns.Input{
		LoanID:    loanID,
		RequestID: req.RequestID,
		Action:    action,
		Note:      req.Note,
		Condition: req.Condition,
		Actor:     middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
