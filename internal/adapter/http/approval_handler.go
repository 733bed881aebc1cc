package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/usecase/approval"
)

type ApprovalHandler struct {
	uc   *approval.Usecase
	errs ErrorMapper
}

func NewApprovalHandler(uc *approval.Usecase, errs ErrorMapper) *ApprovalHandler {
	return &ApprovalHandler{uc: uc, errs: errs}
}

type approveLoanReq struct {
	Approved *bool  `json:"approved" validate:"required"`
	Reason   string `json:"reason"   validate:"max=1000"`
	Note     string `json:"note"     validate:"max=1000"`
}

func (h *ApprovalHandler) ApproveLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req approveLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Approve(c.Request().Context(), approval.ApproveInput{
		LoanID: loanID,
		Decision: approval.Decision{
			Approved: *req.Approved,
			Reason:   req.Reason,
			Note:     req.Note,
		},
		Actor: middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
