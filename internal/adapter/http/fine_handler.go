package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/usecase/fine"
)

type FineHandler struct {
	uc   *fine.Usecase
	errs ErrorMapper
	now  func() time.Time
}

func NewFineHandler(uc *fine.Usecase, errs ErrorMapper) *FineHandler {
	return &FineHandler{uc: uc, errs: errs, now: time.Now}
}

type totalDendaReq struct {
	FineAmount  decimal.Decimal `json:"fineAmount"  validate:"dec2"`
	DaysOverdue int             `json:"daysOverdue"`
	UpdatedAt   string          `json:"updatedAt"   validate:"omitempty,date"`
}

type fineUpdateReq struct {
	ID         string        `json:"id"         validate:"required"`
	TotalDenda totalDendaReq `json:"totalDenda"`
}

type bulkFinesReq struct {
	Updates []fineUpdateReq `json:"updates" validate:"required,max=1000,dive"`
}

func requirePrivileged(c echo.Context) error {
	a := middleware.ActorFrom(c)
	if a.IsPrivileged() {
		return nil
	}
	return &loan.AuthorizationError{
		ActorID: a.ID,
		Reason:  "fine maintenance is limited to admins",
		Detail:  map[string]any{"actorRole": a.Role},
	}
}

// BulkUpsert drops non-positive entries itself, so they are not validation errors here.
func (h *FineHandler) BulkUpsert(c echo.Context) error {
	if err := requirePrivileged(c); err != nil {
		return h.errs.Write(c, err)
	}
	var req bulkFinesReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	now := h.now().UTC()
	updates := make([]fine.Update, 0, len(req.Updates))
	for _, u := range req.Updates {
		at := now
		if t, ok := parseDate(u.TotalDenda.UpdatedAt); ok {
			at = t
		}
		updates = append(updates, fine.Update{
			LoanID: u.ID,
			TotalDenda: loan.TotalDenda{
				FineAmount:  u.TotalDenda.FineAmount,
				DaysOverdue: u.TotalDenda.DaysOverdue,
				UpdatedAt:   at,
			},
		})
	}
	sum, err := h.uc.BulkUpsert(c.Request().Context(), updates)
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *FineHandler) Recompute(c echo.Context) error {
	if err := requirePrivileged(c); err != nil {
		return h.errs.Write(c, err)
	}
	sum, err := h.uc.Recompute(c.Request().Context(), h.now().UTC())
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
