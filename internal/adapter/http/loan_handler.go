package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/usecase/loan"
)

type LoanHandler struct {
	uc   *loan.Usecase
	errs ErrorMapper
}

func NewLoanHandler(uc *loan.Usecase, errs ErrorMapper) *LoanHandler {
	return &LoanHandler{uc: uc, errs: errs}
}

type createLoanReq struct {
	// defaults to the calling actor
	BorrowerID      string   `json:"borrowerId"      validate:"omitempty,max=64"`
	BorrowerName    string   `json:"borrowerName"    validate:"max=191"`
	BorrowerEmail   string   `json:"borrowerEmail"   validate:"omitempty,email"`
	EntitasID       string   `json:"entitasId"       validate:"max=64"`
	Category        string   `json:"category"        validate:"max=64"`
	ItemDescription string   `json:"itemDescription"`
	Companies       []string `json:"companies"       validate:"dive,notblank,max=64"`
	UseDate         string   `json:"useDate"         validate:"omitempty,date"`
	ReturnDate      string   `json:"returnDate"      validate:"omitempty,date"`
	Draft           bool     `json:"draft"`
}

func optionalDate(raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, ok := parseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	actor := middleware.ActorFrom(c)
	borrower := strings.TrimSpace(req.BorrowerID)
	if borrower == "" {
		borrower = actor.ID
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		BorrowerID:      borrower,
		BorrowerName:    req.BorrowerName,
		BorrowerEmail:   req.BorrowerEmail,
		EntitasID:       req.EntitasID,
		Category:        req.Category,
		ItemDescription: req.ItemDescription,
		Companies:       req.Companies,
		UseDate:         optionalDate(req.UseDate),
		ReturnDate:      optionalDate(req.ReturnDate),
		Draft:           req.Draft,
		Actor:           actor,
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	dto, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) SubmitLoan(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	dto, err := h.uc.Submit(c.Request().Context(), loanID, middleware.ActorFrom(c))
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
