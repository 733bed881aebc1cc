package http

import (
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Base      *Handler
	Loans     *LoanHandler
	Approvals *ApprovalHandler
	Warehouse *WarehouseHandler
	Returns   *ReturnHandler
	Extension *ExtensionHandler
	Fines     *FineHandler
}

// Register mounts every route. mw wraps the loan and fine routes, in order.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Base.Health)
	e.GET("/metrics", h.Base.Metrics)

	loans := e.Group("/loans", mw...)
	loans.POST("", h.Loans.CreateLoan)
	loans.GET("/:loan_id", h.Loans.GetLoan)
	loans.POST("/:loan_id/submit", h.Loans.SubmitLoan)
	loans.POST("/:loan_id/approve", h.Approvals.ApproveLoan)
	loans.POST("/:loan_id/warehouse", h.Warehouse.WarehouseAction)
	loans.POST("/:loan_id/return-requests", h.Returns.SubmitReturn)
	loans.POST("/:loan_id/return-action", h.Returns.ReturnAction)
	loans.POST("/:loan_id/extensions", h.Extension.RequestExtension)
	loans.POST("/:loan_id/extensions/:extension_id/decision", h.Extension.DecideExtension)

	fines := e.Group("/fines", mw...)
	fines.POST("", h.Fines.BulkUpsert)
	fines.POST("/recompute", h.Fines.Recompute)
}
