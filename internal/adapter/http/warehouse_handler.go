package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"loanflow-backend/internal/adapter/middleware"
	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/usecase/warehouse"
)

type WarehouseHandler struct {
	uc   *warehouse.Usecase
	errs ErrorMapper
}

func NewWarehouseHandler(uc *warehouse.Usecase, errs ErrorMapper) *WarehouseHandler {
	return &WarehouseHandler{uc: uc, errs: errs}
}

type warehouseActionReq struct {
	Action string `json:"action" form:"action" validate:"notblank"`
	Reason string `json:"reason" form:"reason" validate:"max=1000"`
	Note   string `json:"note"   form:"note"   validate:"max=1000"`
}

// WarehouseAction takes JSON, or multipart form fields plus "files" for proof of return.
func (h *WarehouseHandler) WarehouseAction(c echo.Context) error {
	loanID := c.Param("loan_id")
	if loanID == "" {
		return badRequest(c, "missing loan_id path param")
	}
	var req warehouseActionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	action, err := warehouse.ParseAction(req.Action)
	if err != nil {
		return h.errs.Write(c, err)
	}

	var files []warehouse.ProofFile
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(c, "invalid multipart form")
		}
		if files, err = readProofFiles(form.File["files"]); err != nil {
			return h.errs.Write(c, err)
		}
	}

	dto, err := h.uc.Act(c.Request().Context(), warehouse.ActionInput{
		LoanID:  loanID,
		Action:  action,
		Payload: warehouse.Payload{Note: req.Note, Reason: req.Reason, Files: files},
		Actor:   middleware.ActorFrom(c),
	})
	if err != nil {
		return h.errs.Write(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// readProofFiles reads at most one byte past the size cap so oversize uploads are caught by
// validation without being buffered whole.
func readProofFiles(headers []*multipart.FileHeader) ([]warehouse.ProofFile, error) {
	if len(headers) > warehouse.MaxProofFiles {
		return nil, loan.Invalid("files", fmt.Sprintf("at most %d files allowed, got %d", warehouse.MaxProofFiles, len(headers)))
	}
	out := make([]warehouse.ProofFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, warehouse.MaxProofFileSize+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		out = append(out, warehouse.ProofFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Data:        data,
		})
	}
	return out, nil
}
