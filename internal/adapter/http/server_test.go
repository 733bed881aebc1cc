package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"loanflow-backend/internal/adapter/middleware"
	domain "loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/uow"
	"loanflow-backend/internal/testutil/loanmock"
	"loanflow-backend/internal/testutil/outboxmock"
	"loanflow-backend/internal/testutil/uowmock"
	"loanflow-backend/internal/usecase/approval"
	"loanflow-backend/internal/usecase/extension"
	"loanflow-backend/internal/usecase/fine"
	"loanflow-backend/internal/usecase/loan"
	"loanflow-backend/internal/usecase/returns"
	"loanflow-backend/internal/usecase/warehouse"
)

var testNow = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

type memFiles struct {
	mu    sync.Mutex
	saved []warehouse.ProofFile
}

func (m *memFiles) Save(_ context.Context, loanID string, f warehouse.ProofFile) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, f)
	return loanID + "/" + f.Name, nil
}

type testServer struct {
	e      *echo.Echo
	loans  *loanmock.Repo
	outbox *outboxmock.Repo
	files  *memFiles
}

// newTestServer wires real usecases over in-memory mocks. Loans are served from store.
func newTestServer(t *testing.T, exposeDetail bool, store ...*domain.Loan) *testServer {
	t.Helper()
	byID := map[string]*domain.Loan{}
	for _, l := range store {
		byID[l.LoanID] = l
	}
	get := func(_ context.Context, id string) (*domain.Loan, error) {
		if l, ok := byID[id]; ok {
			return l.Clone(), nil
		}
		return nil, domain.ErrNotFound
	}
	loans := &loanmock.Repo{
		GetByLoanIDFn:          get,
		GetByLoanIDForUpdateFn: get,
		ListOpenFn: func(context.Context) ([]*domain.Loan, error) {
			return store, nil
		},
	}
	outbox := &outboxmock.Repo{}
	tx := uowmock.Passthrough(uow.Repos{Loans: loans, Outbox: outbox})
	files := &memFiles{}
	log := zap.NewNop()
	clock := func() time.Time { return testNow }
	errs := ErrorMapper{ExposeDetail: exposeDetail, Log: log}

	fines := NewFineHandler(fine.NewUsecase(loans, tx, domain.DefaultFinePolicy(), log), errs)
	fines.now = clock

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, Handlers{
		Base:      NewHandler(),
		Loans:     NewLoanHandler(loan.NewUsecase(loans, tx, domain.DefaultFinePolicy(), nil, log).WithClock(clock), errs),
		Approvals: NewApprovalHandler(approval.NewUsecase(tx, nil, log).WithClock(clock), errs),
		Warehouse: NewWarehouseHandler(warehouse.NewUsecase(tx, files, nil, log).WithClock(clock), errs),
		Returns:   NewReturnHandler(returns.NewUsecase(tx, nil, log).WithClock(clock), errs),
		Extension: NewExtensionHandler(extension.NewUsecase(tx, nil, log).WithClock(clock), errs),
		Fines:     fines,
	}, middleware.Actor())
	return &testServer{e: e, loans: loans, outbox: outbox, files: files}
}

type actorHdr struct {
	id, role, companies string
}

var (
	borrowerHdr  = actorHdr{id: "BR-1", role: "borrower"}
	adminHdr     = actorHdr{id: "u-admin", role: "admin"}
	warehouseHdr = actorHdr{id: "u-wh", role: "warehouse"}
	acmeHdr      = actorHdr{id: "u-acme", role: "company", companies: "acme"}
)

func (s *testServer) do(t *testing.T, method, path string, body any, a actorHdr) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	s.setActor(req, a)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) setActor(req *stdhttp.Request, a actorHdr) {
	if a.id != "" {
		req.Header.Set(middleware.HeaderActorID, a.id)
	}
	if a.role != "" {
		req.Header.Set(middleware.HeaderActorRole, a.role)
	}
	if a.companies != "" {
		req.Header.Set(middleware.HeaderActorCompanies, a.companies)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return out
}

func pendingLoan(id string, companies ...string) *domain.Loan {
	submitted := testNow.Add(-72 * time.Hour)
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	l := &domain.Loan{
		LoanID:      id,
		BorrowerID:  "BR-1",
		EntitasID:   "ENT-1",
		Category:    "Kendaraan",
		SubmittedAt: &submitted,
		ReturnDate:  &due,
		Approvals:   domain.Approvals{Companies: map[string]domain.ApprovalEntry{}},
	}
	for _, c := range companies {
		l.Approvals.Companies[c] = domain.ApprovalEntry{}
	}
	return l
}

func borrowedLoan(id string) *domain.Loan {
	l := pendingLoan(id, "acme")
	l.Approvals.Companies["acme"] = domain.ApprovalEntry{Approved: true}
	l.LoanStatus = string(domain.StatusBorrowed)
	l.WarehouseStatus.Status = string(domain.StatusBorrowed)
	return l
}
