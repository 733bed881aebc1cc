package mysql

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loanflow-backend/internal/domain/loan"
	"loanflow-backend/internal/domain/outbox"
	"loanflow-backend/pkg/id"
)

// openTestDB gives each test its own in-memory sqlite with the production schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection, otherwise every new connection sees a fresh empty :memory: db
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&loan.Loan{}, &outbox.Task{}, &outbox.Receipt{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeLoan(borrowerID string) *loan.Loan {
	submitted := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return &loan.Loan{
		LoanID:      id.NewLoanID(),
		BorrowerID:  borrowerID,
		Category:    "Kendaraan",
		SubmittedAt: &submitted,
		ReturnDate:  &due,
		Approvals: loan.Approvals{Companies: map[string]loan.ApprovalEntry{
			"acme":   {},
			"globex": {},
		}},
		LoanStatus: "Pending",
	}
}
