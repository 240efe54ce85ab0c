package services

import (
	"context"
	"testing"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"github.com/stretchr/testify/assert"
)

type mockRecordRepo struct {
	repository.RecordRepository
	createdRecords           []*models.StudentFeeRecord
	mockFindByStudentAndYear func(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error)
	mockFindByID             func(ctx context.Context, id uint) (*models.StudentFeeRecord, error)
	mockUpdateWithVersion    func(ctx context.Context, record *models.StudentFeeRecord) error
	mockHasPaidRecords       func(ctx context.Context, structureID uint) (bool, error)
}

func (m *mockRecordRepo) FindByStudentAndYear(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
	return m.mockFindByStudentAndYear(ctx, studentID, academicYear)
}

func (m *mockRecordRepo) FindByID(ctx context.Context, id uint) (*models.StudentFeeRecord, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockRecordRepo) UpdateWithVersion(ctx context.Context, record *models.StudentFeeRecord) error {
	return m.mockUpdateWithVersion(ctx, record)
}

type mockTransactionRepo struct {
	repository.TransactionRepository
	created []*models.FeeTransaction
	updated []*models.FeeTransaction

	mockFindByTransactionID        func(ctx context.Context, transactionID string) (*models.FeeTransaction, error)
	mockFindLatestCompletedPayment func(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error)
	mockFindLatestCompletedOneTime func(ctx context.Context, recordID uint, feeType string) (*models.FeeTransaction, error)
	mockFindByCollectorSince       func(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error)
}

func (m *mockTransactionRepo) Create(ctx context.Context, txn *models.FeeTransaction) error {
	m.created = append(m.created, txn)
	return nil
}

func (m *mockTransactionRepo) Update(ctx context.Context, txn *models.FeeTransaction) error {
	m.updated = append(m.updated, txn)
	return nil
}

func (m *mockTransactionRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
	return m.mockFindByTransactionID(ctx, transactionID)
}

func (m *mockTransactionRepo) FindLatestCompletedPayment(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error) {
	return m.mockFindLatestCompletedPayment(ctx, recordID, month)
}

func (m *mockTransactionRepo) FindLatestCompletedOneTime(ctx context.Context, recordID uint, feeType string) (*models.FeeTransaction, error) {
	return m.mockFindLatestCompletedOneTime(ctx, recordID, feeType)
}

// mockUnitOfWork runs the function against the same repositories, no real
// transaction underneath.
type mockUnitOfWork struct {
	repos *repository.Repositories
}

func (u *mockUnitOfWork) Do(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(u.repos)
}

type mockFraudService struct {
	report *FraudReport
}

func (m *mockFraudService) DetectSuspiciousPatterns(ctx context.Context, schoolID, collectorID uint, windowHours int) (*FraudReport, error) {
	if m.report != nil {
		return m.report, nil
	}
	return &FraudReport{}, nil
}

type noopAuditService struct{}

func (noopAuditService) Record(ctx context.Context, entry AuditEntry) {}
func (noopAuditService) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int64, error) {
	return nil, 0, nil
}

type noopNotificationService struct{}

func (noopNotificationService) Notify(ctx context.Context, userID uint, title, message, notificationType string) {
}
func (noopNotificationService) NotifySchoolAdmins(ctx context.Context, schoolID uint, title, message, notificationType string) {
}
func (noopNotificationService) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	return nil, 0, nil
}
func (noopNotificationService) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	return nil
}
func (noopNotificationService) MarkAllAsRead(ctx context.Context, userID uint) error { return nil }

// newTestRecord builds a 12-month record with 500/month, no one-time fees, a
// 5% late fee structure and due dates for a 2025-2026 year starting in April.
func newTestRecord() *models.StudentFeeRecord {
	monthly := make([]models.MonthlyPayment, 0, models.MonthsPerYear)
	for month := 1; month <= models.MonthsPerYear; month++ {
		monthly = append(monthly, models.MonthlyPayment{
			Month:     month,
			DueAmount: 500,
			Status:    models.ObligationStatusPending,
			DueDate:   models.MonthlyDueDate(2025, 4, month, 10),
		})
	}
	return &models.StudentFeeRecord{
		ID:              1,
		StudentID:       42,
		AcademicYear:    "2025-2026",
		SchoolID:        7,
		FeeStructureID:  3,
		TotalFeeAmount:  6000,
		TotalDueAmount:  6000,
		MonthlyPayments: monthly,
		Version:         1,
		FeeStructure:    models.FeeStructure{ID: 3, LateFeePercentage: 5, DueDay: 10},
	}
}

func newTestCollectionService(record *models.StudentFeeRecord, now time.Time) (*collectionService, *mockTransactionRepo) {
	recordRepo := &mockRecordRepo{
		mockFindByStudentAndYear: func(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
			return record, nil
		},
		mockFindByID: func(ctx context.Context, id uint) (*models.StudentFeeRecord, error) {
			return record, nil
		},
		mockUpdateWithVersion: func(ctx context.Context, r *models.StudentFeeRecord) error {
			r.Version++
			return nil
		},
	}
	txnRepo := &mockTransactionRepo{}
	repos := &repository.Repositories{Record: recordRepo, Transaction: txnRepo}

	svc := NewCollectionService(repos, &mockUnitOfWork{repos: repos}, &mockFraudService{},
		noopAuditService{}, noopNotificationService{}, 24).(*collectionService)
	svc.now = func() time.Time { return now }
	return svc, txnRepo
}

func monthPtr(m int) *int { return &m }

func feeTypePtr(s string) *string { return &s }

// withOneTimeFee adds a 1000 admission fee to a test record, raising its totals
func withOneTimeFee(record *models.StudentFeeRecord) *models.StudentFeeRecord {
	record.OneTimePayments = []models.OneTimeFeePayment{
		{FeeType: "admission", DueAmount: 1000, Status: models.ObligationStatusPending},
	}
	record.TotalFeeAmount = 7000
	record.TotalDueAmount = 7000
	return record
}

func TestCollectAppliesLateFeeOnOverdueMonth(t *testing.T) {
	// July 2025: month 1 (April) is well past due
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID:     42,
		AcademicYear:  "2025-2026",
		Month:         monthPtr(1),
		Amount:        525,
		PaymentMethod: "cash",
	})

	assert.NoError(t, err)
	assert.Equal(t, 25.0, result.LateFeeApplied)

	payment := record.MonthPayment(1)
	assert.Equal(t, 25.0, payment.LateFee)
	assert.Equal(t, 525.0, payment.PaidAmount)
	assert.Equal(t, models.ObligationStatusPaid, payment.Status)
	assert.NotNil(t, payment.PaidDate)

	// Late fee raises the yearly obligation; collection settles it
	assert.Equal(t, 6025.0, record.TotalFeeAmount)
	assert.Equal(t, 525.0, record.TotalPaidAmount)
	assert.Equal(t, 5500.0, record.TotalDueAmount)

	// Payment plus penalty appended to the log
	assert.Len(t, txnRepo.created, 2)
	assert.Equal(t, models.TransactionTypePenalty, txnRepo.created[0].TransactionType)
	assert.Equal(t, 25.0, txnRepo.created[0].Amount)
	assert.Equal(t, models.TransactionTypePayment, txnRepo.created[1].TransactionType)
	assert.Equal(t, 525.0, txnRepo.created[1].Amount)
}

func TestCollectLateFeeAssessedOnlyOnce(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	_, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 200, PaymentMethod: "cash",
	})
	assert.NoError(t, err)
	assert.Equal(t, 25.0, record.MonthPayment(1).LateFee)

	// Second partial collection must not assess the late fee again
	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 325, PaymentMethod: "cash",
	})
	assert.NoError(t, err)
	assert.Equal(t, 0.0, result.LateFeeApplied)
	assert.Equal(t, 25.0, record.MonthPayment(1).LateFee)
	assert.Equal(t, models.ObligationStatusPaid, record.MonthPayment(1).Status)

	// One penalty entry total across both collections
	penalties := 0
	for _, txn := range txnRepo.created {
		if txn.TransactionType == models.TransactionTypePenalty {
			penalties++
		}
	}
	assert.Equal(t, 1, penalties)
}

func TestCollectRejectsOverpayment(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	_, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 600, PaymentMethod: "cash",
	})

	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Empty(t, txnRepo.created)
	assert.Equal(t, 0.0, record.TotalPaidAmount)
}

func TestValidateIsReadOnly(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	input := &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 525, PaymentMethod: "cash",
	}

	for i := 0; i < 3; i++ {
		result, err := svc.Validate(context.Background(), actor, input)
		assert.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, 525.0, result.Outstanding)
		assert.Equal(t, 25.0, result.LateFeeToApply)
		assert.True(t, result.WillSettleInFull)
	}

	// Nothing changed: no late fee applied, no money moved, no log entries
	assert.Equal(t, 0.0, record.MonthPayment(1).LateFee)
	assert.Equal(t, 0.0, record.TotalPaidAmount)
	assert.Equal(t, 1, record.Version)
	assert.Empty(t, txnRepo.created)
}

func TestCollectConcurrentModificationAfterRetries(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, _ := newTestCollectionService(record, now)

	attempts := 0
	svc.repos.Record.(*mockRecordRepo).mockUpdateWithVersion = func(ctx context.Context, r *models.StudentFeeRecord) error {
		attempts++
		return repository.ErrVersionConflict
	}

	_, err := svc.Collect(context.Background(), Actor{ID: 9, SchoolID: 7}, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 100, PaymentMethod: "cash",
	})

	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, maxCollectRetries, attempts)
}

func TestWaiveForgivesRemainingBalance(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	// Month 2 partially paid before the waiver
	record.MonthPayment(2).PaidAmount = 200
	record.TotalPaidAmount = 200
	record.TotalDueAmount = 5800
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "admin", SchoolID: 7}

	txn, err := svc.Waive(context.Background(), actor, &WaiveInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: 2, Reason: "hardship",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionTypeWaiver, txn.TransactionType)
	assert.Equal(t, 300.0, txn.Amount)

	payment := record.MonthPayment(2)
	assert.True(t, payment.Waived)
	assert.Equal(t, "hardship", payment.WaiverReason)
	assert.Equal(t, models.ObligationStatusWaived, payment.Status)
	// Paid money stays; only the remaining 300 is forgiven
	assert.Equal(t, 200.0, record.TotalPaidAmount)
	assert.Equal(t, 5500.0, record.TotalDueAmount)
	assert.Len(t, txnRepo.created, 1)
}

func TestWaiveRejectsPaidMonth(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	record.MonthPayment(1).PaidAmount = 500
	svc, _ := newTestCollectionService(record, now)

	_, err := svc.Waive(context.Background(), Actor{ID: 9, SchoolID: 7}, &WaiveInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: 1, Reason: "hardship",
	})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBatchWaiveIsolatesFailures(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	records := map[uint]*models.StudentFeeRecord{
		42: newTestRecord(),
		43: newTestRecord(),
	}
	records[43].StudentID = 43
	// Student 43's month is already fully paid, so its waiver must fail
	records[43].MonthPayment(1).PaidAmount = 500

	record := newTestRecord()
	svc, _ := newTestCollectionService(record, now)
	svc.repos.Record.(*mockRecordRepo).mockFindByStudentAndYear = func(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
		return records[studentID], nil
	}

	result, err := svc.BatchWaive(context.Background(), Actor{ID: 9, SchoolID: 7}, &BatchWaiveInput{
		StudentIDs: []uint{42, 43}, AcademicYear: "2025-2026", Month: 1, Reason: "flood relief",
	})

	assert.NoError(t, err)
	assert.Equal(t, []uint{42}, result.Waived)
	assert.Len(t, result.Failed, 1)
	assert.Equal(t, uint(43), result.Failed[0].StudentID)
	assert.True(t, records[42].MonthPayment(1).Waived)
	assert.False(t, records[43].MonthPayment(1).Waived)
}

func TestCancelRestoresLedger(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "admin", SchoolID: 7}

	// Collect first so the ledger has something to unwind
	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 525, PaymentMethod: "cash",
	})
	assert.NoError(t, err)

	paidBefore := record.TotalPaidAmount
	dueBefore := record.TotalDueAmount

	payTxn := result.Transaction
	payTxn.CreatedAt = now.Add(-1 * time.Hour)
	txnRepo.mockFindByTransactionID = func(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
		return payTxn, nil
	}
	txnRepo.mockFindLatestCompletedPayment = func(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error) {
		return payTxn, nil
	}

	cancelled, err := svc.CancelTransaction(context.Background(), actor, payTxn.TransactionID, "entry error")
	assert.NoError(t, err)

	assert.Equal(t, models.TransactionStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "entry error", *cancelled.CancellationReason)
	assert.Equal(t, actor.ID, *cancelled.CancelledByUserID)

	// Payment reversed on the month; late fee assessment stays on the books
	payment := record.MonthPayment(1)
	assert.Equal(t, 0.0, payment.PaidAmount)
	assert.Equal(t, 25.0, payment.LateFee)
	assert.Nil(t, payment.PaidDate)
	assert.Equal(t, paidBefore-525, record.TotalPaidAmount)
	assert.Equal(t, dueBefore+525, record.TotalDueAmount)
}

func TestCancelRejectsOutOfOrder(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "admin", SchoolID: 7}

	older := &models.FeeTransaction{
		ID: 1, TransactionID: "RCPT-2025-AAAA1111", StudentFeeRecordID: 1, SchoolID: 7,
		TransactionType: models.TransactionTypePayment, Amount: 200,
		Month: monthPtr(1), Status: models.TransactionStatusCompleted,
		CreatedAt: now.Add(-2 * time.Hour),
	}
	newer := &models.FeeTransaction{
		ID: 2, TransactionID: "RCPT-2025-BBBB2222", StudentFeeRecordID: 1, SchoolID: 7,
		TransactionType: models.TransactionTypePayment, Amount: 300,
		Month: monthPtr(1), Status: models.TransactionStatusCompleted,
		CreatedAt: now.Add(-1 * time.Hour),
	}

	txnRepo.mockFindByTransactionID = func(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
		return older, nil
	}
	txnRepo.mockFindLatestCompletedPayment = func(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error) {
		return newer, nil
	}

	_, err := svc.CancelTransaction(context.Background(), actor, older.TransactionID, "entry error")
	assert.ErrorIs(t, err, ErrOrdering)
}

func TestCancelRejectsOutsideWindow(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, txnRepo := newTestCollectionService(record, now)

	stale := &models.FeeTransaction{
		ID: 1, TransactionID: "RCPT-2025-CCCC3333", StudentFeeRecordID: 1, SchoolID: 7,
		TransactionType: models.TransactionTypePayment, Amount: 500,
		Month: monthPtr(1), Status: models.TransactionStatusCompleted,
		CreatedAt: now.Add(-48 * time.Hour),
	}
	txnRepo.mockFindByTransactionID = func(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
		return stale, nil
	}

	_, err := svc.CancelTransaction(context.Background(), Actor{ID: 9, SchoolID: 7}, stale.TransactionID, "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCollectRejectsWaivedMonth(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	record.MonthPayment(1).Waived = true
	svc, _ := newTestCollectionService(record, now)

	_, err := svc.Collect(context.Background(), Actor{ID: 9, SchoolID: 7}, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 100, PaymentMethod: "cash",
	})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCollectScopedToSchool(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	svc, _ := newTestCollectionService(record, now)

	// Actor from another school cannot see the record at all
	_, err := svc.Collect(context.Background(), Actor{ID: 9, SchoolID: 99}, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 100, PaymentMethod: "cash",
	})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLateFeeAssessedOnOutstandingPrincipal(t *testing.T) {
	// 200 of the 500 was paid before the April 10 due date; by July only the
	// remaining 300 carries the 5% late fee.
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := newTestRecord()
	record.MonthPayment(1).PaidAmount = 200
	record.TotalPaidAmount = 200
	record.TotalDueAmount = 5800
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	preview, err := svc.Validate(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 100, PaymentMethod: "cash",
	})
	assert.NoError(t, err)
	assert.Equal(t, 15.0, preview.LateFeeToApply)
	assert.Equal(t, 315.0, preview.Outstanding)
	assert.Equal(t, 215.0, preview.RemainingAfter)

	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 315, PaymentMethod: "cash",
	})
	assert.NoError(t, err)
	assert.Equal(t, 15.0, result.LateFeeApplied)

	payment := record.MonthPayment(1)
	assert.Equal(t, 15.0, payment.LateFee)
	assert.Equal(t, 515.0, payment.PaidAmount)
	assert.Equal(t, models.ObligationStatusPaid, payment.Status)

	assert.Equal(t, 6015.0, record.TotalFeeAmount)
	assert.Equal(t, 515.0, record.TotalPaidAmount)
	assert.Equal(t, 5500.0, record.TotalDueAmount)

	assert.Len(t, txnRepo.created, 2)
	assert.Equal(t, models.TransactionTypePenalty, txnRepo.created[0].TransactionType)
	assert.Equal(t, 15.0, txnRepo.created[0].Amount)
}

func TestCollectOneTimeFee(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := withOneTimeFee(newTestRecord())
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "accountant", SchoolID: 7}

	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", FeeType: feeTypePtr("admission"),
		Amount: 1000, PaymentMethod: "bank_transfer",
	})

	assert.NoError(t, err)
	// One-time fees never attract a late fee
	assert.Equal(t, 0.0, result.LateFeeApplied)

	oneTime := record.OneTimePayment("admission")
	assert.Equal(t, 1000.0, oneTime.PaidAmount)
	assert.Equal(t, models.ObligationStatusPaid, oneTime.Status)
	assert.NotNil(t, oneTime.PaidDate)

	assert.Equal(t, 1000.0, record.TotalPaidAmount)
	assert.Equal(t, 6000.0, record.TotalDueAmount)

	assert.Len(t, txnRepo.created, 1)
	txn := txnRepo.created[0]
	assert.Equal(t, models.TransactionTypePayment, txn.TransactionType)
	assert.Nil(t, txn.Month)
	assert.Equal(t, "admission", *txn.FeeType)
}

func TestCollectOneTimeRejectsOverpayment(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	record := withOneTimeFee(newTestRecord())
	svc, txnRepo := newTestCollectionService(record, now)

	_, err := svc.Collect(context.Background(), Actor{ID: 9, SchoolID: 7}, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", FeeType: feeTypePtr("admission"),
		Amount: 1200, PaymentMethod: "cash",
	})

	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Empty(t, txnRepo.created)
	assert.Equal(t, 0.0, record.OneTimePayment("admission").PaidAmount)
}

func TestCancelOneTimePaymentRestoresLedger(t *testing.T) {
	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	record := withOneTimeFee(newTestRecord())
	svc, txnRepo := newTestCollectionService(record, now)
	actor := Actor{ID: 9, Role: "admin", SchoolID: 7}

	result, err := svc.Collect(context.Background(), actor, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", FeeType: feeTypePtr("admission"),
		Amount: 1000, PaymentMethod: "bank_transfer",
	})
	assert.NoError(t, err)

	payTxn := result.Transaction
	payTxn.CreatedAt = now.Add(-1 * time.Hour)
	txnRepo.mockFindByTransactionID = func(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
		return payTxn, nil
	}
	txnRepo.mockFindLatestCompletedOneTime = func(ctx context.Context, recordID uint, feeType string) (*models.FeeTransaction, error) {
		return payTxn, nil
	}

	cancelled, err := svc.CancelTransaction(context.Background(), actor, payTxn.TransactionID, "wrong student")
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, cancelled.Status)

	oneTime := record.OneTimePayment("admission")
	assert.Equal(t, 0.0, oneTime.PaidAmount)
	assert.Equal(t, models.ObligationStatusPending, oneTime.Status)
	assert.Nil(t, oneTime.PaidDate)
	assert.Equal(t, 0.0, record.TotalPaidAmount)
	assert.Equal(t, 7000.0, record.TotalDueAmount)
	assert.Len(t, txnRepo.updated, 1)
}

func TestSimultaneousCollectsCannotDoublePay(t *testing.T) {
	// April 5th: the month is not yet due, so no late fee muddies the math
	now := time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC)
	db := newTestRecord()

	recordRepo := &mockRecordRepo{
		// Each read hands out a copy of the stored state, as the database would
		mockFindByStudentAndYear: func(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
			copied := *db
			copied.MonthlyPayments = append([]models.MonthlyPayment(nil), db.MonthlyPayments...)
			copied.OneTimePayments = append([]models.OneTimeFeePayment(nil), db.OneTimePayments...)
			return &copied, nil
		},
	}
	conflicted := false
	recordRepo.mockUpdateWithVersion = func(ctx context.Context, r *models.StudentFeeRecord) error {
		if !conflicted {
			conflicted = true
			// A competing collector settled the month between our read and write
			winner := db.MonthPayment(1)
			winner.PaidAmount = 500
			winner.Status = models.ObligationStatusPaid
			db.TotalPaidAmount = 500
			db.TotalDueAmount = 5500
			db.Version++
			return repository.ErrVersionConflict
		}
		r.Version++
		return nil
	}

	txnRepo := &mockTransactionRepo{}
	repos := &repository.Repositories{Record: recordRepo, Transaction: txnRepo}
	svc := NewCollectionService(repos, &mockUnitOfWork{repos: repos}, &mockFraudService{},
		noopAuditService{}, noopNotificationService{}, 24).(*collectionService)
	svc.now = func() time.Time { return now }

	_, err := svc.Collect(context.Background(), Actor{ID: 9, SchoolID: 7}, &CollectInput{
		StudentID: 42, AcademicYear: "2025-2026", Month: monthPtr(1),
		Amount: 500, PaymentMethod: "cash",
	})

	// The retry re-reads the settled month and refuses to collect it twice
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Empty(t, txnRepo.created)
	assert.Equal(t, 500.0, db.TotalPaidAmount)
}
