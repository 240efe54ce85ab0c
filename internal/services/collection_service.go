package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/statemachine"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"gorm.io/gorm"
)

// maxCollectRetries bounds the optimistic-lock retry loop before giving up
// with ErrConcurrentModification.
const maxCollectRetries = 3

// CollectionService is the money-moving engine: validation previews,
// collections, waivers and cancellations. Every mutation is a version-checked
// read-modify-write where the ledger update and the transaction-log append
// commit atomically.
type CollectionService interface {
	// Validate previews a collection without writing anything. Calling it any
	// number of times changes no state.
	Validate(ctx context.Context, actor Actor, input *CollectInput) (*ValidationResult, error)
	Collect(ctx context.Context, actor Actor, input *CollectInput) (*CollectResult, error)
	Waive(ctx context.Context, actor Actor, input *WaiveInput) (*models.FeeTransaction, error)
	BatchWaive(ctx context.Context, actor Actor, input *BatchWaiveInput) (*BatchWaiveResult, error)
	CancelTransaction(ctx context.Context, actor Actor, transactionID, reason string) (*models.FeeTransaction, error)
	ListTransactions(ctx context.Context, actor Actor, query *repository.ListQuery) ([]models.FeeTransaction, int64, error)
	GetTransaction(ctx context.Context, actor Actor, transactionID string) (*models.FeeTransaction, error)
}

// CollectInput is a collection request against one obligation: a monthly one
// (Month set) or a one-time fee (FeeType set), never both.
type CollectInput struct {
	StudentID     uint    `json:"student_id" binding:"required"`
	AcademicYear  string  `json:"academic_year" binding:"required"`
	Month         *int    `json:"month,omitempty"`
	FeeType       *string `json:"fee_type,omitempty"`
	Amount        float64 `json:"amount" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	Remarks       *string `json:"remarks,omitempty"`
	IPAddress     string  `json:"-"`
	DeviceInfo    string  `json:"-"`
}

// ValidationResult is the preview of what a collection would do
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	Outstanding      float64  `json:"outstanding"`
	LateFeeToApply   float64  `json:"late_fee_to_apply"`
	RemainingAfter   float64  `json:"remaining_after"`
	WillSettleInFull bool     `json:"will_settle_in_full"`
	Warnings         []string `json:"warnings,omitempty"`
}

// CollectResult is the outcome of a committed collection
type CollectResult struct {
	Transaction    *models.FeeTransaction   `json:"transaction"`
	Record         *models.StudentFeeRecord `json:"record"`
	LateFeeApplied float64                  `json:"late_fee_applied"`
	Warnings       []string                 `json:"warnings,omitempty"`
}

// WaiveInput is a waiver request for one monthly obligation
type WaiveInput struct {
	StudentID    uint   `json:"student_id" binding:"required"`
	AcademicYear string `json:"academic_year" binding:"required"`
	Month        int    `json:"month" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// BatchWaiveInput waives the same month for many students in one call
type BatchWaiveInput struct {
	StudentIDs   []uint `json:"student_ids" binding:"required"`
	AcademicYear string `json:"academic_year" binding:"required"`
	Month        int    `json:"month" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
}

// BatchWaiveResult reports per-student outcomes. Failures are isolated: one
// student's error never rolls back another's waiver.
type BatchWaiveResult struct {
	Waived []uint            `json:"waived"`
	Failed []BatchWaiveError `json:"failed,omitempty"`
}

// BatchWaiveError is one student's failure inside a batch waive
type BatchWaiveError struct {
	StudentID uint   `json:"student_id"`
	Error     string `json:"error"`
}

type collectionService struct {
	repos         *repository.Repositories
	uow           repository.UnitOfWork
	fraud         FraudService
	audit         AuditService
	notifications NotificationService

	cancellationWindow time.Duration

	// now is swappable for tests
	now func() time.Time
}

// NewCollectionService creates the fee collection engine
func NewCollectionService(
	repos *repository.Repositories,
	uow repository.UnitOfWork,
	fraud FraudService,
	audit AuditService,
	notifications NotificationService,
	cancellationWindowHours int,
) CollectionService {
	return &collectionService{
		repos:              repos,
		uow:                uow,
		fraud:              fraud,
		audit:              audit,
		notifications:      notifications,
		cancellationWindow: time.Duration(cancellationWindowHours) * time.Hour,
		now:                time.Now,
	}
}

func (s *collectionService) validateInput(input *CollectInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if input.PaymentMethod == "" {
		return fmt.Errorf("%w: payment_method is required", ErrValidation)
	}
	if _, err := models.ParseAcademicYear(input.AcademicYear); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	hasMonth := input.Month != nil
	hasFeeType := input.FeeType != nil && *input.FeeType != ""
	if hasMonth == hasFeeType {
		return fmt.Errorf("%w: exactly one of month or fee_type must be set", ErrValidation)
	}
	if hasMonth && (*input.Month < 1 || *input.Month > models.MonthsPerYear) {
		return fmt.Errorf("%w: month must be between 1 and %d", ErrValidation, models.MonthsPerYear)
	}
	return nil
}

// preview resolves the targeted obligation and computes what the collection
// would do, without mutating the record. lateFee is the amount that would be
// assessed on first collection against an overdue month.
func (s *collectionService) preview(record *models.StudentFeeRecord, input *CollectInput, now time.Time) (outstanding, lateFee float64, err error) {
	if input.Month != nil {
		payment := record.MonthPayment(*input.Month)
		if payment == nil {
			return 0, 0, fmt.Errorf("%w: month %d not found on record", ErrNotFound, *input.Month)
		}
		if payment.Waived {
			return 0, 0, fmt.Errorf("%w: month %d is waived", ErrInvalidState, *input.Month)
		}
		// Late fee is assessed once, at the first collection after the due
		// date, on the principal still outstanding at that moment. It sticks
		// even if the month is later paid off.
		if payment.LateFee == 0 && now.After(payment.DueDate) && payment.Outstanding() > 0 {
			lateFee = models.RoundMoney(payment.Outstanding() * record.FeeStructure.LateFeePercentage / 100)
		}
		outstanding = models.RoundMoney(payment.Outstanding() + lateFee)
		return outstanding, lateFee, nil
	}

	oneTime := record.OneTimePayment(*input.FeeType)
	if oneTime == nil {
		return 0, 0, fmt.Errorf("%w: one-time fee %q not found on record", ErrNotFound, *input.FeeType)
	}
	return oneTime.Outstanding(), 0, nil
}

func (s *collectionService) Validate(ctx context.Context, actor Actor, input *CollectInput) (*ValidationResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	record, err := s.loadRecord(ctx, s.repos, actor, input.StudentID, input.AcademicYear)
	if err != nil {
		return nil, err
	}

	now := s.now()
	outstanding, lateFee, err := s.preview(record, input, now)
	if err != nil {
		return nil, err
	}
	if input.Amount > outstanding {
		return nil, fmt.Errorf("%w: amount %.2f exceeds outstanding %.2f",
			ErrOverpayment, input.Amount, outstanding)
	}

	result := &ValidationResult{
		Valid:            true,
		Outstanding:      outstanding,
		LateFeeToApply:   lateFee,
		RemainingAfter:   models.RoundMoney(outstanding - input.Amount),
		WillSettleInFull: models.RoundMoney(outstanding-input.Amount) == 0,
	}

	// Advisory only: warnings never invalidate the preview
	if report, err := s.fraud.DetectSuspiciousPatterns(ctx, actor.SchoolID, actor.ID, 0); err != nil {
		logger.Log.Error("Fraud pattern scan failed during validation", "error", err)
	} else {
		result.Warnings = report.Warnings
	}

	return result, nil
}

func (s *collectionService) Collect(ctx context.Context, actor Actor, input *CollectInput) (*CollectResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	// Advisory scan up front so warnings ride along with the receipt. A scan
	// failure is logged, never blocks the collection.
	var warnings []string
	if report, err := s.fraud.DetectSuspiciousPatterns(ctx, actor.SchoolID, actor.ID, 0); err != nil {
		logger.Log.Error("Fraud pattern scan failed during collection", "error", err)
	} else {
		warnings = report.Warnings
	}

	var result *CollectResult
	for attempt := 1; attempt <= maxCollectRetries; attempt++ {
		var err error
		result, err = s.collectOnce(ctx, actor, input)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			logger.Log.Warn("Collection hit a version conflict, retrying",
				"student_id", input.StudentID,
				"attempt", attempt)
			if attempt == maxCollectRetries {
				return nil, ErrConcurrentModification
			}
			continue
		}
		return nil, err
	}

	result.Warnings = warnings

	logger.Log.Info("Fee collected",
		"transaction_id", result.Transaction.TransactionID,
		"student_id", input.StudentID,
		"amount", input.Amount,
		"late_fee", result.LateFeeApplied,
		"collected_by", actor.ID)

	s.audit.Record(ctx, AuditEntry{
		UserID:    actor.ID,
		Action:    AuditActionCollect,
		Entity:    "FeeTransaction",
		EntityID:  result.Transaction.ID,
		Details:   result.Transaction,
		IPAddress: input.IPAddress,
		UserAgent: input.DeviceInfo,
	})

	return result, nil
}

// collectOnce is one optimistic attempt: fresh read, in-memory mutation, then
// an atomic version-checked write plus log append.
func (s *collectionService) collectOnce(ctx context.Context, actor Actor, input *CollectInput) (*CollectResult, error) {
	record, err := s.loadRecord(ctx, s.repos, actor, input.StudentID, input.AcademicYear)
	if err != nil {
		return nil, err
	}

	now := s.now()
	outstanding, lateFee, err := s.preview(record, input, now)
	if err != nil {
		return nil, err
	}
	if input.Amount > outstanding {
		return nil, fmt.Errorf("%w: amount %.2f exceeds outstanding %.2f",
			ErrOverpayment, input.Amount, outstanding)
	}

	txn := &models.FeeTransaction{
		TransactionID:      models.NewReceiptNumber(now),
		StudentFeeRecordID: record.ID,
		StudentID:          record.StudentID,
		SchoolID:           record.SchoolID,
		AcademicYear:       record.AcademicYear,
		TransactionType:    models.TransactionTypePayment,
		Amount:             input.Amount,
		PaymentMethod:      input.PaymentMethod,
		Month:              input.Month,
		FeeType:            input.FeeType,
		Status:             models.TransactionStatusCompleted,
		Remarks:            input.Remarks,
		CollectedByUserID:  actor.ID,
		IPAddress:          input.IPAddress,
		DeviceInfo:         input.DeviceInfo,
	}

	var penaltyTxn *models.FeeTransaction
	if input.Month != nil {
		payment := record.MonthPayment(*input.Month)
		if lateFee > 0 {
			payment.LateFee = lateFee
			// The assessed late fee raises the obligation, so it shows up in
			// the record totals too.
			record.TotalFeeAmount = models.RoundMoney(record.TotalFeeAmount + lateFee)
			record.TotalDueAmount = models.RoundMoney(record.TotalDueAmount + lateFee)

			month := *input.Month
			penaltyTxn = &models.FeeTransaction{
				TransactionID:      models.NewReceiptNumber(now),
				StudentFeeRecordID: record.ID,
				StudentID:          record.StudentID,
				SchoolID:           record.SchoolID,
				AcademicYear:       record.AcademicYear,
				TransactionType:    models.TransactionTypePenalty,
				Amount:             lateFee,
				PaymentMethod:      input.PaymentMethod,
				Month:              &month,
				Status:             models.TransactionStatusCompleted,
				CollectedByUserID:  actor.ID,
				IPAddress:          input.IPAddress,
				DeviceInfo:         input.DeviceInfo,
			}
		}
		payment.PaidAmount = models.RoundMoney(payment.PaidAmount + input.Amount)
		payment.Status = payment.ComputeStatus(now)
		if payment.Status == models.ObligationStatusPaid {
			paidAt := now
			payment.PaidDate = &paidAt
		}
	} else {
		oneTime := record.OneTimePayment(*input.FeeType)
		oneTime.PaidAmount = models.RoundMoney(oneTime.PaidAmount + input.Amount)
		oneTime.Status = oneTime.ComputeStatus()
		if oneTime.Status == models.ObligationStatusPaid {
			paidAt := now
			oneTime.PaidDate = &paidAt
		}
	}

	record.ApplyPayment(input.Amount)
	record.RefreshStatuses(now)

	err = s.uow.Do(ctx, func(repos *repository.Repositories) error {
		if err := repos.Record.UpdateWithVersion(ctx, record); err != nil {
			return err
		}
		if penaltyTxn != nil {
			if err := repos.Transaction.Create(ctx, penaltyTxn); err != nil {
				return err
			}
		}
		return repos.Transaction.Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	return &CollectResult{
		Transaction:    txn,
		Record:         record,
		LateFeeApplied: lateFee,
	}, nil
}

func (s *collectionService) Waive(ctx context.Context, actor Actor, input *WaiveInput) (*models.FeeTransaction, error) {
	if input.Reason == "" {
		return nil, fmt.Errorf("%w: waiver reason is required", ErrValidation)
	}
	if input.Month < 1 || input.Month > models.MonthsPerYear {
		return nil, fmt.Errorf("%w: month must be between 1 and %d", ErrValidation, models.MonthsPerYear)
	}
	if _, err := models.ParseAcademicYear(input.AcademicYear); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var txn *models.FeeTransaction
	for attempt := 1; attempt <= maxCollectRetries; attempt++ {
		var err error
		txn, err = s.waiveOnce(ctx, actor, input)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			if attempt == maxCollectRetries {
				return nil, ErrConcurrentModification
			}
			continue
		}
		return nil, err
	}

	logger.Log.Info("Monthly fee waived",
		"transaction_id", txn.TransactionID,
		"student_id", input.StudentID,
		"month", input.Month,
		"waived_by", actor.ID)

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionWaive,
		Entity:   "FeeTransaction",
		EntityID: txn.ID,
		Details:  txn,
	})

	return txn, nil
}

func (s *collectionService) waiveOnce(ctx context.Context, actor Actor, input *WaiveInput) (*models.FeeTransaction, error) {
	record, err := s.loadRecord(ctx, s.repos, actor, input.StudentID, input.AcademicYear)
	if err != nil {
		return nil, err
	}

	now := s.now()
	payment := record.MonthPayment(input.Month)
	if payment == nil {
		return nil, fmt.Errorf("%w: month %d not found on record", ErrNotFound, input.Month)
	}
	if payment.Waived {
		return nil, fmt.Errorf("%w: month %d is already waived", ErrInvalidState, input.Month)
	}
	if payment.ComputeStatus(now) == models.ObligationStatusPaid {
		return nil, fmt.Errorf("%w: month %d is fully paid, nothing to waive", ErrInvalidState, input.Month)
	}

	// Waive forgives the remaining balance; amounts already paid stay paid.
	waived := payment.Outstanding()

	payment.Waived = true
	payment.WaiverReason = input.Reason
	payment.WaiverByID = &actor.ID
	waivedAt := now
	payment.WaiverDate = &waivedAt
	payment.Status = models.ObligationStatusWaived

	record.TotalDueAmount = models.RoundMoney(record.TotalDueAmount - waived)
	record.RefreshStatuses(now)

	month := input.Month
	reason := input.Reason
	txn := &models.FeeTransaction{
		TransactionID:      models.NewReceiptNumber(now),
		StudentFeeRecordID: record.ID,
		StudentID:          record.StudentID,
		SchoolID:           record.SchoolID,
		AcademicYear:       record.AcademicYear,
		TransactionType:    models.TransactionTypeWaiver,
		Amount:             waived,
		PaymentMethod:      "waiver",
		Month:              &month,
		Status:             models.TransactionStatusCompleted,
		Remarks:            &reason,
		CollectedByUserID:  actor.ID,
	}

	err = s.uow.Do(ctx, func(repos *repository.Repositories) error {
		if err := repos.Record.UpdateWithVersion(ctx, record); err != nil {
			return err
		}
		return repos.Transaction.Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// BatchWaive waives the same month for each listed student. Each student is
// its own unit of work: a failure is reported and the batch moves on.
func (s *collectionService) BatchWaive(ctx context.Context, actor Actor, input *BatchWaiveInput) (*BatchWaiveResult, error) {
	if len(input.StudentIDs) == 0 {
		return nil, fmt.Errorf("%w: student_ids is required", ErrValidation)
	}

	result := &BatchWaiveResult{}
	for _, studentID := range input.StudentIDs {
		_, err := s.Waive(ctx, actor, &WaiveInput{
			StudentID:    studentID,
			AcademicYear: input.AcademicYear,
			Month:        input.Month,
			Reason:       input.Reason,
		})
		if err != nil {
			result.Failed = append(result.Failed, BatchWaiveError{
				StudentID: studentID,
				Error:     err.Error(),
			})
			continue
		}
		result.Waived = append(result.Waived, studentID)
	}

	logger.Log.Info("Batch waive finished",
		"requested", len(input.StudentIDs),
		"waived", len(result.Waived),
		"failed", len(result.Failed))

	return result, nil
}

func (s *collectionService) CancelTransaction(ctx context.Context, actor Actor, transactionID, reason string) (*models.FeeTransaction, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	}

	txn, err := s.repos.Transaction.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	if txn.TransactionType != models.TransactionTypePayment {
		return nil, fmt.Errorf("%w: only payment transactions can be cancelled", ErrInvalidState)
	}

	now := s.now()
	if !txn.MayCancel() {
		return nil, fmt.Errorf("%w: transaction is %s", ErrInvalidState, txn.Status)
	}
	if !txn.CanBeCancelled(s.cancellationWindow, now) {
		return nil, fmt.Errorf("%w: cancellation window of %s has passed", ErrInvalidState, s.cancellationWindow)
	}

	// Cancellations must unwind in reverse order: only the newest completed
	// payment on the obligation may be cancelled.
	var latest *models.FeeTransaction
	if txn.Month != nil {
		latest, err = s.repos.Transaction.FindLatestCompletedPayment(ctx, txn.StudentFeeRecordID, *txn.Month)
	} else if txn.FeeType != nil {
		latest, err = s.repos.Transaction.FindLatestCompletedOneTime(ctx, txn.StudentFeeRecordID, *txn.FeeType)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if latest != nil && latest.ID != txn.ID {
		return nil, fmt.Errorf("%w: cancel transaction %s first", ErrOrdering, latest.TransactionID)
	}

	for attempt := 1; attempt <= maxCollectRetries; attempt++ {
		err = s.cancelOnce(ctx, actor, txn, reason, now)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			if attempt == maxCollectRetries {
				return nil, ErrConcurrentModification
			}
			continue
		}
		return nil, err
	}

	logger.Log.Info("Transaction cancelled",
		"transaction_id", txn.TransactionID,
		"amount", txn.Amount,
		"cancelled_by", actor.ID)

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionCancel,
		Entity:   "FeeTransaction",
		EntityID: txn.ID,
		Details: map[string]interface{}{
			"transaction_id": txn.TransactionID,
			"amount":         txn.Amount,
			"reason":         reason,
		},
	})

	s.notifications.NotifySchoolAdmins(ctx, actor.SchoolID,
		"Transaction cancelled",
		fmt.Sprintf("Receipt %s (%.2f) was cancelled: %s", txn.TransactionID, txn.Amount, reason),
		models.NotificationTypeTransactionCancelled)

	return txn, nil
}

func (s *collectionService) cancelOnce(ctx context.Context, actor Actor, txn *models.FeeTransaction, reason string, now time.Time) error {
	record, err := s.repos.Record.FindByID(ctx, txn.StudentFeeRecordID)
	if err != nil {
		return err
	}

	// Reverse the payment on the targeted obligation
	if txn.Month != nil {
		payment := record.MonthPayment(*txn.Month)
		if payment == nil {
			return fmt.Errorf("%w: month %d not found on record", ErrInvalidState, *txn.Month)
		}
		payment.PaidAmount = models.RoundMoney(payment.PaidAmount - txn.Amount)
		payment.PaidDate = nil
		payment.Status = payment.ComputeStatus(now)
	} else if txn.FeeType != nil {
		oneTime := record.OneTimePayment(*txn.FeeType)
		if oneTime == nil {
			return fmt.Errorf("%w: one-time fee %q not found on record", ErrInvalidState, *txn.FeeType)
		}
		oneTime.PaidAmount = models.RoundMoney(oneTime.PaidAmount - txn.Amount)
		oneTime.PaidDate = nil
		oneTime.Status = oneTime.ComputeStatus()
	}

	record.ReversePayment(txn.Amount)
	record.RefreshStatuses(now)

	machine := statemachine.NewTransactionFSM(txn)
	if err := machine.Cancel(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	txn.CancelledByUserID = &actor.ID
	cancelledAt := now
	txn.CancelledAt = &cancelledAt
	txn.CancellationReason = &reason

	return s.uow.Do(ctx, func(repos *repository.Repositories) error {
		if err := repos.Record.UpdateWithVersion(ctx, record); err != nil {
			return err
		}
		return repos.Transaction.Update(ctx, txn)
	})
}

func (s *collectionService) ListTransactions(ctx context.Context, actor Actor, query *repository.ListQuery) ([]models.FeeTransaction, int64, error) {
	query.Filters["school_id"] = fmt.Sprintf("%d", actor.SchoolID)
	return s.repos.Transaction.List(ctx, query)
}

func (s *collectionService) GetTransaction(ctx context.Context, actor Actor, transactionID string) (*models.FeeTransaction, error) {
	txn, err := s.repos.Transaction.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	return txn, nil
}

func (s *collectionService) loadRecord(ctx context.Context, repos *repository.Repositories, actor Actor, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
	record, err := repos.Record.FindByStudentAndYear(ctx, studentID, academicYear)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	return record, nil
}
