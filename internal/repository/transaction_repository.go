package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository defines data access for the fee transaction log.
// The log is append-mostly: Create inserts, Update only flips status and
// cancellation metadata — amount and type are never rewritten.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.FeeTransaction) error
	Update(ctx context.Context, txn *models.FeeTransaction) error
	FindByID(ctx context.Context, id uint) (*models.FeeTransaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.FeeTransaction, error)
	// FindLatestCompletedPayment returns the newest completed payment
	// transaction on a record's monthly obligation, used to enforce in-order
	// cancellation.
	FindLatestCompletedPayment(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error)
	FindLatestCompletedOneTime(ctx context.Context, recordID uint, feeType string) (*models.FeeTransaction, error)
	FindByCollectorSince(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error)
	FindCompletedBySchoolAndYear(ctx context.Context, schoolID uint, academicYear string) ([]models.FeeTransaction, error)
	List(ctx context.Context, query *ListQuery) ([]models.FeeTransaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new fee transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.FeeTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) Update(ctx context.Context, txn *models.FeeTransaction) error {
	return r.db.WithContext(ctx).
		Model(txn).
		Select("status", "cancelled_by_user_id", "cancelled_at", "cancellation_reason").
		Updates(txn).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.FeeTransaction, error) {
	var txn models.FeeTransaction
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("CollectedByUser").
		First(&txn, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.FeeTransaction, error) {
	var txn models.FeeTransaction
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("CollectedByUser").
		Where("transaction_id = ?", transactionID).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindLatestCompletedPayment(ctx context.Context, recordID uint, month int) (*models.FeeTransaction, error) {
	var txn models.FeeTransaction
	err := r.db.WithContext(ctx).
		Where("student_fee_record_id = ? AND month = ? AND transaction_type = ? AND status = ?",
			recordID, month, models.TransactionTypePayment, models.TransactionStatusCompleted).
		Order("created_at DESC, id DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindLatestCompletedOneTime(ctx context.Context, recordID uint, feeType string) (*models.FeeTransaction, error) {
	var txn models.FeeTransaction
	err := r.db.WithContext(ctx).
		Where("student_fee_record_id = ? AND fee_type = ? AND transaction_type = ? AND status = ?",
			recordID, feeType, models.TransactionTypePayment, models.TransactionStatusCompleted).
		Order("created_at DESC, id DESC").
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByCollectorSince(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
	var txns []models.FeeTransaction
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND collected_by_user_id = ? AND created_at >= ? AND transaction_type = ? AND status = ?",
			schoolID, collectorID, since, models.TransactionTypePayment, models.TransactionStatusCompleted).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepository) FindCompletedBySchoolAndYear(ctx context.Context, schoolID uint, academicYear string) ([]models.FeeTransaction, error) {
	var txns []models.FeeTransaction
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND academic_year = ? AND status = ?",
			schoolID, academicYear, models.TransactionStatusCompleted).
		Order("created_at ASC").
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepository) List(ctx context.Context, query *ListQuery) ([]models.FeeTransaction, int64, error) {
	var txns []models.FeeTransaction
	var total int64

	db := r.db.WithContext(ctx).Model(&models.FeeTransaction{})

	if school := query.Filters["school_id"]; school != "" {
		db = db.Where("fee_transactions.school_id = ?", school)
	}
	if student := query.Filters["student_id"]; student != "" {
		db = db.Where("fee_transactions.student_id = ?", student)
	}
	if year := query.Filters["academic_year"]; year != "" {
		db = db.Where("fee_transactions.academic_year = ?", year)
	}
	if status := query.Filters["status"]; status != "" {
		if strings.Contains(status, ",") {
			db = db.Where("fee_transactions.status IN ?", strings.Split(status, ","))
		} else {
			db = db.Where("fee_transactions.status = ?", status)
		}
	}
	if txnType := query.Filters["transaction_type"]; txnType != "" {
		db = db.Where("fee_transactions.transaction_type = ?", txnType)
	}
	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("fee_transactions.created_at >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		endDate := val
		if len(endDate) == 10 {
			endDate += " 23:59:59"
		}
		db = db.Where("fee_transactions.created_at <= ?", endDate)
	}
	if search := query.Filters["search_term"]; search != "" {
		term := "%" + search + "%"
		db = db.Joins("JOIN students ON students.id = fee_transactions.student_id").
			Where("(students.full_name ILIKE ? OR fee_transactions.transaction_id ILIKE ?)", term, term)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := "fee_transactions.created_at"
	switch query.SortBy {
	case "amount":
		sortField = "fee_transactions.amount"
	case "created_at", "":
	default:
	}
	dir := "DESC"
	if strings.EqualFold(query.SortDir, "asc") {
		dir = "ASC"
	}

	err := db.
		Preload("Student").
		Preload("CollectedByUser").
		Order(sortField + " " + dir).
		Limit(query.PerPage).
		Offset(query.Offset()).
		Find(&txns).Error

	return txns, total, err
}
