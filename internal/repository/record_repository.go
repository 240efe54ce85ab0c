package repository

import (
	"context"
	"errors"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned by UpdateWithVersion when the record changed
// underneath the caller (lost optimistic-lock race).
var ErrVersionConflict = errors.New("student fee record was modified concurrently")

// RecordRepository defines data access for student fee records
type RecordRepository interface {
	Create(ctx context.Context, record *models.StudentFeeRecord) error
	FindByID(ctx context.Context, id uint) (*models.StudentFeeRecord, error)
	FindByStudentAndYear(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error)
	FindBySchoolAndYear(ctx context.Context, schoolID uint, academicYear string) ([]models.StudentFeeRecord, error)
	HasPaidRecords(ctx context.Context, structureID uint) (bool, error)
	// UpdateWithVersion persists the record's mutable fields guarded by its
	// version column; returns ErrVersionConflict on a lost race. On success the
	// in-memory version is bumped to match the row.
	UpdateWithVersion(ctx context.Context, record *models.StudentFeeRecord) error
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new student fee record repository
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, record *models.StudentFeeRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *recordRepository) FindByID(ctx context.Context, id uint) (*models.StudentFeeRecord, error) {
	var record models.StudentFeeRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("FeeStructure").
		First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepository) FindByStudentAndYear(ctx context.Context, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
	var record models.StudentFeeRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("FeeStructure").
		Where("student_id = ? AND academic_year = ?", studentID, academicYear).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepository) FindBySchoolAndYear(ctx context.Context, schoolID uint, academicYear string) ([]models.StudentFeeRecord, error) {
	var records []models.StudentFeeRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("school_id = ? AND academic_year = ?", schoolID, academicYear).
		Order("student_id ASC").
		Find(&records).Error
	return records, err
}

func (r *recordRepository) HasPaidRecords(ctx context.Context, structureID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StudentFeeRecord{}).
		Where("fee_structure_id = ? AND total_paid_amount > 0", structureID).
		Count(&count).Error
	return count > 0, err
}

func (r *recordRepository) UpdateWithVersion(ctx context.Context, record *models.StudentFeeRecord) error {
	// Struct update (not a map) so the jsonb serializer fields marshal properly
	res := r.db.WithContext(ctx).
		Model(&models.StudentFeeRecord{}).
		Select("total_fee_amount", "total_paid_amount", "total_due_amount", "monthly_payments", "one_time_payments", "version").
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(&models.StudentFeeRecord{
			TotalFeeAmount:  record.TotalFeeAmount,
			TotalPaidAmount: record.TotalPaidAmount,
			TotalDueAmount:  record.TotalDueAmount,
			MonthlyPayments: record.MonthlyPayments,
			OneTimePayments: record.OneTimePayments,
			Version:         record.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	record.Version++
	return nil
}
