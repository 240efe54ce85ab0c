package repository

import (
	"context"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// DefaulterRepository defines data access for the derived defaulter rows
type DefaulterRepository interface {
	// Upsert writes the recomputed defaulter state for (student, year) while
	// preserving reminder bookkeeping on an existing row.
	Upsert(ctx context.Context, defaulter *models.FeeDefaulter) error
	Update(ctx context.Context, defaulter *models.FeeDefaulter) error
	FindByID(ctx context.Context, id uint) (*models.FeeDefaulter, error)
	FindByStudentAndYear(ctx context.Context, studentID uint, academicYear string) (*models.FeeDefaulter, error)
	// DeleteMissing removes rows for students in the school/year no longer in
	// default (not in keep).
	DeleteMissing(ctx context.Context, schoolID uint, academicYear string, keep []uint) error
	List(ctx context.Context, schoolID uint, query *ListQuery) ([]models.FeeDefaulter, int64, error)
	ListReminderDue(ctx context.Context, before time.Time) ([]models.FeeDefaulter, error)
}

type defaulterRepository struct {
	db *gorm.DB
}

// NewDefaulterRepository creates a new fee defaulter repository
func NewDefaulterRepository(db *gorm.DB) DefaulterRepository {
	return &defaulterRepository{db: db}
}

func (r *defaulterRepository) Upsert(ctx context.Context, defaulter *models.FeeDefaulter) error {
	var existing models.FeeDefaulter
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND academic_year = ?", defaulter.StudentID, defaulter.AcademicYear).
		First(&existing).Error
	if err == nil {
		existing.TotalDueAmount = defaulter.TotalDueAmount
		existing.OverdueMonths = defaulter.OverdueMonths
		existing.DaysSinceFirstDue = defaulter.DaysSinceFirstDue
		*defaulter = existing
		return r.db.WithContext(ctx).
			Model(&existing).
			Select("total_due_amount", "overdue_months", "days_since_first_due").
			Updates(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(defaulter).Error
}

func (r *defaulterRepository) Update(ctx context.Context, defaulter *models.FeeDefaulter) error {
	return r.db.WithContext(ctx).Save(defaulter).Error
}

func (r *defaulterRepository) FindByID(ctx context.Context, id uint) (*models.FeeDefaulter, error) {
	var defaulter models.FeeDefaulter
	err := r.db.WithContext(ctx).
		Preload("Student").
		First(&defaulter, id).Error
	if err != nil {
		return nil, err
	}
	return &defaulter, nil
}

func (r *defaulterRepository) FindByStudentAndYear(ctx context.Context, studentID uint, academicYear string) (*models.FeeDefaulter, error) {
	var defaulter models.FeeDefaulter
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("student_id = ? AND academic_year = ?", studentID, academicYear).
		First(&defaulter).Error
	if err != nil {
		return nil, err
	}
	return &defaulter, nil
}

func (r *defaulterRepository) DeleteMissing(ctx context.Context, schoolID uint, academicYear string, keep []uint) error {
	db := r.db.WithContext(ctx).
		Where("school_id = ? AND academic_year = ?", schoolID, academicYear)
	if len(keep) > 0 {
		db = db.Where("student_id NOT IN ?", keep)
	}
	return db.Delete(&models.FeeDefaulter{}).Error
}

func (r *defaulterRepository) List(ctx context.Context, schoolID uint, query *ListQuery) ([]models.FeeDefaulter, int64, error) {
	var defaulters []models.FeeDefaulter
	var total int64

	db := r.db.WithContext(ctx).Model(&models.FeeDefaulter{}).Where("fee_defaulters.school_id = ?", schoolID)

	if year := query.Filters["academic_year"]; year != "" {
		db = db.Where("fee_defaulters.academic_year = ?", year)
	}
	if minDue := query.Filters["min_due"]; minDue != "" {
		db = db.Where("fee_defaulters.total_due_amount >= ?", minDue)
	}
	if minDays := query.Filters["min_days"]; minDays != "" {
		db = db.Where("fee_defaulters.days_since_first_due >= ?", minDays)
	}
	if grade := query.Filters["grade"]; grade != "" {
		db = db.Joins("JOIN students ON students.id = fee_defaulters.student_id").
			Where("students.grade = ?", grade)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Student").
		Order("fee_defaulters.total_due_amount DESC").
		Limit(query.PerPage).
		Offset(query.Offset()).
		Find(&defaulters).Error

	return defaulters, total, err
}

func (r *defaulterRepository) ListReminderDue(ctx context.Context, before time.Time) ([]models.FeeDefaulter, error) {
	var defaulters []models.FeeDefaulter
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("last_reminder_date IS NULL OR last_reminder_date <= ?", before).
		Find(&defaulters).Error
	return defaulters, err
}
