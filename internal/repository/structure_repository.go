package repository

import (
	"context"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// StructureRepository defines data access for fee structures
type StructureRepository interface {
	Create(ctx context.Context, structure *models.FeeStructure) error
	Update(ctx context.Context, structure *models.FeeStructure) error
	FindByID(ctx context.Context, id uint) (*models.FeeStructure, error)
	FindActive(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error)
	ListBySchool(ctx context.Context, schoolID uint, academicYear string) ([]models.FeeStructure, error)
}

type structureRepository struct {
	db *gorm.DB
}

// NewStructureRepository creates a new fee structure repository
func NewStructureRepository(db *gorm.DB) StructureRepository {
	return &structureRepository{db: db}
}

func (r *structureRepository) Create(ctx context.Context, structure *models.FeeStructure) error {
	return r.db.WithContext(ctx).Create(structure).Error
}

func (r *structureRepository) Update(ctx context.Context, structure *models.FeeStructure) error {
	return r.db.WithContext(ctx).Save(structure).Error
}

func (r *structureRepository) FindByID(ctx context.Context, id uint) (*models.FeeStructure, error) {
	var structure models.FeeStructure
	if err := r.db.WithContext(ctx).First(&structure, id).Error; err != nil {
		return nil, err
	}
	return &structure, nil
}

func (r *structureRepository) FindActive(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error) {
	var structure models.FeeStructure
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND grade = ? AND academic_year = ? AND is_active = ?", schoolID, grade, academicYear, true).
		First(&structure).Error
	if err != nil {
		return nil, err
	}
	return &structure, nil
}

func (r *structureRepository) ListBySchool(ctx context.Context, schoolID uint, academicYear string) ([]models.FeeStructure, error) {
	var structures []models.FeeStructure
	db := r.db.WithContext(ctx).Where("school_id = ?", schoolID)
	if academicYear != "" {
		db = db.Where("academic_year = ?", academicYear)
	}
	err := db.Order("academic_year DESC, grade ASC").Find(&structures).Error
	return structures, err
}
