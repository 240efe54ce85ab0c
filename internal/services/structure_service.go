package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"gorm.io/gorm"
)

// StructureService manages the fee structure catalog. Structures become
// immutable once a ledger created from them has recorded payments; after that
// the only legal mutation is deactivation.
type StructureService interface {
	Create(ctx context.Context, actor Actor, input *StructureInput) (*models.FeeStructure, error)
	Update(ctx context.Context, actor Actor, id uint, input *StructureInput) (*models.FeeStructure, error)
	Deactivate(ctx context.Context, actor Actor, id uint) (*models.FeeStructure, error)
	Clone(ctx context.Context, actor Actor, id uint, targetYear string) (*models.FeeStructure, error)
	Get(ctx context.Context, actor Actor, id uint) (*models.FeeStructure, bool, error)
	List(ctx context.Context, actor Actor, academicYear string) ([]models.FeeStructure, map[uint]bool, error)
}

// StructureInput is the creation/update payload for a fee structure
type StructureInput struct {
	Grade             string                `json:"grade" binding:"required"`
	AcademicYear      string                `json:"academic_year" binding:"required"`
	Components        []models.FeeComponent `json:"components" binding:"required"`
	DueDay            int                   `json:"due_day"`
	LateFeePercentage float64               `json:"late_fee_percentage"`
}

type structureService struct {
	repos *repository.Repositories
	audit AuditService
}

// NewStructureService creates a new fee structure service
func NewStructureService(repos *repository.Repositories, audit AuditService) StructureService {
	return &structureService{repos: repos, audit: audit}
}

func (s *structureService) validateInput(input *StructureInput) error {
	if input.Grade == "" {
		return fmt.Errorf("%w: grade is required", ErrValidation)
	}
	if _, err := models.ParseAcademicYear(input.AcademicYear); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(input.Components) == 0 {
		return fmt.Errorf("%w: at least one fee component is required", ErrValidation)
	}
	seen := make(map[string]bool, len(input.Components))
	for _, c := range input.Components {
		if c.FeeType == "" {
			return fmt.Errorf("%w: component fee_type is required", ErrValidation)
		}
		if c.Amount <= 0 {
			return fmt.Errorf("%w: component %s amount must be positive", ErrValidation, c.FeeType)
		}
		if seen[c.FeeType] {
			return fmt.Errorf("%w: duplicate component fee_type %s", ErrValidation, c.FeeType)
		}
		seen[c.FeeType] = true
	}
	if input.DueDay < 1 || input.DueDay > 31 {
		return fmt.Errorf("%w: due_day must be between 1 and 31", ErrValidation)
	}
	if input.LateFeePercentage < 0 || input.LateFeePercentage > 100 {
		return fmt.Errorf("%w: late_fee_percentage must be between 0 and 100", ErrValidation)
	}
	return nil
}

func (s *structureService) Create(ctx context.Context, actor Actor, input *StructureInput) (*models.FeeStructure, error) {
	if input.DueDay == 0 {
		input.DueDay = 10
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	// One active structure per (school, grade, year)
	existing, err := s.repos.Structure.FindActive(ctx, actor.SchoolID, input.Grade, input.AcademicYear)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: an active fee structure already exists for grade %s in %s",
			ErrConflict, input.Grade, input.AcademicYear)
	}

	structure := &models.FeeStructure{
		SchoolID:          actor.SchoolID,
		Grade:             input.Grade,
		AcademicYear:      input.AcademicYear,
		Components:        input.Components,
		DueDay:            input.DueDay,
		LateFeePercentage: input.LateFeePercentage,
		IsActive:          true,
		CreatedByUserID:   actor.ID,
	}

	if err := s.repos.Structure.Create(ctx, structure); err != nil {
		return nil, err
	}

	logger.Log.Info("Fee structure created",
		"structure_id", structure.ID,
		"school_id", actor.SchoolID,
		"grade", structure.Grade,
		"academic_year", structure.AcademicYear)

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionCreate,
		Entity:   "FeeStructure",
		EntityID: structure.ID,
		Details:  structure,
	})

	return structure, nil
}

func (s *structureService) Update(ctx context.Context, actor Actor, id uint, input *StructureInput) (*models.FeeStructure, error) {
	structure, err := s.findScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	hasPaid, err := s.repos.Record.HasPaidRecords(ctx, structure.ID)
	if err != nil {
		return nil, err
	}
	if hasPaid {
		return nil, ErrImmutableStructure
	}

	if input.DueDay == 0 {
		input.DueDay = structure.DueDay
	}
	if input.Grade == "" {
		input.Grade = structure.Grade
	}
	if input.AcademicYear == "" {
		input.AcademicYear = structure.AcademicYear
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	// Changing the scope must not collide with another active structure
	if input.Grade != structure.Grade || input.AcademicYear != structure.AcademicYear {
		existing, err := s.repos.Structure.FindActive(ctx, actor.SchoolID, input.Grade, input.AcademicYear)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != structure.ID {
			return nil, fmt.Errorf("%w: an active fee structure already exists for grade %s in %s",
				ErrConflict, input.Grade, input.AcademicYear)
		}
	}

	structure.Grade = input.Grade
	structure.AcademicYear = input.AcademicYear
	structure.Components = input.Components
	structure.DueDay = input.DueDay
	structure.LateFeePercentage = input.LateFeePercentage

	if err := s.repos.Structure.Update(ctx, structure); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionUpdate,
		Entity:   "FeeStructure",
		EntityID: structure.ID,
		Details:  structure,
	})

	return structure, nil
}

// Deactivate retires a structure. Existing ledgers keep their snapshot; no new
// ledgers can be created from it. Allowed even when payments exist.
func (s *structureService) Deactivate(ctx context.Context, actor Actor, id uint) (*models.FeeStructure, error) {
	structure, err := s.findScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !structure.IsActive {
		return nil, fmt.Errorf("%w: fee structure is already inactive", ErrInvalidState)
	}

	structure.IsActive = false
	if err := s.repos.Structure.Update(ctx, structure); err != nil {
		return nil, err
	}

	logger.Log.Info("Fee structure deactivated",
		"structure_id", structure.ID,
		"school_id", actor.SchoolID)

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionDeactivate,
		Entity:   "FeeStructure",
		EntityID: structure.ID,
	})

	return structure, nil
}

// Clone copies a structure into a new academic year, the normal year-rollover
// path instead of retyping every component.
func (s *structureService) Clone(ctx context.Context, actor Actor, id uint, targetYear string) (*models.FeeStructure, error) {
	source, err := s.findScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseAcademicYear(targetYear); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if targetYear == source.AcademicYear {
		return nil, fmt.Errorf("%w: target academic year must differ from the source", ErrValidation)
	}

	components := make([]models.FeeComponent, len(source.Components))
	copy(components, source.Components)

	return s.Create(ctx, actor, &StructureInput{
		Grade:             source.Grade,
		AcademicYear:      targetYear,
		Components:        components,
		DueDay:            source.DueDay,
		LateFeePercentage: source.LateFeePercentage,
	})
}

func (s *structureService) Get(ctx context.Context, actor Actor, id uint) (*models.FeeStructure, bool, error) {
	structure, err := s.findScoped(ctx, actor, id)
	if err != nil {
		return nil, false, err
	}
	hasPaid, err := s.repos.Record.HasPaidRecords(ctx, structure.ID)
	if err != nil {
		return nil, false, err
	}
	return structure, !hasPaid, nil
}

func (s *structureService) List(ctx context.Context, actor Actor, academicYear string) ([]models.FeeStructure, map[uint]bool, error) {
	structures, err := s.repos.Structure.ListBySchool(ctx, actor.SchoolID, academicYear)
	if err != nil {
		return nil, nil, err
	}
	canModify := make(map[uint]bool, len(structures))
	for i := range structures {
		hasPaid, err := s.repos.Record.HasPaidRecords(ctx, structures[i].ID)
		if err != nil {
			return nil, nil, err
		}
		canModify[structures[i].ID] = !hasPaid
	}
	return structures, canModify, nil
}

func (s *structureService) findScoped(ctx context.Context, actor Actor, id uint) (*models.FeeStructure, error) {
	structure, err := s.repos.Structure.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if structure.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	return structure, nil
}
