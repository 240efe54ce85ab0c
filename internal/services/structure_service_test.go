package services

import (
	"context"
	"testing"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type mockStructureRepo struct {
	repository.StructureRepository
	created []*models.FeeStructure
	updated []*models.FeeStructure

	mockFindByID   func(ctx context.Context, id uint) (*models.FeeStructure, error)
	mockFindActive func(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error)
}

func (m *mockStructureRepo) Create(ctx context.Context, structure *models.FeeStructure) error {
	m.created = append(m.created, structure)
	return nil
}

func (m *mockStructureRepo) Update(ctx context.Context, structure *models.FeeStructure) error {
	m.updated = append(m.updated, structure)
	return nil
}

func (m *mockStructureRepo) FindByID(ctx context.Context, id uint) (*models.FeeStructure, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockStructureRepo) FindActive(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error) {
	return m.mockFindActive(ctx, schoolID, grade, academicYear)
}

func (m *mockRecordRepo) HasPaidRecords(ctx context.Context, structureID uint) (bool, error) {
	return m.mockHasPaidRecords(ctx, structureID)
}

func newTestStructure() *models.FeeStructure {
	return &models.FeeStructure{
		ID:           3,
		SchoolID:     7,
		Grade:        "5",
		AcademicYear: "2025-2026",
		Components: []models.FeeComponent{
			{FeeType: "tuition", Amount: 400, IsMandatory: true},
			{FeeType: "transport", Amount: 100},
			{FeeType: "admission", Amount: 1000, IsOneTime: true},
		},
		DueDay:            10,
		LateFeePercentage: 5,
		IsActive:          true,
	}
}

func TestCreateStructureRejectsDuplicateScope(t *testing.T) {
	structureRepo := &mockStructureRepo{
		mockFindActive: func(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error) {
			return newTestStructure(), nil
		},
	}
	svc := NewStructureService(&repository.Repositories{Structure: structureRepo}, noopAuditService{})

	_, err := svc.Create(context.Background(), Actor{ID: 1, SchoolID: 7}, &StructureInput{
		Grade:        "5",
		AcademicYear: "2025-2026",
		Components:   []models.FeeComponent{{FeeType: "tuition", Amount: 400}},
		DueDay:       10,
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, structureRepo.created)
}

func TestCreateStructureValidatesComponents(t *testing.T) {
	structureRepo := &mockStructureRepo{
		mockFindActive: func(ctx context.Context, schoolID uint, grade, academicYear string) (*models.FeeStructure, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	svc := NewStructureService(&repository.Repositories{Structure: structureRepo}, noopAuditService{})
	actor := Actor{ID: 1, SchoolID: 7}

	// Negative amount
	_, err := svc.Create(context.Background(), actor, &StructureInput{
		Grade: "5", AcademicYear: "2025-2026", DueDay: 10,
		Components: []models.FeeComponent{{FeeType: "tuition", Amount: -5}},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Duplicate component type
	_, err = svc.Create(context.Background(), actor, &StructureInput{
		Grade: "5", AcademicYear: "2025-2026", DueDay: 10,
		Components: []models.FeeComponent{
			{FeeType: "tuition", Amount: 400},
			{FeeType: "tuition", Amount: 100},
		},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// No components at all
	_, err = svc.Create(context.Background(), actor, &StructureInput{
		Grade: "5", AcademicYear: "2025-2026", DueDay: 10,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStructureBlockedAfterPayments(t *testing.T) {
	structure := newTestStructure()
	structureRepo := &mockStructureRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.FeeStructure, error) {
			return structure, nil
		},
	}
	recordRepo := &mockRecordRepo{
		mockHasPaidRecords: func(ctx context.Context, structureID uint) (bool, error) {
			return true, nil
		},
	}
	svc := NewStructureService(&repository.Repositories{Structure: structureRepo, Record: recordRepo}, noopAuditService{})

	_, err := svc.Update(context.Background(), Actor{ID: 1, SchoolID: 7}, 3, &StructureInput{
		Grade: "5", AcademicYear: "2025-2026", DueDay: 10,
		Components: []models.FeeComponent{{FeeType: "tuition", Amount: 450}},
	})

	assert.ErrorIs(t, err, ErrImmutableStructure)
	assert.Empty(t, structureRepo.updated)
}

func TestDeactivateAllowedAfterPayments(t *testing.T) {
	structure := newTestStructure()
	structureRepo := &mockStructureRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.FeeStructure, error) {
			return structure, nil
		},
	}
	svc := NewStructureService(&repository.Repositories{Structure: structureRepo}, noopAuditService{})

	updated, err := svc.Deactivate(context.Background(), Actor{ID: 1, SchoolID: 7}, 3)

	assert.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Len(t, structureRepo.updated, 1)

	// Second deactivation is rejected
	_, err = svc.Deactivate(context.Background(), Actor{ID: 1, SchoolID: 7}, 3)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStructureScopedToSchool(t *testing.T) {
	structureRepo := &mockStructureRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.FeeStructure, error) {
			return newTestStructure(), nil
		},
	}
	svc := NewStructureService(&repository.Repositories{Structure: structureRepo}, noopAuditService{})

	_, err := svc.Deactivate(context.Background(), Actor{ID: 1, SchoolID: 99}, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStructureTotals(t *testing.T) {
	structure := newTestStructure()
	assert.Equal(t, 500.0, structure.TotalMonthlyFee())
	assert.Equal(t, 1000.0, structure.TotalOneTimeFee())
	assert.Equal(t, 7000.0, structure.TotalYearlyFee())
}
