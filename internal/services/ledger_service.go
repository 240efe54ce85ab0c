package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"gorm.io/gorm"
)

// LedgerService manages student fee records: the enrollment-time expansion of
// a fee structure into twelve monthly obligations plus one-time fees, and the
// read side of a student's fee status.
type LedgerService interface {
	// CreateFromStructure snapshots the active structure for the student's
	// grade into a new record. One record per (student, academic year).
	CreateFromStructure(ctx context.Context, actor Actor, studentID uint, academicYear string) (*models.StudentFeeRecord, error)
	GetStudentFeeStatus(ctx context.Context, actor Actor, studentID uint, academicYear string) (*models.StudentFeeRecord, error)
	GetRecord(ctx context.Context, actor Actor, recordID uint) (*models.StudentFeeRecord, error)
}

type ledgerService struct {
	repos      *repository.Repositories
	audit      AuditService
	startMonth int
}

// NewLedgerService creates a new student fee ledger service
func NewLedgerService(repos *repository.Repositories, audit AuditService, academicYearStartMonth int) LedgerService {
	return &ledgerService{
		repos:      repos,
		audit:      audit,
		startMonth: academicYearStartMonth,
	}
}

func (s *ledgerService) CreateFromStructure(ctx context.Context, actor Actor, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
	startYear, err := models.ParseAcademicYear(academicYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	student, err := s.repos.Student.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if student.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	if !student.Active {
		return nil, fmt.Errorf("%w: student is not active", ErrValidation)
	}

	// One ledger per student per year
	if _, err := s.repos.Record.FindByStudentAndYear(ctx, studentID, academicYear); err == nil {
		return nil, fmt.Errorf("%w: fee record already exists for student %d in %s",
			ErrConflict, studentID, academicYear)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	structure, err := s.repos.Structure.FindActive(ctx, actor.SchoolID, student.Grade, academicYear)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active fee structure for grade %s in %s",
				ErrNotFound, student.Grade, academicYear)
		}
		return nil, err
	}

	record := buildRecord(student, structure, academicYear, startYear, s.startMonth, time.Now())

	if err := s.repos.Record.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Log.Info("Student fee record created",
		"record_id", record.ID,
		"student_id", studentID,
		"academic_year", academicYear,
		"total_fee", record.TotalFeeAmount)

	s.audit.Record(ctx, AuditEntry{
		UserID:   actor.ID,
		Action:   AuditActionCreate,
		Entity:   "StudentFeeRecord",
		EntityID: record.ID,
		Details: map[string]interface{}{
			"student_id":       studentID,
			"academic_year":    academicYear,
			"fee_structure_id": structure.ID,
			"total_fee_amount": record.TotalFeeAmount,
		},
	})

	return record, nil
}

// buildRecord expands a fee structure into the concrete obligation schedule.
// The snapshot is complete: later structure edits never touch existing records.
func buildRecord(student *models.Student, structure *models.FeeStructure, academicYear string, startYear, startMonth int, now time.Time) *models.StudentFeeRecord {
	monthlyFee := structure.TotalMonthlyFee()

	monthly := make([]models.MonthlyPayment, 0, models.MonthsPerYear)
	for month := 1; month <= models.MonthsPerYear; month++ {
		payment := models.MonthlyPayment{
			Month:     month,
			DueAmount: monthlyFee,
			DueDate:   models.MonthlyDueDate(startYear, startMonth, month, structure.DueDay),
		}
		payment.Status = payment.ComputeStatus(now)
		monthly = append(monthly, payment)
	}

	var oneTime []models.OneTimeFeePayment
	for _, c := range structure.Components {
		if !c.IsOneTime {
			continue
		}
		oneTime = append(oneTime, models.OneTimeFeePayment{
			FeeType:   c.FeeType,
			DueAmount: models.RoundMoney(c.Amount),
			Status:    models.ObligationStatusPending,
		})
	}

	total := structure.TotalYearlyFee()
	return &models.StudentFeeRecord{
		StudentID:       student.ID,
		AcademicYear:    academicYear,
		SchoolID:        student.SchoolID,
		FeeStructureID:  structure.ID,
		TotalFeeAmount:  total,
		TotalDueAmount:  total,
		MonthlyPayments: monthly,
		OneTimePayments: oneTime,
		Version:         1,
	}
}

// GetStudentFeeStatus returns the record with every obligation status freshly
// derived from the clock. Stored statuses are a cache; reads never trust them.
func (s *ledgerService) GetStudentFeeStatus(ctx context.Context, actor Actor, studentID uint, academicYear string) (*models.StudentFeeRecord, error) {
	record, err := s.repos.Record.FindByStudentAndYear(ctx, studentID, academicYear)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	record.RefreshStatuses(time.Now())
	return record, nil
}

func (s *ledgerService) GetRecord(ctx context.Context, actor Actor, recordID uint) (*models.StudentFeeRecord, error) {
	record, err := s.repos.Record.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	record.RefreshStatuses(time.Now())
	return record, nil
}
