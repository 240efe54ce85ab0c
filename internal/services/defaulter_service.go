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

// DefaulterService maintains the derived defaulter list. The list is never
// authoritative: every sync recomputes it in full from the student fee
// records, so a dropped table rebuilds itself on the next run.
type DefaulterService interface {
	// SyncDefaultersForSchool recomputes the defaulter rows for one school and
	// academic year. Idempotent: running it twice in a row changes nothing.
	SyncDefaultersForSchool(ctx context.Context, schoolID uint, academicYear string) (*SyncResult, error)
	List(ctx context.Context, actor Actor, query *repository.ListQuery) ([]models.FeeDefaulter, int64, error)
	// SendReminder records a reminder against a defaulter and queues the
	// notification row an external channel delivers.
	SendReminder(ctx context.Context, actor Actor, defaulterID uint) (*models.FeeDefaulter, error)
	// SendDueReminders walks all defaulters whose reminder interval elapsed
	SendDueReminders(ctx context.Context) (int, error)
}

// SyncResult summarizes one defaulter resync run
type SyncResult struct {
	SchoolID     uint   `json:"school_id"`
	AcademicYear string `json:"academic_year"`
	Defaulters   int    `json:"defaulters"`
	Removed      bool   `json:"-"`
}

type defaulterService struct {
	repos                *repository.Repositories
	notifications        NotificationService
	reminderIntervalDays int

	now func() time.Time
}

// NewDefaulterService creates a new defaulter aggregation service
func NewDefaulterService(repos *repository.Repositories, notifications NotificationService, reminderIntervalDays int) DefaulterService {
	return &defaulterService{
		repos:                repos,
		notifications:        notifications,
		reminderIntervalDays: reminderIntervalDays,
		now:                  time.Now,
	}
}

func (s *defaulterService) SyncDefaultersForSchool(ctx context.Context, schoolID uint, academicYear string) (*SyncResult, error) {
	records, err := s.repos.Record.FindBySchoolAndYear(ctx, schoolID, academicYear)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var keep []uint
	for i := range records {
		record := &records[i]
		overdue := record.OverdueMonths(now)
		if len(overdue) == 0 {
			continue
		}

		// Overdue amount counts only months already past due, not the whole
		// remaining year.
		totalDue := 0.0
		var firstDue time.Time
		for _, month := range overdue {
			payment := record.MonthPayment(month)
			totalDue += payment.Outstanding()
			if firstDue.IsZero() || payment.DueDate.Before(firstDue) {
				firstDue = payment.DueDate
			}
		}

		defaulter := &models.FeeDefaulter{
			StudentID:         record.StudentID,
			AcademicYear:      academicYear,
			SchoolID:          schoolID,
			TotalDueAmount:    models.RoundMoney(totalDue),
			OverdueMonths:     overdue,
			DaysSinceFirstDue: int(now.Sub(firstDue).Hours() / 24),
		}
		if err := s.repos.Defaulter.Upsert(ctx, defaulter); err != nil {
			return nil, err
		}
		keep = append(keep, record.StudentID)
	}

	// Students who caught up (or were waived out) drop off the list
	if err := s.repos.Defaulter.DeleteMissing(ctx, schoolID, academicYear, keep); err != nil {
		return nil, err
	}

	logger.Log.Info("Defaulter sync completed",
		"school_id", schoolID,
		"academic_year", academicYear,
		"defaulters", len(keep))

	return &SyncResult{
		SchoolID:     schoolID,
		AcademicYear: academicYear,
		Defaulters:   len(keep),
	}, nil
}

func (s *defaulterService) List(ctx context.Context, actor Actor, query *repository.ListQuery) ([]models.FeeDefaulter, int64, error) {
	return s.repos.Defaulter.List(ctx, actor.SchoolID, query)
}

func (s *defaulterService) SendReminder(ctx context.Context, actor Actor, defaulterID uint) (*models.FeeDefaulter, error) {
	defaulter, err := s.findScoped(ctx, actor, defaulterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !defaulter.IsReminderDue(s.reminderIntervalDays, now) {
		return nil, fmt.Errorf("%w: a reminder was already sent within the last %d days",
			ErrInvalidState, s.reminderIntervalDays)
	}

	defaulter.RecordReminder(now)
	if err := s.repos.Defaulter.Update(ctx, defaulter); err != nil {
		return nil, err
	}

	s.queueReminderNotification(ctx, defaulter)

	logger.Log.Info("Fee reminder recorded",
		"defaulter_id", defaulter.ID,
		"student_id", defaulter.StudentID,
		"reminder_count", defaulter.NotificationCount)

	return defaulter, nil
}

func (s *defaulterService) SendDueReminders(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-time.Duration(s.reminderIntervalDays) * 24 * time.Hour)
	defaulters, err := s.repos.Defaulter.ListReminderDue(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	now := s.now()
	sent := 0
	for i := range defaulters {
		defaulter := &defaulters[i]
		if !defaulter.IsReminderDue(s.reminderIntervalDays, now) {
			continue
		}
		defaulter.RecordReminder(now)
		if err := s.repos.Defaulter.Update(ctx, defaulter); err != nil {
			logger.Log.Error("Failed to record reminder",
				"defaulter_id", defaulter.ID,
				"error", err)
			continue
		}
		s.queueReminderNotification(ctx, defaulter)
		sent++
	}

	if sent > 0 {
		logger.Log.Info("Reminder sweep completed", "sent", sent)
	}
	return sent, nil
}

func (s *defaulterService) queueReminderNotification(ctx context.Context, defaulter *models.FeeDefaulter) {
	name := defaulter.Student.FullName
	if name == "" {
		name = fmt.Sprintf("student %d", defaulter.StudentID)
	}
	s.notifications.NotifySchoolAdmins(ctx, defaulter.SchoolID,
		"Fee reminder",
		fmt.Sprintf("Reminder queued for %s: %.2f overdue across %d month(s).",
			name, defaulter.TotalDueAmount, len(defaulter.OverdueMonths)),
		models.NotificationTypeFeeReminder)
}

func (s *defaulterService) findScoped(ctx context.Context, actor Actor, id uint) (*models.FeeDefaulter, error) {
	defaulter, err := s.repos.Defaulter.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if defaulter.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}
	return defaulter, nil
}
