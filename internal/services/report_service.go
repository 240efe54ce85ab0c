package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"gorm.io/gorm"
)

// ReportService computes financial reporting views. Everything is derived on
// read from the ledgers and the transaction log; nothing here writes.
type ReportService interface {
	FinancialOverview(ctx context.Context, actor Actor, academicYear string) (*FinancialOverview, error)
	DailyCollections(ctx context.Context, actor Actor, academicYear string, from, to time.Time) ([]DailySummary, error)
}

// FinancialOverview is the school-wide picture for one academic year
type FinancialOverview struct {
	AcademicYear   string  `json:"academic_year"`
	TotalStudents  int     `json:"total_students"`
	TotalExpected  float64 `json:"total_expected"`
	TotalCollected float64 `json:"total_collected"`
	TotalPending   float64 `json:"total_pending"`
	TotalOverdue   float64 `json:"total_overdue"`
	TotalWaived    float64 `json:"total_waived"`
	// CollectionRate is collected / expected as a percentage, 0 when nothing
	// is expected.
	CollectionRate   float64          `json:"collection_rate"`
	MonthlyBreakdown []MonthlySummary `json:"monthly_breakdown"`
	GradeBreakdown   []GradeSummary   `json:"grade_breakdown"`
	YearOverYear     *YearComparison  `json:"year_over_year,omitempty"`
}

// MonthlySummary aggregates one academic month across all students
type MonthlySummary struct {
	Month        int     `json:"month"`
	Due          float64 `json:"due"`
	Collected    float64 `json:"collected"`
	Waived       float64 `json:"waived"`
	Outstanding  float64 `json:"outstanding"`
	PaidCount    int     `json:"paid_count"`
	OverdueCount int     `json:"overdue_count"`
}

// GradeSummary aggregates one grade across the year
type GradeSummary struct {
	Grade          string  `json:"grade"`
	Students       int     `json:"students"`
	Expected       float64 `json:"expected"`
	Collected      float64 `json:"collected"`
	Pending        float64 `json:"pending"`
	CollectionRate float64 `json:"collection_rate"`
}

// YearComparison contrasts collections against the previous academic year
type YearComparison struct {
	PreviousYear      string  `json:"previous_year"`
	PreviousCollected float64 `json:"previous_collected"`
	CurrentCollected  float64 `json:"current_collected"`
	GrowthPercent     float64 `json:"growth_percent"`
}

// DailySummary is one day's completed payment volume
type DailySummary struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

type reportService struct {
	repos *repository.Repositories

	now func() time.Time
}

// NewReportService creates a new financial reporting service
func NewReportService(repos *repository.Repositories) ReportService {
	return &reportService{repos: repos, now: time.Now}
}

func (s *reportService) FinancialOverview(ctx context.Context, actor Actor, academicYear string) (*FinancialOverview, error) {
	if _, err := models.ParseAcademicYear(academicYear); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	records, err := s.repos.Record.FindBySchoolAndYear(ctx, actor.SchoolID, academicYear)
	if err != nil {
		return nil, err
	}

	now := s.now()
	overview := &FinancialOverview{
		AcademicYear:  academicYear,
		TotalStudents: len(records),
	}

	monthly := make([]MonthlySummary, models.MonthsPerYear)
	for i := range monthly {
		monthly[i].Month = i + 1
	}
	grades := make(map[string]*GradeSummary)

	for i := range records {
		record := &records[i]
		overview.TotalExpected += record.TotalFeeAmount
		overview.TotalCollected += record.TotalPaidAmount
		overview.TotalPending += record.TotalDueAmount

		grade := record.Student.Grade
		gs, ok := grades[grade]
		if !ok {
			gs = &GradeSummary{Grade: grade}
			grades[grade] = gs
		}
		gs.Students++
		gs.Expected += record.TotalFeeAmount
		gs.Collected += record.TotalPaidAmount
		gs.Pending += record.TotalDueAmount

		for j := range record.MonthlyPayments {
			payment := &record.MonthlyPayments[j]
			m := &monthly[payment.Month-1]
			m.Due += payment.DueAmount + payment.LateFee
			m.Collected += payment.PaidAmount
			if payment.Waived {
				waived := models.RoundMoney(payment.DueAmount + payment.LateFee - payment.PaidAmount)
				m.Waived += waived
				overview.TotalWaived += waived
				continue
			}
			m.Outstanding += payment.Outstanding()
			switch payment.ComputeStatus(now) {
			case models.ObligationStatusPaid:
				m.PaidCount++
			case models.ObligationStatusOverdue, models.ObligationStatusPartial:
				if payment.IsOverdue(now) {
					m.OverdueCount++
					overview.TotalOverdue += payment.Outstanding()
				}
			}
		}
	}

	overview.TotalExpected = models.RoundMoney(overview.TotalExpected)
	overview.TotalCollected = models.RoundMoney(overview.TotalCollected)
	overview.TotalPending = models.RoundMoney(overview.TotalPending)
	overview.TotalOverdue = models.RoundMoney(overview.TotalOverdue)
	overview.TotalWaived = models.RoundMoney(overview.TotalWaived)
	if overview.TotalExpected > 0 {
		overview.CollectionRate = models.RoundMoney(overview.TotalCollected / overview.TotalExpected * 100)
	}

	for i := range monthly {
		monthly[i].Due = models.RoundMoney(monthly[i].Due)
		monthly[i].Collected = models.RoundMoney(monthly[i].Collected)
		monthly[i].Waived = models.RoundMoney(monthly[i].Waived)
		monthly[i].Outstanding = models.RoundMoney(monthly[i].Outstanding)
	}
	overview.MonthlyBreakdown = monthly

	gradeNames := make([]string, 0, len(grades))
	for name := range grades {
		gradeNames = append(gradeNames, name)
	}
	sort.Strings(gradeNames)
	for _, name := range gradeNames {
		gs := grades[name]
		gs.Expected = models.RoundMoney(gs.Expected)
		gs.Collected = models.RoundMoney(gs.Collected)
		gs.Pending = models.RoundMoney(gs.Pending)
		if gs.Expected > 0 {
			gs.CollectionRate = models.RoundMoney(gs.Collected / gs.Expected * 100)
		}
		overview.GradeBreakdown = append(overview.GradeBreakdown, *gs)
	}

	if comparison, err := s.yearOverYear(ctx, actor, academicYear, overview.TotalCollected); err == nil {
		overview.YearOverYear = comparison
	}

	return overview, nil
}

// yearOverYear compares against the previous academic year; absent previous
// data simply omits the section.
func (s *reportService) yearOverYear(ctx context.Context, actor Actor, academicYear string, currentCollected float64) (*YearComparison, error) {
	previousYear, err := models.PreviousAcademicYear(academicYear)
	if err != nil {
		return nil, err
	}
	previousRecords, err := s.repos.Record.FindBySchoolAndYear(ctx, actor.SchoolID, previousYear)
	if err != nil {
		return nil, err
	}
	if len(previousRecords) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	previousCollected := 0.0
	for i := range previousRecords {
		previousCollected += previousRecords[i].TotalPaidAmount
	}
	previousCollected = models.RoundMoney(previousCollected)

	comparison := &YearComparison{
		PreviousYear:      previousYear,
		PreviousCollected: previousCollected,
		CurrentCollected:  currentCollected,
	}
	if previousCollected > 0 {
		comparison.GrowthPercent = models.RoundMoney((currentCollected - previousCollected) / previousCollected * 100)
	}
	return comparison, nil
}

func (s *reportService) DailyCollections(ctx context.Context, actor Actor, academicYear string, from, to time.Time) ([]DailySummary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrValidation)
	}

	txns, err := s.repos.Transaction.FindCompletedBySchoolAndYear(ctx, actor.SchoolID, academicYear)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	buckets := make(map[string]*DailySummary)
	for i := range txns {
		txn := &txns[i]
		if txn.TransactionType != models.TransactionTypePayment {
			continue
		}
		if txn.CreatedAt.Before(from) || txn.CreatedAt.After(to) {
			continue
		}
		day := txn.CreatedAt.Format("2006-01-02")
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailySummary{Date: day}
			buckets[day] = bucket
		}
		bucket.Amount = models.RoundMoney(bucket.Amount + txn.Amount)
		bucket.Count++
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	summaries := make([]DailySummary, 0, len(days))
	for _, day := range days {
		summaries = append(summaries, *buckets[day])
	}
	return summaries, nil
}
