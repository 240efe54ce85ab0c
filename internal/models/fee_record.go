package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MonthsPerYear is the fixed number of monthly obligations per academic year
const MonthsPerYear = 12

// Monthly/one-time obligation status constants
const (
	ObligationStatusPending = "pending"
	ObligationStatusPartial = "partial"
	ObligationStatusPaid    = "paid"
	ObligationStatusOverdue = "overdue"
	ObligationStatusWaived  = "waived"
)

// RoundMoney rounds to 2 decimal places. All monetary arithmetic in the
// ledger goes through this so totals stay exactly reconcilable.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// MonthlyPayment is one of the 12 monthly obligations snapshotted into a
// student fee record. Month is the academic month (1-12), an offset from the
// configured academic year start month.
type MonthlyPayment struct {
	Month        int        `json:"month"`
	DueAmount    float64    `json:"due_amount"`
	PaidAmount   float64    `json:"paid_amount"`
	Status       string     `json:"status"`
	DueDate      time.Time  `json:"due_date"`
	PaidDate     *time.Time `json:"paid_date,omitempty"`
	LateFee      float64    `json:"late_fee"`
	Waived       bool       `json:"waived"`
	WaiverReason string     `json:"waiver_reason,omitempty"`
	WaiverByID   *uint      `json:"waiver_by_id,omitempty"`
	WaiverDate   *time.Time `json:"waiver_date,omitempty"`
}

// Outstanding is the amount still collectable on this obligation
// (principal + applied late fee − paid). Waived obligations owe nothing.
func (p *MonthlyPayment) Outstanding() float64 {
	if p.Waived {
		return 0
	}
	return RoundMoney(p.DueAmount + p.LateFee - p.PaidAmount)
}

// ComputeStatus derives the obligation status purely from its fields and the
// clock. The stored Status column is a cache of this and is never trusted.
func (p *MonthlyPayment) ComputeStatus(now time.Time) string {
	if p.Waived {
		return ObligationStatusWaived
	}
	total := RoundMoney(p.DueAmount + p.LateFee)
	switch {
	case total > 0 && p.PaidAmount >= total:
		return ObligationStatusPaid
	case p.PaidAmount > 0:
		return ObligationStatusPartial
	case now.After(p.DueDate):
		return ObligationStatusOverdue
	default:
		return ObligationStatusPending
	}
}

// IsOverdue reports whether the obligation is unpaid (fully or partially)
// past its due date and not waived.
func (p *MonthlyPayment) IsOverdue(now time.Time) bool {
	return !p.Waived && p.Outstanding() > 0 && now.After(p.DueDate)
}

// OneTimeFeePayment is a one-off obligation (admission, caution money, ...)
// carried on the record alongside the monthly schedule. No month dimension,
// no late fee.
type OneTimeFeePayment struct {
	FeeType    string     `json:"fee_type"`
	DueAmount  float64    `json:"due_amount"`
	PaidAmount float64    `json:"paid_amount"`
	Status     string     `json:"status"`
	PaidDate   *time.Time `json:"paid_date,omitempty"`
}

// Outstanding is the amount still collectable on this one-time obligation
func (p *OneTimeFeePayment) Outstanding() float64 {
	return RoundMoney(p.DueAmount - p.PaidAmount)
}

// ComputeStatus derives the one-time obligation status from its amounts
func (p *OneTimeFeePayment) ComputeStatus() string {
	switch {
	case p.DueAmount > 0 && p.PaidAmount >= p.DueAmount:
		return ObligationStatusPaid
	case p.PaidAmount > 0:
		return ObligationStatusPartial
	default:
		return ObligationStatusPending
	}
}

// StudentFeeRecord is the per-student per-academic-year ledger: the fee
// structure expanded into concrete obligations plus running totals. It is the
// unit of concurrency control — every mutation is a version-checked
// read-modify-write, and TotalFeeAmount == TotalPaidAmount + TotalDueAmount
// holds after every committed operation.
type StudentFeeRecord struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	StudentID       uint                `gorm:"not null;uniqueIndex:idx_record_student_year" json:"student_id"`
	AcademicYear    string              `gorm:"not null;uniqueIndex:idx_record_student_year" json:"academic_year"`
	SchoolID        uint                `gorm:"not null;index" json:"school_id"`
	FeeStructureID  uint                `gorm:"not null;index" json:"fee_structure_id"`
	TotalFeeAmount  float64             `gorm:"not null" json:"total_fee_amount"`
	TotalPaidAmount float64             `gorm:"not null;default:0" json:"total_paid_amount"`
	TotalDueAmount  float64             `gorm:"not null" json:"total_due_amount"`
	MonthlyPayments []MonthlyPayment    `gorm:"type:jsonb;serializer:json;not null" json:"monthly_payments"`
	OneTimePayments []OneTimeFeePayment `gorm:"type:jsonb;serializer:json" json:"one_time_payments"`
	Version         int                 `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	// Associations
	Student      Student      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	FeeStructure FeeStructure `gorm:"foreignKey:FeeStructureID" json:"fee_structure,omitempty"`
}

// TableName specifies the table name for StudentFeeRecord
func (StudentFeeRecord) TableName() string {
	return "student_fee_records"
}

// MonthPayment returns the monthly obligation for the given academic month
func (r *StudentFeeRecord) MonthPayment(month int) *MonthlyPayment {
	for i := range r.MonthlyPayments {
		if r.MonthlyPayments[i].Month == month {
			return &r.MonthlyPayments[i]
		}
	}
	return nil
}

// OneTimePayment returns the one-time obligation with the given fee type
func (r *StudentFeeRecord) OneTimePayment(feeType string) *OneTimeFeePayment {
	for i := range r.OneTimePayments {
		if r.OneTimePayments[i].FeeType == feeType {
			return &r.OneTimePayments[i]
		}
	}
	return nil
}

// ApplyPayment credits amount against the record totals
func (r *StudentFeeRecord) ApplyPayment(amount float64) {
	r.TotalPaidAmount = RoundMoney(r.TotalPaidAmount + amount)
	r.TotalDueAmount = RoundMoney(r.TotalDueAmount - amount)
}

// ReversePayment debits amount back out of the record totals
func (r *StudentFeeRecord) ReversePayment(amount float64) {
	r.TotalPaidAmount = RoundMoney(r.TotalPaidAmount - amount)
	r.TotalDueAmount = RoundMoney(r.TotalDueAmount + amount)
}

// RefreshStatuses recomputes every cached obligation status from the clock
func (r *StudentFeeRecord) RefreshStatuses(now time.Time) {
	for i := range r.MonthlyPayments {
		r.MonthlyPayments[i].Status = r.MonthlyPayments[i].ComputeStatus(now)
	}
	for i := range r.OneTimePayments {
		r.OneTimePayments[i].Status = r.OneTimePayments[i].ComputeStatus()
	}
}

// OverdueMonths returns the academic months with a non-waived outstanding
// amount past their due date
func (r *StudentFeeRecord) OverdueMonths(now time.Time) []int {
	var months []int
	for i := range r.MonthlyPayments {
		if r.MonthlyPayments[i].IsOverdue(now) {
			months = append(months, r.MonthlyPayments[i].Month)
		}
	}
	return months
}

// ParseAcademicYear validates a "2025-2026" style academic year and returns
// its starting calendar year.
func ParseAcademicYear(year string) (int, error) {
	parts := strings.Split(year, "-")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid academic year %q, expected e.g. 2025-2026", year)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid academic year %q: %v", year, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil || end != start+1 {
		return 0, fmt.Errorf("invalid academic year %q, years must be consecutive", year)
	}
	return start, nil
}

// PreviousAcademicYear returns the academic year immediately before the given
// one ("2025-2026" -> "2024-2025").
func PreviousAcademicYear(year string) (string, error) {
	start, err := ParseAcademicYear(year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", start-1, start), nil
}

// CurrentAcademicYear derives the academic year containing now, given the
// calendar month academic years start in.
func CurrentAcademicYear(now time.Time, startMonth int) string {
	year := now.Year()
	if int(now.Month()) < startMonth {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

// MonthlyDueDate computes the due date of an academic month (1-12) for an
// academic year starting in startMonth, clamping dueDay to the month length.
func MonthlyDueDate(academicStartYear, startMonth, month, dueDay int) time.Time {
	calMonth := startMonth + month - 1
	year := academicStartYear
	if calMonth > 12 {
		calMonth -= 12
		year++
	}
	lastDay := time.Date(year, time.Month(calMonth)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := dueDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, time.Month(calMonth), day, 0, 0, 0, 0, time.UTC)
}
