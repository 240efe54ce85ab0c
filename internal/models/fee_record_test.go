package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyPaymentComputeStatus(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payment  MonthlyPayment
		expected string
	}{
		{
			name:     "pending before due date",
			payment:  MonthlyPayment{DueAmount: 500, DueDate: now.AddDate(0, 1, 0)},
			expected: ObligationStatusPending,
		},
		{
			name:     "overdue after due date with nothing paid",
			payment:  MonthlyPayment{DueAmount: 500, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusOverdue,
		},
		{
			name:     "partial when some is paid",
			payment:  MonthlyPayment{DueAmount: 500, PaidAmount: 200, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusPartial,
		},
		{
			name:     "paid when principal is covered",
			payment:  MonthlyPayment{DueAmount: 500, PaidAmount: 500, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusPaid,
		},
		{
			name:     "not paid until late fee is also covered",
			payment:  MonthlyPayment{DueAmount: 500, LateFee: 25, PaidAmount: 500, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusPartial,
		},
		{
			name:     "paid when principal plus late fee is covered",
			payment:  MonthlyPayment{DueAmount: 500, LateFee: 25, PaidAmount: 525, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusPaid,
		},
		{
			name:     "waived wins over everything",
			payment:  MonthlyPayment{DueAmount: 500, PaidAmount: 500, Waived: true, DueDate: now.AddDate(0, -1, 0)},
			expected: ObligationStatusWaived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.payment.ComputeStatus(now))
		})
	}
}

func TestMonthlyPaymentOutstanding(t *testing.T) {
	payment := MonthlyPayment{DueAmount: 500, LateFee: 25, PaidAmount: 200}
	assert.Equal(t, 325.0, payment.Outstanding())

	payment.Waived = true
	assert.Equal(t, 0.0, payment.Outstanding())
}

func TestRecordTotalsStayReconcilable(t *testing.T) {
	record := StudentFeeRecord{
		TotalFeeAmount: 6000,
		TotalDueAmount: 6000,
	}

	record.ApplyPayment(1250.55)
	assert.Equal(t, 1250.55, record.TotalPaidAmount)
	assert.Equal(t, 4749.45, record.TotalDueAmount)
	assert.Equal(t, record.TotalFeeAmount, RoundMoney(record.TotalPaidAmount+record.TotalDueAmount))

	record.ReversePayment(1250.55)
	assert.Equal(t, 0.0, record.TotalPaidAmount)
	assert.Equal(t, 6000.0, record.TotalDueAmount)
}

func TestOverdueMonths(t *testing.T) {
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	record := StudentFeeRecord{
		MonthlyPayments: []MonthlyPayment{
			{Month: 1, DueAmount: 500, DueDate: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)},
			{Month: 2, DueAmount: 500, PaidAmount: 500, DueDate: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)},
			{Month: 3, DueAmount: 500, Waived: true, DueDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
			{Month: 4, DueAmount: 500, PaidAmount: 100, DueDate: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)},
			{Month: 5, DueAmount: 500, DueDate: time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)},
		},
	}

	assert.Equal(t, []int{1, 4}, record.OverdueMonths(now))
}

func TestParseAcademicYear(t *testing.T) {
	start, err := ParseAcademicYear("2025-2026")
	assert.NoError(t, err)
	assert.Equal(t, 2025, start)

	_, err = ParseAcademicYear("2025")
	assert.Error(t, err)

	_, err = ParseAcademicYear("2025-2027")
	assert.Error(t, err)

	_, err = ParseAcademicYear("abcd-efgh")
	assert.Error(t, err)
}

func TestPreviousAcademicYear(t *testing.T) {
	previous, err := PreviousAcademicYear("2025-2026")
	assert.NoError(t, err)
	assert.Equal(t, "2024-2025", previous)
}

func TestCurrentAcademicYear(t *testing.T) {
	// Academic year starting in April
	assert.Equal(t, "2025-2026", CurrentAcademicYear(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 4))
	assert.Equal(t, "2024-2025", CurrentAcademicYear(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), 4))
	assert.Equal(t, "2025-2026", CurrentAcademicYear(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), 4))
}

func TestMonthlyDueDate(t *testing.T) {
	// Month 1 of a 2025-2026 year starting in April is April 2025
	due := MonthlyDueDate(2025, 4, 1, 10)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), due)

	// Month 10 wraps into the next calendar year
	due = MonthlyDueDate(2025, 4, 10, 10)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), due)

	// Due day clamps to the month length (Feb 2026 has 28 days)
	due = MonthlyDueDate(2025, 4, 11, 31)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), due)
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 0.3, RoundMoney(0.1+0.2))
	assert.Equal(t, 525.0, RoundMoney(500*1.05))
	assert.Equal(t, 33.33, RoundMoney(100.0/3))
}
