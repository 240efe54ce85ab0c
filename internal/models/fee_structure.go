package models

import (
	"time"
)

// FeeComponent is one line of a fee structure (e.g. tuition, transport,
// admission). One-time components are charged once per academic year instead
// of monthly.
type FeeComponent struct {
	FeeType     string  `json:"fee_type"`
	Amount      float64 `json:"amount"`
	IsMandatory bool    `json:"is_mandatory"`
	IsOneTime   bool    `json:"is_one_time"`
	Description string  `json:"description,omitempty"`
}

// FeeStructure is the per school/grade/academic-year template defining what a
// student owes. At most one active structure may exist per
// (school, grade, academic_year). Structures are deactivated, never deleted:
// student fee records keep referencing the snapshot they were created from.
type FeeStructure struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SchoolID     uint           `gorm:"not null;index:idx_structure_scope" json:"school_id"`
	Grade        string         `gorm:"not null;index:idx_structure_scope" json:"grade"`
	AcademicYear string         `gorm:"not null;index:idx_structure_scope" json:"academic_year"`
	Components   []FeeComponent `gorm:"type:jsonb;serializer:json;not null" json:"components"`
	// DueDay is the day-of-month (1-31) each monthly obligation falls due.
	// Months shorter than DueDay clamp to their last day.
	DueDay            int       `gorm:"not null;default:10" json:"due_day"`
	LateFeePercentage float64   `gorm:"not null;default:0" json:"late_fee_percentage"`
	IsActive          bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByUserID   uint      `json:"created_by_user_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Associations
	School School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
}

// TableName specifies the table name for FeeStructure
func (FeeStructure) TableName() string {
	return "fee_structures"
}

// TotalMonthlyFee is the sum of recurring component amounts
func (s *FeeStructure) TotalMonthlyFee() float64 {
	total := 0.0
	for _, c := range s.Components {
		if !c.IsOneTime {
			total += c.Amount
		}
	}
	return RoundMoney(total)
}

// TotalOneTimeFee is the sum of one-time component amounts
func (s *FeeStructure) TotalOneTimeFee() float64 {
	total := 0.0
	for _, c := range s.Components {
		if c.IsOneTime {
			total += c.Amount
		}
	}
	return RoundMoney(total)
}

// TotalYearlyFee is the full yearly obligation snapshotted into a ledger
func (s *FeeStructure) TotalYearlyFee() float64 {
	return RoundMoney(s.TotalMonthlyFee()*MonthsPerYear + s.TotalOneTimeFee())
}

// FeeStructureResponse is the JSON response format for fee structures
type FeeStructureResponse struct {
	ID                uint           `json:"id"`
	SchoolID          uint           `json:"school_id"`
	Grade             string         `json:"grade"`
	AcademicYear      string         `json:"academic_year"`
	Components        []FeeComponent `json:"components"`
	DueDay            int            `json:"due_day"`
	LateFeePercentage float64        `json:"late_fee_percentage"`
	IsActive          bool           `json:"is_active"`
	TotalMonthlyFee   float64        `json:"total_monthly_fee"`
	TotalOneTimeFee   float64        `json:"total_one_time_fee"`
	TotalYearlyFee    float64        `json:"total_yearly_fee"`
	CanModify         bool           `json:"can_modify"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ToResponse converts FeeStructure to FeeStructureResponse. canModify is
// resolved by the service against snapshotted ledgers.
func (s *FeeStructure) ToResponse(canModify bool) FeeStructureResponse {
	return FeeStructureResponse{
		ID:                s.ID,
		SchoolID:          s.SchoolID,
		Grade:             s.Grade,
		AcademicYear:      s.AcademicYear,
		Components:        s.Components,
		DueDay:            s.DueDay,
		LateFeePercentage: s.LateFeePercentage,
		IsActive:          s.IsActive,
		TotalMonthlyFee:   s.TotalMonthlyFee(),
		TotalOneTimeFee:   s.TotalOneTimeFee(),
		TotalYearlyFee:    s.TotalYearlyFee(),
		CanModify:         canModify,
		CreatedAt:         s.CreatedAt,
	}
}
