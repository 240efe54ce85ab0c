package models

import "time"

// FeeDefaulter is a derived row materialized by the periodic sync: one per
// (student, academic year) with at least one overdue, non-waived obligation.
// Never authoritative — always recomputable from the student fee records,
// safe to drop and rebuild.
type FeeDefaulter struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	StudentID         uint       `gorm:"not null;uniqueIndex:idx_defaulter_student_year" json:"student_id"`
	AcademicYear      string     `gorm:"not null;uniqueIndex:idx_defaulter_student_year" json:"academic_year"`
	SchoolID          uint       `gorm:"not null;index" json:"school_id"`
	TotalDueAmount    float64    `gorm:"not null" json:"total_due_amount"`
	OverdueMonths     []int      `gorm:"type:jsonb;serializer:json" json:"overdue_months"`
	DaysSinceFirstDue int        `gorm:"not null" json:"days_since_first_due"`
	LastReminderDate  *time.Time `json:"last_reminder_date,omitempty"`
	NotificationCount int        `gorm:"not null;default:0" json:"notification_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Associations
	Student Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName specifies the table name for FeeDefaulter
func (FeeDefaulter) TableName() string {
	return "fee_defaulters"
}

// IsReminderDue reports whether at least intervalDays have passed since the
// last reminder (or none was ever sent).
func (d *FeeDefaulter) IsReminderDue(intervalDays int, now time.Time) bool {
	if d.LastReminderDate == nil {
		return true
	}
	return now.Sub(*d.LastReminderDate) >= time.Duration(intervalDays)*24*time.Hour
}

// RecordReminder stamps a sent reminder
func (d *FeeDefaulter) RecordReminder(now time.Time) {
	d.LastReminderDate = &now
	d.NotificationCount++
}
