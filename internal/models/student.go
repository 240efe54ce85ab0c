package models

import "time"

// School is a tenant of the platform. Schools are maintained by an external
// directory; fee accounting only reads them.
type School struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for School
func (School) TableName() string {
	return "schools"
}

// Student mirrors the student directory entry that fee records hang off.
// Students are deactivated, never deleted: their ledgers stay behind for
// historical reporting.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SchoolID  uint      `gorm:"not null;index" json:"school_id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Grade     string    `gorm:"not null;index" json:"grade"`
	RollNo    string    `json:"roll_no"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	School School `gorm:"foreignKey:SchoolID" json:"school,omitempty"`
}

// TableName specifies the table name for Student
func (Student) TableName() string {
	return "students"
}
