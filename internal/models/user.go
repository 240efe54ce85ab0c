package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an authenticated actor (school staff). The wider platform owns user
// management; this service only needs identity, role and school scope.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SchoolID     uint       `gorm:"not null;index" json:"school_id"`
	FullName     string     `gorm:"not null" json:"full_name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"not null;index" json:"role"`
	Active       bool       `gorm:"default:true" json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Role constants
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
)

// SetPassword hashes and stores the given password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies the given password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsAdmin returns true for admin users
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
