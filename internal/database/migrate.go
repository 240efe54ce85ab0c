package database

import (
	"fmt"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// Migrate applies the schema for all fee accounting entities
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.School{},
		&models.User{},
		&models.Student{},
		&models.FeeStructure{},
		&models.StudentFeeRecord{},
		&models.FeeTransaction{},
		&models.FeeDefaulter{},
		&models.AuditLog{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}
