package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"gorm.io/gorm"
)

// AuditService records who did what to which entity. Writes are best-effort:
// an audit failure is logged but never fails the audited operation.
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry)
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, int64, error)
}

// AuditEntry is one audited action
type AuditEntry struct {
	UserID    uint
	Action    string
	Entity    string
	EntityID  uint
	Details   interface{}
	IPAddress string
	UserAgent string
}

// Audit action constants
const (
	AuditActionCreate     = "CREATE"
	AuditActionUpdate     = "UPDATE"
	AuditActionDeactivate = "DEACTIVATE"
	AuditActionCollect    = "COLLECT"
	AuditActionWaive      = "WAIVE"
	AuditActionCancel     = "CANCEL"
)

type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) AuditService {
	return &auditService{db: db}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	details := ""
	if entry.Details != nil {
		if b, err := json.Marshal(entry.Details); err == nil {
			details = string(b)
		}
	}

	log := models.AuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		Details:   details,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
		CreatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		logger.Log.Error("Failed to write audit log",
			"action", entry.Action,
			"entity", entry.Entity,
			"entity_id", entry.EntityID,
			"error", err)
	}
}

func (s *auditService) List(ctx context.Context, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, total, err
}
