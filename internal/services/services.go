package services

import (
	"github.com/Kabir-17/schoolmanagement-sub003/internal/config"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"gorm.io/gorm"
)

// Services bundles every service for dependency injection into handlers
type Services struct {
	Auth         AuthService
	Structure    StructureService
	Ledger       LedgerService
	Collection   CollectionService
	Fraud        FraudService
	Defaulter    DefaulterService
	Report       ReportService
	Export       ExportService
	Audit        AuditService
	Notification NotificationService
}

// NewServices wires all services against the shared repositories
func NewServices(db *gorm.DB, repos *repository.Repositories, cfg *config.Config) *Services {
	audit := NewAuditService(db)
	notifications := NewNotificationService(repos)
	fraud := NewFraudService(repos, notifications, cfg.FraudWindowHours, cfg.FraudMaxTransactions)
	uow := repository.NewUnitOfWork(db)
	reports := NewReportService(repos)

	return &Services{
		Auth:         NewAuthService(repos, cfg.JWTSecret, cfg.JWTExpirationHours),
		Structure:    NewStructureService(repos, audit),
		Ledger:       NewLedgerService(repos, audit, cfg.AcademicYearStartMonth),
		Collection:   NewCollectionService(repos, uow, fraud, audit, notifications, cfg.CancellationWindowHours),
		Fraud:        fraud,
		Defaulter:    NewDefaulterService(repos, notifications, cfg.ReminderIntervalDays),
		Report:       reports,
		Export:       NewExportService(repos, reports),
		Audit:        audit,
		Notification: notifications,
	}
}
