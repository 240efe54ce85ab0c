package services

import (
	"context"
	"errors"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"gorm.io/gorm"
)

// NotificationService manages in-app notifications. Delivery to outside
// channels (SMS, push) is owned by a separate consumer of these rows.
type NotificationService interface {
	Notify(ctx context.Context, userID uint, title, message, notificationType string)
	NotifySchoolAdmins(ctx context.Context, schoolID uint, title, message, notificationType string)
	ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID uint) error
	MarkAllAsRead(ctx context.Context, userID uint) error
}

type notificationService struct {
	repos *repository.Repositories
}

// NewNotificationService creates a new notification service
func NewNotificationService(repos *repository.Repositories) NotificationService {
	return &notificationService{repos: repos}
}

// Notify writes a notification for one user. Best-effort: failures are logged
// and never propagate into the operation that triggered the notification.
func (s *notificationService) Notify(ctx context.Context, userID uint, title, message, notificationType string) {
	notification := &models.Notification{
		UserID:           userID,
		Title:            title,
		Message:          message,
		NotificationType: &notificationType,
	}
	if err := s.repos.Notification.Create(ctx, notification); err != nil {
		logger.Log.Error("Failed to create notification",
			"user_id", userID,
			"type", notificationType,
			"error", err)
	}
}

// NotifySchoolAdmins fans a notification out to every active admin of a school
func (s *notificationService) NotifySchoolAdmins(ctx context.Context, schoolID uint, title, message, notificationType string) {
	admins, err := s.repos.User.FindAdminsBySchool(ctx, schoolID)
	if err != nil {
		logger.Log.Error("Failed to look up school admins for notification",
			"school_id", schoolID,
			"error", err)
		return
	}
	for _, admin := range admins {
		s.Notify(ctx, admin.ID, title, message, notificationType)
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	return s.repos.Notification.FindByUser(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID uint) error {
	notification, err := s.repos.Notification.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if notification.UserID != userID {
		return ErrNotFound
	}
	if notification.IsRead() {
		return nil
	}
	notification.MarkAsRead()
	return s.repos.Notification.Update(ctx, notification)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uint) error {
	return s.repos.Notification.MarkAllAsRead(ctx, userID)
}
