package repository

import (
	"context"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines data access for actors (school staff)
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAdminsBySchool(ctx context.Context, schoolID uint) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAdminsBySchool(ctx context.Context, schoolID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND role = ? AND active = ?", schoolID, models.RoleAdmin, true).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// StudentRepository defines read access to the student directory mirror
type StudentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Student, error)
	FindActiveBySchool(ctx context.Context, schoolID uint) ([]models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) FindByID(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepository) FindActiveBySchool(ctx context.Context, schoolID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND active = ?", schoolID, true).
		Find(&students).Error
	return students, err
}

// SchoolRepository defines read access to the school directory mirror
type SchoolRepository interface {
	FindByID(ctx context.Context, id uint) (*models.School, error)
	ListActive(ctx context.Context) ([]models.School, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) FindByID(ctx context.Context, id uint) (*models.School, error) {
	var school models.School
	if err := r.db.WithContext(ctx).First(&school, id).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *schoolRepository) ListActive(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&schools).Error
	return schools, err
}

// NotificationRepository defines data access for in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	FindByID(ctx context.Context, id uint) (*models.Notification, error)
	Update(ctx context.Context, notification *models.Notification) error
	MarkAllAsRead(ctx context.Context, userID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", gorm.Expr("NOW()")).Error
}
