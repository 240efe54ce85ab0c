package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Student      StudentRepository
	School       SchoolRepository
	Structure    StructureRepository
	Record       RecordRepository
	Transaction  TransactionRepository
	Defaulter    DefaulterRepository
	Notification NotificationRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Student:      NewStudentRepository(db),
		School:       NewSchoolRepository(db),
		Structure:    NewStructureRepository(db),
		Record:       NewRecordRepository(db),
		Transaction:  NewTransactionRepository(db),
		Defaulter:    NewDefaulterRepository(db),
		Notification: NewNotificationRepository(db),
	}
}

// UnitOfWork runs a function against repositories bound to a single database
// transaction. Ledger mutations use it so the record update and the
// transaction-log append commit or roll back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos *Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a gorm-backed UnitOfWork
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(repos *Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
