package services

import (
	"context"
	"testing"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"github.com/stretchr/testify/assert"
)

func (m *mockTransactionRepo) FindByCollectorSince(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
	return m.mockFindByCollectorSince(ctx, schoolID, collectorID, since)
}

type captureNotificationService struct {
	noopNotificationService
	adminMessages []string
}

func (c *captureNotificationService) NotifySchoolAdmins(ctx context.Context, schoolID uint, title, message, notificationType string) {
	c.adminMessages = append(c.adminMessages, message)
}

func TestDetectSuspiciousPatternsFlagsDuplicates(t *testing.T) {
	txnRepo := &mockTransactionRepo{
		mockFindByCollectorSince: func(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
			return []models.FeeTransaction{
				{TransactionID: "RCPT-2025-A", StudentID: 42, Amount: 500},
				{TransactionID: "RCPT-2025-B", StudentID: 42, Amount: 500},
				{TransactionID: "RCPT-2025-C", StudentID: 43, Amount: 500},
			}, nil
		},
	}
	notifications := &captureNotificationService{}
	svc := NewFraudService(&repository.Repositories{Transaction: txnRepo}, notifications, 1, 20)

	report, err := svc.DetectSuspiciousPatterns(context.Background(), 7, 9, 0)

	assert.NoError(t, err)
	assert.True(t, report.HasSuspiciousPattern)
	assert.Equal(t, 3, report.TotalTransactions)
	assert.Len(t, report.Duplicates, 1)
	assert.Equal(t, uint(42), report.Duplicates[0].StudentID)
	assert.Equal(t, 2, report.Duplicates[0].Count)
	assert.ElementsMatch(t, []string{"RCPT-2025-A", "RCPT-2025-B"}, report.Duplicates[0].TransactionIDs)
	// Admins get told, but nothing is blocked
	assert.Len(t, notifications.adminMessages, 1)
}

func TestDetectSuspiciousPatternsFlagsHighVolume(t *testing.T) {
	txns := make([]models.FeeTransaction, 0, 6)
	for i := 0; i < 6; i++ {
		txns = append(txns, models.FeeTransaction{
			TransactionID: models.NewReceiptNumber(time.Now()),
			StudentID:     uint(100 + i),
			Amount:        float64(100 + i),
		})
	}
	txnRepo := &mockTransactionRepo{
		mockFindByCollectorSince: func(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
			return txns, nil
		},
	}
	svc := NewFraudService(&repository.Repositories{Transaction: txnRepo}, &captureNotificationService{}, 1, 5)

	report, err := svc.DetectSuspiciousPatterns(context.Background(), 7, 9, 0)

	assert.NoError(t, err)
	assert.True(t, report.HasSuspiciousPattern)
	assert.Empty(t, report.Duplicates)
	assert.Len(t, report.Warnings, 1)
}

func TestDetectSuspiciousPatternsCleanCollector(t *testing.T) {
	txnRepo := &mockTransactionRepo{
		mockFindByCollectorSince: func(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
			return []models.FeeTransaction{
				{TransactionID: "RCPT-2025-A", StudentID: 42, Amount: 500},
				{TransactionID: "RCPT-2025-B", StudentID: 43, Amount: 300},
			}, nil
		},
	}
	notifications := &captureNotificationService{}
	svc := NewFraudService(&repository.Repositories{Transaction: txnRepo}, notifications, 1, 20)

	report, err := svc.DetectSuspiciousPatterns(context.Background(), 7, 9, 0)

	assert.NoError(t, err)
	assert.False(t, report.HasSuspiciousPattern)
	assert.Empty(t, report.Warnings)
	assert.Empty(t, notifications.adminMessages)
}

func TestDetectSuspiciousPatternsWindowOverride(t *testing.T) {
	var captured time.Time
	txnRepo := &mockTransactionRepo{
		mockFindByCollectorSince: func(ctx context.Context, schoolID, collectorID uint, since time.Time) ([]models.FeeTransaction, error) {
			captured = since
			return nil, nil
		},
	}
	svc := NewFraudService(&repository.Repositories{Transaction: txnRepo}, &captureNotificationService{}, 1, 20)

	// Configured window is 1h; an explicit 6h override widens the scan
	_, err := svc.DetectSuspiciousPatterns(context.Background(), 7, 9, 6)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-6*time.Hour), captured, time.Minute)

	// Zero falls back to the configured default
	_, err = svc.DetectSuspiciousPatterns(context.Background(), 7, 9, 0)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-1*time.Hour), captured, time.Minute)
}
