package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"
)

// FraudService inspects a collector's recent activity for suspicious
// patterns. It is strictly advisory: findings surface as warnings and admin
// notifications, never as a rejected collection.
type FraudService interface {
	// DetectSuspiciousPatterns scans the collector's trailing window of
	// completed collections. windowHours overrides the configured window when
	// positive; zero or negative falls back to the default.
	DetectSuspiciousPatterns(ctx context.Context, schoolID, collectorID uint, windowHours int) (*FraudReport, error)
}

// FraudReport is the advisory result of a pattern scan
type FraudReport struct {
	HasSuspiciousPattern bool             `json:"has_suspicious_pattern"`
	TotalTransactions    int              `json:"total_transactions"`
	Duplicates           []DuplicateGroup `json:"duplicates,omitempty"`
	Warnings             []string         `json:"warnings,omitempty"`
}

// DuplicateGroup is a set of same-student same-amount collections inside the
// detection window
type DuplicateGroup struct {
	StudentID      uint     `json:"student_id"`
	Amount         float64  `json:"amount"`
	Count          int      `json:"count"`
	TransactionIDs []string `json:"transaction_ids"`
}

type fraudService struct {
	repos           *repository.Repositories
	notifications   NotificationService
	windowHours     int
	maxTransactions int
}

// NewFraudService creates a new fraud detection service
func NewFraudService(repos *repository.Repositories, notifications NotificationService, windowHours, maxTransactions int) FraudService {
	return &fraudService{
		repos:           repos,
		notifications:   notifications,
		windowHours:     windowHours,
		maxTransactions: maxTransactions,
	}
}

func (s *fraudService) DetectSuspiciousPatterns(ctx context.Context, schoolID, collectorID uint, windowHours int) (*FraudReport, error) {
	window := s.windowHours
	if windowHours > 0 {
		window = windowHours
	}
	since := time.Now().Add(-time.Duration(window) * time.Hour)
	txns, err := s.repos.Transaction.FindByCollectorSince(ctx, schoolID, collectorID, since)
	if err != nil {
		return nil, err
	}

	report := &FraudReport{TotalTransactions: len(txns)}

	// Same student, same amount, more than once inside the window
	type key struct {
		studentID uint
		amount    float64
	}
	groups := make(map[key][]string)
	for _, txn := range txns {
		k := key{studentID: txn.StudentID, amount: txn.Amount}
		groups[k] = append(groups[k], txn.TransactionID)
	}
	for k, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		report.Duplicates = append(report.Duplicates, DuplicateGroup{
			StudentID:      k.studentID,
			Amount:         k.amount,
			Count:          len(ids),
			TransactionIDs: ids,
		})
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d collections of %.2f for student %d within the last %dh",
				len(ids), k.amount, k.studentID, window))
	}

	if len(txns) > s.maxTransactions {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("collector recorded %d transactions within the last %dh (threshold %d)",
				len(txns), window, s.maxTransactions))
	}

	report.HasSuspiciousPattern = len(report.Warnings) > 0

	if report.HasSuspiciousPattern {
		logger.Log.Warn("Suspicious collection pattern detected",
			"school_id", schoolID,
			"collector_id", collectorID,
			"transactions", report.TotalTransactions,
			"duplicate_groups", len(report.Duplicates))

		s.notifications.NotifySchoolAdmins(ctx, schoolID,
			"Suspicious collection activity",
			fmt.Sprintf("Collector %d: %d transactions in the last %dh, %d duplicate pattern(s). Review recent receipts.",
				collectorID, report.TotalTransactions, window, len(report.Duplicates)),
			models.NotificationTypeSuspiciousActivity)
	}

	return report, nil
}
