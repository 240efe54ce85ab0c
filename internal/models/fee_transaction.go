package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FeeTransaction is one money-moving event against a student fee record. The
// log is append-only: amount and type are never edited after insert, and the
// only legal status change is completed -> cancelled with cancellation
// metadata. Corrections are new transactions, never field mutations.
type FeeTransaction struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// TransactionID is the human-referenceable receipt number printed on
	// receipts and quoted in cancellations.
	TransactionID      string  `gorm:"uniqueIndex;not null" json:"transaction_id"`
	StudentFeeRecordID uint    `gorm:"not null;index" json:"student_fee_record_id"`
	StudentID          uint    `gorm:"not null;index" json:"student_id"`
	SchoolID           uint    `gorm:"not null;index" json:"school_id"`
	AcademicYear       string  `gorm:"not null;index" json:"academic_year"`
	TransactionType    string  `gorm:"not null;index" json:"transaction_type"`
	Amount             float64 `gorm:"not null" json:"amount"`
	PaymentMethod      string  `gorm:"not null" json:"payment_method"`
	// Month is set for monthly payment/refund/waiver/penalty entries,
	// FeeType for one-time fee entries.
	Month              *int       `json:"month,omitempty"`
	FeeType            *string    `json:"fee_type,omitempty"`
	Status             string     `gorm:"not null;index;default:completed" json:"status"`
	Remarks            *string    `json:"remarks,omitempty"`
	CollectedByUserID  uint       `gorm:"not null;index" json:"collected_by_user_id"`
	IPAddress          string     `gorm:"size:45" json:"ip_address,omitempty"`
	DeviceInfo         string     `gorm:"size:255" json:"device_info,omitempty"`
	CancelledByUserID  *uint      `json:"cancelled_by_user_id,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Associations
	Record          StudentFeeRecord `gorm:"foreignKey:StudentFeeRecordID" json:"-"`
	Student         Student          `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	CollectedByUser User             `gorm:"foreignKey:CollectedByUserID" json:"collected_by_user,omitempty"`
}

// TableName specifies the table name for FeeTransaction
func (FeeTransaction) TableName() string {
	return "fee_transactions"
}

// Transaction type constants. Refunds are stored as a positive magnitude;
// the type carries the direction.
const (
	TransactionTypePayment = "payment"
	TransactionTypeRefund  = "refund"
	TransactionTypeWaiver  = "waiver"
	TransactionTypePenalty = "penalty"
)

// Transaction status constants
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusRefunded  = "refunded"
)

// NewReceiptNumber generates a human-referenceable receipt number
func NewReceiptNumber(now time.Time) string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("RCPT-%d-%s", now.Year(), frag)
}

// MayCancel returns true if the transaction is in a cancellable status
func (t *FeeTransaction) MayCancel() bool {
	return t.Status == TransactionStatusCompleted
}

// CanBeCancelled applies the cancellation business rule: the transaction is
// completed and still within the configured cancellation window. Ordering
// against newer transactions on the same obligation is checked by the
// collection engine, which can see the rest of the log.
func (t *FeeTransaction) CanBeCancelled(window time.Duration, now time.Time) bool {
	return t.MayCancel() && now.Sub(t.CreatedAt) <= window
}

// FeeTransactionResponse is the JSON response format for transactions
type FeeTransactionResponse struct {
	ID                 uint       `json:"id"`
	TransactionID      string     `json:"transaction_id"`
	StudentID          uint       `json:"student_id"`
	StudentName        string     `json:"student_name,omitempty"`
	AcademicYear       string     `json:"academic_year"`
	TransactionType    string     `json:"transaction_type"`
	Amount             float64    `json:"amount"`
	PaymentMethod      string     `json:"payment_method"`
	Month              *int       `json:"month,omitempty"`
	FeeType            *string    `json:"fee_type,omitempty"`
	Status             string     `json:"status"`
	Remarks            *string    `json:"remarks,omitempty"`
	CollectedBy        string     `json:"collected_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToResponse converts FeeTransaction to FeeTransactionResponse
func (t *FeeTransaction) ToResponse() FeeTransactionResponse {
	resp := FeeTransactionResponse{
		ID:                 t.ID,
		TransactionID:      t.TransactionID,
		StudentID:          t.StudentID,
		AcademicYear:       t.AcademicYear,
		TransactionType:    t.TransactionType,
		Amount:             t.Amount,
		PaymentMethod:      t.PaymentMethod,
		Month:              t.Month,
		FeeType:            t.FeeType,
		Status:             t.Status,
		Remarks:            t.Remarks,
		CancelledAt:        t.CancelledAt,
		CancellationReason: t.CancellationReason,
		CreatedAt:          t.CreatedAt,
	}
	if t.Student.ID != 0 {
		resp.StudentName = t.Student.FullName
	}
	if t.CollectedByUser.ID != 0 {
		resp.CollectedBy = t.CollectedByUser.FullName
	}
	return resp
}
