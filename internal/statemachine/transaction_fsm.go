package statemachine

import (
	"context"
	"fmt"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/looplab/fsm"
)

// TransactionFSM wraps a fee transaction with its state machine. The log is
// append-only, so the machine only ever moves forward: a completed
// transaction can be cancelled or refunded, nothing comes back.
type TransactionFSM struct {
	txn *models.FeeTransaction
	fsm *fsm.FSM
}

// NewTransactionFSM creates a new fee transaction state machine
func NewTransactionFSM(txn *models.FeeTransaction) *TransactionFSM {
	tfsm := &TransactionFSM{
		txn: txn,
	}

	tfsm.fsm = fsm.NewFSM(
		txn.Status,
		fsm.Events{
			// completed → cancelled (one-way)
			{Name: "cancel", Src: []string{models.TransactionStatusCompleted}, Dst: models.TransactionStatusCancelled},

			// completed → refunded
			{Name: "refund", Src: []string{models.TransactionStatusCompleted}, Dst: models.TransactionStatusRefunded},
		},
		fsm.Callbacks{},
	)

	return tfsm
}

// Cancel transitions the transaction to cancelled state
func (t *TransactionFSM) Cancel(ctx context.Context) error {
	if !t.txn.MayCancel() {
		return fmt.Errorf("transaction cannot be cancelled in current state: %s", t.txn.Status)
	}

	if err := t.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel transaction: %w", err)
	}

	t.txn.Status = t.fsm.Current()
	return nil
}

// Refund transitions the transaction to refunded state
func (t *TransactionFSM) Refund(ctx context.Context) error {
	if err := t.fsm.Event(ctx, "refund"); err != nil {
		return fmt.Errorf("failed to refund transaction: %w", err)
	}

	t.txn.Status = t.fsm.Current()
	return nil
}

// Current returns the current state
func (t *TransactionFSM) Current() string {
	return t.fsm.Current()
}

// Can checks if a transition is possible
func (t *TransactionFSM) Can(event string) bool {
	return t.fsm.Can(event)
}
