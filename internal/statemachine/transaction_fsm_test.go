package statemachine

import (
	"context"
	"testing"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCancelCompletedTransaction(t *testing.T) {
	txn := &models.FeeTransaction{Status: models.TransactionStatusCompleted}
	machine := NewTransactionFSM(txn)

	assert.True(t, machine.Can("cancel"))
	err := machine.Cancel(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, txn.Status)
}

func TestCancelIsOneWay(t *testing.T) {
	txn := &models.FeeTransaction{Status: models.TransactionStatusCancelled}
	machine := NewTransactionFSM(txn)

	err := machine.Cancel(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, txn.Status)

	// No path back to completed either
	assert.False(t, machine.Can("cancel"))
	assert.False(t, machine.Can("refund"))
}

func TestRefundCompletedTransaction(t *testing.T) {
	txn := &models.FeeTransaction{Status: models.TransactionStatusCompleted}
	machine := NewTransactionFSM(txn)

	err := machine.Refund(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRefunded, txn.Status)
}
