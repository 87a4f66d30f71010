package repository

import (
	"context"
	"testing"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createIssueTxn(t *testing.T, repo *TransactionRepository, customerID, total, paid int64, bottleIDs []int64) *model.Transaction {
	txn, err := repo.Create(context.Background(), &model.Transaction{
		Kind:        model.TransactionKindIssue,
		CustomerID:  &customerID,
		TotalAmount: total,
		AmountPaid:  paid,
		Outstanding: total - paid,
		Status:      model.StatusFor(total, paid),
		BottleIDs:   bottleIDs,
	})
	require.NoError(t, err)
	return txn
}

func TestTransactionRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	t.Run("persists bottle links", func(t *testing.T) {
		created := createIssueTxn(t, repo, 1, 300_000, 100_000, []int64{10, 11})

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPartial, got.Status)
		assert.ElementsMatch(t, []int64{10, 11}, got.BottleIDs)
		assert.Equal(t, got.TotalAmount, got.AmountPaid+got.Outstanding)
	})

	t.Run("split must add up", func(t *testing.T) {
		customerID := int64(1)
		_, err := repo.Create(ctx, &model.Transaction{
			Kind:        model.TransactionKindIssue,
			CustomerID:  &customerID,
			TotalAmount: 100,
			AmountPaid:  30,
			Outstanding: 80,
			Status:      model.PaymentStatusPartial,
		})
		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTransactionRepository_ListUnpaidByCustomer(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	oldest := createIssueTxn(t, repo, 1, 100_000, 0, nil)
	createIssueTxn(t, repo, 1, 200_000, 200_000, nil) // fully paid, excluded
	newest := createIssueTxn(t, repo, 1, 300_000, 50_000, nil)
	createIssueTxn(t, repo, 2, 400_000, 0, nil) // other customer

	unpaid, err := repo.ListUnpaidByCustomer(ctx, 1)
	require.NoError(t, err)
	require.Len(t, unpaid, 2)
	// Oldest first: payments are allocated in this order.
	assert.Equal(t, oldest.ID, unpaid[0].ID)
	assert.Equal(t, newest.ID, unpaid[1].ID)
}

func TestTransactionRepository_ReduceOutstanding(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	txn := createIssueTxn(t, repo, 1, 300_000, 100_000, nil)

	t.Run("partial reduction", func(t *testing.T) {
		err := repo.ReduceOutstanding(ctx, txn.ID, 150_000)
		require.NoError(t, err)

		got, err := repo.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50_000), got.Outstanding)
		assert.Equal(t, int64(250_000), got.AmountPaid)
		assert.Equal(t, got.TotalAmount, got.AmountPaid+got.Outstanding)
	})

	t.Run("reduction past zero is rejected", func(t *testing.T) {
		err := repo.ReduceOutstanding(ctx, txn.ID, 60_000)
		assert.ErrorIs(t, err, ErrOverpayment)
	})

	t.Run("final settlement", func(t *testing.T) {
		err := repo.ReduceOutstanding(ctx, txn.ID, 50_000)
		require.NoError(t, err)

		got, err := repo.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Outstanding)
	})

	t.Run("transaction not found", func(t *testing.T) {
		err := repo.ReduceOutstanding(ctx, 999, 100)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
