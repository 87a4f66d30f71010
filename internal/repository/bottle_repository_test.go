package repository

import (
	"context"
	"testing"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestType(t *testing.T, repo *BottleRepository, name string, capacityLiters int, fillWeightG int64) *model.BottleType {
	bt, err := repo.CreateType(context.Background(), &model.BottleType{
		Name:           name,
		CapacityLiters: capacityLiters,
		FillWeightG:    fillWeightG,
		PricePerFill:   150_000,
	})
	require.NoError(t, err)
	return bt
}

func TestBottleRepository_Register(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBottleRepository(db)
	ctx := context.Background()

	bt := createTestType(t, repo, "medical-40l", 40, 6_000)

	t.Run("new cylinder starts empty at the center", func(t *testing.T) {
		bottle, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "CYL-001", TypeID: bt.ID})
		require.NoError(t, err)
		assert.Equal(t, model.BottleStatusEmpty, bottle.Status)
		assert.Equal(t, model.LocationCenter, bottle.Location)
		assert.Nil(t, bottle.HolderID)
	})

	t.Run("cylinder held by a customer at intake", func(t *testing.T) {
		ownerID := int64(7)
		bottle, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "CYL-002", TypeID: bt.ID, OwnerID: &ownerID})
		require.NoError(t, err)
		assert.Equal(t, model.BottleStatusWithCustomer, bottle.Status)
		assert.Equal(t, model.LocationCustomer, bottle.Location)
		require.NotNil(t, bottle.HolderID)
		assert.Equal(t, ownerID, *bottle.HolderID)
	})

	t.Run("duplicate serial", func(t *testing.T) {
		_, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "CYL-001", TypeID: bt.ID})
		assert.ErrorIs(t, err, ErrDuplicateSerial)
	})
}

func TestBottleRepository_Transition(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBottleRepository(db)
	ctx := context.Background()

	bt := createTestType(t, repo, "medical-40l", 40, 6_000)
	bottle, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "CYL-001", TypeID: bt.ID})
	require.NoError(t, err)

	t.Run("fill updates counters and timestamps", func(t *testing.T) {
		moved, err := repo.Transition(ctx, bottle.ID, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
		require.NoError(t, err)
		assert.Equal(t, model.BottleStatusFilled, moved.Status)
		assert.Equal(t, 1, moved.FillCount)
		assert.NotNil(t, moved.LastFilledAt)
	})

	t.Run("stale expected status", func(t *testing.T) {
		// The bottle is already filled; a writer still assuming empty loses.
		_, err := repo.Transition(ctx, bottle.ID, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
		assert.ErrorIs(t, err, ErrStaleState)
	})

	t.Run("issue requires a holder", func(t *testing.T) {
		_, err := repo.Transition(ctx, bottle.ID, model.BottleStatusFilled, model.BottleStatusWithCustomer, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("issue and return round trip", func(t *testing.T) {
		holderID := int64(3)
		moved, err := repo.Transition(ctx, bottle.ID, model.BottleStatusFilled, model.BottleStatusWithCustomer, &holderID)
		require.NoError(t, err)
		assert.Equal(t, model.LocationCustomer, moved.Location)
		assert.Equal(t, 1, moved.IssueCount)

		moved, err = repo.Transition(ctx, bottle.ID, model.BottleStatusWithCustomer, model.BottleStatusEmpty, nil)
		require.NoError(t, err)
		assert.Equal(t, model.BottleStatusEmpty, moved.Status)
		assert.Equal(t, model.LocationCenter, moved.Location)
		assert.Nil(t, moved.HolderID)
	})

	t.Run("edge not in the state machine", func(t *testing.T) {
		_, err := repo.Transition(ctx, bottle.ID, model.BottleStatusEmpty, model.BottleStatusWithCustomer, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("retired is terminal", func(t *testing.T) {
		moved, err := repo.Transition(ctx, bottle.ID, model.BottleStatusEmpty, model.BottleStatusRetired, nil)
		require.NoError(t, err)
		assert.Equal(t, model.BottleStatusRetired, moved.Status)

		_, err = repo.Transition(ctx, bottle.ID, model.BottleStatusRetired, model.BottleStatusEmpty, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("bottle not found", func(t *testing.T) {
		_, err := repo.Transition(ctx, 999, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("damaged cannot be retired", func(t *testing.T) {
		damaged, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "CYL-DMG", TypeID: bt.ID})
		require.NoError(t, err)
		_, err = repo.Transition(ctx, damaged.ID, model.BottleStatusEmpty, model.BottleStatusDamaged, nil)
		require.NoError(t, err)

		// Only an empty cylinder can be decommissioned; damaged is already
		// terminal for allocation.
		_, err = repo.Transition(ctx, damaged.ID, model.BottleStatusDamaged, model.BottleStatusRetired, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestBottleRepository_ListEmptyOrdered(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBottleRepository(db)
	ctx := context.Background()

	small := createTestType(t, repo, "portable-10l", 10, 1_500)
	large := createTestType(t, repo, "industrial-50l", 50, 7_500)

	for _, spec := range []struct {
		serial string
		typeID int64
	}{
		{"BIG-002", large.ID},
		{"SMALL-001", small.ID},
		{"BIG-001", large.ID},
	} {
		_, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: spec.serial, TypeID: spec.typeID})
		require.NoError(t, err)
	}

	// One filled bottle must not appear in the empty list.
	filled, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: "BIG-003", TypeID: large.ID})
	require.NoError(t, err)
	_, err = repo.Transition(ctx, filled.ID, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
	require.NoError(t, err)

	bottles, err := repo.ListEmptyOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, bottles, 3)
	assert.Equal(t, "SMALL-001", bottles[0].Serial)
	assert.Equal(t, "BIG-001", bottles[1].Serial)
	assert.Equal(t, "BIG-002", bottles[2].Serial)
}

func TestBottleRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBottleRepository(db)
	ctx := context.Background()

	bt := createTestType(t, repo, "medical-40l", 40, 6_000)
	for i := 0; i < 5; i++ {
		serial := string(rune('A'+i)) + "-001"
		_, err := repo.Register(ctx, model.BottleRegisterRequest{Serial: serial, TypeID: bt.ID})
		require.NoError(t, err)
	}

	first, err := repo.GetBySerial(ctx, "A-001")
	require.NoError(t, err)
	_, err = repo.Transition(ctx, first.ID, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
	require.NoError(t, err)

	t.Run("filter by status", func(t *testing.T) {
		bottles, total, err := repo.List(ctx, model.BottleFilter{Statuses: []model.BottleStatus{model.BottleStatusFilled}})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, bottles, 1)
		assert.Equal(t, "A-001", bottles[0].Serial)
	})

	t.Run("pagination", func(t *testing.T) {
		bottles, total, err := repo.List(ctx, model.BottleFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Len(t, bottles, 2)
	})

	t.Run("filter by serial", func(t *testing.T) {
		serial := "C-001"
		bottles, total, err := repo.List(ctx, model.BottleFilter{Serial: &serial})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, bottles, 1)
		assert.Equal(t, serial, bottles[0].Serial)
	})
}
