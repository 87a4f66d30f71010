package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillPlanRepository_Roundtrip(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewFillPlanRepository(db)
	ctx := context.Background()

	plan := &model.FillPlan{
		ID: uuid.NewString(),
		Bottles: []model.PlannedBottle{
			{BottleID: 1, Serial: "CYL-001", WeightG: 6_000},
			{BottleID: 2, Serial: "CYL-002", WeightG: 7_500},
		},
		Skipped: []model.SkippedBottle{
			{BottleID: 3, Reason: "not empty"},
		},
		TotalG: 13_500,
	}

	created, err := repo.Create(ctx, plan)
	require.NoError(t, err)
	assert.False(t, created.Applied)

	got, err := repo.GetForUpdate(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Bottles, got.Bottles)
	assert.Equal(t, plan.Skipped, got.Skipped)
	assert.Equal(t, int64(13_500), got.TotalG)
}

func TestFillPlanRepository_MarkApplied(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewFillPlanRepository(db)
	ctx := context.Background()

	plan := &model.FillPlan{
		ID:      uuid.NewString(),
		Bottles: []model.PlannedBottle{{BottleID: 1, Serial: "CYL-001", WeightG: 6_000}},
		TotalG:  6_000,
	}
	_, err := repo.Create(ctx, plan)
	require.NoError(t, err)

	t.Run("result before apply", func(t *testing.T) {
		_, err := repo.RecordedResult(ctx, plan.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	res := &model.FillResult{
		PlanID:     plan.ID,
		Filled:     []int64{1},
		TotalG:     6_000,
		TankLevelG: 94_000,
	}

	t.Run("first apply succeeds", func(t *testing.T) {
		err := repo.MarkApplied(ctx, plan.ID, res)
		require.NoError(t, err)

		got, err := repo.Get(ctx, plan.ID)
		require.NoError(t, err)
		assert.True(t, got.Applied)
	})

	t.Run("second apply is refused", func(t *testing.T) {
		err := repo.MarkApplied(ctx, plan.ID, res)
		assert.ErrorIs(t, err, ErrPlanApplied)
	})

	t.Run("recorded result replays the first outcome", func(t *testing.T) {
		got, err := repo.RecordedResult(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Filled, got.Filled)
		assert.Equal(t, res.TankLevelG, got.TankLevelG)
	})

	t.Run("unknown plan", func(t *testing.T) {
		err := repo.MarkApplied(ctx, "missing", res)
		assert.ErrorIs(t, err, ErrPlanApplied)

		_, err = repo.GetForUpdate(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
