package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tankRowID: the reservoir is a singleton row.
const tankRowID = 1

type TankEntity struct {
	ID                 int64     `db:"id"                   gorm:"primaryKey;column:id"`
	CapacityG          int64     `db:"capacity_g"           gorm:"column:capacity_g;not null"`
	LevelG             int64     `db:"level_g"              gorm:"column:level_g;not null"`
	LowThresholdG      int64     `db:"low_threshold_g"      gorm:"column:low_threshold_g;not null;default:0"`
	CriticalThresholdG int64     `db:"critical_threshold_g" gorm:"column:critical_threshold_g;not null;default:0"`
	UpdatedAt          time.Time `db:"updated_at"           gorm:"column:updated_at;autoUpdateTime"`
}

func (TankEntity) TableName() string { return "tank" }

func toTankModel(e *TankEntity) *model.Tank {
	if e == nil {
		return nil
	}
	return &model.Tank{
		ID:                 e.ID,
		CapacityG:          e.CapacityG,
		LevelG:             e.LevelG,
		LowThresholdG:      e.LowThresholdG,
		CriticalThresholdG: e.CriticalThresholdG,
		UpdatedAt:          e.UpdatedAt,
	}
}

type TankRepository struct {
	*pg.DB
}

func NewTankRepository(db *pg.DB) *TankRepository {
	return &TankRepository{
		db,
	}
}

// Reserve atomically draws grams out of the tank for a fill batch.
// Check and decrement happen under the same row lock; two concurrent
// reservations can never both pass the check against a stale level.
// Retries only transient errors, never a genuine shortfall.
func (r *TankRepository) Reserve(ctx context.Context, grams int64) (*model.Tank, error) {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		tank, err := r.reserveAttempt(ctx, grams)
		if err == nil {
			return tank, nil
		}

		if errors.Is(err, ErrInsufficientLevel) || errors.Is(err, ErrNotFound) {
			return nil, err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return nil, fmt.Errorf("%w: tank reserve failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *TankRepository) reserveAttempt(ctx context.Context, grams int64) (*model.Tank, error) {
	var entity TankEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tankRowID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if entity.LevelG < grams {
		return nil, &InsufficientLevelError{RequiredG: grams, AvailableG: entity.LevelG}
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TankEntity{}).
		Where("id = ? AND level_g >= ?", tankRowID, grams).
		Update("level_g", gorm.Expr("level_g - ?", grams))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}

	entity.LevelG -= grams
	return toTankModel(&entity), nil
}

// Deposit receives supplier gas. Overflow past capacity rejects the whole
// delivery; the level is never silently truncated.
func (r *TankRepository) Deposit(ctx context.Context, grams int64) (*model.Tank, error) {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		tank, err := r.depositAttempt(ctx, grams)
		if err == nil {
			return tank, nil
		}

		if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrNotFound) {
			return nil, err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return nil, fmt.Errorf("%w: tank deposit failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *TankRepository) depositAttempt(ctx context.Context, grams int64) (*model.Tank, error) {
	var entity TankEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tankRowID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if entity.LevelG+grams > entity.CapacityG {
		return nil, &CapacityExceededError{DepositG: grams, LevelG: entity.LevelG, CapacityG: entity.CapacityG}
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&TankEntity{}).
		Where("id = ? AND level_g + ? <= capacity_g", tankRowID, grams).
		Update("level_g", gorm.Expr("level_g + ?", grams))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}

	entity.LevelG += grams
	return toTankModel(&entity), nil
}

// Release returns previously reserved grams after a bottle lost its fill
// to a concurrent writer. Reserved gas always fits back, so this cannot
// overflow; the guard is kept anyway to preserve the level invariant.
func (r *TankRepository) Release(ctx context.Context, grams int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TankEntity{}).
		Where("id = ? AND level_g + ? <= capacity_g", tankRowID, grams).
		Update("level_g", gorm.Expr("level_g + ?", grams))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

func (r *TankRepository) Get(ctx context.Context) (*model.Tank, error) {
	var entity TankEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", tankRowID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTankModel(&entity), nil
}

// GetForUpdate reads the tank through the write connection, for use
// inside a surrounding storage transaction.
func (r *TankRepository) GetForUpdate(ctx context.Context) (*model.Tank, error) {
	var entity TankEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tankRowID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTankModel(&entity), nil
}

// Init seeds the singleton row when it does not exist yet.
func (r *TankRepository) Init(ctx context.Context, capacityG, levelG, lowG, criticalG int64) (*model.Tank, error) {
	entity := &TankEntity{
		ID:                 tankRowID,
		CapacityG:          capacityG,
		LevelG:             levelG,
		LowThresholdG:      lowG,
		CriticalThresholdG: criticalG,
	}
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entity).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
