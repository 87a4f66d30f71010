package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FillPlanEntity persists a planned batch so a replayed commit can return
// the recorded result instead of touching the tank twice.
type FillPlanEntity struct {
	ID        string    `db:"id"         gorm:"primaryKey;column:id"`
	TotalG    int64     `db:"total_g"    gorm:"column:total_g;not null"`
	Applied   bool      `db:"applied"    gorm:"column:applied;not null;default:false"`
	Bottles   string    `db:"bottles"    gorm:"column:bottles;not null"`
	Skipped   string    `db:"skipped"    gorm:"column:skipped"`
	Result    string    `db:"result"     gorm:"column:result"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (FillPlanEntity) TableName() string { return "fill_plans" }

func toFillPlanEntity(m *model.FillPlan) (*FillPlanEntity, error) {
	bottles, err := json.Marshal(m.Bottles)
	if err != nil {
		return nil, err
	}
	skipped, err := json.Marshal(m.Skipped)
	if err != nil {
		return nil, err
	}
	return &FillPlanEntity{
		ID:        m.ID,
		TotalG:    m.TotalG,
		Applied:   m.Applied,
		Bottles:   string(bottles),
		Skipped:   string(skipped),
		CreatedAt: m.CreatedAt,
	}, nil
}

func toFillPlanModel(e *FillPlanEntity) (*model.FillPlan, error) {
	if e == nil {
		return nil, nil
	}
	m := &model.FillPlan{
		ID:        e.ID,
		TotalG:    e.TotalG,
		Applied:   e.Applied,
		CreatedAt: e.CreatedAt,
	}
	if err := json.Unmarshal([]byte(e.Bottles), &m.Bottles); err != nil {
		return nil, err
	}
	if e.Skipped != "" {
		if err := json.Unmarshal([]byte(e.Skipped), &m.Skipped); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type FillPlanRepository struct {
	*pg.DB
}

func NewFillPlanRepository(db *pg.DB) *FillPlanRepository {
	return &FillPlanRepository{
		db,
	}
}

func (r *FillPlanRepository) Create(ctx context.Context, plan *model.FillPlan) (*model.FillPlan, error) {
	entity, err := toFillPlanEntity(plan)
	if err != nil {
		return nil, err
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toFillPlanModel(entity)
}

// GetForUpdate locks the plan row for the duration of the surrounding
// storage transaction, serializing concurrent commits of the same plan.
func (r *FillPlanRepository) GetForUpdate(ctx context.Context, id string) (*model.FillPlan, error) {
	var entity FillPlanEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toFillPlanModel(&entity)
}

func (r *FillPlanRepository) Get(ctx context.Context, id string) (*model.FillPlan, error) {
	var entity FillPlanEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toFillPlanModel(&entity)
}

// MarkApplied flips the plan to applied exactly once and records the
// result for replays. Guarded on applied = false.
func (r *FillPlanRepository) MarkApplied(ctx context.Context, id string, res *model.FillResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&FillPlanEntity{}).
		Where("id = ? AND applied = ?", id, false).
		Updates(map[string]interface{}{
			"applied": true,
			"result":  string(raw),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlanApplied
	}
	return nil
}

// RecordedResult returns what an applied plan actually did.
func (r *FillPlanRepository) RecordedResult(ctx context.Context, id string) (*model.FillResult, error) {
	var entity FillPlanEntity
	err := r.Write(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !entity.Applied || entity.Result == "" {
		return nil, ErrNotFound
	}
	var res model.FillResult
	if err := json.Unmarshal([]byte(entity.Result), &res); err != nil {
		return nil, err
	}
	return &res, nil
}
