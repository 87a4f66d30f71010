package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"gorm.io/gorm"
)

type BottleRepository struct {
	*pg.DB
}

func NewBottleRepository(db *pg.DB) *BottleRepository {
	return &BottleRepository{
		db,
	}
}

// Register creates a cylinder record. A cylinder already held by a
// customer at intake starts as with_customer at the customer site;
// otherwise it starts empty at the center.
func (r *BottleRepository) Register(ctx context.Context, p model.BottleRegisterRequest) (*model.Bottle, error) {
	status := model.BottleStatusEmpty
	location := model.LocationCenter
	if p.OwnerID != nil {
		status = model.BottleStatusWithCustomer
		location = model.LocationCustomer
	}

	entity := &BottleEntity{
		Serial:   p.Serial,
		TypeID:   p.TypeID,
		Status:   string(status),
		Location: string(location),
		HolderID: p.OwnerID,
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateSerial
		}
		return nil, err
	}

	return toBottleModel(entity), nil
}

// Transition performs a compare-and-swap on status. The UPDATE is guarded
// on the expected current status, so a concurrent writer that got there
// first makes this call fail with ErrStaleState instead of silently
// overwriting its work.
func (r *BottleRepository) Transition(ctx context.Context, bottleID int64, from, to model.BottleStatus, holderID *int64) (*model.Bottle, error) {
	if _, ok := model.TransitionOp(from, to); !ok {
		return nil, ErrInvalidTransition
	}
	location, holder := model.TargetLocation(to, holderID)
	if to == model.BottleStatusWithCustomer && holder == nil {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":    string(to),
		"location":  string(location),
		"holder_id": holder,
	}
	switch to {
	case model.BottleStatusFilled:
		updates["fill_count"] = gorm.Expr("fill_count + 1")
		updates["last_filled_at"] = now
	case model.BottleStatusWithCustomer:
		updates["issue_count"] = gorm.Expr("issue_count + 1")
		updates["last_issued_at"] = now
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&BottleEntity{}).
		Where("id = ? AND status = ?", bottleID, string(from)).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing bottle from one that moved under us.
		var count int64
		if err := r.Write(ctx).WithContext(ctx).
			Model(&BottleEntity{}).
			Where("id = ?", bottleID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrStaleState
	}

	return r.Get(ctx, bottleID)
}

func (r *BottleRepository) Get(ctx context.Context, id int64) (*model.Bottle, error) {
	var entity BottleEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Type").
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toBottleModel(&entity), nil
}

func (r *BottleRepository) GetBySerial(ctx context.Context, serial string) (*model.Bottle, error) {
	var entity BottleEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Type").
		Where("serial = ?", serial).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toBottleModel(&entity), nil
}

// ListByIDs reads through the write connection so a surrounding storage
// transaction sees its own uncommitted rows.
func (r *BottleRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Bottle, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entities []*BottleEntity
	err := r.Write(ctx).WithContext(ctx).
		Preload("Type").
		Where("id IN ?", ids).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toBottleModels(entities), nil
}

func (r *BottleRepository) List(ctx context.Context, f model.BottleFilter) ([]*model.Bottle, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&BottleEntity{})
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.TypeID != nil {
		q = q.Where("type_id = ?", *f.TypeID)
	}
	if f.HolderID != nil {
		q = q.Where("holder_id = ?", *f.HolderID)
	}
	if f.Serial != nil {
		q = q.Where("serial = ?", *f.Serial)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var entities []*BottleEntity
	err := q.Preload("Type").
		Order("serial asc").
		Limit(limit).
		Offset(f.Offset).
		Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toBottleModels(entities), total, nil
}

// ListEmptyOrdered returns every empty cylinder sorted smallest capacity
// first, then by serial. The fill planner relies on this order being
// deterministic.
func (r *BottleRepository) ListEmptyOrdered(ctx context.Context) ([]*model.Bottle, error) {
	var entities []*BottleEntity
	err := r.Write(ctx).WithContext(ctx).
		Preload("Type").
		Joins("JOIN bottle_types ON bottle_types.id = bottles.type_id").
		Where("bottles.status = ?", string(model.BottleStatusEmpty)).
		Order("bottle_types.capacity_liters asc, bottles.serial asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toBottleModels(entities), nil
}

func (r *BottleRepository) CreateType(ctx context.Context, t *model.BottleType) (*model.BottleType, error) {
	entity := toBottleTypeEntity(t)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toBottleTypeModel(entity), nil
}

func (r *BottleRepository) GetType(ctx context.Context, id int64) (*model.BottleType, error) {
	var entity BottleTypeEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toBottleTypeModel(&entity), nil
}

// isUniqueViolation matches both postgres and sqlite phrasing so the test
// harness behaves like production.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
