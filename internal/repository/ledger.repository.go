package repository

import (
	"context"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
)

type LedgerEntryEntity struct {
	ID               int64     `db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	BottleID         int64     `db:"bottle_id"         gorm:"column:bottle_id;not null;index"`
	Op               string    `db:"op"                gorm:"column:op;not null"`
	PrevStatus       string    `db:"prev_status"       gorm:"column:prev_status;not null"`
	PrevLocation     string    `db:"prev_location"     gorm:"column:prev_location;not null"`
	NewStatus        string    `db:"new_status"        gorm:"column:new_status;not null"`
	NewLocation      string    `db:"new_location"      gorm:"column:new_location;not null"`
	CounterpartyKind string    `db:"counterparty_kind" gorm:"column:counterparty_kind"`
	CounterpartyID   *int64    `db:"counterparty_id"   gorm:"column:counterparty_id;index"`
	Notes            string    `db:"notes"             gorm:"column:notes"`
	CreatedAt        time.Time `db:"created_at"        gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntryEntity) TableName() string { return "ledger_entries" }

func toLedgerEntity(m *model.LedgerEntry) *LedgerEntryEntity {
	if m == nil {
		return nil
	}
	return &LedgerEntryEntity{
		ID:               m.ID,
		BottleID:         m.BottleID,
		Op:               string(m.Op),
		PrevStatus:       string(m.PrevStatus),
		PrevLocation:     string(m.PrevLocation),
		NewStatus:        string(m.NewStatus),
		NewLocation:      string(m.NewLocation),
		CounterpartyKind: string(m.CounterpartyKind),
		CounterpartyID:   m.CounterpartyID,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
}

func toLedgerModel(e *LedgerEntryEntity) *model.LedgerEntry {
	if e == nil {
		return nil
	}
	return &model.LedgerEntry{
		ID:               e.ID,
		BottleID:         e.BottleID,
		Op:               model.LedgerOp(e.Op),
		PrevStatus:       model.BottleStatus(e.PrevStatus),
		PrevLocation:     model.BottleLocation(e.PrevLocation),
		NewStatus:        model.BottleStatus(e.NewStatus),
		NewLocation:      model.BottleLocation(e.NewLocation),
		CounterpartyKind: model.CounterpartyKind(e.CounterpartyKind),
		CounterpartyID:   e.CounterpartyID,
		Notes:            e.Notes,
		CreatedAt:        e.CreatedAt,
	}
}

func toLedgerModels(entities []*LedgerEntryEntity) []*model.LedgerEntry {
	if entities == nil {
		return nil
	}
	models := make([]*model.LedgerEntry, len(entities))
	for i, e := range entities {
		models[i] = toLedgerModel(e)
	}
	return models
}

// LedgerRepository is write-once. There is deliberately no update or
// delete method here; the ledger is the audit trail.
type LedgerRepository struct {
	*pg.DB
}

func NewLedgerRepository(db *pg.DB) *LedgerRepository {
	return &LedgerRepository{
		db,
	}
}

func (r *LedgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	entity := toLedgerEntity(entry)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toLedgerModel(entity), nil
}

func (r *LedgerRepository) History(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&LedgerEntryEntity{})
	if f.BottleID != nil {
		q = q.Where("bottle_id = ?", *f.BottleID)
	}
	if f.CounterpartyID != nil {
		q = q.Where("counterparty_id = ?", *f.CounterpartyID)
	}
	if len(f.Ops) > 0 {
		ops := make([]string, len(f.Ops))
		for i, op := range f.Ops {
			ops[i] = string(op)
		}
		q = q.Where("op IN ?", ops)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "id asc"
	if f.Desc {
		order = "id desc"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var entities []*LedgerEntryEntity
	err := q.Order(order).Limit(limit).Offset(f.Offset).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toLedgerModels(entities), total, nil
}
