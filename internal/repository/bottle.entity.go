package repository

import (
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
)

type BottleEntity struct {
	ID           int64        `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	Serial       string       `db:"serial"         gorm:"column:serial;not null;unique"`
	TypeID       int64        `db:"type_id"        gorm:"column:type_id;not null;index"`
	Type         *BottleTypeEntity `gorm:"foreignKey:TypeID;references:ID"`
	Status       string       `db:"status"         gorm:"column:status;not null;index"`
	Location     string       `db:"location"       gorm:"column:location;not null"`
	HolderID     *int64       `db:"holder_id"      gorm:"column:holder_id;index"`
	FillCount    int          `db:"fill_count"     gorm:"column:fill_count;not null;default:0"`
	IssueCount   int          `db:"issue_count"    gorm:"column:issue_count;not null;default:0"`
	LastFilledAt *time.Time   `db:"last_filled_at" gorm:"column:last_filled_at"`
	LastIssuedAt *time.Time   `db:"last_issued_at" gorm:"column:last_issued_at"`
	CreatedAt    time.Time    `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (BottleEntity) TableName() string { return "bottles" }

type BottleTypeEntity struct {
	ID             int64  `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string `db:"name"            gorm:"column:name;not null;unique"`
	CapacityLiters int    `db:"capacity_liters" gorm:"column:capacity_liters;not null"`
	FillWeightG    int64  `db:"fill_weight_g"   gorm:"column:fill_weight_g;not null"`
	PricePerFill   int64  `db:"price_per_fill"  gorm:"column:price_per_fill;not null"`
	DepositAmount  int64  `db:"deposit_amount"  gorm:"column:deposit_amount;not null;default:0"`
}

func (BottleTypeEntity) TableName() string { return "bottle_types" }

func toBottleEntity(m *model.Bottle) *BottleEntity {
	if m == nil {
		return nil
	}
	return &BottleEntity{
		ID:           m.ID,
		Serial:       m.Serial,
		TypeID:       m.TypeID,
		Status:       string(m.Status),
		Location:     string(m.Location),
		HolderID:     m.HolderID,
		FillCount:    m.FillCount,
		IssueCount:   m.IssueCount,
		LastFilledAt: m.LastFilledAt,
		LastIssuedAt: m.LastIssuedAt,
		CreatedAt:    m.CreatedAt,
	}
}

func toBottleModel(e *BottleEntity) *model.Bottle {
	if e == nil {
		return nil
	}
	return &model.Bottle{
		ID:           e.ID,
		Serial:       e.Serial,
		TypeID:       e.TypeID,
		Type:         toBottleTypeModel(e.Type),
		Status:       model.BottleStatus(e.Status),
		Location:     model.BottleLocation(e.Location),
		HolderID:     e.HolderID,
		FillCount:    e.FillCount,
		IssueCount:   e.IssueCount,
		LastFilledAt: e.LastFilledAt,
		LastIssuedAt: e.LastIssuedAt,
		CreatedAt:    e.CreatedAt,
	}
}

func toBottleModels(entities []*BottleEntity) []*model.Bottle {
	if entities == nil {
		return nil
	}
	models := make([]*model.Bottle, len(entities))
	for i, e := range entities {
		models[i] = toBottleModel(e)
	}
	return models
}

func toBottleTypeEntity(m *model.BottleType) *BottleTypeEntity {
	if m == nil {
		return nil
	}
	return &BottleTypeEntity{
		ID:             m.ID,
		Name:           m.Name,
		CapacityLiters: m.CapacityLiters,
		FillWeightG:    m.FillWeightG,
		PricePerFill:   m.PricePerFill,
		DepositAmount:  m.DepositAmount,
	}
}

func toBottleTypeModel(e *BottleTypeEntity) *model.BottleType {
	if e == nil {
		return nil
	}
	return &model.BottleType{
		ID:             e.ID,
		Name:           e.Name,
		CapacityLiters: e.CapacityLiters,
		FillWeightG:    e.FillWeightG,
		PricePerFill:   e.PricePerFill,
		DepositAmount:  e.DepositAmount,
	}
}
