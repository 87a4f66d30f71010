package model

import "errors"

// BottleType describes a cylinder class. Gas weight is stored in grams and
// money in minor currency units so balances never accumulate float drift.
type BottleType struct {
	ID             int64  `json:"id"               db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Name           string `json:"name"             db:"name"             gorm:"column:name;not null;unique"`
	CapacityLiters int    `json:"capacity_liters"  db:"capacity_liters"  gorm:"column:capacity_liters;not null"`
	FillWeightG    int64  `json:"fill_weight_g"    db:"fill_weight_g"    gorm:"column:fill_weight_g;not null"`
	PricePerFill   int64  `json:"price_per_fill"   db:"price_per_fill"   gorm:"column:price_per_fill;not null"`
	DepositAmount  int64  `json:"deposit_amount"   db:"deposit_amount"   gorm:"column:deposit_amount;not null;default:0"`
}

func (BottleType) TableName() string { return "bottle_types" }

func (t BottleType) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.CapacityLiters <= 0 {
		return errors.New("capacity_liters must be > 0")
	}
	if t.FillWeightG <= 0 {
		return errors.New("fill_weight_g must be > 0")
	}
	if t.PricePerFill < 0 {
		return errors.New("price_per_fill cannot be negative")
	}
	return nil
}
