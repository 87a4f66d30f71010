package model

import "time"

// Customer account. Outstanding is a running total maintained in the same
// storage transaction as every issue and payment, and must always equal
// the sum of unpaid transaction remainders.
type Customer struct {
	ID          int64     `json:"id"          db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Name        string    `json:"name"        db:"name"        gorm:"column:name;not null"`
	Phone       string    `json:"phone"       db:"phone"       gorm:"column:phone"`
	Address     string    `json:"address"     db:"address"     gorm:"column:address"`
	Outstanding int64     `json:"outstanding" db:"outstanding" gorm:"column:outstanding;not null;default:0"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (Customer) TableName() string { return "customers" }

// Supplier account. Payable mirrors the customer outstanding, on the
// other side of the business.
type Supplier struct {
	ID        int64     `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `json:"name"       db:"name"       gorm:"column:name;not null"`
	Phone     string    `json:"phone"      db:"phone"      gorm:"column:phone"`
	Payable   int64     `json:"payable"    db:"payable"    gorm:"column:payable;not null;default:0"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Supplier) TableName() string { return "suppliers" }

// Statement is the read model consumed by invoice and receipt rendering.
// It never feeds back into state.
type Statement struct {
	Customer     *Customer      `json:"customer"`
	Transactions []*Transaction `json:"transactions"`
	Payments     []*Payment     `json:"payments"`
	Outstanding  int64          `json:"outstanding"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
