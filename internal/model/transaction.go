package model

import (
	"errors"
	"time"
)

// TransactionKind distinguishes customer-facing and supplier-facing
// transactions.
type TransactionKind string

const (
	TransactionKindIssue            TransactionKind = "issue"
	TransactionKindReturn           TransactionKind = "return"
	TransactionKindSupplierDelivery TransactionKind = "supplier_delivery"
)

// PaymentStatus of a transaction at creation time.
type PaymentStatus string

const (
	PaymentStatusFull    PaymentStatus = "full"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusCredit  PaymentStatus = "credit"
)

// Transaction is an immutable financial record. Amounts are minor
// currency units. AmountPaid + Outstanding == TotalAmount at creation;
// Outstanding only ever shrinks afterwards, through payments.
type Transaction struct {
	ID          int64           `json:"id"           db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	Kind        TransactionKind `json:"kind"         db:"kind"         gorm:"column:kind;not null;index"`
	CustomerID  *int64          `json:"customer_id,omitempty" db:"customer_id" gorm:"column:customer_id;index"`
	SupplierID  *int64          `json:"supplier_id,omitempty" db:"supplier_id" gorm:"column:supplier_id;index"`
	TotalAmount int64           `json:"total_amount" db:"total_amount" gorm:"column:total_amount;not null"`
	AmountPaid  int64           `json:"amount_paid"  db:"amount_paid"  gorm:"column:amount_paid;not null"`
	Outstanding int64           `json:"outstanding"  db:"outstanding"  gorm:"column:outstanding;not null"`
	Status      PaymentStatus   `json:"status"       db:"status"       gorm:"column:status;not null"`
	GasWeightG  int64           `json:"gas_weight_g,omitempty" db:"gas_weight_g" gorm:"column:gas_weight_g;not null;default:0"`
	Notes       string          `json:"notes,omitempty" db:"notes"     gorm:"column:notes"`
	BottleIDs   []int64         `json:"bottle_ids"                     gorm:"-"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// StatusFor derives the payment status from the split of a total.
func StatusFor(total, paid int64) PaymentStatus {
	switch {
	case paid >= total:
		return PaymentStatusFull
	case paid > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusCredit
	}
}

// IssueRequest is the input for issuing filled cylinders to a customer.
type IssueRequest struct {
	CustomerID  int64
	BottleIDs   []int64
	TotalAmount int64
	AmountPaid  int64
	Notes       string
}

func (p IssueRequest) Validate() error {
	if p.CustomerID == 0 {
		return errors.New("customer_id is required")
	}
	if len(p.BottleIDs) == 0 {
		return errors.New("bottle_ids is required")
	}
	if p.TotalAmount < 0 {
		return errors.New("total_amount cannot be negative")
	}
	if p.AmountPaid < 0 {
		return errors.New("amount_paid cannot be negative")
	}
	if p.AmountPaid > p.TotalAmount {
		return errors.New("amount_paid cannot exceed total_amount")
	}
	return nil
}

// ReturnRequest is the input for taking empties back from a customer.
type ReturnRequest struct {
	CustomerID int64
	BottleIDs  []int64
	Notes      string
}

func (p ReturnRequest) Validate() error {
	if p.CustomerID == 0 {
		return errors.New("customer_id is required")
	}
	if len(p.BottleIDs) == 0 {
		return errors.New("bottle_ids is required")
	}
	return nil
}

// SupplierDeliveryRequest records a bulk gas delivery into the tank.
type SupplierDeliveryRequest struct {
	SupplierID int64
	WeightG    int64
	PricePerKg int64 // minor units per kilogram
	AmountPaid int64
	Notes      string
}

func (p SupplierDeliveryRequest) Validate() error {
	if p.SupplierID == 0 {
		return errors.New("supplier_id is required")
	}
	if p.WeightG <= 0 {
		return errors.New("weight_g must be > 0")
	}
	if p.PricePerKg < 0 {
		return errors.New("price_per_kg cannot be negative")
	}
	if p.AmountPaid < 0 {
		return errors.New("amount_paid cannot be negative")
	}
	return nil
}

// TotalAmount prices the delivered weight. Rounds down to whole minor
// units.
func (p SupplierDeliveryRequest) TotalAmount() int64 {
	return p.PricePerKg * p.WeightG / 1000
}
