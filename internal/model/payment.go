package model

import (
	"errors"
	"time"
)

// PaymentMethod of a collected or paid-out amount.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodBank     PaymentMethod = "bank"
	PaymentMethodMobile   PaymentMethod = "mobile"
	PaymentMethodCheque   PaymentMethod = "cheque"
	PaymentMethodInternal PaymentMethod = "internal"
)

// Payment is append-only. It reduces the linked account's outstanding by
// exactly its amount; overpayment is rejected before any row is written.
type Payment struct {
	ID            int64         `json:"id"          db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID    *int64        `json:"customer_id,omitempty" db:"customer_id" gorm:"column:customer_id;index"`
	SupplierID    *int64        `json:"supplier_id,omitempty" db:"supplier_id" gorm:"column:supplier_id;index"`
	TransactionID *int64        `json:"transaction_id,omitempty" db:"transaction_id" gorm:"column:transaction_id;index"`
	Amount        int64         `json:"amount"      db:"amount"      gorm:"column:amount;not null"`
	Method        PaymentMethod `json:"method"      db:"method"      gorm:"column:method;not null"`
	Reference     string        `json:"reference,omitempty" db:"reference" gorm:"column:reference"`
	Notes         string        `json:"notes,omitempty"     db:"notes"     gorm:"column:notes"`
	CreatedAt     time.Time     `json:"created_at"  db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

// CollectPaymentRequest is the input for receiving money from a customer
// or paying a supplier.
type CollectPaymentRequest struct {
	AccountID     int64
	Amount        int64
	Method        PaymentMethod
	TransactionID *int64 // optional: settle one transaction specifically
	Reference     string
	Notes         string
}

func (p CollectPaymentRequest) Validate() error {
	if p.AccountID == 0 {
		return errors.New("account id is required")
	}
	if p.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}
