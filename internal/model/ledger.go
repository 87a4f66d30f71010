package model

import "time"

// LedgerOp tags a movement ledger entry with the operation that caused it.
type LedgerOp string

const (
	LedgerOpReceived LedgerOp = "received"
	LedgerOpFilled   LedgerOp = "filled"
	LedgerOpIssued   LedgerOp = "issued"
	LedgerOpReturned LedgerOp = "returned"
	LedgerOpDamaged  LedgerOp = "damaged"
	LedgerOpRetired  LedgerOp = "retired"
)

// CounterpartyKind says which account table a ledger counterparty id
// points into.
type CounterpartyKind string

const (
	CounterpartyCustomer CounterpartyKind = "customer"
	CounterpartySupplier CounterpartyKind = "supplier"
)

// LedgerEntry is one append-only movement record. Entries are written in
// the same storage transaction as the bottle state change they describe
// and are never updated or deleted afterwards.
type LedgerEntry struct {
	ID               int64            `json:"id"                db:"id"                gorm:"primaryKey;autoIncrement;column:id"`
	BottleID         int64            `json:"bottle_id"         db:"bottle_id"         gorm:"column:bottle_id;not null;index"`
	Op               LedgerOp         `json:"op"                db:"op"                gorm:"column:op;not null"`
	PrevStatus       BottleStatus     `json:"prev_status"       db:"prev_status"       gorm:"column:prev_status;not null"`
	PrevLocation     BottleLocation   `json:"prev_location"     db:"prev_location"     gorm:"column:prev_location;not null"`
	NewStatus        BottleStatus     `json:"new_status"        db:"new_status"        gorm:"column:new_status;not null"`
	NewLocation      BottleLocation   `json:"new_location"      db:"new_location"      gorm:"column:new_location;not null"`
	CounterpartyKind CounterpartyKind `json:"counterparty_kind,omitempty" db:"counterparty_kind" gorm:"column:counterparty_kind"`
	CounterpartyID   *int64           `json:"counterparty_id,omitempty"   db:"counterparty_id"   gorm:"column:counterparty_id;index"`
	Notes            string           `json:"notes,omitempty"   db:"notes"             gorm:"column:notes"`
	CreatedAt        time.Time        `json:"created_at"        db:"created_at"        gorm:"column:created_at;autoCreateTime"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerFilter controls history reads. Direction is a read-time concern,
// not a storage one.
type LedgerFilter struct {
	BottleID       *int64
	CounterpartyID *int64
	Ops            []LedgerOp
	Limit          int
	Offset         int
	Desc           bool // newest first, for display
}
