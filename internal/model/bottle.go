package model

import (
	"errors"
	"time"
)

// BottleStatus is the lifecycle state of a physical cylinder.
type BottleStatus string

const (
	BottleStatusEmpty        BottleStatus = "empty"
	BottleStatusFilled       BottleStatus = "filled"
	BottleStatusWithCustomer BottleStatus = "with_customer"
	BottleStatusDamaged      BottleStatus = "damaged"
	BottleStatusRetired      BottleStatus = "retired"
)

// BottleLocation tracks where the cylinder physically is.
type BottleLocation string

const (
	LocationCenter    BottleLocation = "center"
	LocationCustomer  BottleLocation = "customer"
	LocationInTransit BottleLocation = "in_transit"
)

type Bottle struct {
	ID           int64          `json:"id"             db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	Serial       string         `json:"serial"         db:"serial"         gorm:"column:serial;not null;unique"`
	TypeID       int64          `json:"type_id"        db:"type_id"        gorm:"column:type_id;not null;index"`
	Type         *BottleType    `json:"type,omitempty"                     gorm:"foreignKey:TypeID;references:ID"`
	Status       BottleStatus   `json:"status"         db:"status"         gorm:"column:status;not null;index"`
	Location     BottleLocation `json:"location"       db:"location"       gorm:"column:location;not null"`
	HolderID     *int64         `json:"holder_id"      db:"holder_id"      gorm:"column:holder_id;index"`
	FillCount    int            `json:"fill_count"     db:"fill_count"     gorm:"column:fill_count;not null;default:0"`
	IssueCount   int            `json:"issue_count"    db:"issue_count"    gorm:"column:issue_count;not null;default:0"`
	LastFilledAt *time.Time     `json:"last_filled_at" db:"last_filled_at" gorm:"column:last_filled_at"`
	LastIssuedAt *time.Time     `json:"last_issued_at" db:"last_issued_at" gorm:"column:last_issued_at"`
	CreatedAt    time.Time      `json:"created_at"     db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (Bottle) TableName() string { return "bottles" }

// allowedTransitions is the only legal edge set of the cylinder state
// machine. Every mutation of a bottle's status must match an edge here;
// anything else is ErrInvalidTransition.
var allowedTransitions = map[BottleStatus]map[BottleStatus]LedgerOp{
	BottleStatusEmpty: {
		BottleStatusFilled:  LedgerOpFilled,
		BottleStatusDamaged: LedgerOpDamaged,
		BottleStatusRetired: LedgerOpRetired,
	},
	BottleStatusFilled: {
		BottleStatusWithCustomer: LedgerOpIssued,
		BottleStatusDamaged:      LedgerOpDamaged,
	},
	BottleStatusWithCustomer: {
		// A returned cylinder comes back empty; its oxygen was consumed.
		BottleStatusEmpty:   LedgerOpReturned,
		BottleStatusDamaged: LedgerOpDamaged,
	},
}

// TransitionOp returns the ledger operation recorded for the (from -> to)
// edge, or false when the edge is not part of the state machine.
func TransitionOp(from, to BottleStatus) (LedgerOp, bool) {
	op, ok := allowedTransitions[from][to]
	return op, ok
}

// TargetLocation derives location and holder from the target status.
// Status and location are jointly constrained: with_customer means the
// cylinder sits at the customer site, everything else is at the center.
func TargetLocation(to BottleStatus, holderID *int64) (BottleLocation, *int64) {
	if to == BottleStatusWithCustomer {
		return LocationCustomer, holderID
	}
	return LocationCenter, nil
}

// BottleRegisterRequest is the input for registering a cylinder.
type BottleRegisterRequest struct {
	Serial  string
	TypeID  int64
	OwnerID *int64 // customer already holding the cylinder at intake
}

func (p BottleRegisterRequest) Validate() error {
	if p.Serial == "" {
		return errors.New("serial is required")
	}
	if p.TypeID == 0 {
		return errors.New("type_id is required")
	}
	return nil
}

// BottleFilter controls bottle listing.
type BottleFilter struct {
	Statuses []BottleStatus
	TypeID   *int64
	HolderID *int64
	Serial   *string
	Limit    int
	Offset   int
}
