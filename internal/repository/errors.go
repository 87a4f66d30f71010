package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateSerial    = errors.New("serial already registered")
	ErrInvalidTransition  = errors.New("invalid bottle transition")
	ErrStaleState         = errors.New("bottle state changed concurrently")
	ErrInsufficientLevel  = errors.New("insufficient tank level")
	ErrCapacityExceeded   = errors.New("tank capacity exceeded")
	ErrOverpayment        = errors.New("payment exceeds outstanding balance")
	ErrPlanApplied        = errors.New("fill plan already applied")
	ErrConcurrentUpdate   = errors.New("concurrent update detected")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// InsufficientLevelError carries the shortfall so callers can shrink the
// request instead of guessing. errors.Is(err, ErrInsufficientLevel) holds.
type InsufficientLevelError struct {
	RequiredG  int64
	AvailableG int64
}

func (e *InsufficientLevelError) Error() string {
	return fmt.Sprintf("insufficient tank level: need %dg, have %dg (short %dg)",
		e.RequiredG, e.AvailableG, e.RequiredG-e.AvailableG)
}

func (e *InsufficientLevelError) Is(target error) bool { return target == ErrInsufficientLevel }

func (e *InsufficientLevelError) ShortfallG() int64 { return e.RequiredG - e.AvailableG }

// CapacityExceededError reports how much of a deposit would not fit.
// Overflow is rejected outright, never silently truncated.
type CapacityExceededError struct {
	DepositG  int64
	LevelG    int64
	CapacityG int64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("tank capacity exceeded: depositing %dg onto %dg overflows capacity %dg",
		e.DepositG, e.LevelG, e.CapacityG)
}

func (e *CapacityExceededError) Is(target error) bool { return target == ErrCapacityExceeded }
