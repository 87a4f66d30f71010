package services

import (
	"context"
	"fmt"

	"github.com/oxyplant/cylinder-ledger/internal/model"
)

// BottleService owns cylinder identity: registration, damage reports and
// decommissioning. Allocation-facing transitions (fill, issue, return)
// belong to FillService and TransactionService.
type BottleService struct {
	db         TxRunner
	bottleRepo BottleRepository
	ledgerRepo LedgerRepository
}

func NewBottleService(db TxRunner, bottleRepo BottleRepository, ledgerRepo LedgerRepository) *BottleService {
	return &BottleService{
		db:         db,
		bottleRepo: bottleRepo,
		ledgerRepo: ledgerRepo,
	}
}

// Register creates the cylinder and its intake ledger entry together.
func (s *BottleService) Register(ctx context.Context, p model.BottleRegisterRequest) (*model.Bottle, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	var bottle *model.Bottle
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.bottleRepo.GetType(ctx, p.TypeID); err != nil {
			return err
		}

		created, err := s.bottleRepo.Register(ctx, p)
		if err != nil {
			return err
		}

		entry := &model.LedgerEntry{
			BottleID:     created.ID,
			Op:           model.LedgerOpReceived,
			PrevStatus:   created.Status,
			PrevLocation: created.Location,
			NewStatus:    created.Status,
			NewLocation:  created.Location,
		}
		if p.OwnerID != nil {
			entry.CounterpartyKind = model.CounterpartyCustomer
			entry.CounterpartyID = p.OwnerID
		}
		if _, err := s.ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}

		bottle = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bottle, nil
}

// ReportDamage moves a cylinder to its terminal damaged state from
// whatever allocation state it was in. The history stays readable.
func (s *BottleService) ReportDamage(ctx context.Context, bottleID int64, notes string) (*model.Bottle, error) {
	var bottle *model.Bottle
	err := retryStale(ctx, func() error {
		return s.db.WithinTransaction(ctx, func(ctx context.Context) error {
			current, err := s.bottleRepo.Get(ctx, bottleID)
			if err != nil {
				return err
			}

			moved, err := s.bottleRepo.Transition(ctx, bottleID, current.Status, model.BottleStatusDamaged, nil)
			if err != nil {
				return err
			}

			entry := &model.LedgerEntry{
				BottleID:     moved.ID,
				Op:           model.LedgerOpDamaged,
				PrevStatus:   current.Status,
				PrevLocation: current.Location,
				NewStatus:    moved.Status,
				NewLocation:  moved.Location,
				Notes:        notes,
			}
			if current.HolderID != nil {
				entry.CounterpartyKind = model.CounterpartyCustomer
				entry.CounterpartyID = current.HolderID
			}
			if _, err := s.ledgerRepo.Append(ctx, entry); err != nil {
				return err
			}

			bottle = moved
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bottle, nil
}

// Retire decommissions an empty cylinder. Cylinders with ledger history
// are never hard-deleted; retired is the terminal state.
func (s *BottleService) Retire(ctx context.Context, bottleID int64, notes string) (*model.Bottle, error) {
	var bottle *model.Bottle
	err := retryStale(ctx, func() error {
		return s.db.WithinTransaction(ctx, func(ctx context.Context) error {
			moved, err := s.bottleRepo.Transition(ctx, bottleID, model.BottleStatusEmpty, model.BottleStatusRetired, nil)
			if err != nil {
				return err
			}

			if _, err := s.ledgerRepo.Append(ctx, &model.LedgerEntry{
				BottleID:     moved.ID,
				Op:           model.LedgerOpRetired,
				PrevStatus:   model.BottleStatusEmpty,
				PrevLocation: model.LocationCenter,
				NewStatus:    moved.Status,
				NewLocation:  moved.Location,
				Notes:        notes,
			}); err != nil {
				return err
			}

			bottle = moved
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return bottle, nil
}

func (s *BottleService) Get(ctx context.Context, id int64) (*model.Bottle, error) {
	return s.bottleRepo.Get(ctx, id)
}

func (s *BottleService) GetBySerial(ctx context.Context, serial string) (*model.Bottle, error) {
	return s.bottleRepo.GetBySerial(ctx, serial)
}

func (s *BottleService) List(ctx context.Context, f model.BottleFilter) ([]*model.Bottle, int64, error) {
	return s.bottleRepo.List(ctx, f)
}

func (s *BottleService) CreateType(ctx context.Context, t *model.BottleType) (*model.BottleType, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return s.bottleRepo.CreateType(ctx, t)
}
