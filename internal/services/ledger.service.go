package services

import (
	"context"

	"github.com/oxyplant/cylinder-ledger/internal/model"
)

// LedgerService is the read side of the movement ledger.
type LedgerService struct {
	bottleRepo BottleRepository
	ledgerRepo LedgerRepository
}

func NewLedgerService(bottleRepo BottleRepository, ledgerRepo LedgerRepository) *LedgerService {
	return &LedgerService{
		bottleRepo: bottleRepo,
		ledgerRepo: ledgerRepo,
	}
}

func (s *LedgerService) BottleHistory(ctx context.Context, bottleID int64, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error) {
	if _, err := s.bottleRepo.Get(ctx, bottleID); err != nil {
		return nil, 0, err
	}
	f.BottleID = &bottleID
	f.CounterpartyID = nil
	return s.ledgerRepo.History(ctx, f)
}

// CustomerHistory returns the customer's movement trail together with the
// cylinders currently sitting at their site.
func (s *LedgerService) CustomerHistory(ctx context.Context, customerID int64, f model.LedgerFilter) ([]*model.LedgerEntry, []*model.Bottle, error) {
	f.CounterpartyID = &customerID
	f.BottleID = nil
	entries, _, err := s.ledgerRepo.History(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	current, _, err := s.bottleRepo.List(ctx, model.BottleFilter{
		Statuses: []model.BottleStatus{model.BottleStatusWithCustomer},
		HolderID: &customerID,
		Limit:    500,
	})
	if err != nil {
		return nil, nil, err
	}
	return entries, current, nil
}
