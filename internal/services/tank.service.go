package services

import (
	"context"

	"github.com/oxyplant/cylinder-ledger/internal/model"
)

// TankService exposes the current tank state for the dashboard. Level
// mutation always goes through FillService and TransactionService.
type TankService struct {
	tankRepo TankRepository
}

func NewTankService(tankRepo TankRepository) *TankService {
	return &TankService{tankRepo: tankRepo}
}

func (s *TankService) Get(ctx context.Context) (*model.Tank, error) {
	return s.tankRepo.Get(ctx)
}
