package services

import (
	"context"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/pkg/errors"
)

// AccountService manages the customer and supplier registries. Balance
// mutation happens in TransactionService; this one only creates and reads.
type AccountService struct {
	customerRepo CustomerRepository
	supplierRepo SupplierRepository
}

func NewAccountService(customerRepo CustomerRepository, supplierRepo SupplierRepository) *AccountService {
	return &AccountService{
		customerRepo: customerRepo,
		supplierRepo: supplierRepo,
	}
}

func (s *AccountService) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	if c.Name == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "name is required")
	}
	c.Outstanding = 0
	return s.customerRepo.Create(ctx, c)
}

func (s *AccountService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.customerRepo.Get(ctx, id)
}

func (s *AccountService) CreateSupplier(ctx context.Context, sp *model.Supplier) (*model.Supplier, error) {
	if sp.Name == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "name is required")
	}
	sp.Payable = 0
	return s.supplierRepo.Create(ctx, sp)
}

func (s *AccountService) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	return s.supplierRepo.Get(ctx, id)
}
