package services

import (
	"context"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
)

// StatementService builds the read model that invoice, receipt and
// statement rendering consume. Strictly read-only.
type StatementService struct {
	customerRepo CustomerRepository
	txnRepo      TransactionRepository
	paymentRepo  PaymentRepository
}

func NewStatementService(customerRepo CustomerRepository, txnRepo TransactionRepository, paymentRepo PaymentRepository) *StatementService {
	return &StatementService{
		customerRepo: customerRepo,
		txnRepo:      txnRepo,
		paymentRepo:  paymentRepo,
	}
}

func (s *StatementService) CustomerStatement(ctx context.Context, customerID int64) (*model.Statement, error) {
	customer, err := s.customerRepo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	transactions, _, err := s.txnRepo.List(ctx, repository.TransactionFilter{
		CustomerID: &customerID,
		Limit:      500,
		Desc:       true,
	})
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return &model.Statement{
		Customer:     customer,
		Transactions: transactions,
		Payments:     payments,
		Outstanding:  customer.Outstanding,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
