package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
)

// TransactionService is the only writer of financial state. Every
// operation validates first, then applies the bottle transitions, the
// ledger entries and the balance delta inside one storage transaction.
type TransactionService struct {
	db           TxRunner
	bottleRepo   BottleRepository
	tankRepo     TankRepository
	ledgerRepo   LedgerRepository
	txnRepo      TransactionRepository
	paymentRepo  PaymentRepository
	customerRepo CustomerRepository
	supplierRepo SupplierRepository
	alerts       *AlertService
}

func NewTransactionService(db TxRunner, bottleRepo BottleRepository, tankRepo TankRepository, ledgerRepo LedgerRepository, txnRepo TransactionRepository, paymentRepo PaymentRepository, customerRepo CustomerRepository, supplierRepo SupplierRepository, alerts *AlertService) *TransactionService {
	return &TransactionService{
		db:           db,
		bottleRepo:   bottleRepo,
		tankRepo:     tankRepo,
		ledgerRepo:   ledgerRepo,
		txnRepo:      txnRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		supplierRepo: supplierRepo,
		alerts:       alerts,
	}
}

// Issue hands filled cylinders to a customer. The unpaid remainder
// becomes credit on the customer account. A StaleState race on any
// bottle retries the whole unit a bounded number of times before
// surfacing, so callers rarely see the conflict.
func (s *TransactionService) Issue(ctx context.Context, p model.IssueRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	bottleIDs := dedupe(p.BottleIDs)
	var txn *model.Transaction
	err := retryStale(ctx, func() error {
		return s.db.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.customerRepo.Get(ctx, p.CustomerID); err != nil {
				return err
			}

			bottles, err := s.bottleRepo.ListByIDs(ctx, bottleIDs)
			if err != nil {
				return err
			}
			if blocked := unavailableFor(bottleIDs, bottles, model.BottleStatusFilled, nil); len(blocked) > 0 {
				return &BottleNotAvailableError{BottleIDs: blocked, Reason: "not filled"}
			}

			credit := p.TotalAmount - p.AmountPaid
			customerID := p.CustomerID
			created, err := s.txnRepo.Create(ctx, &model.Transaction{
				Kind:        model.TransactionKindIssue,
				CustomerID:  &customerID,
				TotalAmount: p.TotalAmount,
				AmountPaid:  p.AmountPaid,
				Outstanding: credit,
				Status:      model.StatusFor(p.TotalAmount, p.AmountPaid),
				Notes:       p.Notes,
				BottleIDs:   bottleIDs,
			})
			if err != nil {
				return err
			}

			for _, b := range bottles {
				moved, err := s.bottleRepo.Transition(ctx, b.ID, model.BottleStatusFilled, model.BottleStatusWithCustomer, &customerID)
				if err != nil {
					return err
				}
				if _, err := s.ledgerRepo.Append(ctx, &model.LedgerEntry{
					BottleID:         moved.ID,
					Op:               model.LedgerOpIssued,
					PrevStatus:       model.BottleStatusFilled,
					PrevLocation:     model.LocationCenter,
					NewStatus:        moved.Status,
					NewLocation:      moved.Location,
					CounterpartyKind: model.CounterpartyCustomer,
					CounterpartyID:   &customerID,
					Notes:            p.Notes,
				}); err != nil {
					return err
				}
			}

			if credit > 0 {
				if err := s.customerRepo.AddOutstanding(ctx, customerID, credit); err != nil {
					return err
				}
			}

			txn = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Return takes empties back. Returning is not a payment event: the
// account balance does not move. Deposit refunds, if the business wants
// them, are a separate explicit payment.
func (s *TransactionService) Return(ctx context.Context, p model.ReturnRequest) (*model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	bottleIDs := dedupe(p.BottleIDs)
	var txn *model.Transaction
	err := retryStale(ctx, func() error {
		return s.db.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.customerRepo.Get(ctx, p.CustomerID); err != nil {
				return err
			}

			bottles, err := s.bottleRepo.ListByIDs(ctx, bottleIDs)
			if err != nil {
				return err
			}
			customerID := p.CustomerID
			if blocked := unavailableFor(bottleIDs, bottles, model.BottleStatusWithCustomer, &customerID); len(blocked) > 0 {
				return &BottleNotAvailableError{BottleIDs: blocked, Reason: "not held by this customer"}
			}

			created, err := s.txnRepo.Create(ctx, &model.Transaction{
				Kind:       model.TransactionKindReturn,
				CustomerID: &customerID,
				Status:     model.PaymentStatusFull,
				Notes:      p.Notes,
				BottleIDs:  bottleIDs,
			})
			if err != nil {
				return err
			}

			for _, b := range bottles {
				moved, err := s.bottleRepo.Transition(ctx, b.ID, model.BottleStatusWithCustomer, model.BottleStatusEmpty, nil)
				if err != nil {
					return err
				}
				if _, err := s.ledgerRepo.Append(ctx, &model.LedgerEntry{
					BottleID:         moved.ID,
					Op:               model.LedgerOpReturned,
					PrevStatus:       model.BottleStatusWithCustomer,
					PrevLocation:     model.LocationCustomer,
					NewStatus:        moved.Status,
					NewLocation:      moved.Location,
					CounterpartyKind: model.CounterpartyCustomer,
					CounterpartyID:   &customerID,
					Notes:            p.Notes,
				}); err != nil {
					return err
				}
			}

			txn = created
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CollectPayment receives money from a customer. Overpayment is rejected,
// not capped: the caller learns the real outstanding and retries with a
// correct amount. The aggregate balance and the per-transaction
// remainders move in the same storage transaction, oldest transaction
// first, so the two views cannot diverge. A targeted payment must name
// one of the customer's own transactions.
func (s *TransactionService) CollectPayment(ctx context.Context, p model.CollectPaymentRequest) (*model.Payment, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	var payment *model.Payment
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if p.TransactionID != nil {
			linked, err := s.txnRepo.Get(ctx, *p.TransactionID)
			if err != nil {
				return err
			}
			if linked.CustomerID == nil || *linked.CustomerID != p.AccountID {
				return fmt.Errorf("%w: transaction %d does not belong to customer %d", ErrInvalidRequest, *p.TransactionID, p.AccountID)
			}
		}

		if err := s.customerRepo.SettleOutstanding(ctx, p.AccountID, p.Amount); err != nil {
			return err
		}

		if p.TransactionID != nil {
			if err := s.txnRepo.ReduceOutstanding(ctx, *p.TransactionID, p.Amount); err != nil {
				return err
			}
		} else {
			if err := s.allocateCustomerPayment(ctx, p.AccountID, p.Amount); err != nil {
				return err
			}
		}

		customerID := p.AccountID
		created, err := s.paymentRepo.Create(ctx, &model.Payment{
			CustomerID:    &customerID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Method:        methodOrDefault(p.Method),
			Reference:     p.Reference,
			Notes:         p.Notes,
		})
		if err != nil {
			return err
		}
		payment = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *TransactionService) allocateCustomerPayment(ctx context.Context, customerID, amount int64) error {
	open, err := s.txnRepo.ListUnpaidByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	remaining := amount
	for _, t := range open {
		if remaining == 0 {
			break
		}
		part := remaining
		if t.Outstanding < part {
			part = t.Outstanding
		}
		if err := s.txnRepo.ReduceOutstanding(ctx, t.ID, part); err != nil {
			return err
		}
		remaining -= part
	}
	if remaining != 0 {
		// Aggregate said the money fits but the per-transaction rows
		// disagree. Roll the whole payment back.
		return repository.ErrConcurrentUpdate
	}
	return nil
}

// RecordSupplierDelivery books a bulk gas delivery. The tank deposit
// happens first: a delivery that would overflow the tank is rejected
// before any financial record exists.
func (s *TransactionService) RecordSupplierDelivery(ctx context.Context, p model.SupplierDeliveryRequest) (*model.Tank, *model.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	total := p.TotalAmount()
	if p.AmountPaid > total {
		return nil, nil, fmt.Errorf("%w: amount_paid exceeds delivery total", ErrInvalidRequest)
	}

	var (
		tank *model.Tank
		txn  *model.Transaction
	)
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.supplierRepo.Get(ctx, p.SupplierID); err != nil {
			return err
		}

		deposited, err := s.tankRepo.Deposit(ctx, p.WeightG)
		if err != nil {
			return err
		}

		outstanding := total - p.AmountPaid
		supplierID := p.SupplierID
		created, err := s.txnRepo.Create(ctx, &model.Transaction{
			Kind:        model.TransactionKindSupplierDelivery,
			SupplierID:  &supplierID,
			TotalAmount: total,
			AmountPaid:  p.AmountPaid,
			Outstanding: outstanding,
			Status:      model.StatusFor(total, p.AmountPaid),
			GasWeightG:  p.WeightG,
			Notes:       p.Notes,
		})
		if err != nil {
			return err
		}

		if outstanding > 0 {
			if err := s.supplierRepo.AddPayable(ctx, supplierID, outstanding); err != nil {
				return err
			}
		}

		tank = deposited
		txn = created
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.alerts != nil {
		s.alerts.Evaluate(ctx, tank)
	}
	return tank, txn, nil
}

// PaySupplier settles outstanding payable, optionally against one
// specific delivery transaction. Same overpayment policy as customer
// payments.
func (s *TransactionService) PaySupplier(ctx context.Context, p model.CollectPaymentRequest) (*model.Payment, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	var payment *model.Payment
	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if p.TransactionID != nil {
			linked, err := s.txnRepo.Get(ctx, *p.TransactionID)
			if err != nil {
				return err
			}
			if linked.SupplierID == nil || *linked.SupplierID != p.AccountID {
				return fmt.Errorf("%w: transaction %d does not belong to supplier %d", ErrInvalidRequest, *p.TransactionID, p.AccountID)
			}
		}

		if err := s.supplierRepo.SettlePayable(ctx, p.AccountID, p.Amount); err != nil {
			return err
		}

		if p.TransactionID != nil {
			if err := s.txnRepo.ReduceOutstanding(ctx, *p.TransactionID, p.Amount); err != nil {
				return err
			}
		} else {
			if err := s.allocateSupplierPayment(ctx, p.AccountID, p.Amount); err != nil {
				return err
			}
		}

		supplierID := p.AccountID
		created, err := s.paymentRepo.Create(ctx, &model.Payment{
			SupplierID:    &supplierID,
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Method:        methodOrDefault(p.Method),
			Reference:     p.Reference,
			Notes:         p.Notes,
		})
		if err != nil {
			return err
		}
		payment = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *TransactionService) allocateSupplierPayment(ctx context.Context, supplierID, amount int64) error {
	open, err := s.txnRepo.ListUnpaidBySupplier(ctx, supplierID)
	if err != nil {
		return err
	}
	remaining := amount
	for _, t := range open {
		if remaining == 0 {
			break
		}
		part := remaining
		if t.Outstanding < part {
			part = t.Outstanding
		}
		if err := s.txnRepo.ReduceOutstanding(ctx, t.ID, part); err != nil {
			return err
		}
		remaining -= part
	}
	if remaining != 0 {
		return repository.ErrConcurrentUpdate
	}
	return nil
}

// unavailableFor returns requested ids missing from bottles or not in the
// wanted status (and, when holder is set, not held by that customer).
func unavailableFor(requested []int64, bottles []*model.Bottle, want model.BottleStatus, holder *int64) []int64 {
	found := make(map[int64]*model.Bottle, len(bottles))
	for _, b := range bottles {
		found[b.ID] = b
	}
	var blocked []int64
	for _, id := range requested {
		b, ok := found[id]
		if !ok || b.Status != want {
			blocked = append(blocked, id)
			continue
		}
		if holder != nil && (b.HolderID == nil || *b.HolderID != *holder) {
			blocked = append(blocked, id)
		}
	}
	return blocked
}

func methodOrDefault(m model.PaymentMethod) model.PaymentMethod {
	if m == "" {
		return model.PaymentMethodCash
	}
	return m
}

// retryStale retries the unit on genuine concurrency conflicts with
// exponential backoff. Everything else surfaces immediately.
func retryStale(ctx context.Context, fn func() error) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, repository.ErrStaleState) {
			return err
		}
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}
	return fmt.Errorf("%w: %s", repository.ErrMaxRetriesExceeded, err)
}
