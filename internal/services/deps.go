package services

import (
	"context"
	"fmt"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
)

// Repository surfaces the services depend on. Concrete implementations
// live in internal/repository; tests substitute mocks.

type BottleRepository interface {
	Register(ctx context.Context, p model.BottleRegisterRequest) (*model.Bottle, error)
	Transition(ctx context.Context, bottleID int64, from, to model.BottleStatus, holderID *int64) (*model.Bottle, error)
	Get(ctx context.Context, id int64) (*model.Bottle, error)
	GetBySerial(ctx context.Context, serial string) (*model.Bottle, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*model.Bottle, error)
	List(ctx context.Context, f model.BottleFilter) ([]*model.Bottle, int64, error)
	ListEmptyOrdered(ctx context.Context) ([]*model.Bottle, error)
	CreateType(ctx context.Context, t *model.BottleType) (*model.BottleType, error)
	GetType(ctx context.Context, id int64) (*model.BottleType, error)
}

type TankRepository interface {
	Reserve(ctx context.Context, grams int64) (*model.Tank, error)
	Deposit(ctx context.Context, grams int64) (*model.Tank, error)
	Release(ctx context.Context, grams int64) error
	Get(ctx context.Context) (*model.Tank, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error)
	History(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	Get(ctx context.Context, id int64) (*model.Transaction, error)
	ListUnpaidByCustomer(ctx context.Context, customerID int64) ([]*model.Transaction, error)
	ListUnpaidBySupplier(ctx context.Context, supplierID int64) ([]*model.Transaction, error)
	ReduceOutstanding(ctx context.Context, txID int64, amount int64) error
	List(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*model.Payment, error)
	ListBySupplier(ctx context.Context, supplierID int64) ([]*model.Payment, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) (*model.Customer, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	AddOutstanding(ctx context.Context, customerID int64, amount int64) error
	SettleOutstanding(ctx context.Context, customerID int64, amount int64) error
}

type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) (*model.Supplier, error)
	Get(ctx context.Context, id int64) (*model.Supplier, error)
	AddPayable(ctx context.Context, supplierID int64, amount int64) error
	SettlePayable(ctx context.Context, supplierID int64, amount int64) error
}

type FillPlanRepository interface {
	Create(ctx context.Context, plan *model.FillPlan) (*model.FillPlan, error)
	GetForUpdate(ctx context.Context, id string) (*model.FillPlan, error)
	MarkApplied(ctx context.Context, id string, res *model.FillResult) error
	RecordedResult(ctx context.Context, id string) (*model.FillResult, error)
}

// TxRunner runs a function inside one storage transaction. All repository
// calls made with the derived context join that transaction, which is how
// tank reservation, bottle transitions, ledger entries and balance
// updates commit or roll back as a single unit.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AlertPublisher pushes tank alerts onto the event stream. Satisfied by
// *queue.Queue.
type AlertPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// BottleNotAvailableError reports exactly which cylinders block a
// customer operation, so the caller can adjust the request.
type BottleNotAvailableError struct {
	BottleIDs []int64
	Reason    string
}

func (e *BottleNotAvailableError) Error() string {
	return fmt.Sprintf("bottles not available (%s): %v", e.Reason, e.BottleIDs)
}

func (e *BottleNotAvailableError) Is(target error) bool { return target == ErrBottleNotAvailable }
