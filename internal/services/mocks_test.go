package services

import (
	"context"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Creation-style mocks echo their input when the expectation returns a
// nil value and a nil error, so tests can assert on what the service
// actually built without canning every field.

type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockBottleRepository struct {
	mock.Mock
}

func (m *MockBottleRepository) Register(ctx context.Context, p model.BottleRegisterRequest) (*model.Bottle, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) Transition(ctx context.Context, bottleID int64, from, to model.BottleStatus, holderID *int64) (*model.Bottle, error) {
	args := m.Called(ctx, bottleID, from, to, holderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) Get(ctx context.Context, id int64) (*model.Bottle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) GetBySerial(ctx context.Context, serial string) (*model.Bottle, error) {
	args := m.Called(ctx, serial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.Bottle, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) List(ctx context.Context, f model.BottleFilter) ([]*model.Bottle, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Bottle), args.Get(1).(int64), args.Error(2)
}

func (m *MockBottleRepository) ListEmptyOrdered(ctx context.Context) ([]*model.Bottle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Bottle), args.Error(1)
}

func (m *MockBottleRepository) CreateType(ctx context.Context, t *model.BottleType) (*model.BottleType, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil && args.Error(1) == nil {
		return t, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BottleType), args.Error(1)
}

func (m *MockBottleRepository) GetType(ctx context.Context, id int64) (*model.BottleType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BottleType), args.Error(1)
}

type MockTankRepository struct {
	mock.Mock
}

func (m *MockTankRepository) Reserve(ctx context.Context, grams int64) (*model.Tank, error) {
	args := m.Called(ctx, grams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tank), args.Error(1)
}

func (m *MockTankRepository) Deposit(ctx context.Context, grams int64) (*model.Tank, error) {
	args := m.Called(ctx, grams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tank), args.Error(1)
}

func (m *MockTankRepository) Release(ctx context.Context, grams int64) error {
	args := m.Called(ctx, grams)
	return args.Error(0)
}

func (m *MockTankRepository) Get(ctx context.Context) (*model.Tank, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tank), args.Error(1)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil && args.Error(1) == nil {
		return entry, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) History(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

type MockFillPlanRepository struct {
	mock.Mock
}

func (m *MockFillPlanRepository) Create(ctx context.Context, plan *model.FillPlan) (*model.FillPlan, error) {
	args := m.Called(ctx, plan)
	if args.Get(0) == nil && args.Error(1) == nil {
		return plan, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FillPlan), args.Error(1)
}

func (m *MockFillPlanRepository) GetForUpdate(ctx context.Context, id string) (*model.FillPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FillPlan), args.Error(1)
}

func (m *MockFillPlanRepository) MarkApplied(ctx context.Context, id string, res *model.FillResult) error {
	args := m.Called(ctx, id, res)
	return args.Error(0)
}

func (m *MockFillPlanRepository) RecordedResult(ctx context.Context, id string) (*model.FillResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FillResult), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil && args.Error(1) == nil {
		return txn, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListUnpaidByCustomer(ctx context.Context, customerID int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListUnpaidBySupplier(ctx context.Context, supplierID int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ReduceOutstanding(ctx context.Context, txID int64, amount int64) error {
	args := m.Called(ctx, txID, amount)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil && args.Error(1) == nil {
		return p, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Payment, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]*model.Payment, error) {
	args := m.Called(ctx, supplierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil && args.Error(1) == nil {
		return c, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Get(ctx context.Context, id int64) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *MockCustomerRepository) AddOutstanding(ctx context.Context, customerID int64, amount int64) error {
	args := m.Called(ctx, customerID, amount)
	return args.Error(0)
}

func (m *MockCustomerRepository) SettleOutstanding(ctx context.Context, customerID int64, amount int64) error {
	args := m.Called(ctx, customerID, amount)
	return args.Error(0)
}

type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) Create(ctx context.Context, s *model.Supplier) (*model.Supplier, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil && args.Error(1) == nil {
		return s, nil
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Get(ctx context.Context, id int64) (*model.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) AddPayable(ctx context.Context, supplierID int64, amount int64) error {
	args := m.Called(ctx, supplierID, amount)
	return args.Error(0)
}

func (m *MockSupplierRepository) SettlePayable(ctx context.Context, supplierID int64, amount int64) error {
	args := m.Called(ctx, supplierID, amount)
	return args.Error(0)
}
