package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/queue"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/oxyplant/cylinder-ledger/internal/services"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testDB = pg.DB

type TestEnvironment struct {
	DB           *pg.DB
	Redis        *miniredis.Miniredis
	RedisAdapter redis.RedisAdapter
	Queue        *queue.Queue

	BottleRepo   *repository.BottleRepository
	TankRepo     *repository.TankRepository
	LedgerRepo   *repository.LedgerRepository
	TxnRepo      *repository.TransactionRepository
	PaymentRepo  *repository.PaymentRepository
	CustomerRepo *repository.CustomerRepository
	SupplierRepo *repository.SupplierRepository
	PlanRepo     *repository.FillPlanRepository

	Bottles      *services.BottleService
	Fills        *services.FillService
	Transactions *services.TransactionService
	Ledger       *services.LedgerService
	Statements   *services.StatementService
	Accounts     *services.AccountService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.BottleTypeEntity{},
		&repository.BottleEntity{},
		&repository.TankEntity{},
		&repository.LedgerEntryEntity{},
		&repository.TransactionEntity{},
		&repository.TransactionBottleEntity{},
		&repository.PaymentEntity{},
		&repository.CustomerEntity{},
		&repository.SupplierEntity{},
		&repository.FillPlanEntity{},
	)
	require.NoError(t, err)

	pgDB := &testDB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	q, err := queue.New(redisAdapter, queue.Config{
		Name:              "test:tank-alerts",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	})
	require.NoError(t, err)

	bottleRepo := repository.NewBottleRepository(pgDB)
	tankRepo := repository.NewTankRepository(pgDB)
	ledgerRepo := repository.NewLedgerRepository(pgDB)
	txnRepo := repository.NewTransactionRepository(pgDB)
	paymentRepo := repository.NewPaymentRepository(pgDB)
	customerRepo := repository.NewCustomerRepository(pgDB)
	supplierRepo := repository.NewSupplierRepository(pgDB)
	planRepo := repository.NewFillPlanRepository(pgDB)

	alerts := services.NewAlertService(q)

	return &TestEnvironment{
		DB:           pgDB,
		Redis:        mr,
		RedisAdapter: redisAdapter,
		Queue:        q,
		BottleRepo:   bottleRepo,
		TankRepo:     tankRepo,
		LedgerRepo:   ledgerRepo,
		TxnRepo:      txnRepo,
		PaymentRepo:  paymentRepo,
		CustomerRepo: customerRepo,
		SupplierRepo: supplierRepo,
		PlanRepo:     planRepo,
		Bottles:      services.NewBottleService(pgDB, bottleRepo, ledgerRepo),
		Fills:        services.NewFillService(pgDB, bottleRepo, tankRepo, ledgerRepo, planRepo, alerts),
		Transactions: services.NewTransactionService(pgDB, bottleRepo, tankRepo, ledgerRepo, txnRepo, paymentRepo, customerRepo, supplierRepo, alerts),
		Ledger:       services.NewLedgerService(bottleRepo, ledgerRepo),
		Statements:   services.NewStatementService(customerRepo, txnRepo, paymentRepo),
		Accounts:     services.NewAccountService(customerRepo, supplierRepo),
	}
}

func (env *TestEnvironment) Cleanup() {
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) seed(t *testing.T, capacityG, levelG int64) (typeID, customerID int64, bottleIDs []int64) {
	ctx := context.Background()

	_, err := env.TankRepo.Init(ctx, capacityG, levelG, capacityG/5, capacityG/20)
	require.NoError(t, err)

	bt, err := env.Bottles.CreateType(ctx, &model.BottleType{
		Name:           "medical-40l",
		CapacityLiters: 40,
		FillWeightG:    6_000,
		PricePerFill:   150_000,
	})
	require.NoError(t, err)

	customer, err := env.Accounts.CreateCustomer(ctx, &model.Customer{Name: "Shafa Clinic", Phone: "0912100001"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		b, err := env.Bottles.Register(ctx, model.BottleRegisterRequest{
			Serial: fmt.Sprintf("CYL-%03d", i+1),
			TypeID: bt.ID,
		})
		require.NoError(t, err)
		bottleIDs = append(bottleIDs, b.ID)
	}
	return bt.ID, customer.ID, bottleIDs
}

// Full lifecycle: register -> fill -> issue -> payment -> return. Every
// mutation must show up in the movement ledger and the money must stay
// consistent across transaction, customer balance and statement.
func TestCylinderLifecycleFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()
	ctx := context.Background()

	_, customerID, bottleIDs := env.seed(t, 500_000, 450_000)

	// Fill all three empties in one batch.
	res, err := env.Fills.Fill(ctx, bottleIDs)
	require.NoError(t, err)
	assert.Len(t, res.Filled, 3)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, int64(450_000-3*6_000), res.TankLevelG)

	tank, err := env.TankRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.TankLevelG, tank.LevelG)

	// Issue two of them on partial payment.
	txn, err := env.Transactions.Issue(ctx, model.IssueRequest{
		CustomerID:  customerID,
		BottleIDs:   bottleIDs[:2],
		TotalAmount: 300_000,
		AmountPaid:  100_000,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartial, txn.Status)
	assert.Equal(t, int64(200_000), txn.Outstanding)
	assert.Equal(t, txn.TotalAmount, txn.AmountPaid+txn.Outstanding)

	customer, err := env.CustomerRepo.Get(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), customer.Outstanding)

	issued, err := env.BottleRepo.Get(ctx, bottleIDs[0])
	require.NoError(t, err)
	assert.Equal(t, model.BottleStatusWithCustomer, issued.Status)
	assert.Equal(t, model.LocationCustomer, issued.Location)
	require.NotNil(t, issued.HolderID)
	assert.Equal(t, customerID, *issued.HolderID)

	// Settle the remainder.
	payment, err := env.Transactions.CollectPayment(ctx, model.CollectPaymentRequest{
		AccountID: customerID,
		Amount:    200_000,
		Method:    model.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200_000), payment.Amount)

	customer, err = env.CustomerRepo.Get(ctx, customerID)
	require.NoError(t, err)
	assert.Zero(t, customer.Outstanding)

	stmt, err := env.Statements.CustomerStatement(ctx, customerID)
	require.NoError(t, err)
	assert.Zero(t, stmt.Outstanding)
	assert.Len(t, stmt.Payments, 1)

	// Empties come back.
	_, err = env.Transactions.Return(ctx, model.ReturnRequest{
		CustomerID: customerID,
		BottleIDs:  bottleIDs[:2],
	})
	require.NoError(t, err)

	returned, err := env.BottleRepo.Get(ctx, bottleIDs[0])
	require.NoError(t, err)
	assert.Equal(t, model.BottleStatusEmpty, returned.Status)
	assert.Equal(t, model.LocationCenter, returned.Location)
	assert.Nil(t, returned.HolderID)

	// The ledger carries the whole story, oldest first.
	entries, _, err := env.Ledger.BottleHistory(ctx, bottleIDs[0], model.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, model.LedgerOpReceived, entries[0].Op)
	assert.Equal(t, model.LedgerOpFilled, entries[1].Op)
	assert.Equal(t, model.LedgerOpIssued, entries[2].Op)
	assert.Equal(t, model.LedgerOpReturned, entries[3].Op)
}

func TestSupplierDeliveryFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()
	ctx := context.Background()

	_, err := env.TankRepo.Init(ctx, 500_000, 100_000, 100_000, 25_000)
	require.NoError(t, err)

	supplier, err := env.Accounts.CreateSupplier(ctx, &model.Supplier{Name: "Pars Gas Co", Phone: "0913100001"})
	require.NoError(t, err)

	tank, txn, err := env.Transactions.RecordSupplierDelivery(ctx, model.SupplierDeliveryRequest{
		SupplierID: supplier.ID,
		WeightG:    200_000,
		PricePerKg: 5_000,
		AmountPaid: 400_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), tank.LevelG)
	assert.Equal(t, int64(1_000_000), txn.TotalAmount) // 200 kg at 5000/kg
	assert.Equal(t, int64(600_000), txn.Outstanding)

	got, err := env.SupplierRepo.Get(ctx, supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), got.Payable)

	_, err = env.Transactions.PaySupplier(ctx, model.CollectPaymentRequest{
		AccountID: supplier.ID,
		Amount:    600_000,
		Method:    model.PaymentMethodBank,
	})
	require.NoError(t, err)

	got, err = env.SupplierRepo.Get(ctx, supplier.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Payable)

	// A delivery that would overflow the tank is rejected whole.
	_, _, err = env.Transactions.RecordSupplierDelivery(ctx, model.SupplierDeliveryRequest{
		SupplierID: supplier.ID,
		WeightG:    300_000,
		PricePerKg: 5_000,
	})
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)
}

// A payment targeted at a specific transaction must stay on the paying
// customer's own account; crossing accounts would desync both aggregates
// from their per-transaction remainders.
func TestTargetedPaymentStaysOnOwnAccount(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()
	ctx := context.Background()

	_, customerA, bottleIDs := env.seed(t, 500_000, 450_000)

	customerB, err := env.Accounts.CreateCustomer(ctx, &model.Customer{Name: "Mehr Workshop", Phone: "0912100002"})
	require.NoError(t, err)

	_, err = env.Fills.Fill(ctx, bottleIDs[:2])
	require.NoError(t, err)

	_, err = env.Transactions.Issue(ctx, model.IssueRequest{
		CustomerID:  customerA,
		BottleIDs:   bottleIDs[:1],
		TotalAmount: 150_000,
	})
	require.NoError(t, err)

	txnB, err := env.Transactions.Issue(ctx, model.IssueRequest{
		CustomerID:  customerB.ID,
		BottleIDs:   bottleIDs[1:2],
		TotalAmount: 150_000,
	})
	require.NoError(t, err)

	// Customer A paying against customer B's transaction is rejected whole.
	_, err = env.Transactions.CollectPayment(ctx, model.CollectPaymentRequest{
		AccountID:     customerA,
		Amount:        50_000,
		TransactionID: &txnB.ID,
	})
	require.ErrorIs(t, err, services.ErrInvalidRequest)

	a, err := env.CustomerRepo.Get(ctx, customerA)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), a.Outstanding)

	b, err := env.CustomerRepo.Get(ctx, customerB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), b.Outstanding)

	got, err := env.TxnRepo.Get(ctx, txnB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), got.Outstanding)

	// Targeting their own transaction still works.
	_, err = env.Transactions.CollectPayment(ctx, model.CollectPaymentRequest{
		AccountID:     customerB.ID,
		Amount:        150_000,
		TransactionID: &txnB.ID,
	})
	require.NoError(t, err)

	b, err = env.CustomerRepo.Get(ctx, customerB.ID)
	require.NoError(t, err)
	assert.Zero(t, b.Outstanding)
}

func TestFillCommitIsIdempotent(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()
	ctx := context.Background()

	_, _, bottleIDs := env.seed(t, 500_000, 450_000)

	plan, err := env.Fills.PlanFill(ctx, bottleIDs)
	require.NoError(t, err)
	require.Len(t, plan.Bottles, 3)

	first, err := env.Fills.CommitFill(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, first.Filled, 3)

	// Replaying the same plan must not touch the tank again.
	second, err := env.Fills.CommitFill(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Filled, second.Filled)
	assert.Equal(t, first.TankLevelG, second.TankLevelG)

	tank, err := env.TankRepo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.TankLevelG, tank.LevelG)
}

func TestLowTankPublishesAlert(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()
	ctx := context.Background()

	// Level sits just above the low threshold; one fill crosses it.
	_, _, bottleIDs := env.seed(t, 500_000, 104_000)

	_, err := env.Fills.Fill(ctx, bottleIDs[:1])
	require.NoError(t, err)

	total, _, _, err := env.Queue.Len()
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	received := make(chan *model.TankAlert, 1)
	err = env.Queue.Consume(func(ctx context.Context, msg *queue.Message) error {
		var alert model.TankAlert
		if err := json.Unmarshal(msg.Data, &alert); err != nil {
			return err
		}
		received <- &alert
		return nil
	})
	require.NoError(t, err)

	select {
	case alert := <-received:
		assert.Equal(t, model.AlertSeverityLow, alert.Severity)
		assert.Equal(t, int64(98_000), alert.LevelG)
		assert.NotEmpty(t, alert.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("no tank alert published")
	}

	// Filling again while still low must not re-alert at the same severity.
	_, err = env.Fills.Fill(ctx, bottleIDs[1:2])
	require.NoError(t, err)

	total, _, _, err = env.Queue.Len()
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
