package helpers

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
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

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestCustomer(t *testing.T, db *pg.DB, name string) *repository.CustomerEntity {
	ctx := context.Background()
	customer := &repository.CustomerEntity{
		Name:  name,
		Phone: "0912000000",
	}
	err := db.Write(ctx).Create(customer).Error
	require.NoError(t, err)
	return customer
}

func CreateTestSupplier(t *testing.T, db *pg.DB, name string) *repository.SupplierEntity {
	ctx := context.Background()
	supplier := &repository.SupplierEntity{
		Name:  name,
		Phone: "0913000000",
	}
	err := db.Write(ctx).Create(supplier).Error
	require.NoError(t, err)
	return supplier
}

func CreateTestBottleType(t *testing.T, db *pg.DB, name string, fillWeightG, pricePerFill int64) *repository.BottleTypeEntity {
	ctx := context.Background()
	bt := &repository.BottleTypeEntity{
		Name:           name,
		CapacityLiters: 40,
		FillWeightG:    fillWeightG,
		PricePerFill:   pricePerFill,
	}
	err := db.Write(ctx).Create(bt).Error
	require.NoError(t, err)
	return bt
}

func CreateTestBottle(t *testing.T, db *pg.DB, serial string, typeID int64, status string) *repository.BottleEntity {
	ctx := context.Background()
	b := &repository.BottleEntity{
		Serial:   serial,
		TypeID:   typeID,
		Status:   status,
		Location: "center",
	}
	err := db.Write(ctx).Create(b).Error
	require.NoError(t, err)
	return b
}

func SeedTank(t *testing.T, db *pg.DB, capacityG, levelG int64) *repository.TankEntity {
	ctx := context.Background()
	tank := &repository.TankEntity{
		ID:                 1,
		CapacityG:          capacityG,
		LevelG:             levelG,
		LowThresholdG:      capacityG / 5,
		CriticalThresholdG: capacityG / 20,
	}
	err := db.Write(ctx).Create(tank).Error
	require.NoError(t, err)
	return tank
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
