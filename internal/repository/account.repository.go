package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerEntity struct {
	ID          int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Name        string    `db:"name"        gorm:"column:name;not null"`
	Phone       string    `db:"phone"       gorm:"column:phone"`
	Address     string    `db:"address"     gorm:"column:address"`
	Outstanding int64     `db:"outstanding" gorm:"column:outstanding;not null;default:0"`
	CreatedAt   time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
}

func (CustomerEntity) TableName() string { return "customers" }

type SupplierEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `db:"name"       gorm:"column:name;not null"`
	Phone     string    `db:"phone"      gorm:"column:phone"`
	Payable   int64     `db:"payable"    gorm:"column:payable;not null;default:0"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (SupplierEntity) TableName() string { return "suppliers" }

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:          e.ID,
		Name:        e.Name,
		Phone:       e.Phone,
		Address:     e.Address,
		Outstanding: e.Outstanding,
		CreatedAt:   e.CreatedAt,
	}
}

func toSupplierModel(e *SupplierEntity) *model.Supplier {
	if e == nil {
		return nil
	}
	return &model.Supplier{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Payable:   e.Payable,
		CreatedAt: e.CreatedAt,
	}
}

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := &CustomerEntity{
		Name:        c.Name,
		Phone:       c.Phone,
		Address:     c.Address,
		Outstanding: c.Outstanding,
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toCustomerModel(entity), nil
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var entity CustomerEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toCustomerModel(&entity), nil
}

// AddOutstanding increases the running credit total. Runs under a row
// lock with bounded retry so concurrent issues to the same customer
// serialize instead of losing updates.
func (r *CustomerRepository) AddOutstanding(ctx context.Context, customerID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return retryBalanceOp(ctx, func() error {
		return r.addOutstandingAttempt(ctx, customerID, amount)
	})
}

func (r *CustomerRepository) addOutstandingAttempt(ctx context.Context, customerID int64, amount int64) error {
	var entity CustomerEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", customerID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CustomerEntity{}).
		Where("id = ?", customerID).
		Update("outstanding", gorm.Expr("outstanding + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SettleOutstanding reduces the running total by a collected payment.
// A payment larger than the current outstanding is rejected outright;
// the balance can never go negative.
func (r *CustomerRepository) SettleOutstanding(ctx context.Context, customerID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return retryBalanceOp(ctx, func() error {
		return r.settleOutstandingAttempt(ctx, customerID, amount)
	})
}

func (r *CustomerRepository) settleOutstandingAttempt(ctx context.Context, customerID int64, amount int64) error {
	var entity CustomerEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", customerID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if entity.Outstanding < amount {
		return ErrOverpayment
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&CustomerEntity{}).
		Where("id = ? AND outstanding >= ?", customerID, amount).
		Update("outstanding", gorm.Expr("outstanding - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

type SupplierRepository struct {
	*pg.DB
}

func NewSupplierRepository(db *pg.DB) *SupplierRepository {
	return &SupplierRepository{
		db,
	}
}

func (r *SupplierRepository) Create(ctx context.Context, s *model.Supplier) (*model.Supplier, error) {
	entity := &SupplierEntity{
		Name:    s.Name,
		Phone:   s.Phone,
		Payable: s.Payable,
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toSupplierModel(entity), nil
}

func (r *SupplierRepository) Get(ctx context.Context, id int64) (*model.Supplier, error) {
	var entity SupplierEntity
	err := r.Read(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSupplierModel(&entity), nil
}

func (r *SupplierRepository) AddPayable(ctx context.Context, supplierID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return retryBalanceOp(ctx, func() error {
		return r.addPayableAttempt(ctx, supplierID, amount)
	})
}

func (r *SupplierRepository) addPayableAttempt(ctx context.Context, supplierID int64, amount int64) error {
	var entity SupplierEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", supplierID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&SupplierEntity{}).
		Where("id = ?", supplierID).
		Update("payable", gorm.Expr("payable + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SupplierRepository) SettlePayable(ctx context.Context, supplierID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return retryBalanceOp(ctx, func() error {
		return r.settlePayableAttempt(ctx, supplierID, amount)
	})
}

func (r *SupplierRepository) settlePayableAttempt(ctx context.Context, supplierID int64, amount int64) error {
	var entity SupplierEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", supplierID).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if entity.Payable < amount {
		return ErrOverpayment
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&SupplierEntity{}).
		Where("id = ? AND payable >= ?", supplierID, amount).
		Update("payable", gorm.Expr("payable - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// retryBalanceOp retries transient conflicts with exponential backoff.
// Permanent outcomes (ErrNotFound, ErrOverpayment) surface immediately.
func retryBalanceOp(ctx context.Context, attempt func() error) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for i := 0; i <= maxRetries; i++ {
		err := attempt()
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrOverpayment) {
			return err
		}

		if i < maxRetries {
			delay := baseDelay * time.Duration(1<<i)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: balance update failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}
