package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"gorm.io/gorm"
)

type TransactionEntity struct {
	ID          int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	Kind        string    `db:"kind"         gorm:"column:kind;not null;index"`
	CustomerID  *int64    `db:"customer_id"  gorm:"column:customer_id;index"`
	SupplierID  *int64    `db:"supplier_id"  gorm:"column:supplier_id;index"`
	TotalAmount int64     `db:"total_amount" gorm:"column:total_amount;not null"`
	AmountPaid  int64     `db:"amount_paid"  gorm:"column:amount_paid;not null"`
	Outstanding int64     `db:"outstanding"  gorm:"column:outstanding;not null"`
	Status      string    `db:"status"       gorm:"column:status;not null"`
	GasWeightG  int64     `db:"gas_weight_g" gorm:"column:gas_weight_g;not null;default:0"`
	Notes       string    `db:"notes"        gorm:"column:notes"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`

	Bottles []*TransactionBottleEntity `gorm:"foreignKey:TransactionID"`
}

func (TransactionEntity) TableName() string { return "transactions" }

// TransactionBottleEntity links a transaction to the cylinders it moved.
type TransactionBottleEntity struct {
	ID            int64 `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	TransactionID int64 `db:"transaction_id" gorm:"column:transaction_id;not null;index"`
	BottleID      int64 `db:"bottle_id"      gorm:"column:bottle_id;not null;index"`
}

func (TransactionBottleEntity) TableName() string { return "transaction_bottles" }

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	e := &TransactionEntity{
		ID:          m.ID,
		Kind:        string(m.Kind),
		CustomerID:  m.CustomerID,
		SupplierID:  m.SupplierID,
		TotalAmount: m.TotalAmount,
		AmountPaid:  m.AmountPaid,
		Outstanding: m.Outstanding,
		Status:      string(m.Status),
		GasWeightG:  m.GasWeightG,
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
	}
	for _, id := range m.BottleIDs {
		e.Bottles = append(e.Bottles, &TransactionBottleEntity{BottleID: id})
	}
	return e
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	m := &model.Transaction{
		ID:          e.ID,
		Kind:        model.TransactionKind(e.Kind),
		CustomerID:  e.CustomerID,
		SupplierID:  e.SupplierID,
		TotalAmount: e.TotalAmount,
		AmountPaid:  e.AmountPaid,
		Outstanding: e.Outstanding,
		Status:      model.PaymentStatus(e.Status),
		GasWeightG:  e.GasWeightG,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
	}
	for _, b := range e.Bottles {
		m.BottleIDs = append(m.BottleIDs, b.BottleID)
	}
	return m
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

// Create writes the transaction and its bottle links in one insert tree.
// The record is immutable afterwards except for Outstanding, which only
// payments may shrink.
func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	if txn.AmountPaid+txn.Outstanding != txn.TotalAmount {
		return nil, errors.New("transaction split does not add up to total")
	}
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Bottles").
		Where("id = ?", id).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// ListUnpaidByCustomer returns open transactions oldest first, the order
// payments are allocated in.
func (r *TransactionRepository) ListUnpaidByCustomer(ctx context.Context, customerID int64) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("customer_id = ? AND outstanding > 0", customerID).
		Order("id asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) ListUnpaidBySupplier(ctx context.Context, supplierID int64) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("supplier_id = ? AND outstanding > 0", supplierID).
		Order("id asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

// ReduceOutstanding shrinks one transaction's remainder, guarded so it
// can never go below zero even under concurrent payments.
func (r *TransactionRepository) ReduceOutstanding(ctx context.Context, txID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND outstanding >= ?", txID, amount).
		Updates(map[string]interface{}{
			"outstanding": gorm.Expr("outstanding - ?", amount),
			"amount_paid": gorm.Expr("amount_paid + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.Write(ctx).WithContext(ctx).
			Model(&TransactionEntity{}).
			Where("id = ?", txID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrOverpayment
	}
	return nil
}

// TransactionFilter controls listing for statements and exports.
type TransactionFilter struct {
	CustomerID *int64
	SupplierID *int64
	Kind       *model.TransactionKind
	Limit      int
	Offset     int
	Desc       bool
}

func (r *TransactionRepository) List(ctx context.Context, f TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.Kind != nil {
		q = q.Where("kind = ?", string(*f.Kind))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "id asc"
	if f.Desc {
		order = "id desc"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var entities []*TransactionEntity
	err := q.Preload("Bottles").Order(order).Limit(limit).Offset(f.Offset).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}
	return toTransactionModels(entities), total, nil
}
