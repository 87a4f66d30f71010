package repository

import (
	"context"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
)

type PaymentEntity struct {
	ID            int64     `db:"id"             gorm:"primaryKey;autoIncrement;column:id"`
	CustomerID    *int64    `db:"customer_id"    gorm:"column:customer_id;index"`
	SupplierID    *int64    `db:"supplier_id"    gorm:"column:supplier_id;index"`
	TransactionID *int64    `db:"transaction_id" gorm:"column:transaction_id;index"`
	Amount        int64     `db:"amount"         gorm:"column:amount;not null"`
	Method        string    `db:"method"         gorm:"column:method;not null"`
	Reference     string    `db:"reference"      gorm:"column:reference"`
	Notes         string    `db:"notes"          gorm:"column:notes"`
	CreatedAt     time.Time `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
}

func (PaymentEntity) TableName() string { return "payments" }

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		SupplierID:    m.SupplierID,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		Method:        string(m.Method),
		Reference:     m.Reference,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:            e.ID,
		CustomerID:    e.CustomerID,
		SupplierID:    e.SupplierID,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		Method:        model.PaymentMethod(e.Method),
		Reference:     e.Reference,
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}

// PaymentRepository is append-only, like the ledger.
type PaymentRepository struct {
	*pg.DB
}

func NewPaymentRepository(db *pg.DB) *PaymentRepository {
	return &PaymentRepository{
		db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	entity := toPaymentEntity(p)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toPaymentModel(entity), nil
}

func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}

func (r *PaymentRepository) ListBySupplier(ctx context.Context, supplierID int64) ([]*model.Payment, error) {
	var entities []*PaymentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("id asc").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toPaymentModels(entities), nil
}
