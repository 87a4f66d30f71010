package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
)

type TankService interface {
	Get(ctx context.Context) (*model.Tank, error)
}

type SupplierTransactionService interface {
	RecordSupplierDelivery(ctx context.Context, p model.SupplierDeliveryRequest) (*model.Tank, *model.Transaction, error)
	PaySupplier(ctx context.Context, p model.CollectPaymentRequest) (*model.Payment, error)
}

type TankHandler struct {
	svc TankService
	txn SupplierTransactionService
}

func RegisterTankRoutes(e *router.Group, h *TankHandler) {
	e.GET("/tank", h.GetTank)
	e.POST("/tank/refill", h.RecordRefill)
	e.POST("/tank/supplier-payment", h.PaySupplier)
}

func NewTankHandler(tankService TankService, txnService SupplierTransactionService) *TankHandler {
	return &TankHandler{
		svc: tankService,
		txn: txnService,
	}
}

type refillRequest struct {
	SupplierID int64  `json:"supplier_id"`
	WeightG    int64  `json:"weight_g"`
	PricePerKg int64  `json:"price_per_kg"`
	AmountPaid int64  `json:"amount_paid"`
	Notes      string `json:"notes"`
}

type refillResponse struct {
	Tank        *model.Tank        `json:"tank"`
	Transaction *model.Transaction `json:"transaction"`
}

type supplierPaymentRequest struct {
	SupplierID    int64  `json:"supplier_id"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	TransactionID *int64 `json:"transaction_id,omitempty"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TankHandler) GetTank(ctx *xhttp.RequestCtx) {
	tank, err := h.svc.Get(ctx)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tank)
}

func (h *TankHandler) RecordRefill(ctx *xhttp.RequestCtx) {
	var req refillRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.SupplierDeliveryRequest{
		SupplierID: req.SupplierID,
		WeightG:    req.WeightG,
		PricePerKg: req.PricePerKg,
		AmountPaid: req.AmountPaid,
		Notes:      req.Notes,
	}
	tank, txn, err := h.txn.RecordSupplierDelivery(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, refillResponse{Tank: tank, Transaction: txn})
}

func (h *TankHandler) PaySupplier(ctx *xhttp.RequestCtx) {
	var req supplierPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.CollectPaymentRequest{
		AccountID:     req.SupplierID,
		Amount:        req.Amount,
		Method:        model.PaymentMethod(req.Method),
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Notes:         req.Notes,
	}
	payment, err := h.txn.PaySupplier(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, payment)
}
