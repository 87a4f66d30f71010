package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
)

type TransactionService interface {
	Issue(ctx context.Context, p model.IssueRequest) (*model.Transaction, error)
	Return(ctx context.Context, p model.ReturnRequest) (*model.Transaction, error)
	CollectPayment(ctx context.Context, p model.CollectPaymentRequest) (*model.Payment, error)
}

type CustomerLedgerService interface {
	CustomerHistory(ctx context.Context, customerID int64, f model.LedgerFilter) ([]*model.LedgerEntry, []*model.Bottle, error)
}

type StatementService interface {
	CustomerStatement(ctx context.Context, customerID int64) (*model.Statement, error)
}

type TransactionHandler struct {
	svc        TransactionService
	ledger     CustomerLedgerService
	statements StatementService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/customer-transactions/issue", h.Issue)
	e.POST("/customer-transactions/return", h.Return)
	e.POST("/customer-transactions/payment", h.CollectPayment)
	e.GET("/customers/{id}/bottle-ledger", h.CustomerBottleLedger)
	e.GET("/customers/{id}/statement", h.CustomerStatement)
}

func NewTransactionHandler(txnService TransactionService, ledgerService CustomerLedgerService, statementService StatementService) *TransactionHandler {
	return &TransactionHandler{
		svc:        txnService,
		ledger:     ledgerService,
		statements: statementService,
	}
}

type issueRequest struct {
	CustomerID  int64   `json:"customer_id"`
	BottleIDs   []int64 `json:"bottle_ids"`
	TotalAmount int64   `json:"total_amount"`
	AmountPaid  int64   `json:"amount_paid"`
	Notes       string  `json:"notes"`
}

type returnRequest struct {
	CustomerID int64   `json:"customer_id"`
	BottleIDs  []int64 `json:"bottle_ids"`
	Notes      string  `json:"notes"`
}

type paymentRequest struct {
	CustomerID    int64  `json:"customer_id"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	TransactionID *int64 `json:"transaction_id,omitempty"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
}

type customerLedgerResponse struct {
	Ledger         []*model.LedgerEntry `json:"ledger"`
	CurrentBottles []*model.Bottle      `json:"current_bottles"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) Issue(ctx *xhttp.RequestCtx) {
	var req issueRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.IssueRequest{
		CustomerID:  req.CustomerID,
		BottleIDs:   req.BottleIDs,
		TotalAmount: req.TotalAmount,
		AmountPaid:  req.AmountPaid,
		Notes:       req.Notes,
	}
	txn, err := h.svc.Issue(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, txn)
}

func (h *TransactionHandler) Return(ctx *xhttp.RequestCtx) {
	var req returnRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.ReturnRequest{
		CustomerID: req.CustomerID,
		BottleIDs:  req.BottleIDs,
		Notes:      req.Notes,
	}
	txn, err := h.svc.Return(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, txn)
}

func (h *TransactionHandler) CollectPayment(ctx *xhttp.RequestCtx) {
	var req paymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.CollectPaymentRequest{
		AccountID:     req.CustomerID,
		Amount:        req.Amount,
		Method:        model.PaymentMethod(req.Method),
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Notes:         req.Notes,
	}
	payment, err := h.svc.CollectPayment(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, payment)
}

func (h *TransactionHandler) CustomerBottleLedger(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid customer id")
		return
	}
	var f model.LedgerFilter
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	f.Desc = true

	entries, bottles, err := h.ledger.CustomerHistory(ctx, id, f)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, customerLedgerResponse{Ledger: entries, CurrentBottles: bottles})
}

func (h *TransactionHandler) CustomerStatement(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid customer id")
		return
	}
	st, err := h.statements.CustomerStatement(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, st)
}
