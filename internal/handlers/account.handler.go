package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
)

type AccountService interface {
	CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	CreateSupplier(ctx context.Context, s *model.Supplier) (*model.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*model.Supplier, error)
}

type AccountHandler struct {
	svc AccountService
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.POST("/customers", h.CreateCustomer)
	e.GET("/customers/{id}", h.GetCustomer)
	e.POST("/suppliers", h.CreateSupplier)
	e.GET("/suppliers/{id}", h.GetSupplier)
}

func NewAccountHandler(accountService AccountService) *AccountHandler {
	return &AccountHandler{svc: accountService}
}

func (h *AccountHandler) CreateCustomer(ctx *xhttp.RequestCtx) {
	var c model.Customer
	if err := readJSON(ctx, &c); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	created, err := h.svc.CreateCustomer(ctx, &c)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *AccountHandler) GetCustomer(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid customer id")
		return
	}
	c, err := h.svc.GetCustomer(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, c)
}

func (h *AccountHandler) CreateSupplier(ctx *xhttp.RequestCtx) {
	var s model.Supplier
	if err := readJSON(ctx, &s); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	created, err := h.svc.CreateSupplier(ctx, &s)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, created)
}

func (h *AccountHandler) GetSupplier(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid supplier id")
		return
	}
	s, err := h.svc.GetSupplier(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, s)
}
