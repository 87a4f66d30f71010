package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/fasthttp/router"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
)

type BottleService interface {
	Register(ctx context.Context, p model.BottleRegisterRequest) (*model.Bottle, error)
	ReportDamage(ctx context.Context, bottleID int64, notes string) (*model.Bottle, error)
	Retire(ctx context.Context, bottleID int64, notes string) (*model.Bottle, error)
	Get(ctx context.Context, id int64) (*model.Bottle, error)
	List(ctx context.Context, f model.BottleFilter) ([]*model.Bottle, int64, error)
	CreateType(ctx context.Context, t *model.BottleType) (*model.BottleType, error)
}

type FillService interface {
	PlanFill(ctx context.Context, bottleIDs []int64) (*model.FillPlan, error)
	PlanFillAll(ctx context.Context) (*model.FillPlan, error)
	CommitFill(ctx context.Context, planID string) (*model.FillResult, error)
	Fill(ctx context.Context, bottleIDs []int64) (*model.FillResult, error)
}

type LedgerService interface {
	BottleHistory(ctx context.Context, bottleID int64, f model.LedgerFilter) ([]*model.LedgerEntry, int64, error)
}

type BottleHandler struct {
	svc    BottleService
	fills  FillService
	ledger LedgerService
}

func RegisterBottleRoutes(e *router.Group, h *BottleHandler) {
	e.POST("/bottles", h.RegisterBottle)
	e.GET("/bottles", h.ListBottles)
	e.GET("/bottles/{id}", h.GetBottle)
	e.GET("/bottles/{id}/ledger", h.BottleLedger)
	e.POST("/bottles/fill", h.FillBottles)
	e.POST("/bottles/fill/plan", h.PlanFill)
	e.POST("/bottles/fill/commit", h.CommitFill)
	e.POST("/bottles/damage", h.ReportDamage)
	e.POST("/bottles/retire", h.RetireBottle)
	e.POST("/bottle-types", h.CreateBottleType)
}

func NewBottleHandler(bottleService BottleService, fillService FillService, ledgerService LedgerService) *BottleHandler {
	return &BottleHandler{
		svc:    bottleService,
		fills:  fillService,
		ledger: ledgerService,
	}
}

type registerBottleRequest struct {
	Serial  string `json:"serial"`
	TypeID  int64  `json:"type_id"`
	OwnerID *int64 `json:"owner_id,omitempty"`
}

type fillRequest struct {
	BottleIDs []int64 `json:"bottle_ids"`
	All       bool    `json:"all"`
}

type commitFillRequest struct {
	PlanID string `json:"plan_id"`
}

type bottleActionRequest struct {
	BottleID int64  `json:"bottle_id"`
	Notes    string `json:"notes"`
}

type bottleListResponse struct {
	Items []*model.Bottle `json:"items"`
	Total int64           `json:"total"`
}

type ledgerResponse struct {
	Items []*model.LedgerEntry `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *BottleHandler) RegisterBottle(ctx *xhttp.RequestCtx) {
	var req registerBottleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	p := model.BottleRegisterRequest{
		Serial:  req.Serial,
		TypeID:  req.TypeID,
		OwnerID: req.OwnerID,
	}
	b, err := h.svc.Register(ctx, p)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, b)
}

func (h *BottleHandler) GetBottle(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid bottle id")
		return
	}
	b, err := h.svc.Get(ctx, id)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, b)
}

func (h *BottleHandler) ListBottles(ctx *xhttp.RequestCtx) {
	var f model.BottleFilter

	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.BottleStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "type_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.TypeID = &id
		}
	}
	if v := query(ctx, "holder_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.HolderID = &id
		}
	}
	if v := query(ctx, "serial"); v != "" {
		f.Serial = &v
	}
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

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, bottleListResponse{Items: items, Total: total})
}

func (h *BottleHandler) BottleLedger(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid bottle id")
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
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.ledger.BottleHistory(ctx, id, f)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, ledgerResponse{Items: items, Total: total})
}

// FillBottles plans and commits in one call. With "all" set it fills
// every empty cylinder that fits the current tank level.
func (h *BottleHandler) FillBottles(ctx *xhttp.RequestCtx) {
	var req fillRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	var (
		res *model.FillResult
		err error
	)
	if req.All {
		var plan *model.FillPlan
		plan, err = h.fills.PlanFillAll(ctx)
		if err == nil {
			res, err = h.fills.CommitFill(ctx, plan.ID)
		}
	} else {
		res, err = h.fills.Fill(ctx, req.BottleIDs)
	}
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, res)
}

func (h *BottleHandler) PlanFill(ctx *xhttp.RequestCtx) {
	var req fillRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	var (
		plan *model.FillPlan
		err  error
	)
	if req.All {
		plan, err = h.fills.PlanFillAll(ctx)
	} else {
		plan, err = h.fills.PlanFill(ctx, req.BottleIDs)
	}
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, plan)
}

func (h *BottleHandler) CommitFill(ctx *xhttp.RequestCtx) {
	var req commitFillRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.PlanID == "" {
		writeError(ctx, 400, "plan_id is required")
		return
	}
	res, err := h.fills.CommitFill(ctx, req.PlanID)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, res)
}

func (h *BottleHandler) ReportDamage(ctx *xhttp.RequestCtx) {
	var req bottleActionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	b, err := h.svc.ReportDamage(ctx, req.BottleID, req.Notes)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, b)
}

func (h *BottleHandler) RetireBottle(ctx *xhttp.RequestCtx) {
	var req bottleActionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	b, err := h.svc.Retire(ctx, req.BottleID, req.Notes)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 200, b)
}

func (h *BottleHandler) CreateBottleType(ctx *xhttp.RequestCtx) {
	var t model.BottleType
	if err := readJSON(ctx, &t); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	created, err := h.svc.CreateType(ctx, &t)
	if err != nil {
		writeDomainError(ctx, err)
		return
	}
	writeJSON(ctx, 201, created)
}
