package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/oxyplant/cylinder-ledger/pkg/prom"
)

// FillService plans and commits fill batches. Planning is a dry run;
// committing reserves tank gas and transitions bottles inside one
// storage transaction, so a crash can never leave the tank decremented
// with the bottles still empty.
type FillService struct {
	db         TxRunner
	bottleRepo BottleRepository
	tankRepo   TankRepository
	ledgerRepo LedgerRepository
	planRepo   FillPlanRepository
	alerts     *AlertService
}

func NewFillService(db TxRunner, bottleRepo BottleRepository, tankRepo TankRepository, ledgerRepo LedgerRepository, planRepo FillPlanRepository, alerts *AlertService) *FillService {
	return &FillService{
		db:         db,
		bottleRepo: bottleRepo,
		tankRepo:   tankRepo,
		ledgerRepo: ledgerRepo,
		planRepo:   planRepo,
		alerts:     alerts,
	}
}

// PlanFill computes what filling the requested set would draw from the
// tank. Ids that are unknown or not currently empty are excluded and
// reported back; the caller always sees which parts of the request
// survived.
func (s *FillService) PlanFill(ctx context.Context, bottleIDs []int64) (*model.FillPlan, error) {
	if len(bottleIDs) == 0 {
		return nil, fmt.Errorf("%w: bottle_ids is required", ErrInvalidRequest)
	}

	bottles, err := s.bottleRepo.ListByIDs(ctx, dedupe(bottleIDs))
	if err != nil {
		return nil, err
	}

	found := make(map[int64]*model.Bottle, len(bottles))
	for _, b := range bottles {
		found[b.ID] = b
	}

	plan := &model.FillPlan{ID: uuid.NewString()}
	var included []*model.Bottle
	for _, id := range dedupe(bottleIDs) {
		b, ok := found[id]
		if !ok {
			plan.Skipped = append(plan.Skipped, model.SkippedBottle{BottleID: id, Reason: "not found"})
			continue
		}
		if b.Status != model.BottleStatusEmpty {
			plan.Skipped = append(plan.Skipped, model.SkippedBottle{BottleID: id, Reason: "status is " + string(b.Status)})
			continue
		}
		if b.Type == nil {
			return nil, fmt.Errorf("bottle %d has no type record", id)
		}
		included = append(included, b)
	}

	sortForFilling(included)
	for _, b := range included {
		plan.Bottles = append(plan.Bottles, model.PlannedBottle{
			BottleID: b.ID,
			Serial:   b.Serial,
			WeightG:  b.Type.FillWeightG,
		})
		plan.TotalG += b.Type.FillWeightG
	}

	return s.planRepo.Create(ctx, plan)
}

// PlanFillAll selects every empty cylinder the current tank level can
// cover, smallest capacity first then by serial, so the maximum count of
// bottles gets filled before the tank runs dry. Deterministic, not
// necessarily optimal.
func (s *FillService) PlanFillAll(ctx context.Context) (*model.FillPlan, error) {
	bottles, err := s.bottleRepo.ListEmptyOrdered(ctx)
	if err != nil {
		return nil, err
	}
	tank, err := s.tankRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	plan := &model.FillPlan{ID: uuid.NewString()}
	for _, b := range bottles {
		if b.Type == nil {
			return nil, fmt.Errorf("bottle %d has no type record", b.ID)
		}
		w := b.Type.FillWeightG
		if plan.TotalG+w > tank.LevelG {
			plan.Skipped = append(plan.Skipped, model.SkippedBottle{BottleID: b.ID, Reason: "exceeds available tank level"})
			continue
		}
		plan.Bottles = append(plan.Bottles, model.PlannedBottle{BottleID: b.ID, Serial: b.Serial, WeightG: w})
		plan.TotalG += w
	}

	return s.planRepo.Create(ctx, plan)
}

// CommitFill applies a plan. The whole batch runs in one storage
// transaction: the reservation and every bottle transition commit
// together or not at all. A bottle that raced another writer is dropped
// from the batch and its reserved grams go straight back to the tank;
// the rest of the batch still commits. Replaying an applied plan returns
// the recorded result without touching anything.
func (s *FillService) CommitFill(ctx context.Context, planID string) (*model.FillResult, error) {
	var res *model.FillResult
	start := time.Now()

	err := s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.planRepo.GetForUpdate(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Applied {
			recorded, err := s.planRepo.RecordedResult(ctx, planID)
			if err != nil {
				return err
			}
			res = recorded
			return nil
		}

		tank, err := s.tankRepo.Reserve(ctx, plan.TotalG)
		if err != nil {
			return err
		}

		result := &model.FillResult{
			PlanID:  plan.ID,
			Skipped: plan.Skipped,
			TotalG:  plan.TotalG,
		}
		level := tank.LevelG

		for _, pb := range plan.Bottles {
			bottle, err := s.bottleRepo.Transition(ctx, pb.BottleID, model.BottleStatusEmpty, model.BottleStatusFilled, nil)
			if err != nil {
				if errors.Is(err, repository.ErrStaleState) || errors.Is(err, repository.ErrNotFound) {
					if rerr := s.tankRepo.Release(ctx, pb.WeightG); rerr != nil {
						return rerr
					}
					level += pb.WeightG
					result.Dropped = append(result.Dropped, model.SkippedBottle{BottleID: pb.BottleID, Reason: "state changed concurrently"})
					continue
				}
				return err
			}

			if _, err := s.ledgerRepo.Append(ctx, &model.LedgerEntry{
				BottleID:     bottle.ID,
				Op:           model.LedgerOpFilled,
				PrevStatus:   model.BottleStatusEmpty,
				PrevLocation: model.LocationCenter,
				NewStatus:    bottle.Status,
				NewLocation:  bottle.Location,
			}); err != nil {
				return err
			}
			result.Filled = append(result.Filled, bottle.ID)
		}

		result.TankLevelG = level
		if err := s.planRepo.MarkApplied(ctx, plan.ID, result); err != nil {
			return err
		}
		res = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	prom.AddFillCommitDuration(time.Since(start).Seconds())
	prom.AddFillBottles(float64(len(res.Filled)), "filled")
	prom.AddFillBottles(float64(len(res.Dropped)), "dropped")
	prom.SetTankLevel(float64(res.TankLevelG))

	s.notifyTankLevel(ctx)
	return res, nil
}

// Fill is the single-call path the POS uses: plan then commit.
func (s *FillService) Fill(ctx context.Context, bottleIDs []int64) (*model.FillResult, error) {
	plan, err := s.PlanFill(ctx, bottleIDs)
	if err != nil {
		return nil, err
	}
	return s.CommitFill(ctx, plan.ID)
}

func (s *FillService) notifyTankLevel(ctx context.Context) {
	if s.alerts == nil {
		return
	}
	tank, err := s.tankRepo.Get(ctx)
	if err != nil {
		logger.Warn("failed to read tank for alert evaluation", "error", err)
		return
	}
	s.alerts.Evaluate(ctx, tank)
}

// sortForFilling orders by capacity liters, then serial.
func sortForFilling(bottles []*model.Bottle) {
	sort.Slice(bottles, func(i, j int) bool {
		ci, cj := bottles[i].Type.CapacityLiters, bottles[j].Type.CapacityLiters
		if ci != cj {
			return ci < cj
		}
		return bottles[i].Serial < bottles[j].Serial
	})
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
