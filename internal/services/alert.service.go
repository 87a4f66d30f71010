package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
)

// AlertService publishes tank threshold crossings to the alert stream.
// It latches the last published severity so a stretch of fills below the
// low watermark produces one event, not one per fill.
type AlertService struct {
	publisher AlertPublisher

	mu   sync.Mutex
	last model.AlertSeverity
}

func NewAlertService(publisher AlertPublisher) *AlertService {
	return &AlertService{
		publisher: publisher,
	}
}

func (s *AlertService) Evaluate(ctx context.Context, tank *model.Tank) {
	if s.publisher == nil || tank == nil {
		return
	}

	severity := tank.Severity()

	s.mu.Lock()
	changed := severity != s.last
	s.last = severity
	s.mu.Unlock()

	if !changed || severity == "" {
		return
	}

	alert := model.TankAlert{
		ID:        uuid.NewString(),
		Severity:  severity,
		LevelG:    tank.LevelG,
		CapacityG: tank.CapacityG,
		Percent:   tank.LevelPercent(),
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.publisher.PublishJSON(ctx, alert, map[string]string{"severity": string(severity)}); err != nil {
		// Alerting is best effort; the fill itself already committed.
		logger.Error("failed to publish tank alert", "error", err, "severity", severity, "level_g", tank.LevelG)
		return
	}
	logger.Warn("tank level alert published", "severity", severity, "level_g", tank.LevelG, "percent", tank.LevelPercent())
}
