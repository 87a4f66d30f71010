package alerts

import (
	"context"
	"encoding/json"
	"errors"

	gateway "github.com/oxyplant/cylinder-ledger/internal/gateways"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/queue"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/oxyplant/cylinder-ledger/pkg/prom"
)

// Notifier delivers one alert to the notification gateway.
type Notifier interface {
	NotifyTankAlert(ctx context.Context, alert *model.TankAlert) (*gateway.NotifyResponse, error)
}

// TankAlertProcessor turns tank threshold events into operator
// notifications, exactly once per event.
type TankAlertProcessor struct {
	notifier    Notifier
	idempotency *IdempotencyService
}

func NewTankAlertProcessor(notifier Notifier, idempotency *IdempotencyService) *TankAlertProcessor {
	return &TankAlertProcessor{
		notifier:    notifier,
		idempotency: idempotency,
	}
}

func (p *TankAlertProcessor) GetType() string {
	return "tank-alert"
}

func (p *TankAlertProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var alert model.TankAlert
	if err := json.Unmarshal(queueMessage.Data, &alert); err != nil {
		logger.Error("failed to unmarshal tank alert", "error", err)
		prom.IncCounter(prom.SystemAlerts, prom.MetricAlertsInvalid)
		return err // malformed payload heads to the DLQ
	}

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, alert.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("alert already delivered, skipping", "alert_id", alert.ID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("giving up on alert", "alert_id", alert.ID)
			prom.IncCounter(prom.SystemAlerts, prom.MetricAlertsDropped)
			return nil // ack so it stops blocking the group
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		return err
	}

	defer p.idempotency.ReleaseLock(ctx, procCtx)

	logger.Info("processing tank alert",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"level_g", alert.LevelG,
		"retry_count", procCtx.RetryCount)

	res, err := p.notifier.NotifyTankAlert(ctx, &alert)
	if err != nil {
		logger.Error("failed to notify", "alert_id", alert.ID, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("failed to mark failure", "alert_id", alert.ID, "error", markErr)
		}
		return err // nack, queue retries
	}

	prom.IncAlertDelivered(string(alert.Severity))

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		// Notification went out; a duplicate on redelivery is acceptable.
		logger.Error("failed to mark success", "alert_id", alert.ID, "error", markErr)
	}

	logger.Info("tank alert delivered", "alert_id", alert.ID, "status", res.Status)
	return nil
}
