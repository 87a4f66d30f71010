package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gateway "github.com/oxyplant/cylinder-ledger/internal/gateways"
	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	calls int
	err   error
}

func (m *mockNotifier) NotifyTankAlert(ctx context.Context, alert *model.TankAlert) (*gateway.NotifyResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &gateway.NotifyResponse{
		AlertID:     alert.ID,
		Status:      gateway.StatusDelivered,
		DeliveredAt: time.Now(),
	}, nil
}

func alertMessage(t *testing.T, alert model.TankAlert) *queue.Message {
	t.Helper()
	data, err := json.Marshal(alert)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func TestTankAlertProcessor_DeliversOnce(t *testing.T) {
	notifier := &mockNotifier{}
	idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	p := NewTankAlertProcessor(notifier, idem)

	alert := model.TankAlert{
		ID:       "alert-1",
		Severity: model.AlertSeverityLow,
		LevelG:   80_000,
	}
	msg := alertMessage(t, alert)

	require.NoError(t, p.Process(context.Background(), msg))
	assert.Equal(t, 1, notifier.calls)

	// Redelivery of the same event must not notify again.
	require.NoError(t, p.Process(context.Background(), msg))
	assert.Equal(t, 1, notifier.calls)
}

func TestTankAlertProcessor_RetriesOnGatewayFailure(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("gateway down")}
	idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	p := NewTankAlertProcessor(notifier, idem)

	msg := alertMessage(t, model.TankAlert{ID: "alert-2", Severity: model.AlertSeverityCritical})

	err := p.Process(context.Background(), msg)
	require.Error(t, err)

	// Failure released the lock, so the redelivered event is retried.
	notifier.err = nil
	require.NoError(t, p.Process(context.Background(), msg))
	assert.Equal(t, 2, notifier.calls)
}

func TestTankAlertProcessor_GivesUpAfterMaxRetries(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("gateway down")}
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = 2
	idem := NewIdempotencyService(newMockRedisAdapter(), cfg)
	p := NewTankAlertProcessor(notifier, idem)

	msg := alertMessage(t, model.TankAlert{ID: "alert-3", Severity: model.AlertSeverityCritical})

	require.Error(t, p.Process(context.Background(), msg))
	require.Error(t, p.Process(context.Background(), msg))

	// Budget exhausted: processor acks without notifying.
	require.NoError(t, p.Process(context.Background(), msg))
	assert.Equal(t, 2, notifier.calls)
}

func TestTankAlertProcessor_MalformedPayload(t *testing.T) {
	notifier := &mockNotifier{}
	idem := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	p := NewTankAlertProcessor(notifier, idem)

	err := p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{not json")})
	require.Error(t, err)
	assert.Zero(t, notifier.calls)
}
