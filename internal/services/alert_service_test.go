package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []model.TankAlert
	err    error
}

func (p *capturingPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var alert model.TankAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return "", err
	}
	p.events = append(p.events, alert)
	return alert.ID, nil
}

func (p *capturingPublisher) published() []model.TankAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.TankAlert, len(p.events))
	copy(out, p.events)
	return out
}

func tankAt(levelG int64) *model.Tank {
	return &model.Tank{
		ID:                 1,
		CapacityG:          500_000,
		LevelG:             levelG,
		LowThresholdG:      100_000,
		CriticalThresholdG: 25_000,
	}
}

func TestAlertService_LatchesPerSeverity(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{}
	service := NewAlertService(publisher)

	// Healthy level publishes nothing.
	service.Evaluate(ctx, tankAt(300_000))
	assert.Empty(t, publisher.published())

	// Crossing the low watermark publishes once.
	service.Evaluate(ctx, tankAt(90_000))
	service.Evaluate(ctx, tankAt(80_000))
	service.Evaluate(ctx, tankAt(70_000))
	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, model.AlertSeverityLow, events[0].Severity)
	assert.Equal(t, int64(90_000), events[0].LevelG)
	assert.NotEmpty(t, events[0].ID)

	// Dropping further to critical is a new severity, so it fires again.
	service.Evaluate(ctx, tankAt(20_000))
	events = publisher.published()
	require.Len(t, events, 2)
	assert.Equal(t, model.AlertSeverityCritical, events[1].Severity)
	assert.InDelta(t, 4.0, events[1].Percent, 0.01)
}

func TestAlertService_RearmsAfterRecovery(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{}
	service := NewAlertService(publisher)

	service.Evaluate(ctx, tankAt(90_000))
	require.Len(t, publisher.published(), 1)

	// A supplier delivery brings the level back up; no event for recovery.
	service.Evaluate(ctx, tankAt(400_000))
	require.Len(t, publisher.published(), 1)

	// The next crossing alerts again.
	service.Evaluate(ctx, tankAt(95_000))
	events := publisher.published()
	require.Len(t, events, 2)
	assert.Equal(t, model.AlertSeverityLow, events[1].Severity)
}

func TestAlertService_PublisherFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	publisher := &capturingPublisher{err: assert.AnError}
	service := NewAlertService(publisher)

	// Alerting is best effort: the caller never sees the error.
	service.Evaluate(ctx, tankAt(90_000))
	assert.Empty(t, publisher.published())
}

func TestAlertService_NilPublisher(t *testing.T) {
	service := NewAlertService(nil)
	service.Evaluate(context.Background(), tankAt(10_000))
}
