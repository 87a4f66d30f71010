package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/model"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/valyala/fasthttp"
)

var ErrNotifierUnavailable = errors.New("notifier unavailable")

// NotifyRequest is the payload pushed to the notification gateway when
// the tank crosses a threshold. The gateway fans it out to SMS or
// whatever channel the plant operator configured.
type NotifyRequest struct {
	AlertID   string  `json:"alert_id"`
	Severity  string  `json:"severity"`
	LevelG    int64   `json:"level_g"`
	CapacityG int64   `json:"capacity_g"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message"`
}

type NotifyResponse struct {
	AlertID     string    `json:"alert_id"`
	Status      string    `json:"status"`
	DeliveredAt time.Time `json:"delivered_at"`
}

const StatusDelivered = "DELIVERED"

type ClientConfig struct {
	URL             string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	MaxConns        int
	BreakerFailures int32
	BreakerCooldown time.Duration
}

// Client delivers tank alerts to the notification gateway over HTTP.
// A consecutive-failure breaker keeps a dead gateway from stalling the
// dispatcher; while open, Notify fails fast and the queue retries later.
type Client struct {
	config ClientConfig
	client *fasthttp.Client

	consecutiveFails atomic.Int32
	openUntil        atomic.Int64
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("notifier url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 200 * time.Millisecond
	}
	if config.MaxConns == 0 {
		config.MaxConns = 64
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = 5
	}
	if config.BreakerCooldown == 0 {
		config.BreakerCooldown = 30 * time.Second
	}

	c := &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}

	logger.Info("notifier client initialized", "url", config.URL, "timeout", config.Timeout)

	return c, nil
}

// NotifyTankAlert formats and delivers one alert.
func (c *Client) NotifyTankAlert(ctx context.Context, alert *model.TankAlert) (*NotifyResponse, error) {
	req := &NotifyRequest{
		AlertID:   alert.ID,
		Severity:  string(alert.Severity),
		LevelG:    alert.LevelG,
		CapacityG: alert.CapacityG,
		Percent:   alert.Percent,
		Message: fmt.Sprintf("oxygen tank %s: %.1f%% (%d g of %d g)",
			alert.Severity, alert.Percent, alert.LevelG, alert.CapacityG),
	}
	return c.Notify(ctx, req)
}

func (c *Client) Notify(ctx context.Context, req *NotifyRequest) (*NotifyResponse, error) {
	if c.breakerOpen() {
		return nil, fmt.Errorf("%w: circuit open", ErrNotifierUnavailable)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		raw, err := c.doRequest(ctx, body)
		if err != nil {
			c.recordFailure()
			logger.Warn("notify request failed", "error", err, "alert_id", req.AlertID, "attempt", attempt+1)
			lastErr = err
			continue
		}

		c.consecutiveFails.Store(0)

		var resp NotifyResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		logger.Info("alert delivered to notifier", "alert_id", req.AlertID, "status", resp.Status)

		return &resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.URL + "/api/v1/notifications")
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	return result, nil
}

func (c *Client) breakerOpen() bool {
	return time.Now().Unix() < c.openUntil.Load()
}

func (c *Client) recordFailure() {
	if c.consecutiveFails.Add(1) >= c.config.BreakerFailures {
		until := time.Now().Add(c.config.BreakerCooldown).Unix()
		c.openUntil.Store(until)
		c.consecutiveFails.Store(0)
		logger.Warn("notifier circuit breaker opened", "cooldown", c.config.BreakerCooldown)
	}
}
