package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("event already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL            time.Duration
	ProcessedTTL       time.Duration
	MaxRetries         int
	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "alert:retry:",
		LockKeyPrefix:      "alert:lock:",
		ProcessedKeyPrefix: "alert:processed:",
	}
}

// IdempotencyService guards against double notification. Consumer
// crashes make the stream redeliver events, and each crossing must reach
// the operator's phone once.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	EventID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
}

// AcquireProcessingLock checks the processed marker and retry budget,
// then takes a short-lived lock so only one consumer handles the event.
func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, eventID string) (*ProcessingContext, error) {
	processedKey := s.config.ProcessedKeyPrefix + eventID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		// Better to risk a duplicate notification than block processing.
		logger.Warn("failed to check processed status", "event_id", eventID, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyProcessed
	}

	retryKey := s.config.RetryKeyPrefix + eventID
	retryCount := 0
	if raw, err := s.redis.Get(retryKey); err == nil && len(raw) > 0 {
		fmt.Sscanf(string(raw), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("max retries exceeded for event", "event_id", eventID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: event_id=%s, retries=%d", ErrMaxRetriesExceeded, eventID, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + eventID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	return &ProcessingContext{
		EventID:      eventID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	processedKey := s.config.ProcessedKeyPrefix + pc.EventID
	if err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	s.cleanup(pc)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	retryKey := s.config.RetryKeyPrefix + pc.EventID
	newRetryCount := pc.RetryCount + 1

	if err := s.redis.Set(retryKey, []byte(fmt.Sprintf("%d", newRetryCount)), s.config.ProcessedTTL); err != nil {
		logger.Error("failed to increment retry counter", "event_id", pc.EventID, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + pc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to remove lock", "event_id", pc.EventID, "error", err)
	}
	pc.lockAcquired = false

	logger.Warn("event processing failed, will retry",
		"event_id", pc.EventID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("failed to release lock", "event_id", pc.EventID, "error", err)
		return err
	}

	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.redis.Exist(s.config.ProcessedKeyPrefix + eventID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *IdempotencyService) cleanup(pc *ProcessingContext) {
	if err := s.redis.Del(s.config.LockKeyPrefix + pc.EventID); err != nil {
		logger.Warn("failed to cleanup lock", "event_id", pc.EventID, "error", err)
	}
	if err := s.redis.Del(s.config.RetryKeyPrefix + pc.EventID); err != nil {
		logger.Warn("failed to cleanup retry counter", "event_id", pc.EventID, "error", err)
	}
	pc.lockAcquired = false
}
