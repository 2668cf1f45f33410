package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bancoapp/banco-ledger/pkg/logger"
	"github.com/bancoapp/banco-ledger/pkg/redis"
)

var (
	ErrAlreadyDispatched  = errors.New("event already dispatched")
	ErrLockAcquireFailed  = errors.New("failed to acquire dispatch lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	DispatchedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	DispatchedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:             30 * time.Second,
		DispatchedTTL:       24 * time.Hour,
		MaxRetries:          3,
		RetryKeyPrefix:      "notify:retry:",
		LockKeyPrefix:       "notify:lock:",
		DispatchedKeyPrefix: "notify:done:",
	}
}

// IdempotencyService keeps a webhook from being called twice for the
// same movement. Each event gets a short-term dispatch lock while a
// consumer works on it and a long-term marker once delivered.
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

type DispatchContext struct {
	EventID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireDispatchLock(ctx context.Context, eventID string) (*DispatchContext, error) {
	dispatchedKey := s.config.DispatchedKeyPrefix + eventID
	exists, err := s.redis.Exist(dispatchedKey)
	if err != nil {
		logger.Warn("Failed to check dispatched marker", "event_id", eventID, "error", err)
		// Better to risk a duplicate webhook than to block dispatch.
	} else if exists > 0 {
		return nil, ErrAlreadyDispatched
	}

	retryKey := s.config.RetryKeyPrefix + eventID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for event", "event_id", eventID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: event_id=%s, retries=%d", ErrMaxRetriesExceeded, eventID, retryCount)
	}

	lockKey := s.config.LockKeyPrefix + eventID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	return &DispatchContext{
		EventID:      eventID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, dc *DispatchContext) error {
	eventID := dc.EventID

	dispatchedKey := s.config.DispatchedKeyPrefix + eventID
	if err := s.redis.Set(dispatchedKey, []byte("1"), s.config.DispatchedTTL); err != nil {
		logger.Error("Failed to set dispatched marker", "event_id", eventID, "error", err)
		return fmt.Errorf("failed to mark as dispatched: %w", err)
	}

	s.cleanup(ctx, dc)

	logger.Info("Event marked as dispatched", "event_id", eventID, "retry_count", dc.RetryCount)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, dc *DispatchContext, reason error) error {
	eventID := dc.EventID

	retryKey := s.config.RetryKeyPrefix + eventID
	newRetryCount := dc.RetryCount + 1
	if err := s.redis.Set(retryKey, []byte(fmt.Sprintf("%d", newRetryCount)), s.config.DispatchedTTL); err != nil {
		logger.Error("Failed to increment retry counter", "event_id", eventID, "error", err)
	}

	lockKey := s.config.LockKeyPrefix + eventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "event_id", eventID, "error", err)
	}

	logger.Warn("Event dispatch failed, will retry",
		"event_id", eventID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, dc *DispatchContext) error {
	if dc == nil || !dc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + dc.EventID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "event_id", dc.EventID, "error", err)
		return err
	}

	dc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, dc *DispatchContext) {
	eventID := dc.EventID

	if err := s.redis.Del(s.config.LockKeyPrefix + eventID); err != nil {
		logger.Warn("Failed to cleanup lock", "event_id", eventID, "error", err)
	}
	if err := s.redis.Del(s.config.RetryKeyPrefix + eventID); err != nil {
		logger.Warn("Failed to cleanup retry counter", "event_id", eventID, "error", err)
	}

	dc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, eventID string) (int, error) {
	retryCountBytes, err := s.redis.Get(s.config.RetryKeyPrefix + eventID)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsDispatched(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.redis.Exist(s.config.DispatchedKeyPrefix + eventID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
