package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/queue"
	"github.com/bancoapp/banco-ledger/pkg/logger"
	"github.com/bancoapp/banco-ledger/pkg/prom"
)

// MovementNotifier turns a queued movement event into a webhook call,
// with idempotency so a reclaimed delivery never notifies twice.
type MovementNotifier struct {
	webhook     *WebhookClient
	idempotency *IdempotencyService
}

func NewMovementNotifier(webhook *WebhookClient, idempotency *IdempotencyService) *MovementNotifier {
	return &MovementNotifier{
		webhook:     webhook,
		idempotency: idempotency,
	}
}

func (n *MovementNotifier) GetType() string {
	return "movement"
}

func (n *MovementNotifier) Process(ctx context.Context, d *queue.Delivery) error {
	var event model.MovementEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		logger.Error("Failed to unmarshal movement event", "delivery_id", d.ID, "error", err)
		prom.AddNotificationDispatched("unknown", "invalid")
		return err // lands on the DLQ after max retries
	}

	eventID := strconv.FormatInt(event.MovementID, 10)

	dc, err := n.idempotency.AcquireDispatchLock(ctx, eventID)
	if err != nil {
		if errors.Is(err, ErrAlreadyDispatched) {
			logger.Info("Event already dispatched, skipping", "event_id", eventID)
			return nil // ack, nothing left to do
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Giving up on event", "event_id", eventID)
			prom.AddNotificationDispatched(string(event.Kind), "abandoned")
			return nil // ack so the entry moves to the DLQ path
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire dispatch lock", "event_id", eventID, "error", err)
		return err
	}

	defer func() {
		if dc.lockAcquired {
			n.idempotency.ReleaseLock(ctx, dc)
		}
	}()

	logger.Info("Dispatching movement notification",
		"event_id", eventID,
		"kind", event.Kind,
		"account_id", event.AccountID,
		"retry_count", dc.RetryCount,
		"is_retry", dc.IsRetry)

	start := time.Now()
	if err := n.webhook.Deliver(ctx, &event); err != nil {
		logger.Error("Failed to deliver notification", "event_id", eventID, "error", err)
		prom.AddNotificationDispatched(string(event.Kind), "failed")
		if markErr := n.idempotency.MarkFailure(ctx, dc, err); markErr != nil {
			logger.Error("Failed to mark failure", "event_id", eventID, "error", markErr)
		}
		return err // leave pending so the queue retries
	}

	prom.AddNotificationDispatched(string(event.Kind), "delivered")
	prom.AddNotificationDispatchDuration(time.Since(start).Seconds(), string(event.Kind))

	if markErr := n.idempotency.MarkSuccess(ctx, dc); markErr != nil {
		// The webhook went out; a missing marker only risks a duplicate.
		logger.Error("Failed to mark success", "event_id", eventID, "error", markErr)
	}

	return nil
}
