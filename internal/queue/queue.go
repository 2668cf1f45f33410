package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bancoapp/banco-ledger/pkg/redis"
)

// Delivery is one message taken off the stream. The consumer group keeps
// it pending until Ack, so a crashed consumer leaves it claimable.
type Delivery struct {
	ID         string
	Body       []byte
	Headers    map[string]string
	EnqueuedAt time.Time
	Attempts   int
	acked      bool
	queue      *Queue
}

// Ack acknowledges the delivery so it is never redelivered.
func (d *Delivery) Ack() error {
	if d.acked {
		return fmt.Errorf("delivery already acknowledged")
	}
	d.acked = true
	return d.queue.ack(d.ID)
}

// Handler processes a delivery. Returning nil acknowledges it; returning
// an error leaves it pending for redelivery.
type Handler func(ctx context.Context, d *Delivery) error

type Config struct {
	Stream            string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Queue is a Redis-streams backed work queue with at-least-once delivery.
// Retries happen through the pending-entries list: deliveries idle past
// the visibility timeout get reclaimed, and after MaxRetries attempts
// they land on the "<stream>:dlq" dead-letter stream.
type Queue struct {
	adapter redis.RedisAdapter
	config  Config
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Stats struct {
	TotalEntries   int64
	PendingEntries int64
	ConsumerCount  int64
}

func New(adapter redis.RedisAdapter, config Config) (*Queue, error) {
	if config.Stream == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "default-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		adapter: adapter,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	// BUSYGROUP on an existing group is fine.
	_ = q.adapter.XGroupCreateMkStream(q.config.Stream, q.config.ConsumerGroup, "0")

	return q, nil
}

// Publish appends a raw payload to the stream.
func (q *Queue) Publish(ctx context.Context, body []byte, headers map[string]string) (string, error) {
	values := map[string]interface{}{
		"body":        string(body),
		"enqueued_at": time.Now().Unix(),
		"attempts":    0,
	}
	for k, v := range headers {
		values["hdr_"+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Stream, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Stream, q.config.MaxLen)
	}

	return id, nil
}

// PublishJSON marshals v and appends it to the stream.
func (q *Queue) PublishJSON(ctx context.Context, v interface{}, headers map[string]string) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return q.Publish(ctx, body, headers)
}

// Consume starts the poll loop. Each delivery is acked automatically when
// the handler returns nil.
func (q *Queue) Consume(handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	q.handler = handler
	q.wg.Add(1)
	go q.consumeLoop()

	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.readNew()
			q.reclaimStuck()
		}
	}
}

func (q *Queue) readNew() {
	entries, err := q.adapter.XReadGroup(
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Stream,
		">",
		q.config.BatchSize,
	)
	if err != nil {
		return
	}

	for _, entry := range entries {
		d := q.toDelivery(entry)
		q.dispatch(d)
	}
}

func (q *Queue) reclaimStuck() {
	pending, err := q.adapter.XPending(q.config.Stream, q.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := q.adapter.XPendingExt(q.config.Stream, q.config.ConsumerGroup, "-", "+", 100)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var stale []string
	for _, p := range pendingExt {
		if p.Idle >= q.config.VisibilityTimeout {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	entries, err := q.adapter.XClaim(
		q.config.Stream,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		stale...,
	)
	if err != nil {
		return
	}

	for _, entry := range entries {
		d := q.toDelivery(entry)
		d.Attempts++
		q.dispatch(d)
	}
}

func (q *Queue) dispatch(d *Delivery) {
	if d.Attempts >= q.config.MaxRetries {
		q.moveToDeadLetter(d)
		_ = q.ack(d.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, d); err != nil {
		// Leave pending, it will be reclaimed after the visibility timeout.
		return
	}
	_ = q.ack(d.ID)
}

func (q *Queue) ack(id string) error {
	return q.adapter.XAck(q.config.Stream, q.config.ConsumerGroup, id)
}

func (q *Queue) moveToDeadLetter(d *Delivery) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"body":            string(d.Body),
		"original_id":     d.ID,
		"attempts":        d.Attempts,
		"failed_at":       time.Now().Unix(),
		"original_stream": q.config.Stream,
	}
	for k, v := range d.Headers {
		values["hdr_"+k] = v
	}

	_, _ = q.adapter.XAdd(q.config.Stream+":dlq", values)
}

func (q *Queue) toDelivery(entry redis.StreamMessage) *Delivery {
	d := &Delivery{
		ID:      entry.ID,
		Headers: make(map[string]string),
		queue:   q,
	}

	for k, v := range entry.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "body":
			d.Body = []byte(s)
		case "enqueued_at":
			if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
				d.EnqueuedAt = time.Unix(unix, 0)
			}
		case "attempts":
			d.Attempts, _ = strconv.Atoi(s)
		default:
			if len(k) > 4 && k[:4] == "hdr_" {
				d.Headers[k[4:]] = s
			}
		}
	}

	if d.EnqueuedAt.IsZero() {
		d.EnqueuedAt = time.Now()
	}

	return d
}

// Stop cancels the consume loop and waits for in-flight handlers.
func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*Stats, error) {
	total, err := q.adapter.XLen(q.config.Stream)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalEntries: total}

	if pending, err := q.adapter.XPending(q.config.Stream, q.config.ConsumerGroup); err == nil && pending != nil {
		stats.PendingEntries = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}

	return stats, nil
}
