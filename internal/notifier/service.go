package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bancoapp/banco-ledger/internal/config"
	"github.com/bancoapp/banco-ledger/internal/queue"
	"github.com/bancoapp/banco-ledger/pkg/logger"
	"github.com/bancoapp/banco-ledger/pkg/redis"
	"github.com/bancoapp/banco-ledger/pkg/worker"
)

const DispatchTimeout = time.Second * 10
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Dispatcher handles one queued movement event.
type Dispatcher interface {
	Process(ctx context.Context, d *queue.Delivery) error
	GetType() string
}

// NotifierService consumes the movement stream and fans deliveries out
// to a worker pool of webhook dispatchers.
type NotifierService struct {
	adapter    redis.RedisAdapter
	queues     []*queue.Queue
	dispatcher Dispatcher
	metrics    *ServiceMetrics
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	worker     *worker.WorkerManager
	consumers  int
}

func NewNotifierService(adapter redis.RedisAdapter, workers int) (*NotifierService, error) {
	if workers <= 0 {
		workers = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NotifierService{
		adapter:   adapter,
		queues:    make([]*queue.Queue, 0),
		metrics:   NewServiceMetrics(),
		ctx:       ctx,
		cancel:    cancel,
		worker:    worker.NewWorkerManager(10_000, workers, nil),
		consumers: workers,
	}, nil
}

func (s *NotifierService) RegisterDispatcher(d Dispatcher) {
	s.dispatcher = d
	logger.Info("Registered dispatcher", "type", d.GetType())
}

func (s *NotifierService) Start() error {
	logger.Info("Starting notifier service...")

	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("Worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.consumers; i++ {
		cfg := queue.Config{
			Stream:            config.Get().QueueName,
			ConsumerGroup:     config.Get().QueueConsumerGroup,
			ConsumerName:      fmt.Sprintf("%s-instance-%d", config.Get().QueueConsumerName, i),
			MaxRetries:        config.Get().QueueMaxRetries,
			VisibilityTimeout: config.Get().QueueVisibilityTimeout,
			PollInterval:      config.Get().QueuePollInterval,
			BatchSize:         config.Get().QueueBatchSize,
			MaxLen:            config.Get().QueueMaxLen,
			EnableDLQ:         config.Get().QueueEnableDLQ,
		}

		q, err := queue.New(s.adapter, cfg)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer %d: %w", i, err)
		}

		if err := q.Consume(s.deliveryHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("Notifier service started", "consumers", len(s.queues))
	return nil
}

func (s *NotifierService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *NotifierService) reportMetrics() {
	stats := s.metrics.GetStats()
	logger.Info("Dispatch metrics",
		"total_dispatched", stats["total_dispatched"],
		"total_failed", stats["total_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"uptime_seconds", stats["uptime_seconds"])

	for i, q := range s.queues {
		if qStats, err := q.GetStats(); err == nil {
			logger.Info("Queue stats", "queue", i, "total", qStats.TotalEntries, "pending", qStats.PendingEntries)
		}
	}
}

func (s *NotifierService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *NotifierService) performHealthCheck() {
	if err := s.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("Health check failed: redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		stats, err := q.GetStats()
		if err != nil {
			logger.Warn("Health check: queue stats unavailable", "queue", i, "error", err)
			continue
		}
		if stats.PendingEntries > 10000 {
			logger.Warn("Health check: queue has high lag", "queue", i, "pending", stats.PendingEntries)
		}
	}
}

func (s *NotifierService) Stop() {
	logger.Info("Shutting down notifier service...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, q *queue.Queue) {
			if err := q.Stop(timeout); err != nil {
				logger.Error("Error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("Timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("Notifier service stopped")
}

type dispatchJob struct {
	delivery   *queue.Delivery
	resultChan chan error
	ctx        context.Context
}

// deliveryHandler hands the delivery to the worker pool and blocks for
// the result so the queue acks only after dispatch finished.
func (s *NotifierService) deliveryHandler(ctx context.Context, d *queue.Delivery) error {
	resultChan := make(chan error, 1)

	jobCtx, cancel := context.WithTimeout(ctx, DispatchTimeout+time.Second)
	defer cancel()

	job := &dispatchJob{
		delivery:   d,
		resultChan: resultChan,
		ctx:        jobCtx,
	}

	s.worker.Enqueue(job)

	select {
	case err := <-resultChan:
		return err
	case <-jobCtx.Done():
		return fmt.Errorf("timeout waiting for dispatcher: %w", jobCtx.Err())
	}
}

func (s *NotifierService) workerHandler(workerIndex int, job interface{}) {
	dj, ok := job.(*dispatchJob)
	if !ok {
		logger.Error("Invalid job type in worker", "worker", workerIndex)
		return
	}

	select {
	case <-dj.ctx.Done():
		logger.Warn("Job context cancelled before dispatch started", "worker", workerIndex)
		return
	default:
	}

	start := time.Now()
	var resultErr error

	if s.dispatcher == nil {
		logger.Error("No dispatcher registered", "worker", workerIndex)
		s.metrics.RecordFailure()
		resultErr = nil // ack, nothing can process this
	} else if err := s.dispatcher.Process(dj.ctx, dj.delivery); err != nil {
		s.metrics.RecordFailure()
		logger.Error("Failed to dispatch delivery", "worker", workerIndex, "error", err)
		resultErr = err
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	select {
	case dj.resultChan <- resultErr:
	case <-dj.ctx.Done():
		logger.Warn("Context cancelled while sending result", "worker", workerIndex)
	}
}
