package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/config"
	"github.com/oxyplant/cylinder-ledger/internal/queue"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
	"github.com/oxyplant/cylinder-ledger/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// Processor handles one alert event.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

// Dispatcher consumes the tank alert stream and hands events to the
// registered processor through a bounded worker pool. Several consumer
// instances share one group, so each event is delivered once.
type Dispatcher struct {
	adapter   redis.RedisAdapter
	queues    []*queue.Queue
	processor Processor
	metrics   *DispatchMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

func NewDispatcher(redisAdapter redis.RedisAdapter) (*Dispatcher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		adapter: redisAdapter,
		queues:  make([]*queue.Queue, 0),
		metrics: NewDispatchMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(1_000, 10, nil),
	}, nil
}

func (s *Dispatcher) RegisterProcessor(processor Processor) {
	s.processor = processor
	logger.Info("registered processor", "type", processor.GetType())
}

func (s *Dispatcher) Start(consumers int) error {
	logger.Info("starting alert dispatcher")

	if consumers <= 0 {
		consumers = 2
	}

	s.worker.SetWorker(s.workerHandler)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < consumers; i++ {
		cfg := queue.Config{
			Name:              config.Get().QueueName,
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
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}

		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}

		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()

	logger.Info("alert dispatcher started", "consumers", len(s.queues))
	return nil
}

func (s *Dispatcher) metricsReporter() {
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

func (s *Dispatcher) reportMetrics() {
	stats := s.metrics.GetStats()
	logger.Info("dispatcher metrics",
		"total_processed", stats["total_processed"],
		"total_failed", stats["total_failed"],
		"rate_per_second", stats["rate_per_second"],
		"avg_duration_ms", stats["avg_duration_ms"],
		"uptime_seconds", stats["uptime_seconds"])

	for i, q := range s.queues {
		if total, pending, _, err := q.Len(); err == nil {
			logger.Info("queue stats", "queue", i, "total", total, "pending", pending)
		}
	}
}

func (s *Dispatcher) healthChecker() {
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

func (s *Dispatcher) performHealthCheck() {
	if err := s.adapter.Client().Ping(context.Background()).Err(); err != nil {
		logger.Error("health check failed: redis connection error", "error", err)
		return
	}

	for i, q := range s.queues {
		_, pending, _, err := q.Len()
		if err != nil {
			logger.Warn("health check warning: queue stats unavailable", "queue", i, "error", err)
			continue
		}
		if pending > 1000 {
			logger.Warn("health check warning: queue has high lag", "queue", i, "pending_messages", pending)
		}
	}
}

// Stop gracefully stops the dispatcher.
func (s *Dispatcher) Stop() {
	logger.Info("shutting down alert dispatcher...")

	s.cancel()

	timeout := ShutdownTimeout
	stopChan := make(chan bool, len(s.queues))

	for i, q := range s.queues {
		go func(index int, q *queue.Queue) {
			if err := q.Stop(timeout); err != nil {
				logger.Error("error stopping queue", "queue", index, "error", err)
			}
			stopChan <- true
		}(i, q)
	}

	for range s.queues {
		select {
		case <-stopChan:
		case <-time.After(timeout + 5*time.Second):
			logger.Warn("timeout waiting for queues to stop")
		}
	}

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()

	logger.Info("alert dispatcher stopped")
}

type jobResult struct {
	msg        *queue.Message
	resultChan chan error
	ctx        context.Context
}

// messageHandler hands the event to the worker pool and waits for the
// outcome, so the queue ack follows the real processing result.
func (s *Dispatcher) messageHandler(ctx context.Context, msg *queue.Message) error {
	resultChan := make(chan error, 1)

	msgCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	job := &jobResult{
		msg:        msg,
		resultChan: resultChan,
		ctx:        msgCtx,
	}

	s.worker.Enqueue(job)

	select {
	case err := <-resultChan:
		return err
	case <-msgCtx.Done():
		return fmt.Errorf("timeout waiting for worker to process event: %w", msgCtx.Err())
	}
}

func (s *Dispatcher) workerHandler(workerIndex int, job interface{}) {
	jobRes, ok := job.(*jobResult)
	if !ok {
		logger.Error("invalid job type in worker", "worker", workerIndex)
		return
	}

	select {
	case <-jobRes.ctx.Done():
		logger.Warn("job context cancelled before processing started", "worker", workerIndex)
		return
	default:
	}

	if s.processor == nil {
		jobRes.resultChan <- fmt.Errorf("no processor registered")
		return
	}

	start := time.Now()
	procCtx, cancel := context.WithTimeout(jobRes.ctx, ProcessingTimeout)
	err := s.processor.Process(procCtx, jobRes.msg)
	cancel()

	if err != nil {
		s.metrics.RecordFailure()
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	jobRes.resultChan <- err
}
