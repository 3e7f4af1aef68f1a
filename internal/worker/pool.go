package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	QueueReceipt  = "jobs:receipt"
	QueueLowStock = "jobs:low_stock"
	QueueEmail    = "jobs:email"

	JobReceipt  = "receipt"
	JobLowStock = "low_stock"
	JobEmail    = "email"
)

var queueByType = map[string]string{
	JobReceipt:  QueueReceipt,
	JobLowStock: QueueLowStock,
	JobEmail:    QueueEmail,
}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// HandlerFunc processes one job. A returned error routes the job to the
// retry schedule when its type is retryable, otherwise it is logged and dropped.
type HandlerFunc func(ctx context.Context, job Job) error

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, JobReceipt, payload)
}

func (d *Dispatcher) EnqueueLowStock(ctx context.Context, payload LowStockJobPayload) error {
	return d.enqueue(ctx, JobLowStock, payload)
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queueByType[job.Type], encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming every queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing. The returned
// func blocks until all workers have exited after ctx is cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]HandlerFunc) (wait func()) {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		id := i
		g.Go(func() error {
			runWorker(gctx, rdb, id, handlers)
			return nil
		})
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return func() { _ = g.Wait() }
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]HandlerFunc) {
	queues := []string{QueueReceipt, QueueLowStock, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]HandlerFunc, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}
	handle, ok := handlers[job.Type]
	if !ok {
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		return
	}

	err := handle(ctx, job)
	if err == nil {
		infra.JobsProcessed.WithLabelValues(job.Type, "ok").Inc()
		return
	}

	infra.JobsProcessed.WithLabelValues(job.Type, "error").Inc()
	if retryable[job.Type] {
		ScheduleRetry(ctx, rdb, job, err)
		return
	}
	log.Error().Err(err).Str("type", job.Type).Str("queue", queue).Msg("job failed")
}
