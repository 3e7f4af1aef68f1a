package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// RetryKey is a sorted set of failed jobs scored by their next attempt time.
	RetryKey = "jobs:retry"

	MaxAttempts       = 5
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 20
)

// Only jobs whose side effect is idempotent from the caller's view are retried.
var retryable = map[string]bool{
	JobEmail: true,
}

// RetryBackoff is the delay before the given attempt: 30s, 1m, 2m, 4m …
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * 30 * time.Second
}

// ScheduleRetry parks a failed job in the retry set, or moves it to the DLQ
// once it has used all attempts.
func ScheduleRetry(ctx context.Context, rdb *redis.Client, job Job, cause error) {
	job.Attempt++
	if job.Attempt >= MaxAttempts {
		deadLetter(ctx, rdb, job, fmt.Errorf("max attempts (%d) exceeded: %w", MaxAttempts, cause))
		return
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("retry: failed to marshal job")
		return
	}
	next := time.Now().Add(RetryBackoff(job.Attempt))
	if err := rdb.ZAdd(ctx, RetryKey, redis.Z{Score: float64(next.Unix()), Member: encoded}).Err(); err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("retry: failed to schedule")
		return
	}
	log.Warn().Err(cause).
		Str("type", job.Type).
		Int("attempt", job.Attempt).
		Time("next_attempt_at", next).
		Msg("retry: job failed, scheduled next attempt")
}

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	RDB *redis.Client
	// MailCB gates email retries; while it is open the tick is skipped.
	MailCB *infra.CircuitBreaker
}

// StartRetryCron launches a goroutine that every 30s moves due jobs from the
// retry set back onto their queues. It stops when ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				requeueDue(ctx, cfg, time.Now())
			}
		}
	}()
}

func requeueDue(ctx context.Context, cfg RetryCronConfig, now time.Time) {
	if cfg.MailCB != nil && cfg.MailCB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: mail circuit breaker is open, skipping tick")
		return
	}

	due, err := cfg.RDB.ZRangeByScore(ctx, RetryKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query due jobs")
		return
	}

	for _, member := range due {
		// ZRem decides ownership when several instances tick at once.
		removed, err := cfg.RDB.ZRem(ctx, RetryKey, member).Result()
		if err != nil || removed == 0 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			log.Error().Err(err).Msg("retry_cron: dropping malformed entry")
			continue
		}
		if err := push(ctx, cfg.RDB, job); err != nil {
			log.Error().Err(err).Str("type", job.Type).Msg("retry_cron: requeue failed")
			continue
		}
		log.Info().Str("type", job.Type).Int("attempt", job.Attempt).Msg("retry_cron: job requeued")
	}
}
