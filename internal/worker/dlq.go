package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Only email jobs are retried, so dlq:jobs:email is the list that fills up in
// practice. Keys still follow the source queue.
const DLQPrefix = "dlq:"

// DeadJob is a job that used up its attempts. The envelope is kept whole so it
// can be pushed back onto Queue once the mail server is reachable again.
type DeadJob struct {
	Job
	Queue  string    `json:"queue"`
	Cause  string    `json:"cause"`
	DeadAt time.Time `json:"dead_at"`
}

func deadLetter(ctx context.Context, rdb *redis.Client, job Job, cause error) {
	dj := DeadJob{
		Job:    job,
		Queue:  queueByType[job.Type],
		Cause:  cause.Error(),
		DeadAt: time.Now().UTC(),
	}
	data, err := json.Marshal(dj)
	if err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("dlq: cannot encode job")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+dj.Queue, data).Err(); err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("dlq: push failed, job lost")
		return
	}

	ev := log.Warn().
		Str("type", job.Type).
		Int("attempts", job.Attempt).
		Str("cause", dj.Cause)
	if job.Type == JobEmail {
		var p EmailJobPayload
		if json.Unmarshal(job.Payload, &p) == nil {
			ev = ev.Str("to_email", p.ToEmail).Str("sale_id", p.SaleID)
		}
	}
	ev.Msg("dlq: gave up on job")
}

// DLQLength counts the dead jobs that came from queue.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
