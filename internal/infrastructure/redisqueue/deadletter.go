package redisqueue

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DeadJob job en el dead-letter con el id de su entrada.
type DeadJob struct {
	EntryID string `json:"entryId"`
	Job     *Job   `json:"job"`
}

// DeadLetters lista hasta count jobs del dead-letter, del más viejo al más nuevo.
func (q *Queue) DeadLetters(ctx context.Context, count int64) ([]DeadJob, error) {
	msgs, err := q.rdb.XRangeN(ctx, q.opts.DeadLetterStream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", q.opts.DeadLetterStream, err)
	}
	out := make([]DeadJob, 0, len(msgs))
	for _, m := range msgs {
		job, err := decodeJob(m)
		if err != nil {
			job = &Job{ID: m.ID, LastError: err.Error(), Envelope: rawValues(m)}
		}
		out = append(out, DeadJob{EntryID: m.ID, Job: job})
	}
	return out, nil
}

// Requeue devuelve un job del dead-letter a la cola con el contador de intentos en cero.
func (q *Queue) Requeue(ctx context.Context, entryID string) error {
	msgs, err := q.rdb.XRange(ctx, q.opts.DeadLetterStream, entryID, entryID).Result()
	if err != nil {
		return fmt.Errorf("xrange %s: %w", entryID, err)
	}
	if len(msgs) == 0 {
		return fmt.Errorf("entrada %s no está en %s", entryID, q.opts.DeadLetterStream)
	}
	job, err := decodeJob(msgs[0])
	if err != nil {
		return err
	}
	job.Attempts = 0
	job.LastError = ""
	job.FailedAt = nil
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := q.add(ctx, p, q.opts.Stream, job); err != nil {
			return err
		}
		p.XDel(ctx, q.opts.DeadLetterStream, entryID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reencolar %s: %w", entryID, err)
	}
	q.log.Info().Str("job_id", job.ID).Str("entry_id", entryID).Msg("job reencolado desde dead-letter")
	return nil
}

// RequeueAll reencola todo el dead-letter. Devuelve cuántos jobs movió.
func (q *Queue) RequeueAll(ctx context.Context) (int, error) {
	moved := 0
	for {
		batch, err := q.DeadLetters(ctx, 100)
		if err != nil {
			return moved, err
		}
		if len(batch) == 0 {
			return moved, nil
		}
		for _, d := range batch {
			if err := q.Requeue(ctx, d.EntryID); err != nil {
				return moved, err
			}
			moved++
		}
	}
}

// Purge vacía el dead-letter. Devuelve cuántos jobs había.
func (q *Queue) Purge(ctx context.Context) (int64, error) {
	n, err := q.rdb.XLen(ctx, q.opts.DeadLetterStream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", q.opts.DeadLetterStream, err)
	}
	if err := q.rdb.Del(ctx, q.opts.DeadLetterStream).Err(); err != nil {
		return 0, fmt.Errorf("del %s: %w", q.opts.DeadLetterStream, err)
	}
	return n, nil
}

// Stats longitudes de stream, diferidos y dead-letter (readiness y CLI).
type Stats struct {
	Pending    int64
	Delayed    int64
	DeadLetter int64
}

// Stats lee las longitudes actuales.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var pending, delayed, dead *redis.IntCmd
	_, err := q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		pending = p.XLen(ctx, q.opts.Stream)
		delayed = p.ZCard(ctx, q.opts.DelayedSet)
		dead = p.XLen(ctx, q.opts.DeadLetterStream)
		return nil
	})
	if err != nil && err != redis.Nil {
		return s, fmt.Errorf("stats de cola: %w", err)
	}
	s.Pending, s.Delayed, s.DeadLetter = pending.Val(), delayed.Val(), dead.Val()
	return s, nil
}
