// Package redisqueue implementa la cola de ingesta sobre Redis Streams: entrega al-menos-una-vez
// con grupo de consumidores, reintentos con backoff exponencial (ZSET de diferidos) y dead-letter.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
	"github.com/jhoicas/b2b-storefront-api/pkg/config"
	"github.com/jhoicas/b2b-storefront-api/pkg/logger"
)

// jobField único campo de cada entrada del stream.
const jobField = "job"

// Job lo que viaja en el stream, en el ZSET de diferidos y en el dead-letter.
type Job struct {
	ID        string          `json:"id"`
	Kind      envelope.Kind   `json:"kind"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError,omitempty"`
	FailedAt  *time.Time      `json:"failedAt,omitempty"`
	Envelope  json.RawMessage `json:"envelope"`
}

// Options parámetros de la cola.
type Options struct {
	Stream           string
	DeadLetterStream string
	DelayedSet       string
	Group            string
	Consumer         string
	Concurrency      int
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	ClaimIdle        time.Duration
	JobTimeout       time.Duration
	Block            time.Duration // espera de XREADGROUP
	PollInterval     time.Duration // scheduler de diferidos y reclaimer
}

// OptionsFromConfig traduce la configuración y completa los valores por defecto.
func OptionsFromConfig(cfg config.QueueConfig) Options {
	return Options{
		Stream:           cfg.Stream,
		DeadLetterStream: cfg.DeadLetterStream,
		DelayedSet:       cfg.DelayedSet,
		Group:            cfg.Group,
		Consumer:         cfg.Consumer,
		Concurrency:      cfg.Concurrency,
		MaxAttempts:      cfg.MaxAttempts,
		BackoffBase:      cfg.BackoffBase,
		BackoffMax:       cfg.BackoffMax,
		ClaimIdle:        cfg.ClaimIdle,
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Stream == "" {
		o.Stream = "ingest:jobs"
	}
	if o.DeadLetterStream == "" {
		o.DeadLetterStream = o.Stream + ":dead"
	}
	if o.DelayedSet == "" {
		o.DelayedSet = o.Stream + ":delayed"
	}
	if o.Group == "" {
		o.Group = "ingest-workers"
	}
	if o.Consumer == "" {
		host, _ := os.Hostname()
		o.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Minute
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = 2 * time.Minute
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	return o
}

// Queue cola de ingesta. Publica (endpoint) y consume (workers) sobre el mismo stream.
type Queue struct {
	rdb  *redis.Client
	opts Options
	log  *logger.Logger
}

// New construye la cola.
func New(rdb *redis.Client, opts Options, log *logger.Logger) *Queue {
	return &Queue{rdb: rdb, opts: opts.withDefaults(), log: log.Named("queue")}
}

// Options devuelve la configuración efectiva.
func (q *Queue) Options() Options { return q.opts }

// Setup crea el stream y el grupo de consumidores si no existen.
func (q *Queue) Setup(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.opts.Stream, q.opts.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("crear grupo %s: %w", q.opts.Group, err)
	}
	return nil
}

// Publish encola el sobre. No espera su procesamiento.
func (q *Queue) Publish(ctx context.Context, env *envelope.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("serializar sobre: %w", err)
	}
	return q.add(ctx, q.rdb, q.opts.Stream, &Job{ID: env.ID, Kind: env.Kind, Envelope: raw})
}

// Backoff espera antes del intento n (1-based): base·2^(n-1), con tope.
func (q *Queue) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := q.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= q.opts.BackoffMax {
			return q.opts.BackoffMax
		}
	}
	if d > q.opts.BackoffMax {
		return q.opts.BackoffMax
	}
	return d
}

func (q *Queue) add(ctx context.Context, c redis.Cmdable, stream string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("serializar job: %w", err)
	}
	if err := c.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: map[string]interface{}{jobField: string(raw)}}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func decodeJob(msg redis.XMessage) (*Job, error) {
	raw, ok := msg.Values[jobField].(string)
	if !ok {
		return nil, fmt.Errorf("entrada %s sin campo %q", msg.ID, jobField)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("entrada %s: %w", msg.ID, err)
	}
	return &job, nil
}
