package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/b2b-storefront-api/internal/domain/envelope"
)

// Handler procesa un sobre. Un error marcado con Permanent descarta el job; cualquier otro reintenta.
type Handler interface {
	Handle(ctx context.Context, env *envelope.Envelope) error
}

// HandlerFunc adapta una función a Handler.
type HandlerFunc func(ctx context.Context, env *envelope.Envelope) error

// Handle implementa Handler.
func (f HandlerFunc) Handle(ctx context.Context, env *envelope.Envelope) error { return f(ctx, env) }

// promoteScript mueve los diferidos vencidos al stream. ZREM y XADD van en el mismo script para que
// un solo proceso mueva cada job y ninguno se pierda entre los dos pasos.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
  if redis.call('ZREM', KEYS[1], member) == 1 then
    redis.call('XADD', KEYS[2], '*', 'job', member)
  end
end
return #due
`)

type delivery struct {
	msg       redis.XMessage
	redeliver int64 // veces que el grupo ya entregó la entrada (reclaimer)
}

// Run drena la cola hasta que ctx se cancela: un lazo de lectura alimenta Concurrency workers,
// y en paralelo corren el scheduler de diferidos y el reclaimer de pendientes huérfanos.
// Los jobs en curso terminan antes de que Run devuelva.
func (q *Queue) Run(ctx context.Context, h Handler) error {
	if err := q.Setup(ctx); err != nil {
		return err
	}
	q.log.Info().
		Str("stream", q.opts.Stream).
		Str("group", q.opts.Group).
		Str("consumer", q.opts.Consumer).
		Int("concurrency", q.opts.Concurrency).
		Msg("workers de ingesta iniciados")

	jobs := make(chan delivery)
	g, gctx := errgroup.WithContext(ctx)

	var feeders errgroup.Group
	feeders.Go(func() error { return q.fetchLoop(gctx, jobs) })
	feeders.Go(func() error { return q.reclaimLoop(gctx, jobs) })
	g.Go(func() error {
		err := feeders.Wait()
		close(jobs)
		return err
	})
	g.Go(func() error { return q.promoteLoop(gctx) })

	for i := 0; i < q.opts.Concurrency; i++ {
		g.Go(func() error {
			for d := range jobs {
				q.process(gctx, h, d)
			}
			return nil
		})
	}

	err := g.Wait()
	q.log.Info().Msg("workers de ingesta detenidos")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// fetchLoop lee entradas nuevas del grupo. Los errores de Redis se reintentan con backoff.
func (q *Queue) fetchLoop(ctx context.Context, out chan<- delivery) error {
	wait := 100 * time.Millisecond
	for ctx.Err() == nil {
		streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.opts.Group,
			Consumer: q.opts.Consumer,
			Streams:  []string{q.opts.Stream, ">"},
			Count:    int64(q.opts.Concurrency),
			Block:    q.opts.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.log.Error().Err(err).Dur("backoff", wait).Msg("error leyendo el stream")
			if !sleep(ctx, wait) {
				return nil
			}
			if wait *= 2; wait > 30*time.Second {
				wait = 30 * time.Second
			}
			continue
		}
		wait = 100 * time.Millisecond
		for _, s := range streams {
			for _, m := range s.Messages {
				select {
				case out <- delivery{msg: m}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
	return nil
}

// reclaimLoop toma entradas pendientes de consumidores caídos (sin ack por más de ClaimIdle).
func (q *Queue) reclaimLoop(ctx context.Context, out chan<- delivery) error {
	interval := q.opts.ClaimIdle / 2
	if interval < q.opts.PollInterval {
		interval = q.opts.PollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		ds, err := q.reclaim(ctx)
		if err != nil {
			if ctx.Err() == nil {
				q.log.Warn().Err(err).Msg("no se pudieron reclamar pendientes")
			}
			continue
		}
		for _, d := range ds {
			select {
			case out <- d:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// reclaim reclama para este consumidor las entradas pendientes más viejas que ClaimIdle.
func (q *Queue) reclaim(ctx context.Context) ([]delivery, error) {
	pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.opts.Stream,
		Group:  q.opts.Group,
		Start:  "-",
		End:    "+",
		Count:  int64(q.opts.Concurrency) * 4,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending: %w", err)
	}
	ids := make([]string, 0, len(pending))
	retries := make(map[string]int64, len(pending))
	for _, p := range pending {
		if p.Idle >= q.opts.ClaimIdle {
			ids = append(ids, p.ID)
			retries[p.ID] = p.RetryCount
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	msgs, err := q.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.opts.Stream,
		Group:    q.opts.Group,
		Consumer: q.opts.Consumer,
		MinIdle:  q.opts.ClaimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}
	out := make([]delivery, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, delivery{msg: m, redeliver: retries[m.ID]})
	}
	if len(out) > 0 {
		q.log.Warn().Int("count", len(out)).Msg("pendientes reclamados de otro consumidor")
	}
	return out, nil
}

// promoteLoop devuelve al stream los reintentos cuyo backoff venció.
func (q *Queue) promoteLoop(ctx context.Context) error {
	t := time.NewTicker(q.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if _, err := q.PromoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
			q.log.Warn().Err(err).Msg("no se pudieron promover diferidos")
		}
	}
}

// PromoteDue mueve al stream los diferidos con vencimiento <= now.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.rdb, []string{q.opts.DelayedSet, q.opts.Stream},
		strconv.FormatInt(now.UnixMilli(), 10), 100).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("promover diferidos: %w", err)
	}
	return n, nil
}

// process ejecuta el handler y decide ack, reintento o dead-letter. El reintento y el
// dead-letter se escriben en la misma transacción que el ack: el job nunca desaparece.
func (q *Queue) process(ctx context.Context, h Handler, d delivery) {
	job, err := decodeJob(d.msg)
	if err != nil {
		q.log.Error().Err(err).Str("entry_id", d.msg.ID).Msg("entrada ilegible, va a dead-letter")
		q.deadLetter(ctx, d.msg.ID, &Job{ID: d.msg.ID, Envelope: rawValues(d.msg)}, err)
		return
	}
	if d.redeliver > int64(q.opts.MaxAttempts) {
		q.deadLetter(ctx, d.msg.ID, job, fmt.Errorf("entregado %d veces sin ack", d.redeliver))
		return
	}

	var env envelope.Envelope
	if err := json.Unmarshal(job.Envelope, &env); err != nil {
		q.deadLetter(ctx, d.msg.ID, job, fmt.Errorf("sobre ilegible: %w", err))
		return
	}

	// el job termina aunque Run se esté cerrando
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.opts.JobTimeout)
	herr := safeHandle(jctx, h, &env)
	cancel()

	log := q.log.With().Str("job_id", job.ID).Str("kind", string(job.Kind)).Int("attempt", job.Attempts+1).Logger()
	switch {
	case herr == nil:
		q.ack(ctx, d.msg.ID)
	case IsPermanent(herr):
		log.Warn().Err(herr).Msg("job descartado sin reintento")
		q.ack(ctx, d.msg.ID)
	default:
		job.Attempts++
		job.LastError = herr.Error()
		if job.Attempts >= q.opts.MaxAttempts {
			log.Error().Err(herr).Msg("reintentos agotados, va a dead-letter")
			q.deadLetter(ctx, d.msg.ID, job, herr)
			return
		}
		delay := q.Backoff(job.Attempts)
		log.Warn().Err(herr).Dur("retry_in", delay).Msg("job falló, se reintenta")
		q.retry(ctx, d.msg.ID, job, time.Now().Add(delay))
	}
}

func safeHandle(ctx context.Context, h Handler, env *envelope.Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic en handler: %v", rec)
		}
	}()
	return h.Handle(ctx, env)
}

func (q *Queue) ack(ctx context.Context, entryID string) {
	ctx = context.WithoutCancel(ctx)
	if _, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.XAck(ctx, q.opts.Stream, q.opts.Group, entryID)
		p.XDel(ctx, q.opts.Stream, entryID)
		return nil
	}); err != nil {
		// sin ack el reclaimer la vuelve a entregar; el procesamiento es idempotente
		q.log.Error().Err(err).Str("entry_id", entryID).Msg("no se pudo hacer ack")
	}
}

func (q *Queue) retry(ctx context.Context, entryID string, job *Job, due time.Time) {
	ctx = context.WithoutCancel(ctx)
	raw, err := json.Marshal(job)
	if err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo serializar el reintento")
		return
	}
	if _, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, q.opts.DelayedSet, &redis.Z{Score: float64(due.UnixMilli()), Member: string(raw)})
		p.XAck(ctx, q.opts.Stream, q.opts.Group, entryID)
		p.XDel(ctx, q.opts.Stream, entryID)
		return nil
	}); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo programar el reintento; queda pendiente")
	}
}

func (q *Queue) deadLetter(ctx context.Context, entryID string, job *Job, cause error) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now().UTC()
	job.FailedAt = &now
	job.LastError = cause.Error()
	if _, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if err := q.add(ctx, p, q.opts.DeadLetterStream, job); err != nil {
			return err
		}
		p.XAck(ctx, q.opts.Stream, q.opts.Group, entryID)
		p.XDel(ctx, q.opts.Stream, entryID)
		return nil
	}); err != nil {
		q.log.Error().Err(err).Str("job_id", job.ID).Msg("no se pudo mover a dead-letter; queda pendiente")
	}
}

func rawValues(msg redis.XMessage) json.RawMessage {
	raw, err := json.Marshal(msg.Values)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
