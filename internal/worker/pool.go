package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farmacia/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail   = "farmacia:jobs:email"
	QueueAlertas = "farmacia:jobs:alertas"

	JobEmail  = "email"
	JobAlerta = "alerta"

	// maxIntentos is how many times a failing job runs before the DLQ.
	maxIntentos = 3
)

// backoffBase is the wait before the second attempt; it doubles afterwards.
var backoffBase = time.Second

// ErrPermanente marks failures that retrying cannot fix (malformed payloads).
var ErrPermanente = errors.New("error permanente")

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers groups the handler of every job type.
type WorkerHandlers struct {
	Email   Handler
	Alertas Handler
	Metrics *metrics.Metrics
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

// EnqueueAlerta pushes an inventory alert job to Redis.
func (d *Dispatcher) EnqueueAlerta(ctx context.Context, payload AlertaJobPayload) error {
	return d.enqueue(ctx, QueueAlertas, JobAlerta, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP and stays idle until a job arrives.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueAlertas, QueueEmail}
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

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, "desconocido", json.RawMessage(raw), err.Error(), 0)
		return
	}

	var h Handler
	switch job.Type {
	case JobEmail:
		h = handlers.Email
	case JobAlerta:
		h = handlers.Alertas
	}
	if h == nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "sin handler para el tipo de job", 0)
		return
	}

	intentos, err := ejecutar(ctx, h, job.Payload)
	if err != nil {
		handlers.Metrics.IncJob(job.Type, "dlq")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), intentos)
		return
	}
	handlers.Metrics.IncJob(job.Type, "ok")
	log.Debug().Str("type", job.Type).Int("intentos", intentos).Msg("job processed")
}

// ejecutar runs h with exponential backoff: immediate, backoffBase, 2×backoffBase.
// Permanent errors stop the loop at once.
func ejecutar(ctx context.Context, h Handler, payload json.RawMessage) (int, error) {
	var lastErr error
	for i := 0; i < maxIntentos; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * backoffBase
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(wait):
			}
		}
		err := h.Process(ctx, payload)
		if err == nil {
			return i + 1, nil
		}
		lastErr = err
		if errors.Is(err, ErrPermanente) {
			return i + 1, err
		}
		log.Warn().Err(err).Int("intento", i+1).Msg("job failed, retrying")
	}
	return maxIntentos, fmt.Errorf("max intentos (%d) agotados: %w", maxIntentos, lastErr)
}
