//go:build integration

package worker

// Runs the dispatcher, the pool and the DLQ against a real Redis.
// Run with: go test -tags integration ./internal/worker/... -v

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"farmacia/internal/infra"
	"farmacia/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func ultimaEntradaDLQ(t *testing.T, rdb *redis.Client, jobType string) DLQEntry {
	t.Helper()
	raw, err := rdb.LIndex(context.Background(), DLQPrefix+jobType, 0).Result()
	require.NoError(t, err)
	var e DLQEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	return e
}

func TestPool_AlertaTerminaEnEmail(t *testing.T) {
	rdb := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := &fakeSender{}
	d := NewDispatcher(rdb)
	StartWorkerPool(ctx, rdb, &WorkerHandlers{
		Email:   NewEmailWorker(sender, infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig())),
		Alertas: NewAlertaWorker(d, "regente@farmacia.test"),
		Metrics: metrics.New("test"),
	}, 2)

	require.NoError(t, d.EnqueueAlerta(ctx, AlertaJobPayload{
		Tipo:  AlertaLoteAgotado,
		Lotes: []AlertaLote{{NumeroLote: "L-2027"}},
	}))

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.enviados) == 1
	}, 15*time.Second, 50*time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "Lote L-2027 agotado", sender.enviados[0].Subject)
	assert.Equal(t, []string{"regente@farmacia.test"}, sender.enviados[0].To)
}

func TestProcessJob_DLQ(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	conBackoff(t, time.Millisecond)

	fallido := handlerFunc(func(context.Context, json.RawMessage) error { return errors.New("smtp: timeout") })
	handlers := &WorkerHandlers{Email: fallido}

	t.Run("agota reintentos", func(t *testing.T) {
		job, _ := json.Marshal(Job{Type: JobEmail, Payload: json.RawMessage(`{"to":["a@b.c"]}`)})

		processJob(ctx, rdb, handlers, QueueEmail, string(job))

		n, err := DLQLength(ctx, rdb, JobEmail)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		e := ultimaEntradaDLQ(t, rdb, JobEmail)
		assert.Equal(t, maxIntentos, e.Attempts)
		assert.Equal(t, QueueEmail, e.OriginalQueue)
		assert.Contains(t, e.Reason, "smtp: timeout")
	})

	t.Run("tipo sin handler", func(t *testing.T) {
		job, _ := json.Marshal(Job{Type: JobAlerta, Payload: json.RawMessage(`{}`)})

		processJob(ctx, rdb, handlers, QueueAlertas, string(job))

		e := ultimaEntradaDLQ(t, rdb, JobAlerta)
		assert.Equal(t, 0, e.Attempts)
	})

	t.Run("job malformado", func(t *testing.T) {
		processJob(ctx, rdb, handlers, QueueAlertas, `{"type":`)

		e := ultimaEntradaDLQ(t, rdb, "desconocido")
		assert.Equal(t, QueueAlertas, e.OriginalQueue)
	})
}
