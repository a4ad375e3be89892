package worker

// vencimiento_cron.go
// Background goroutine that periodically looks for Activo batches close to
// their expiry date and enqueues one summary alert per tick.

import (
	"context"
	"time"

	"farmacia/internal/dto"

	"github.com/rs/zerolog/log"
)

// LotesPorVencer is the inventory query the cron depends on.
type LotesPorVencer interface {
	LotesPorVencer(ctx context.Context, dias int) ([]dto.LoteResponse, error)
}

// AlertaEnqueuer is the part of *Dispatcher the cron needs.
type AlertaEnqueuer interface {
	EnqueueAlerta(ctx context.Context, payload AlertaJobPayload) error
}

// VencimientoCronConfig holds all dependencies for the expiry goroutine.
type VencimientoCronConfig struct {
	Inventario LotesPorVencer
	Alertas    AlertaEnqueuer
	Dias       int
	Intervalo  time.Duration
}

// StartAlertaVencimientos launches a goroutine that runs a check right away
// and then every cfg.Intervalo. It respects ctx for graceful shutdown.
func StartAlertaVencimientos(ctx context.Context, cfg VencimientoCronConfig) {
	if cfg.Intervalo <= 0 {
		cfg.Intervalo = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(cfg.Intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", cfg.Intervalo).Int("dias", cfg.Dias).Msg("vencimiento_cron: started")
		RevisarVencimientos(ctx, cfg)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("vencimiento_cron: shutting down")
				return
			case <-ticker.C:
				RevisarVencimientos(ctx, cfg)
			}
		}
	}()
}

// RevisarVencimientos runs one check. It enqueues nothing when no batch is
// about to expire.
func RevisarVencimientos(ctx context.Context, cfg VencimientoCronConfig) {
	lotes, err := cfg.Inventario.LotesPorVencer(ctx, cfg.Dias)
	if err != nil {
		log.Error().Err(err).Msg("vencimiento_cron: failed to query expiring batches")
		return
	}
	if len(lotes) == 0 {
		return
	}

	payload := AlertaJobPayload{Tipo: AlertaVencimientos, Dias: cfg.Dias}
	for _, l := range lotes {
		payload.Lotes = append(payload.Lotes, AlertaLote{
			LoteID:             l.ID,
			NumeroLote:         l.NumeroLote,
			ProductoID:         l.ProductoID,
			FechaVencimiento:   l.FechaVencimiento,
			CantidadDisponible: l.CantidadDisponible,
		})
	}
	if err := cfg.Alertas.EnqueueAlerta(ctx, payload); err != nil {
		log.Warn().Err(err).Int("lotes", len(lotes)).Msg("vencimiento_cron: failed to enqueue alert")
		return
	}
	log.Info().Int("lotes", len(lotes)).Msg("vencimiento_cron: alert enqueued")
}
