package worker

// alerta_worker.go
// Turns inventory alerts (batch out of stock, batches about to expire) into
// email jobs addressed to ALERTAS_EMAIL.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	AlertaLoteAgotado  = "lote_agotado"
	AlertaVencimientos = "vencimientos"
)

// AlertaLote is the batch snapshot carried by an alert.
type AlertaLote struct {
	LoteID             string `json:"lote_id"`
	NumeroLote         string `json:"numero_lote"`
	ProductoID         string `json:"producto_id"`
	FechaVencimiento   string `json:"fecha_vencimiento"`
	CantidadDisponible int    `json:"cantidad_disponible"`
}

// AlertaJobPayload is the job envelope sent to QueueAlertas.
type AlertaJobPayload struct {
	Tipo  string       `json:"tipo"`
	Dias  int          `json:"dias,omitempty"`
	Lotes []AlertaLote `json:"lotes"`
}

// EmailEnqueuer is the part of *Dispatcher the alert worker needs.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type AlertaWorker struct {
	emails        EmailEnqueuer
	destinatarios []string
}

// NewAlertaWorker wires the worker. destinatarios is the comma separated
// ALERTAS_EMAIL value; when empty alerts are only logged.
func NewAlertaWorker(emails EmailEnqueuer, destinatarios string) *AlertaWorker {
	var to []string
	for _, d := range strings.Split(destinatarios, ",") {
		if d = strings.TrimSpace(d); d != "" {
			to = append(to, d)
		}
	}
	return &AlertaWorker{emails: emails, destinatarios: to}
}

func (w *AlertaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload AlertaJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("alerta_worker: invalid payload: %v: %w", err, ErrPermanente)
	}

	subject, body, err := RenderAlerta(payload)
	if err != nil {
		return err
	}
	log.Info().Str("tipo", payload.Tipo).Int("lotes", len(payload.Lotes)).Msg("alerta_worker: alerta de inventario")

	if len(w.destinatarios) == 0 {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{To: w.destinatarios, Subject: subject, Body: body})
}

// RenderAlerta builds the subject and plain-text body of an alert email.
func RenderAlerta(p AlertaJobPayload) (string, string, error) {
	var b strings.Builder
	var subject string
	switch p.Tipo {
	case AlertaLoteAgotado:
		subject = "Lote agotado"
		if len(p.Lotes) == 1 {
			subject = fmt.Sprintf("Lote %s agotado", p.Lotes[0].NumeroLote)
		}
		b.WriteString("Los siguientes lotes se quedaron sin stock disponible:\n\n")
	case AlertaVencimientos:
		subject = fmt.Sprintf("%d lotes vencen en los próximos %d días", len(p.Lotes), p.Dias)
		b.WriteString("Lotes activos próximos a vencer:\n\n")
	default:
		return "", "", fmt.Errorf("alerta_worker: tipo desconocido %q: %w", p.Tipo, ErrPermanente)
	}
	for _, l := range p.Lotes {
		fmt.Fprintf(&b, "- Lote %s (producto %s) vence %s, disponible %d\n",
			l.NumeroLote, l.ProductoID, l.FechaVencimiento, l.CantidadDisponible)
	}
	return subject, b.String(), nil
}
