package worker

// email_worker.go
// Processes email jobs from QueueEmail through the SMTP circuit breaker.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"farmacia/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Sender delivers one email. *infra.Mailer implements it.
type Sender interface {
	Send(to []string, subject, body string, adjuntos ...infra.Adjunto) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

// NewEmailWorker creates an EmailWorker. cb may be nil.
func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

// Process sends the email. An open breaker returns infra.ErrCircuitOpen so
// the pool retries and eventually dead-letters the job.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %v: %w", err, ErrPermanente)
	}
	if len(payload.To) == 0 {
		log.Warn().Str("subject", payload.Subject).Msg("email_worker: no recipients, skipping")
		return nil
	}

	send := func() error { return w.sender.Send(payload.To, payload.Subject, payload.Body) }
	var err error
	if w.cb != nil {
		err = w.cb.Execute(send)
	} else {
		err = send()
	}
	if errors.Is(err, infra.ErrCircuitOpen) {
		log.Warn().Str("breaker", w.cb.Name()).Str("subject", payload.Subject).Msg("email_worker: breaker open, not sending")
		return err
	}
	if err != nil {
		log.Error().Err(err).Str("to", strings.Join(payload.To, ",")).Msg("email_worker: failed to send email")
		return err
	}
	log.Info().Str("to", strings.Join(payload.To, ",")).Str("subject", payload.Subject).Msg("email_worker: email sent")
	return nil
}
