// Package alerter fans an Alert out to its configured sinks: a SIEM
// collector over UDP, SMTP email, and a terminal display. Failure of one
// sink never prevents or delays delivery to another.
package alerter

import (
	"context"
	"io"
	"log/slog"

	"idsrs/internal/config"
	"idsrs/internal/event"
	"idsrs/internal/logging"
)

// Alerter dispatches alerts to every enabled sink.
type Alerter struct {
	display  *displaySink
	siem     *siemSink
	email    *emailSink
	enricher *Enricher
	logger   *slog.Logger
}

// New builds an Alerter from configuration. The SIEM and email sinks are
// nil (disabled) when their config sections are absent or enabled=false.
func New(cfg config.Config, enricher *Enricher, out io.Writer, logger *slog.Logger) (*Alerter, error) {
	logger = logging.Default(logger).With("component", "alerter")

	a := &Alerter{
		display:  newDisplaySink(out),
		enricher: enricher,
		logger:   logger,
	}

	if cfg.SIEM != nil && cfg.SIEM.Enabled {
		s, err := newSIEMSink(cfg.SIEM.Host, cfg.SIEM.Port, logger)
		if err != nil {
			return nil, err
		}
		a.siem = s
	}

	if cfg.Email != nil && cfg.Email.Enabled {
		a.email = newEmailSink(*cfg.Email, logger)
	}

	return a, nil
}

// Run starts the background workers (currently just the email delivery
// goroutine) and blocks until ctx is cancelled.
func (a *Alerter) Run(ctx context.Context) error {
	if a.email != nil {
		a.email.run(ctx)
	} else {
		<-ctx.Done()
	}
	return nil
}

// Send dispatches an alert to every enabled sink independently. Never
// blocks on the email sink (bounded queue) and never returns an error to
// the caller; sink-level failures are logged.
func (a *Alerter) Send(ctx context.Context, alrt event.Alert) {
	if a.enricher != nil {
		alrt.Enrichment = a.enricher.Enrich(ctx, alrt.SourceIP)
	}

	a.display.send(alrt)

	if a.siem != nil {
		a.siem.send(ctx, alrt)
	}
	if a.email != nil {
		a.email.send(alrt)
	}
}

// Close releases sink resources (the SIEM UDP socket).
func (a *Alerter) Close() {
	if a.siem != nil {
		a.siem.close()
	}
}
