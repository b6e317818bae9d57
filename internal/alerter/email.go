package alerter

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"

	"idsrs/internal/config"
	"idsrs/internal/event"
	"idsrs/internal/logging"
)

// emailQueueSize bounds the number of alerts waiting for SMTP submission.
// When full, the oldest pending alert is dropped so the dispatching
// goroutine never blocks on a slow mail server.
const emailQueueSize = 64

// emailSink submits one SMTP message per alert on a dedicated worker
// goroutine, decoupled from the receive path by a bounded channel.
type emailSink struct {
	cfg    config.Email
	queue  chan event.Alert
	logger *slog.Logger
}

func newEmailSink(cfg config.Email, logger *slog.Logger) *emailSink {
	return &emailSink{
		cfg:    cfg,
		queue:  make(chan event.Alert, emailQueueSize),
		logger: logging.Default(logger).With("component", "alerter", "sink", "email"),
	}
}

// send enqueues an alert for delivery, dropping the oldest queued alert if
// the queue is already full.
func (s *emailSink) send(a event.Alert) {
	select {
	case s.queue <- a:
		return
	default:
	}

	select {
	case old := <-s.queue:
		s.logger.Warn("email queue full, dropping oldest pending alert", "dropped_alert_id", old.ID)
	default:
	}

	select {
	case s.queue <- a:
	default:
		s.logger.Warn("email queue full, dropping alert", "alert_id", a.ID)
	}
}

// run drains the queue until ctx is cancelled, delivering each alert via
// SMTP. Intended to run as a single long-lived goroutine.
func (s *emailSink) run(ctx context.Context) {
	for {
		select {
		case a, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.deliver(a); err != nil {
				s.logger.Warn("smtp delivery failed", "error", err, "alert_id", a.ID)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *emailSink) deliver(a event.Alert) error {
	addr := net.JoinHostPort(s.cfg.SMTPServer, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPServer)
	}

	msg := buildMessage(s.cfg, a)

	if s.cfg.TLS == config.EmailTLSImplicit {
		return sendImplicitTLS(addr, s.cfg.SMTPServer, auth, s.cfg.From, s.cfg.To, msg)
	}
	// STARTTLS: net/smtp.SendMail negotiates STARTTLS automatically when
	// the server advertises it.
	return smtp.SendMail(addr, auth, s.cfg.From, s.cfg.To, msg)
}

func sendImplicitTLS(addr, serverName string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: serverName})
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	c, err := smtp.NewClient(conn, serverName)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = c.Close() }()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}

func buildMessage(cfg config.Email, a event.Alert) []byte {
	subject := fmt.Sprintf("[IDS-RS] %s from %s", a.Kind, a.SourceIP)
	var body strings.Builder
	fmt.Fprintf(&body, "Alert: %s\n", a.Kind)
	fmt.Fprintf(&body, "Source: %s\n", a.SourceIP)
	fmt.Fprintf(&body, "Detected at: %s\n", a.DetectedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&body, "Unique ports: %d\n", a.UniquePortCount)
	fmt.Fprintf(&body, "Ports: %s\n", joinInts(a.PortsSample))
	if len(a.Enrichment) > 0 {
		body.WriteString("Enrichment:\n")
		keys := make([]string, 0, len(a.Enrichment))
		for k := range a.Enrichment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&body, "  %s: %s\n", k, a.Enrichment[k])
		}
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(cfg.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body.String())
	return []byte(msg.String())
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
