package alerter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"idsrs/internal/event"
	"idsrs/internal/logging"
)

// maxSIEMDatagramBytes is a conservative MTU-safe ceiling for the SIEM UDP
// line; ports_sample is truncated to stay under it.
const maxSIEMDatagramBytes = 1200

// siemSink formats an Alert as a syslog-style line and sends it as a single
// UDP datagram. Rate-limited so a legitimate alert burst cannot itself
// flood the collector's own ingest path; the limiter paces sends, it never
// suppresses delivery outright.
type siemSink struct {
	addr    string
	conn    net.Conn
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newSIEMSink(host string, port int, logger *slog.Logger) (*siemSink, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial siem %s: %w", addr, err)
	}
	return &siemSink{
		addr:    addr,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
		logger:  logging.Default(logger).With("component", "alerter", "sink", "siem"),
	}, nil
}

func (s *siemSink) send(ctx context.Context, a event.Alert) {
	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	err := s.limiter.Wait(waitCtx)
	cancel()
	if err != nil {
		s.logger.Debug("siem rate limit wait exceeded bound, sending anyway", "alert_id", a.ID)
	}

	line := formatSIEMLine(a)
	if _, err := s.conn.Write([]byte(line)); err != nil {
		s.logger.Warn("siem send failed", "error", err, "alert_id", a.ID)
	}
}

func (s *siemSink) close() {
	_ = s.conn.Close()
}

// formatSIEMLine renders: "IDS-RS ALERT kind=<..> src=<..> ports=<N>
// sample=<p1,p2,...> id=<uuid>", truncating the sample to fit
// maxSIEMDatagramBytes. The id field is appended last so that consumers
// parsing only up to sample= are unaffected.
func formatSIEMLine(a event.Alert) string {
	prefix := fmt.Sprintf("IDS-RS ALERT kind=%s src=%s ports=%d sample=", a.Kind, a.SourceIP, a.UniquePortCount)
	suffix := fmt.Sprintf(" id=%s", a.ID)

	budget := maxSIEMDatagramBytes - len(prefix) - len(suffix)
	sample := joinPortsBudget(a.PortsSample, budget)

	return prefix + sample + suffix
}

func joinPortsBudget(ports []int, budget int) string {
	var b strings.Builder
	for i, p := range ports {
		s := strconv.Itoa(p)
		add := len(s)
		if i > 0 {
			add++ // comma
		}
		if b.Len()+add > budget {
			break
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s)
	}
	return b.String()
}
