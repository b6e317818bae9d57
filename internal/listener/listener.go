// Package listener implements the UDP ingress loop: receive datagrams,
// split them into lines, parse each line into an Event, and route it to
// the Detector and onward to the Alerter.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"idsrs/internal/alerter"
	"idsrs/internal/detector"
	"idsrs/internal/logging"
	"idsrs/internal/parser"
)

// maxDatagramBytes is the maximum UDP payload this Listener will read.
const maxDatagramBytes = 65536

// Listener binds a UDP socket and feeds received lines through the
// Parser, Detector, and Alerter. It never terminates on parse or
// downstream errors; only an explicit shutdown signal stops it.
type Listener struct {
	addr     string
	parser   parser.Parser
	detector *detector.Detector
	alerter  *alerter.Alerter
	logger   *slog.Logger

	conn *net.UDPConn
}

// New constructs a Listener bound to listenAddress:listenPort at Run time.
func New(listenAddress string, listenPort int, p parser.Parser, d *detector.Detector, a *alerter.Alerter, logger *slog.Logger) *Listener {
	return &Listener{
		addr:     net.JoinHostPort(listenAddress, fmt.Sprintf("%d", listenPort)),
		parser:   p,
		detector: d,
		alerter:  a,
		logger:   logging.Default(logger).With("component", "listener"),
	}
}

// Run binds the UDP socket and blocks, processing datagrams until ctx is
// cancelled. A bind failure is returned immediately and is fatal to the
// caller.
func (l *Listener) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("resolve listen address %q: %w", l.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("bind udp %q: %w", l.addr, err)
	}
	l.conn = conn
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	l.logger.Info("listener started", "addr", conn.LocalAddr().String())

	buf := make([]byte, maxDatagramBytes)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			l.logger.Warn("udp read error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		l.handleDatagram(ctx, buf[:n])
	}
}

// handleDatagram splits a datagram on LF, stripping a trailing CR, and
// processes each line in order.
func (l *Listener) handleDatagram(ctx context.Context, data []byte) {
	receivedAt := time.Now()

	start := 0
	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] != '\n' {
			continue
		}
		if i > start {
			line := data[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if len(line) > 0 {
				l.handleLine(ctx, string(line), receivedAt)
			}
		}
		start = i + 1
	}
}

func (l *Listener) handleLine(ctx context.Context, line string, receivedAt time.Time) {
	e, ok := l.parser.Parse(line)
	if !ok {
		return
	}
	e.ReceivedAt = receivedAt
	if !e.Admissible() {
		return
	}

	alrt, ok := l.detector.Observe(e)
	if !ok {
		return
	}

	l.alerter.Send(ctx, alrt)
}
