// Package gaia parses Checkpoint Gaia raw syslog drop-log lines.
package gaia

import (
	"strconv"
	"strings"
	"time"

	"idsrs/internal/event"
)

// Parser recognizes Checkpoint Gaia "key: value;" syslog lines.
type Parser struct{}

// New returns a Gaia line parser.
func New() *Parser { return &Parser{} }

// Name returns the parser's display identifier.
func (p *Parser) Name() string { return "gaia" }

// recognized Gaia field keys; unrecognized keys are scanned past and ignored.
var recognizedKeys = map[string]bool{
	"src":        true,
	"dst":        true,
	"proto":      true,
	"service":    true,
	"s_port":     true,
	"product":    true,
	"rule":       true,
	"service_id": true,
}

// Parse implements parser.Parser.
func (p *Parser) Parse(line string) (event.Event, bool) {
	if strings.TrimSpace(line) == "" {
		return event.Event{}, false
	}
	if !hasDropCue(line) {
		return event.Event{}, false
	}

	fields := scanFields(line)

	src := fields["src"]
	dst := fields["dst"]
	if src == "" && dst == "" {
		return event.Event{}, false
	}

	service, ok := fields["service"]
	if !ok || service == "" {
		return event.Event{}, false
	}
	port, err := strconv.Atoi(service)
	if err != nil || port < 1 || port > 65535 {
		// Non-numeric or out-of-range service token: detector works on
		// ports, not service names.
		return event.Event{}, false
	}

	return event.Event{
		SourceIP:   src,
		DestIP:     dst,
		DestPort:   port,
		Proto:      fields["proto"],
		Action:     event.ActionDrop,
		ReceivedAt: time.Time{}, // assigned by the Listener on receipt
	}, true
}

// hasDropCue reports whether "drop" appears in the line as a standalone
// token, bounded by non-alphanumeric characters (or the line edges), to
// avoid matching a substring like "droplet".
func hasDropCue(line string) bool {
	const needle = "drop"
	idx := 0
	for {
		pos := strings.Index(line[idx:], needle)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(needle)
		before := byte(' ')
		if start > 0 {
			before = line[start-1]
		}
		after := byte(' ')
		if end < len(line) {
			after = line[end]
		}
		if !isAlnum(before) && !isAlnum(after) {
			return true
		}
		idx = end
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// scanFields extracts "key: value;" assignments from a Gaia line. Values
// end at ';' or end-of-line; whitespace around ':' and values is tolerated.
// Unrecognized keys are scanned past and discarded.
func scanFields(line string) map[string]string {
	out := make(map[string]string, len(recognizedKeys))
	pos := 0
	n := len(line)
	for pos < n {
		for pos < n && isSpace(line[pos]) {
			pos++
		}
		keyStart := pos
		for pos < n && line[pos] != ':' && line[pos] != ';' {
			pos++
		}
		if pos >= n || line[pos] != ':' {
			// No colon before end-of-line or next semicolon: not a
			// key:value assignment, skip to next field.
			for pos < n && line[pos] != ';' {
				pos++
			}
			if pos < n {
				pos++
			}
			continue
		}
		key := strings.TrimSpace(line[keyStart:pos])
		pos++ // skip ':'
		for pos < n && line[pos] == ' ' {
			pos++
		}
		valStart := pos
		for pos < n && line[pos] != ';' {
			pos++
		}
		value := strings.TrimSpace(line[valStart:pos])
		if pos < n {
			pos++ // skip ';'
		}
		if recognizedKeys[key] {
			out[key] = value
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
