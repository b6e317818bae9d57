package alerter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"idsrs/internal/event"
)

// displaySink renders an alert to the operator's terminal. Purely
// informational; need not be transactional with the other sinks.
type displaySink struct {
	out io.Writer
}

func newDisplaySink(out io.Writer) *displaySink {
	return &displaySink{out: out}
}

func (d *displaySink) send(a event.Alert) {
	fmt.Fprintf(d.out, "%s %s src=%s ports=%d sample=%s%s\n",
		a.DetectedAt.Format("15:04:05"), a.Kind, a.SourceIP, a.UniquePortCount, joinPortsDisplay(a.PortsSample),
		formatEnrichment(a.Enrichment))
}

// formatEnrichment renders enrichment fields as " asn=AS15169 country=US",
// in sorted key order so the line is stable across runs. Returns "" when
// there is nothing to show.
func formatEnrichment(enrichment map[string]string) string {
	if len(enrichment) == 0 {
		return ""
	}
	keys := make([]string, 0, len(enrichment))
	for k := range enrichment {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, enrichment[k])
	}
	return b.String()
}

func joinPortsDisplay(ports []int) string {
	const maxShown = 10
	shown := ports
	truncated := false
	if len(shown) > maxShown {
		shown = shown[:maxShown]
		truncated = true
	}
	s := joinInts(shown)
	if truncated {
		s += ",..."
	}
	return strings.TrimSpace(s)
}
