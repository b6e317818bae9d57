// Package detector implements the per-source port-scan detection engine:
// two time-windowed thresholds (Fast Scan, Slow Scan) with cooldown and
// periodic expiry of stale source state.
package detector

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"idsrs/internal/event"
)

// numShards is the number of independently-locked partitions of the
// per-source map. Chosen so that unrelated sources rarely contend on the
// same shard; generalizes a single mutex-guarded map into N.
const numShards = 64

// maxPortsSample bounds how many ports an Alert carries for display;
// the Alerter sink may truncate further to fit a wire MTU.
const maxPortsSample = 64

// Config holds the detection parameters. Immutable for the Detector's
// lifetime.
type Config struct {
	FastThreshold int
	FastWindow    time.Duration
	SlowThreshold int
	SlowWindow    time.Duration
	AlertCooldown time.Duration
}

// sourceState is the per-source scan state. Guarded by its shard's mutex.
type sourceState struct {
	ports       map[int]time.Time
	lastAlertAt time.Time
	lastTouchAt time.Time
}

type shard struct {
	mu      sync.Mutex
	sources map[string]*sourceState
}

// Detector tracks per-source-IP scan state and emits alerts when a source
// crosses the fast- or slow-scan port-count threshold. Safe for concurrent
// use by multiple goroutines observing unrelated or related sources.
type Detector struct {
	cfg    Config
	shards [numShards]*shard
}

// New constructs a Detector with the given scan parameters.
func New(cfg Config) *Detector {
	d := &Detector{cfg: cfg}
	for i := range d.shards {
		d.shards[i] = &shard{sources: make(map[string]*sourceState)}
	}
	return d
}

func (d *Detector) shardFor(sourceIP string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourceIP))
	return d.shards[h.Sum32()%numShards]
}

func (d *Detector) maxWindow() time.Duration {
	if d.cfg.FastWindow > d.cfg.SlowWindow {
		return d.cfg.FastWindow
	}
	return d.cfg.SlowWindow
}

// Observe records an event and returns any alert it triggers. The contract
// permits zero or one alert per call; Fast Scan is evaluated before Slow
// Scan and wins ties, at most one alert is emitted per call.
func (d *Detector) Observe(e event.Event) (event.Alert, bool) {
	now := e.ReceivedAt
	sh := d.shardFor(e.SourceIP)

	sh.mu.Lock()
	st, ok := sh.sources[e.SourceIP]
	if !ok {
		st = &sourceState{ports: make(map[int]time.Time)}
		sh.sources[e.SourceIP] = st
	}

	st.ports[e.DestPort] = now
	st.lastTouchAt = now

	d.pruneLocked(st, now)

	kind, count, ports, emit := d.evaluateLocked(st, now)
	if emit {
		st.lastAlertAt = now
	}
	sh.mu.Unlock()

	if !emit {
		return event.Alert{}, false
	}

	return event.Alert{
		ID:              uuid.NewString(),
		Kind:            kind,
		SourceIP:        e.SourceIP,
		UniquePortCount: count,
		PortsSample:     ports,
		DetectedAt:      now,
	}, true
}

// pruneLocked drops observations older than the larger of the two windows.
// Pruning is semantically optional (bounded memory only) and must not
// change the outcome of evaluateLocked.
func (d *Detector) pruneLocked(st *sourceState, now time.Time) {
	cutoff := now.Add(-d.maxWindow())
	for port, ts := range st.ports {
		if !ts.After(cutoff) {
			delete(st.ports, port)
		}
	}
}

// evaluateLocked runs the Fast-then-Slow check and applies cooldown.
func (d *Detector) evaluateLocked(st *sourceState, now time.Time) (event.Kind, int, []int, bool) {
	onCooldown := !st.lastAlertAt.IsZero() && now.Sub(st.lastAlertAt) < d.cfg.AlertCooldown

	if count, ports, ok := countWithin(st.ports, now, d.cfg.FastWindow, d.cfg.FastThreshold); ok {
		if onCooldown {
			return 0, 0, nil, false
		}
		return event.FastScan, count, ports, true
	}
	if count, ports, ok := countWithin(st.ports, now, d.cfg.SlowWindow, d.cfg.SlowThreshold); ok {
		if onCooldown {
			return 0, 0, nil, false
		}
		return event.SlowScan, count, ports, true
	}
	return 0, 0, nil, false
}

// countWithin counts distinct ports whose timestamp falls in
// (now-window, now] and reports whether that count strictly exceeds
// threshold, along with an ascending, truncated sample of those ports.
func countWithin(ports map[int]time.Time, now time.Time, window time.Duration, threshold int) (int, []int, bool) {
	cutoff := now.Add(-window)
	var within []int
	for port, ts := range ports {
		if ts.After(cutoff) && !ts.After(now) {
			within = append(within, port)
		}
	}
	if len(within) <= threshold {
		return 0, nil, false
	}
	sort.Ints(within)
	sample := within
	if len(sample) > maxPortsSample {
		sample = sample[:maxPortsSample]
	}
	return len(within), sample, true
}

// Cleanup removes per-source entries that have been idle longer than
// maxEntryAge. Safe to run concurrently with Observe; each shard is
// visited independently and entry removal is atomic with respect to that
// shard's critical section.
func (d *Detector) Cleanup(now time.Time, maxEntryAge time.Duration) {
	cutoff := now.Add(-maxEntryAge)
	for _, sh := range d.shards {
		sh.mu.Lock()
		for ip, st := range sh.sources {
			if st.lastTouchAt.Before(cutoff) {
				delete(sh.sources, ip)
			}
		}
		sh.mu.Unlock()
	}
}
