package lookup

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// rdnsEntry is a cached reverse-DNS result for one source IP.
type rdnsEntry struct {
	hostname string
	expires  time.Time
}

// RDNS resolves an alert's source IP to a hostname via
// net.Resolver.LookupAddr, caching both hits and misses so a source under
// active scan doesn't trigger a fresh PTR query for every alert it raises.
type RDNS struct {
	resolver  *net.Resolver
	timeout   time.Duration
	posTTL    time.Duration // positive result TTL
	negTTL    time.Duration // negative (miss) result TTL
	cacheSize int

	mu    sync.Mutex
	cache map[string]rdnsEntry
}

// RDNSOption configures the RDNS table.
type RDNSOption func(*RDNS)

// WithTTL sets the positive and negative TTLs.
func WithTTL(positive, negative time.Duration) RDNSOption {
	return func(r *RDNS) {
		r.posTTL = positive
		r.negTTL = negative
	}
}

// WithTimeout sets the per-lookup timeout.
func WithTimeout(d time.Duration) RDNSOption {
	return func(r *RDNS) {
		r.timeout = d
	}
}

// WithCacheSize sets the max cache entries.
func WithCacheSize(n int) RDNSOption {
	return func(r *RDNS) {
		r.cacheSize = n
	}
}

// WithResolver sets a custom net.Resolver (for testing).
func WithResolver(res *net.Resolver) RDNSOption {
	return func(r *RDNS) {
		r.resolver = res
	}
}

// NewRDNS creates a reverse-DNS lookup table with the given options applied
// over sensible defaults (2s timeout, 5m positive / 1m negative TTL, 10k
// cache entries).
func NewRDNS(opts ...RDNSOption) *RDNS {
	r := &RDNS{
		resolver:  net.DefaultResolver,
		timeout:   2 * time.Second,
		posTTL:    5 * time.Minute,
		negTTL:    1 * time.Minute,
		cacheSize: 10_000,
		cache:     make(map[string]rdnsEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Suffixes returns the output suffixes for RDNS lookups.
func (r *RDNS) Suffixes() []string {
	return []string{"hostname"}
}

// Lookup resolves a source IP to a hostname. Returns nil on cache miss
// that also fails to resolve, or on a cached negative result.
func (r *RDNS) Lookup(ctx context.Context, value string) map[string]string {
	if value == "" {
		return nil
	}

	r.mu.Lock()
	if entry, ok := r.cache[value]; ok {
		if time.Now().Before(entry.expires) {
			r.mu.Unlock()
			if entry.hostname == "" {
				return nil
			}
			return map[string]string{"hostname": entry.hostname}
		}
	}
	r.mu.Unlock()

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(lookupCtx, value)

	var hostname string
	if err == nil && len(names) > 0 {
		hostname = strings.TrimSuffix(names[0], ".")
	}

	// Cache the result.
	ttl := r.negTTL
	if hostname != "" {
		ttl = r.posTTL
	}
	r.mu.Lock()
	if len(r.cache) >= r.cacheSize {
		clear(r.cache)
	}
	r.cache[value] = rdnsEntry{hostname: hostname, expires: time.Now().Add(ttl)}
	r.mu.Unlock()

	if hostname == "" {
		return nil
	}
	return map[string]string{"hostname": hostname}
}
