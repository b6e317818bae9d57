package alerter

import (
	"context"
	"fmt"
	"log/slog"

	"idsrs/internal/config"
	"idsrs/internal/logging"
	"idsrs/internal/lookup"
)

// closer is satisfied by lookup tables that own a background resource
// (an MMDB reader, a file watcher) and must release it on shutdown.
type closer interface {
	Close()
}

// Enricher is the best-effort, read-only annotation stage: it asks each
// configured lookup table for fields about an alert's source IP and merges
// the results. A miss from any table (no database, no match, DNS timeout)
// simply contributes nothing; Enricher never returns an error.
type Enricher struct {
	registry lookup.Registry
	closers  []closer
	logger   *slog.Logger
}

// BuildEnrichment constructs an Enricher from the optional [enrichment]
// config section. Returns (nil, nil) when cfg is nil, meaning enrichment
// is disabled entirely.
func BuildEnrichment(cfg *config.Enrichment, logger *slog.Logger) (*Enricher, error) {
	if cfg == nil {
		return nil, nil
	}
	logger = logging.Default(logger).With("component", "enrichment")

	reg := make(lookup.Registry)
	var closers []closer

	if cfg.GeoIPDB != "" {
		if _, err := lookup.ValidateMMDB(cfg.GeoIPDB); err != nil {
			return nil, fmt.Errorf("validate geoip_db %q: %w", cfg.GeoIPDB, err)
		}
		g := lookup.NewGeoIP()
		if _, err := g.Load(cfg.GeoIPDB); err != nil {
			return nil, fmt.Errorf("load geoip_db %q: %w", cfg.GeoIPDB, err)
		}
		if cfg.WatchDatabases {
			if err := g.WatchFile(cfg.GeoIPDB); err != nil {
				logger.Warn("geoip database watch failed", "error", err, "path", cfg.GeoIPDB)
			}
		}
		reg["geoip"] = g
		closers = append(closers, g)
	}

	if cfg.ASNDB != "" {
		if _, err := lookup.ValidateMMDB(cfg.ASNDB); err != nil {
			return nil, fmt.Errorf("validate asn_db %q: %w", cfg.ASNDB, err)
		}
		a := lookup.NewASN()
		if _, err := a.Load(cfg.ASNDB); err != nil {
			return nil, fmt.Errorf("load asn_db %q: %w", cfg.ASNDB, err)
		}
		if cfg.WatchDatabases {
			if err := a.WatchFile(cfg.ASNDB); err != nil {
				logger.Warn("asn database watch failed", "error", err, "path", cfg.ASNDB)
			}
		}
		reg["asn"] = a
		closers = append(closers, a)
	}

	if cfg.ReverseDNS {
		reg["rdns"] = lookup.NewRDNS(lookup.WithTimeout(cfg.ReverseDNSTimeout))
	}

	return &Enricher{registry: reg, closers: closers, logger: logger}, nil
}

// Enrich returns merged suffix→value fields for sourceIP across all
// configured tables, or nil if none matched or e is nil. Collisions
// between tables (e.g. a combined GeoIP database's embedded ASN fields
// versus a dedicated ASN table) resolve deterministically; see
// lookup.Registry.Merge.
func (e *Enricher) Enrich(ctx context.Context, sourceIP string) map[string]string {
	if e == nil || len(e.registry) == 0 {
		return nil
	}
	return e.registry.Merge(ctx, sourceIP)
}

// Close releases resources held by lookup tables (MMDB readers, file
// watchers). Safe to call on a nil Enricher.
func (e *Enricher) Close() {
	if e == nil {
		return
	}
	for _, c := range e.closers {
		c.Close()
	}
}
