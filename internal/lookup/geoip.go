package lookup

import (
	"context"
	"strconv"
)

// mmdbRecord contains only the fields decoded from the MMDB file for a
// source IP. ASN fields are at root level to match GeoLite2-ASN /
// GeoIP2-ASN databases, which some GeoIP feeds embed directly alongside
// country/city data.
type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	ASNumber       uint   `maxminddb:"autonomous_system_number"`
	ASOrganization string `maxminddb:"autonomous_system_organization"`
}

// GeoIP resolves an alert's source IP to geographic metadata (country,
// city, and, when the configured database embeds it, ASN) from a MaxMind
// MMDB file. Safe for concurrent use; the reader is swapped atomically so
// WatchFile can reload the database without blocking concurrent Lookups.
type GeoIP struct {
	mmdbTable
}

// NewGeoIP creates a GeoIP lookup table. Starts empty; Lookup returns nil
// until a database is loaded via Load.
func NewGeoIP() *GeoIP {
	return &GeoIP{}
}

// Suffixes returns the output suffixes this table produces.
func (g *GeoIP) Suffixes() []string {
	return []string{"country", "city", "asn"}
}

// Lookup resolves a source IP to geographic metadata. Returns nil on miss,
// parse error, or if no database is loaded.
func (g *GeoIP) Lookup(_ context.Context, value string) map[string]string {
	var rec mmdbRecord
	if !g.decode(value, &rec) {
		return nil
	}

	out := make(map[string]string, 3)
	if rec.Country.ISOCode != "" {
		out["country"] = rec.Country.ISOCode
	}
	if name := rec.City.Names["en"]; name != "" {
		out["city"] = name
	}
	if rec.ASNumber != 0 {
		out["asn"] = "AS" + strconv.FormatUint(uint64(rec.ASNumber), 10)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Load opens an MMDB file and swaps it in as the active database. The old
// reader is closed after the swap.
func (g *GeoIP) Load(path string) (MmdbInfo, error) {
	return g.load(path)
}

// WatchFile watches an MMDB file for changes and reloads it in place on
// write/create events. Calling WatchFile again replaces the previous watch.
func (g *GeoIP) WatchFile(path string) error {
	return g.watch(path, func(p string) { _, _ = g.Load(p) })
}

// Close stops the file watcher and closes the current MMDB reader.
func (g *GeoIP) Close() {
	g.close()
}
