package lookup

import (
	"context"
	"strconv"
)

// asnRecord contains only the fields decoded from a GeoLite2-ASN /
// GeoIP2-ASN MMDB file for a source IP.
type asnRecord struct {
	Number       uint   `maxminddb:"autonomous_system_number"`
	Organization string `maxminddb:"autonomous_system_organization"`
}

// ASN resolves an alert's source IP to autonomous-system metadata (ASN,
// AS organization) from a dedicated MaxMind ASN MMDB file. Keeping ASN as
// its own lookup table, separate from GeoIP, lets an operator run
// enrichment from a GeoLite2-ASN feed even when no city/country database
// is configured, and takes precedence over any ASN fields a combined
// GeoIP database happens to embed — see Registry.Merge.
type ASN struct {
	mmdbTable
}

// NewASN creates an ASN lookup table. Starts empty; Lookup returns nil
// until a database is loaded via Load.
func NewASN() *ASN {
	return &ASN{}
}

// Suffixes returns the output suffixes this table produces.
func (a *ASN) Suffixes() []string {
	return []string{"asn", "as_org"}
}

// Lookup resolves a source IP to ASN metadata. Returns nil on miss, parse
// error, or if no database is loaded.
func (a *ASN) Lookup(_ context.Context, value string) map[string]string {
	var rec asnRecord
	if !a.decode(value, &rec) {
		return nil
	}

	out := make(map[string]string, 2)
	if rec.Number != 0 {
		out["asn"] = "AS" + strconv.FormatUint(uint64(rec.Number), 10)
	}
	if rec.Organization != "" {
		out["as_org"] = rec.Organization
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Load opens an ASN MMDB file and swaps it in as the active database. The
// old reader is closed after the swap.
func (a *ASN) Load(path string) (MmdbInfo, error) {
	return a.load(path)
}

// WatchFile watches an MMDB file for changes and reloads it in place on
// write/create events. Calling WatchFile again replaces the previous watch.
func (a *ASN) WatchFile(path string) error {
	return a.watch(path, func(p string) { _, _ = a.Load(p) })
}

// Close stops the file watcher and closes the current MMDB reader.
func (a *ASN) Close() {
	a.close()
}
