package lookup

import (
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// MmdbInfo holds metadata read from an MMDB file, whether from a one-off
// validation pass or from loading it into a live table (see mmdbTable.load).
type MmdbInfo struct {
	DatabaseType string
	BuildTime    time.Time
	NodeCount    uint
}

// ValidateMMDB opens an MMDB file, reads its metadata, and closes it again
// without installing it into any table. Used at startup to fail fast on a
// missing or corrupt geoip_db/asn_db path before the detector ever runs.
func ValidateMMDB(path string) (MmdbInfo, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return MmdbInfo{}, err
	}
	defer func() { _ = r.Close() }()

	return MmdbInfo{
		DatabaseType: r.Metadata.DatabaseType,
		BuildTime:    time.Unix(int64(r.Metadata.BuildEpoch), 0), //nolint:gosec // BuildEpoch is a uint, safe for unix timestamps
		NodeCount:    r.Metadata.NodeCount,
	}, nil
}
