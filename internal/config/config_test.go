package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalValid = `
[network]
listen_address = "0.0.0.0"
listen_port = 514

[parser]
name = "gaia"

[detector]
alert_cooldown = "300s"

[detector.fast]
port_threshold = 15
time_window = "10s"

[detector.slow]
port_threshold = 30
time_window = "5m"

[cleanup]
interval = "60s"
max_entry_age = "600s"
`

func TestLoadMinimalValid(t *testing.T) {
	path := writeTemp(t, minimalValid)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Network.ListenPort != 514 {
		t.Errorf("listen_port = %d", cfg.Network.ListenPort)
	}
	if cfg.SIEM != nil {
		t.Error("siem should be nil when absent")
	}
	if cfg.Email != nil {
		t.Error("email should be nil when absent")
	}
	if cfg.Enrichment != nil {
		t.Error("enrichment should be nil when absent")
	}
}

func TestLoadUnknownTopLevelKeyRejected(t *testing.T) {
	path := writeTemp(t, minimalValid+"\nbogus_key = 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestLoadUnknownNestedKeyRejected(t *testing.T) {
	contents := minimalValid + "\n[siem]\nenabled = true\nhost = \"1.2.3.4\"\nport = 514\nbogus = 1\n"
	path := writeTemp(t, contents)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown nested key")
	}
}

func TestLoadMissingRequiredFieldRejected(t *testing.T) {
	contents := `
[network]
listen_address = "0.0.0.0"

[parser]
name = "gaia"
`
	path := writeTemp(t, contents)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing listen_port")
	}
}

func TestLoadSIEMSection(t *testing.T) {
	contents := minimalValid + "\n[siem]\nenabled = true\nhost = \"1.2.3.4\"\nport = 514\n"
	path := writeTemp(t, contents)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SIEM == nil || cfg.SIEM.Host != "1.2.3.4" {
		t.Errorf("got %+v", cfg.SIEM)
	}
}

func TestLoadEmailRequiresTLSMode(t *testing.T) {
	contents := minimalValid + `
[email]
enabled = true
smtp_server = "smtp.example.com"
port = 587
from = "ids@example.com"
to = ["ops@example.com"]
`
	path := writeTemp(t, contents)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing email.tls")
	}
}

func TestLoadEnrichmentOptionalDefaults(t *testing.T) {
	contents := minimalValid + "\n[enrichment]\ngeoip_db = \"/nonexistent/geo.mmdb\"\n"
	path := writeTemp(t, contents)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Enrichment == nil {
		t.Fatal("expected enrichment config")
	}
	if !cfg.Enrichment.WatchDatabases {
		t.Error("watch_databases should default to true")
	}
	if cfg.Enrichment.ReverseDNSTimeout == 0 {
		t.Error("reverse_dns_timeout should default to a nonzero value")
	}
}
