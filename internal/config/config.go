// Package config loads and validates the TOML-shaped configuration
// document described by the external interface: a single file, loaded
// once at startup, with no silently-applied defaults for required fields.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the fully validated, immutable process configuration.
type Config struct {
	Network    Network
	Parser     Parser
	Detector   Detector
	SIEM       *SIEM  // nil disables the SIEM sink
	Email      *Email // nil disables the email sink
	Cleanup    Cleanup
	Enrichment *Enrichment // nil disables enrichment
}

type Network struct {
	ListenAddress string
	ListenPort    int
}

type Parser struct {
	Name string
}

type Detector struct {
	FastThreshold int
	FastWindow    time.Duration
	SlowThreshold int
	SlowWindow    time.Duration
	AlertCooldown time.Duration
}

type SIEM struct {
	Enabled bool
	Host    string
	Port    int
}

// EmailTLSMode selects the TLS variant used for SMTP submission.
type EmailTLSMode string

const (
	EmailTLSStartTLS EmailTLSMode = "starttls"
	EmailTLSImplicit EmailTLSMode = "implicit"
)

type Email struct {
	Enabled    bool
	SMTPServer string
	Port       int
	TLS        EmailTLSMode
	From       string
	To         []string
	Username   string
	Password   string
}

type Cleanup struct {
	Interval    time.Duration
	MaxEntryAge time.Duration
}

type Enrichment struct {
	GeoIPDB           string
	ASNDB             string
	ReverseDNS        bool
	ReverseDNSTimeout time.Duration
	WatchDatabases    bool
}

// rawX mirror the TOML document shape with string-typed durations, since
// time.Duration has no native TOML representation.

type rawNetwork struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

type rawParser struct {
	Name string `toml:"name"`
}

type rawDetectorWindow struct {
	PortThreshold int    `toml:"port_threshold"`
	TimeWindow    string `toml:"time_window"`
}

type rawDetector struct {
	Fast          rawDetectorWindow `toml:"fast"`
	Slow          rawDetectorWindow `toml:"slow"`
	AlertCooldown string            `toml:"alert_cooldown"`
}

type rawSIEM struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

type rawEmail struct {
	Enabled    bool     `toml:"enabled"`
	SMTPServer string   `toml:"smtp_server"`
	Port       int      `toml:"port"`
	TLS        string   `toml:"tls"`
	From       string   `toml:"from"`
	To         []string `toml:"to"`
	Username   string   `toml:"username"`
	Password   string   `toml:"password"`
}

type rawCleanup struct {
	Interval    string `toml:"interval"`
	MaxEntryAge string `toml:"max_entry_age"`
}

type rawEnrichment struct {
	GeoIPDB           string `toml:"geoip_db"`
	ASNDB             string `toml:"asn_db"`
	ReverseDNS        bool   `toml:"reverse_dns"`
	ReverseDNSTimeout string `toml:"reverse_dns_timeout"`
	WatchDatabases    *bool  `toml:"watch_databases"`
}

type rawConfig struct {
	Network    rawNetwork     `toml:"network"`
	Parser     rawParser      `toml:"parser"`
	Detector   rawDetector    `toml:"detector"`
	SIEM       *rawSIEM       `toml:"siem"`
	Email      *rawEmail      `toml:"email"`
	Cleanup    rawCleanup     `toml:"cleanup"`
	Enrichment *rawEnrichment `toml:"enrichment"`
}

// Load reads and validates the configuration file at path. Unknown
// top-level or nested keys are rejected; missing required keys produce a
// fatal error. Optional sections ([siem], [email], [enrichment]) may be
// entirely absent, which disables the corresponding sink or table.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var raw rawConfig
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return build(raw)
}

func build(raw rawConfig) (Config, error) {
	var cfg Config

	if raw.Network.ListenAddress == "" {
		return Config{}, fmt.Errorf("missing required field: network.listen_address")
	}
	if raw.Network.ListenPort <= 0 || raw.Network.ListenPort > 65535 {
		return Config{}, fmt.Errorf("missing or invalid required field: network.listen_port")
	}
	cfg.Network = Network{ListenAddress: raw.Network.ListenAddress, ListenPort: raw.Network.ListenPort}

	if raw.Parser.Name == "" {
		return Config{}, fmt.Errorf("missing required field: parser.name")
	}
	cfg.Parser = Parser{Name: raw.Parser.Name}

	det, err := buildDetector(raw.Detector)
	if err != nil {
		return Config{}, err
	}
	cfg.Detector = det

	cleanup, err := buildCleanup(raw.Cleanup)
	if err != nil {
		return Config{}, err
	}
	cfg.Cleanup = cleanup

	if raw.SIEM != nil {
		if raw.SIEM.Host == "" {
			return Config{}, fmt.Errorf("missing required field: siem.host")
		}
		if raw.SIEM.Port <= 0 || raw.SIEM.Port > 65535 {
			return Config{}, fmt.Errorf("missing or invalid required field: siem.port")
		}
		cfg.SIEM = &SIEM{Enabled: raw.SIEM.Enabled, Host: raw.SIEM.Host, Port: raw.SIEM.Port}
	}

	if raw.Email != nil {
		email, err := buildEmail(*raw.Email)
		if err != nil {
			return Config{}, err
		}
		cfg.Email = email
	}

	if raw.Enrichment != nil {
		enr, err := buildEnrichment(*raw.Enrichment)
		if err != nil {
			return Config{}, err
		}
		cfg.Enrichment = enr
	}

	return cfg, nil
}

func buildDetector(raw rawDetector) (Detector, error) {
	if raw.Fast.PortThreshold <= 0 {
		return Detector{}, fmt.Errorf("missing required field: detector.fast.port_threshold")
	}
	if raw.Slow.PortThreshold <= 0 {
		return Detector{}, fmt.Errorf("missing required field: detector.slow.port_threshold")
	}
	fastWindow, err := parseDuration("detector.fast.time_window", raw.Fast.TimeWindow)
	if err != nil {
		return Detector{}, err
	}
	slowWindow, err := parseDuration("detector.slow.time_window", raw.Slow.TimeWindow)
	if err != nil {
		return Detector{}, err
	}
	cooldown, err := parseDuration("detector.alert_cooldown", raw.AlertCooldown)
	if err != nil {
		return Detector{}, err
	}
	return Detector{
		FastThreshold: raw.Fast.PortThreshold,
		FastWindow:    fastWindow,
		SlowThreshold: raw.Slow.PortThreshold,
		SlowWindow:    slowWindow,
		AlertCooldown: cooldown,
	}, nil
}

func buildCleanup(raw rawCleanup) (Cleanup, error) {
	interval, err := parseDuration("cleanup.interval", raw.Interval)
	if err != nil {
		return Cleanup{}, err
	}
	maxAge, err := parseDuration("cleanup.max_entry_age", raw.MaxEntryAge)
	if err != nil {
		return Cleanup{}, err
	}
	return Cleanup{Interval: interval, MaxEntryAge: maxAge}, nil
}

func buildEmail(raw rawEmail) (*Email, error) {
	if raw.SMTPServer == "" {
		return nil, fmt.Errorf("missing required field: email.smtp_server")
	}
	if raw.Port <= 0 || raw.Port > 65535 {
		return nil, fmt.Errorf("missing or invalid required field: email.port")
	}
	if raw.From == "" {
		return nil, fmt.Errorf("missing required field: email.from")
	}
	if len(raw.To) == 0 {
		return nil, fmt.Errorf("missing required field: email.to")
	}
	mode := EmailTLSMode(raw.TLS)
	switch mode {
	case EmailTLSStartTLS, EmailTLSImplicit:
	default:
		return nil, fmt.Errorf("email.tls must be %q or %q, got %q", EmailTLSStartTLS, EmailTLSImplicit, raw.TLS)
	}
	return &Email{
		Enabled:    raw.Enabled,
		SMTPServer: raw.SMTPServer,
		Port:       raw.Port,
		TLS:        mode,
		From:       raw.From,
		To:         raw.To,
		Username:   raw.Username,
		Password:   raw.Password,
	}, nil
}

func buildEnrichment(raw rawEnrichment) (*Enrichment, error) {
	timeout := 500 * time.Millisecond
	if raw.ReverseDNSTimeout != "" {
		d, err := parseDuration("enrichment.reverse_dns_timeout", raw.ReverseDNSTimeout)
		if err != nil {
			return nil, err
		}
		timeout = d
	}
	watch := true
	if raw.WatchDatabases != nil {
		watch = *raw.WatchDatabases
	}
	return &Enrichment{
		GeoIPDB:           raw.GeoIPDB,
		ASNDB:             raw.ASNDB,
		ReverseDNS:        raw.ReverseDNS,
		ReverseDNSTimeout: timeout,
		WatchDatabases:    watch,
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("missing required field: %s", field)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	return d, nil
}
