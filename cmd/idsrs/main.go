// Command idsrs runs the network intrusion detector: UDP firewall-log
// ingestion, per-source port-scan detection, and alert fan-out to a SIEM
// collector and email.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idsrs/internal/alerter"
	"idsrs/internal/cleanup"
	"idsrs/internal/config"
	"idsrs/internal/detector"
	"idsrs/internal/listener"
	"idsrs/internal/logging"
	"idsrs/internal/parser"
)

// version is a fixed build identifier; this repository has no build-time
// injection step.
const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "idsrs [config-file]",
		Short:         "Network intrusion detector for firewall drop logs",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "config.toml"
			if len(args) == 1 {
				configPath = args[0]
			}
			return run(cmd.Context(), configPath)
		},
	}
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

// run wires all components per cfg and blocks until shutdown. Returns a
// non-nil error on any startup failure (bind, config, unknown parser) or
// on an unexpected component failure.
func run(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := buildLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("config load failed", "error", err, "path", configPath)
		return err
	}

	p, err := parser.Select(cfg.Parser.Name)
	if err != nil {
		logger.Error("parser selection failed", "error", err)
		return err
	}

	det := detector.New(detector.Config{
		FastThreshold: cfg.Detector.FastThreshold,
		FastWindow:    cfg.Detector.FastWindow,
		SlowThreshold: cfg.Detector.SlowThreshold,
		SlowWindow:    cfg.Detector.SlowWindow,
		AlertCooldown: cfg.Detector.AlertCooldown,
	})

	enricher, err := alerter.BuildEnrichment(cfg.Enrichment, logger)
	if err != nil {
		logger.Error("enrichment setup failed", "error", err)
		return err
	}
	defer enricher.Close()

	alrt, err := alerter.New(cfg, enricher, os.Stdout, logger)
	if err != nil {
		logger.Error("alerter setup failed", "error", err)
		return err
	}
	defer alrt.Close()

	lsn := listener.New(cfg.Network.ListenAddress, cfg.Network.ListenPort, p, det, alrt, logger)

	cleanupSched, err := cleanup.New(det, cfg.Cleanup.Interval, cfg.Cleanup.MaxEntryAge, logger)
	if err != nil {
		logger.Error("cleanup scheduler setup failed", "error", err)
		return err
	}

	go watchConfigFile(ctx, configPath, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return lsn.Run(gctx) })
	g.Go(func() error { return cleanupSched.Run(gctx) })
	g.Go(func() error { return alrt.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("component failed", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// buildLogger constructs the base slog.Logger. IDSRS_LOG_LEVEL sets the
// default verbosity; per-component overrides are reachable through the
// returned handler's ComponentFilterHandler but are not exposed on the
// CLI in this release.
func buildLogger() *slog.Logger {
	base := slog.NewTextHandler(os.Stderr, nil)
	level := parseLogLevel(os.Getenv("IDSRS_LOG_LEVEL"))
	filter := logging.NewComponentFilterHandler(base, level)
	return slog.New(filter)
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return slog.LevelDebug - 4
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

// watchConfigFile watches the config file for changes and logs a notice
// that a restart is required to apply them. Detection and alerter state
// are never hot-reloaded; this exists purely to make an on-disk edit
// visible in the logs rather than silently ignored.
func watchConfigFile(ctx context.Context, path string, logger *slog.Logger) {
	logger = logging.Default(logger).With("component", "config-watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("config file watch unavailable", "error", err)
		return
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(path); err != nil {
		logger.Debug("config file watch unavailable", "error", err, "path", path)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logger.Info("config file changed on disk; restart to apply", "path", path)
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}
