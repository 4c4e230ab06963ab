package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BadgerOps/bestmirror/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Settings that override the config file when given
	mirrorsURL      string
	downloadTimeout int
	connectTimeout  int
	maxMirrors      int
	release         string
	arch            string
	metricsTextfile string
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bestmirror",
		Short: "Find the fastest Fedora mirrors",
		Long: `bestmirror asks Fedora's MirrorManager for the mirrors serving this
release and architecture, downloads the installer boot image from each one
for a bounded time, and prints the mirrors ranked by mean and by peak
download rate as baseurl= lines ready for a dnf repository file.

Mirrors are measured one at a time. Mirrors that cannot be reached are
reported on standard error and left out of the ranking.`,
		Example: `  bestmirror
  bestmirror --max-mirrors 10 --download-timeout 5
  bestmirror --release 41 --arch aarch64
  bestmirror --metrics-textfile /var/lib/node_exporter/textfile/bestmirror.prom
  bestmirror config show`,
		Version:       "0.1.0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return loadConfig(cmd)
		},
		RunE: rankRun,
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	cmd.PersistentFlags().StringVar(&mirrorsURL, "mirrors-url", "", "mirror list API endpoint")
	cmd.PersistentFlags().IntVar(&downloadTimeout, "download-timeout", 10, "max download time per mirror (s)")
	cmd.PersistentFlags().IntVar(&connectTimeout, "connect-timeout", 5, "max time to connect to a mirror (s)")
	cmd.PersistentFlags().IntVar(&maxMirrors, "max-mirrors", 0, "max number of mirrors to try (0 for all)")
	cmd.PersistentFlags().StringVar(&release, "release", "", "Fedora release to rank mirrors for (default: from os-release)")
	cmd.PersistentFlags().StringVar(&arch, "arch", "", "architecture to rank mirrors for (default: uname -m)")
	cmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write probe results to this Prometheus textfile")

	// Add subcommands
	cmd.AddCommand(
		newConfigCmd(),
	)

	return cmd
}

// loadConfig reads the config file, if any, and applies command-line overrides
func loadConfig(cmd *cobra.Command) error {
	if cfgPath == "" {
		var err error
		cfgPath, err = config.FindConfigFile()
		if err != nil {
			logger.Debug("config file not found, using defaults", "error", err)
		}
	}

	if cfgPath != "" {
		var err error
		globalCfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		globalCfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("mirrors-url") {
		globalCfg.Discovery.MirrorsURL = mirrorsURL
	}
	if flags.Changed("max-mirrors") {
		globalCfg.Discovery.MaxMirrors = maxMirrors
	}
	if flags.Changed("release") {
		globalCfg.Discovery.Release = release
	}
	if flags.Changed("arch") {
		globalCfg.Discovery.Arch = arch
	}
	if flags.Changed("download-timeout") {
		globalCfg.Probe.DownloadTimeout = downloadTimeout
	}
	if flags.Changed("connect-timeout") {
		globalCfg.Probe.ConnectTimeout = connectTimeout
	}
	if flags.Changed("metrics-textfile") {
		globalCfg.Output.MetricsTextfile = metricsTextfile
	}

	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger.Debug("config loaded", "path", cfgPath)
	return nil
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
