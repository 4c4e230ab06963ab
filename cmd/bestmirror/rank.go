package main

import (
	"fmt"
	"os"

	"github.com/BadgerOps/bestmirror/internal/config"
	"github.com/BadgerOps/bestmirror/internal/distro"
	"github.com/BadgerOps/bestmirror/internal/metrics"
	"github.com/BadgerOps/bestmirror/internal/mirror"
	"github.com/BadgerOps/bestmirror/internal/report"
	"github.com/spf13/cobra"
)

func rankRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	version, machine, err := resolvePlatform(globalCfg.Discovery)
	if err != nil {
		return err
	}
	logger.Info("ranking mirrors", "release", version, "arch", machine)

	discovery := mirror.NewDiscovery(globalCfg.Discovery.MirrorsURL, globalCfg.Probe.DialTimeout(), logger)
	mirrors, err := discovery.MirrorList(ctx, version, machine)
	if err != nil {
		return err
	}
	mirrors = truncateMirrors(mirrors, globalCfg.Discovery.MaxMirrors)

	if !quiet {
		fmt.Fprintf(out, "Testing %d mirrors\n", len(mirrors))
	}

	var observer mirror.Observer = mirror.NopObserver{}
	if !quiet {
		observer = report.NewProgress(os.Stdout, logger)
	}
	prober := mirror.NewProber(mirror.ProberOptions{
		TestFile:        globalCfg.Probe.TestFile,
		TransferTimeout: globalCfg.Probe.TransferTimeout(),
		ConnectTimeout:  globalCfg.Probe.DialTimeout(),
		Observer:        observer,
	}, logger)

	ranker := mirror.NewRanker(prober, cmd.ErrOrStderr(), logger)
	var collector *metrics.Collector
	if globalCfg.Output.MetricsTextfile != "" {
		collector = metrics.New()
		ranker.WithRecorder(collector)
	}

	results, err := ranker.Rank(ctx, mirrors)
	if err != nil {
		return err
	}

	if err := report.WriteRanking(out, "Top mirrors by mean download rate:",
		mirror.SortByAverage(results), version, machine, report.Average); err != nil {
		return err
	}
	if err := report.WriteRanking(out, "Top mirrors by peak download rate:",
		mirror.SortByPeak(results), version, machine, report.Peak); err != nil {
		return err
	}

	if collector != nil {
		if err := collector.WriteTextfile(globalCfg.Output.MetricsTextfile); err != nil {
			return err
		}
		logger.Info("metrics written", "path", globalCfg.Output.MetricsTextfile)
	}

	return nil
}

// resolvePlatform returns the release and architecture to query, detecting
// whichever the configuration leaves unset.
func resolvePlatform(cfg config.DiscoveryConfig) (string, string, error) {
	version := cfg.Release
	if version == "" {
		rel, err := distro.Detect(cfg.OSReleasePath)
		if err != nil {
			return "", "", fmt.Errorf("detecting Fedora release: %w", err)
		}
		version = rel.VersionID
	}

	machine := cfg.Arch
	if machine == "" {
		var err error
		machine, err = distro.Machine()
		if err != nil {
			return "", "", fmt.Errorf("detecting architecture: %w", err)
		}
	}

	return version, machine, nil
}

// truncateMirrors keeps the first limit mirrors; limit <= 0 keeps all.
func truncateMirrors(mirrors []string, limit int) []string {
	if limit > 0 && len(mirrors) > limit {
		return mirrors[:limit]
	}
	return mirrors
}
