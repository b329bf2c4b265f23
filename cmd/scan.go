package cmd

import (
	"fmt"

	"github.com/ethanolivertroy/pinlock/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	flagThreshold float64
	flagNoFail    bool
)

func newScanCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Check pinned dependencies for CISA Known Exploited Vulnerabilities (KEV)",
		Long: `Find requirements manifests, pyproject.toml and go.mod files under the given
paths, query the OSV database for CVEs affecting each pinned version, then
cross-reference them against the CISA KEV catalog and enrich the results with
EPSS (Exploit Prediction Scoring System) scores.

Examples:
  # Scan current directory
  pinlock scan

  # Don't fail on KEV findings (exit 0 regardless)
  pinlock scan --no-fail

  # Only report if EPSS score >= 10%
  pinlock scan --epss-threshold 0.1`,
		RunE: runScan,
	}
	c.Flags().Float64Var(&flagThreshold, "epss-threshold", 0, "Only report KEVs with EPSS >= threshold (0-1)")
	c.Flags().BoolVar(&flagNoFail, "no-fail", false, "Don't exit with error code if KEVs found")
	return c
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Paths = args
	}
	if cmd.Flags().Changed("epss-threshold") {
		cfg.EPSSThreshold = flagThreshold
	}
	if flagNoFail {
		cfg.FailOnKEV = false
	}

	findings, err := scanner.New(cfg).Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	report := newReport("scan")
	report.Findings = findings
	return emit(cmd.OutOrStdout(), report)
}
