package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethanolivertroy/pinlock/internal/config"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/spf13/cobra"
)

// errFailed signals a completed run whose report must exit 1
var errFailed = errors.New("check failed")

var (
	flagConfig   string
	flagLogLevel string
	flagOutput   string
	flagFormat   string
	flagTimeout  int
	flagNoCache  bool

	cfg *models.Config
)

// rootCmd represents the base command
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pinlock",
		Short: "Validate and enforce hash-pinned Python requirements manifests",
		Long: `pinlock works with requirements lockfiles that pin every package to an exact
version and list the content hashes of the artifacts trusted for it.

It parses and validates manifests, rewrites them in canonical form, verifies
downloaded wheels and sdists against the declared hashes (failing closed),
builds new records from the PyPI index, checks detached OpenPGP signatures
over the manifest and scans pinned packages for CISA Known Exploited
Vulnerabilities.

Examples:
  # Check a lockfile for unpinned or unhashed records
  pinlock validate requirements.txt

  # Verify a directory of downloaded artifacts before installing them
  pinlock verify --lock requirements.txt ./wheels

  # Add hashes for new pins
  pinlock hash requests==2.31.0 idna==3.4

  # SARIF output for GitHub Code Scanning
  pinlock scan --format sarif --output results.sarif`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: .pinlock.yaml or .pinlock.toml if present)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
	pf.StringVarP(&flagFormat, "format", "f", "", "Output format: terminal, json, sarif")
	pf.IntVar(&flagTimeout, "timeout", 0, "HTTP request timeout in seconds")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Disable HTTP response caching")

	root.AddCommand(
		newValidateCommand(),
		newFmtCommand(),
		newExportCommand(),
		newVerifyCommand(),
		newHashCommand(),
		newSignCommand(),
		newVerifySignatureCommand(),
		newScanCommand(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

// setup loads configuration and applies flag overrides before any subcommand runs
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.LogLevel = flagLogLevel
	}
	if flags.Changed("format") {
		loaded.OutputFormat = flagFormat
	}
	if flags.Changed("output") {
		loaded.OutputFile = flagOutput
	}
	if flags.Changed("timeout") {
		loaded.Timeout = time.Duration(flagTimeout) * time.Second
	}
	if flags.Changed("no-cache") {
		loaded.NoCache = flagNoCache
	}

	log, err := logger.Init(loaded.LogLevel)
	if err != nil {
		return err
	}
	log.Debugf("configuration: %+v", *loaded)

	cfg = loaded
	return nil
}
