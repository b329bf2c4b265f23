package cmd

import (
	"os"

	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/verify"
	"github.com/spf13/cobra"
)

var (
	flagLock     string
	flagWorkers  int
	flagProgress bool
)

func newVerifyCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify --lock FILE ARTIFACT|DIR...",
		Short: "Verify artifacts against the hashes pinned in a manifest",
		Long: `Identify each wheel or sdist, find its record in the manifest and check that
the artifact's digest is one of the record's hashes. Directories are searched
recursively. Any artifact that is unknown, pinned to another version, unhashed
or whose digest matches none of the declared hashes fails the run; there is
no partial acceptance.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}
	c.Flags().StringVarP(&flagLock, "lock", "l", "requirements.txt", "Manifest to verify against")
	c.Flags().IntVarP(&flagWorkers, "workers", "j", 0, "Number of artifacts hashed in parallel")
	c.Flags().BoolVar(&flagProgress, "progress", false, "Show a progress bar on stderr")
	return c
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	m, err := lockfile.Load(flagLock)
	if err != nil {
		return err
	}

	v := verify.New(m)
	v.Workers = cfg.Workers
	if cmd.Flags().Changed("workers") {
		v.Workers = flagWorkers
	}
	if flagProgress || cfg.Progress {
		v.Progress = os.Stderr
	}

	log.Infof("verifying artifacts against %s (%d records)", flagLock, len(m.Records))
	results, err := v.VerifyPaths(cmd.Context(), args)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		log.Warnf("no artifacts found in %v", args)
	}

	report := newReport("verify")
	report.Results = results
	return emit(cmd.OutOrStdout(), report)
}
