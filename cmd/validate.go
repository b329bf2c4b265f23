package cmd

import (
	"errors"

	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check manifests for unpinned, duplicate or unhashed records",
		Long: `Parse each manifest and check that every package appears once, is pinned to
an exact version and carries at least one --hash entry. Hashes are required
when the manifest uses --require-hashes, when any record is hashed, or when
require_hashes is set in the config (the default).`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	report := newReport("validate")

	opts := lockfile.ValidateOptions{
		RequireHashes:     cfg.RequireHashes,
		AllowedAlgorithms: cfg.AllowedAlgorithms,
	}

	for _, path := range args {
		log.Infof("validating %s", path)

		m, err := lockfile.Load(path)
		if err != nil {
			var pe *lockfile.ParseError
			if !errors.As(err, &pe) {
				return err
			}
			report.Issues = append(report.Issues, models.Issue{
				Severity: models.SeverityError,
				Code:     lockfile.CodeSyntax,
				File:     pe.Path,
				Line:     pe.Line,
				Message:  pe.Msg,
			})
			continue
		}

		issues := lockfile.Validate(m, opts)
		if !lockfile.HasErrors(issues) {
			log.Infof("✓ %s: %d records pinned", path, len(m.Records))
		}
		report.Issues = append(report.Issues, issues...)
	}

	return emit(cmd.OutOrStdout(), report)
}
