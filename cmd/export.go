package cmd

import (
	"bytes"

	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/spf13/cobra"
)

var flagExportFormat string

func newExportCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "export FILE",
		Short: "Export a manifest as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	c.Flags().StringVar(&flagExportFormat, "as", "json", "Export format: json, yaml")
	return c
}

func runExport(cmd *cobra.Command, args []string) error {
	m, err := lockfile.Load(args[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := lockfile.Export(&buf, m, flagExportFormat); err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), buf.Bytes())
}
