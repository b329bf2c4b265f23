package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/spf13/cobra"
)

var (
	flagWrite bool
	flagCheck bool
)

func newFmtCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Rewrite a manifest in canonical form",
		Long: `Print the manifest with records sorted by normalized name, one hash per
continuation line and comments kept under their record. With --write the file
is replaced in place; with --check the command exits 1 if the file is not
already canonical.`,
		Args: cobra.ExactArgs(1),
		RunE: runFmt,
	}
	c.Flags().BoolVarP(&flagWrite, "write", "w", false, "Write the result back to the file")
	c.Flags().BoolVar(&flagCheck, "check", false, "Exit 1 if the file is not canonical")
	return c
}

func runFmt(cmd *cobra.Command, args []string) error {
	path := args[0]

	original, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := lockfile.Parse(path, bytes.NewReader(original))
	if err != nil {
		return err
	}
	formatted := lockfile.Format(m)

	switch {
	case flagCheck:
		if !bytes.Equal(original, formatted) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s is not canonical\n", path)
			return errFailed
		}
		return nil
	case flagWrite:
		if bytes.Equal(original, formatted) {
			return nil
		}
		if err := writeFileAtomic(path, formatted); err != nil {
			return err
		}
		logger.Logger().Infof("rewrote %s", path)
		return nil
	}

	return writeOutput(cmd.OutOrStdout(), formatted)
}

// writeFileAtomic replaces path through a temp file in the same directory
func writeFileAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp := path + ".pinlock.tmp"
	if err := os.WriteFile(tmp, data, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
