package cmd

import (
	"fmt"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/cache"
	"github.com/ethanolivertroy/pinlock/internal/clients"
	"github.com/ethanolivertroy/pinlock/internal/lockfile"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagHashLock    string
	flagHashRefresh bool
)

func newHashCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "hash [NAME==VERSION...]",
		Short: "Build hashed records from the package index",
		Long: `Look up the files published for each pin on the package index and print a
record listing all of their sha256 digests. With --lock, records in the
manifest that have no hashes are filled in and the file is rewritten; add
--refresh to replace the hashes of every record.`,
		RunE: runHash,
	}
	c.Flags().StringVar(&flagHashLock, "lock", "", "Fill in hashes for this manifest")
	c.Flags().BoolVar(&flagHashRefresh, "refresh", false, "With --lock, replace existing hashes too")
	return c
}

func newPyPIClient() *clients.PyPIClient {
	var c *cache.Cache
	if !cfg.NoCache {
		var err error
		if c, err = cache.New("pinlock", cfg.CacheTTL); err != nil {
			logger.Logger().Warnf("continuing without cache: %v", err)
			c = nil
		}
	}
	return clients.NewPyPIClient(cfg.PyPIURL, clients.NewHTTPClient(cfg.Timeout), c)
}

func runHash(cmd *cobra.Command, args []string) error {
	if flagHashLock == "" && len(args) == 0 {
		return fmt.Errorf("give NAME==VERSION arguments or --lock FILE")
	}
	if flagHashLock != "" {
		return hashManifest(cmd)
	}

	pypi := newPyPIClient()
	m := &models.Manifest{}
	for _, arg := range args {
		parsed, err := lockfile.Parse("", strings.NewReader(arg))
		if err != nil || len(parsed.Records) != 1 {
			return fmt.Errorf("invalid pin %q", arg)
		}
		pin := parsed.Records[0]
		if !pin.Pinned() {
			return fmt.Errorf("%q is not pinned to an exact version", arg)
		}

		rel, err := pypi.ReleaseDigests(cmd.Context(), pin.Name, pin.Version)
		if err != nil {
			return err
		}
		rec := rel.Record()
		rec.Extras, rec.Marker = pin.Extras, pin.Marker
		m.Records = append(m.Records, rec)
	}

	return writeOutput(cmd.OutOrStdout(), lockfile.Format(m))
}

func hashManifest(cmd *cobra.Command) error {
	log := logger.Logger()

	m, err := lockfile.Load(flagHashLock)
	if err != nil {
		return err
	}

	pypi := newPyPIClient()
	updated := 0
	for i, rec := range m.Records {
		if len(rec.Hashes) > 0 && !flagHashRefresh {
			continue
		}
		if !rec.Pinned() {
			log.Warnf("%s: %s is not pinned, skipping", flagHashLock, rec.Name)
			continue
		}

		rel, err := pypi.ReleaseDigests(cmd.Context(), rec.Name, rec.Version)
		if err != nil {
			return err
		}

		// hashes are version specific; the record is replaced, not edited
		next := rec
		next.Hashes = rel.Record().Hashes
		if next.Hashes.Equal(rec.Hashes) {
			continue
		}
		m.Records[i] = next
		updated++
		log.Infof("%s==%s: %d hashes", rec.Name, rec.Version, len(next.Hashes))
	}

	if updated == 0 {
		log.Infof("%s is up to date", flagHashLock)
		return nil
	}
	return writeFileAtomic(flagHashLock, lockfile.Format(m))
}
