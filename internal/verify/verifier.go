package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethanolivertroy/pinlock/internal/digest"
	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/models"
	"github.com/schollz/progressbar/v3"
)

// DefaultWorkers is the size of the hashing pool when Workers is unset
const DefaultWorkers = 4

// Verifier checks artifact files against the records of a manifest
type Verifier struct {
	Manifest *models.Manifest
	Workers  int
	Progress io.Writer // progress bar destination, nil disables it
}

// New creates a Verifier for m
func New(m *models.Manifest) *Verifier {
	return &Verifier{Manifest: m, Workers: DefaultWorkers}
}

// VerifyFile identifies the artifact at path and checks its bytes against the
// matching record. Anything other than an exact digest match is a failure.
func (v *Verifier) VerifyFile(ctx context.Context, path string) models.VerifyResult {
	res := models.VerifyResult{Path: path}

	if err := ctx.Err(); err != nil {
		res.Outcome = models.OutcomeUnreadable
		res.Detail = err.Error()
		return res
	}

	name, version, err := Identify(path)
	if err != nil {
		res.Outcome = models.OutcomeUnreadable
		res.Detail = err.Error()
		return res
	}
	res.Name, res.Version = name, version

	rec, ok := v.Manifest.Lookup(name)
	if !ok {
		res.Outcome = models.OutcomeUnknownPackage
		res.Detail = fmt.Sprintf("%s is not pinned in %s", name, v.Manifest.Path)
		return res
	}
	res.Line = rec.Line
	res.Expected = rec.Hashes

	if !models.SameVersion(rec.Version, version) {
		res.Outcome = models.OutcomeVersionMismatch
		res.Detail = fmt.Sprintf("artifact is %s, manifest pins %s", version, rec.Version)
		return res
	}

	f, err := os.Open(path)
	if err != nil {
		res.Outcome = models.OutcomeUnreadable
		res.Detail = err.Error()
		return res
	}
	defer f.Close()

	d, err := digest.Check(rec.Hashes, f)
	var mismatch *digest.MismatchError
	switch {
	case err == nil:
		res.Outcome = models.OutcomeOK
		res.Digest = d
	case errors.Is(err, digest.ErrNoHashes):
		res.Outcome = models.OutcomeNoHashes
		res.Detail = fmt.Sprintf("%s==%s declares no hashes", rec.Name, rec.Version)
	case errors.As(err, &mismatch):
		res.Outcome = models.OutcomeHashMismatch
		res.Digest = mismatch.Got[0]
		res.Detail = mismatch.Error()
	default:
		res.Outcome = models.OutcomeUnreadable
		res.Detail = err.Error()
	}
	return res
}

// VerifyPaths verifies every artifact named by paths; directories are walked
// recursively. Results are returned sorted by path.
func (v *Verifier) VerifyPaths(ctx context.Context, paths []string) ([]models.VerifyResult, error) {
	files, err := collect(paths)
	if err != nil {
		return nil, err
	}
	return v.run(ctx, files)
}

// VerifyDir verifies every artifact below dir
func (v *Verifier) VerifyDir(ctx context.Context, dir string) ([]models.VerifyResult, error) {
	return v.VerifyPaths(ctx, []string{dir})
}

func (v *Verifier) run(ctx context.Context, files []string) ([]models.VerifyResult, error) {
	log := logger.Logger()

	workers := v.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var bar *progressbar.ProgressBar
	if v.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(v.Progress),
			progressbar.OptionSetDescription("verifying"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
	}

	results := make([]models.VerifyResult, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path := files[idx]
				if bar != nil {
					bar.Describe(fmt.Sprintf("verifying %s", filepath.Base(path)))
				}

				res := v.VerifyFile(ctx, path)
				if res.OK() {
					log.Debugf("%s matches %s", path, res.Digest)
				} else {
					log.Warnf("%s rejected: %s", path, res.Detail)
				}
				results[idx] = res

				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

dispatch:
	for i := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if bar != nil {
		bar.Finish()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verification interrupted: %w", err)
	}
	return results, nil
}

func collect(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == ".git" || d.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if IsArtifact(d.Name()) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}
