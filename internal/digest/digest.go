// Package digest computes artifact digests and checks them against pinned hash sets.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ethanolivertroy/pinlock/internal/models"
)

var (
	// ErrHashMismatch means no declared digest matches the artifact bytes.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrNoHashes means the record declares no digests, so nothing can be trusted.
	ErrNoHashes = errors.New("no hashes declared")
)

// MismatchError carries the digests computed for a rejected artifact
type MismatchError struct {
	Got      []models.Digest
	Expected models.HashSet
}

func (e *MismatchError) Error() string {
	got := make([]string, len(e.Got))
	for i, d := range e.Got {
		got[i] = d.String()
	}
	return fmt.Sprintf("%s: got %s, expected one of %d declared digests",
		ErrHashMismatch, strings.Join(got, ", "), len(e.Expected))
}

func (e *MismatchError) Unwrap() error { return ErrHashMismatch }

func newHash(alg string) (hash.Hash, error) {
	switch alg {
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unsupported hash algorithm %q", alg)
}

// Compute reads r once and returns its digest for every requested algorithm
func Compute(r io.Reader, algs ...string) (map[string]models.Digest, error) {
	hashers := make(map[string]hash.Hash, len(algs))
	writers := make([]io.Writer, 0, len(algs))
	for _, alg := range algs {
		if _, ok := hashers[alg]; ok {
			continue
		}
		h, err := newHash(alg)
		if err != nil {
			return nil, err
		}
		hashers[alg] = h
		writers = append(writers, h)
	}
	if len(writers) == 0 {
		return nil, fmt.Errorf("no hash algorithms requested")
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	out := make(map[string]models.Digest, len(hashers))
	for alg, h := range hashers {
		out[alg] = models.Digest{Algorithm: alg, Hex: hex.EncodeToString(h.Sum(nil))}
	}
	return out, nil
}

// ComputeFile returns the digest of the file at path
func ComputeFile(path, alg string) (models.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Digest{}, err
	}
	defer f.Close()

	sums, err := Compute(f, alg)
	if err != nil {
		return models.Digest{}, err
	}
	return sums[alg], nil
}

// Check streams r through every algorithm in set and returns the digest that
// matched. Any other outcome is an error; there is no partial acceptance.
func Check(set models.HashSet, r io.Reader) (models.Digest, error) {
	if len(set) == 0 {
		return models.Digest{}, ErrNoHashes
	}

	algs := set.Algorithms()
	sums, err := Compute(r, algs...)
	if err != nil {
		return models.Digest{}, err
	}

	got := make([]models.Digest, 0, len(algs))
	for _, alg := range algs {
		d := sums[alg]
		if set.Contains(d) {
			return d, nil
		}
		got = append(got, d)
	}
	return models.Digest{}, &MismatchError{Got: got, Expected: set}
}
