package models

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Supported digest algorithms and their hex lengths.
var digestSizes = map[string]int{
	"sha256": 64,
	"sha384": 96,
	"sha512": 128,
}

// SupportedAlgorithm reports whether alg is a known digest algorithm.
func SupportedAlgorithm(alg string) bool {
	_, ok := digestSizes[alg]
	return ok
}

// Digest is a content hash of one artifact.
type Digest struct {
	Algorithm string
	Hex       string
}

// String renders the digest as "alg:hex".
func (d Digest) String() string {
	return d.Algorithm + ":" + d.Hex
}

// ParseDigest parses "alg:hex" or "alg=hex".
func ParseDigest(s string) (Digest, error) {
	idx := strings.IndexAny(s, ":=")
	if idx <= 0 {
		return Digest{}, fmt.Errorf("invalid digest %q: expected alg:hex", s)
	}
	alg := strings.ToLower(s[:idx])
	value := strings.ToLower(s[idx+1:])

	size, ok := digestSizes[alg]
	if !ok {
		return Digest{}, fmt.Errorf("unsupported hash algorithm %q", alg)
	}
	if len(value) != size {
		return Digest{}, fmt.Errorf("invalid %s digest length %d, want %d", alg, len(value), size)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return Digest{}, fmt.Errorf("invalid %s digest %q: not hex", alg, value)
	}
	return Digest{Algorithm: alg, Hex: value}, nil
}

// HashSet is the set of digests accepted for a record.
type HashSet []Digest

// Contains reports exact membership of d.
func (h HashSet) Contains(d Digest) bool {
	for _, x := range h {
		if x == d {
			return true
		}
	}
	return false
}

// Algorithms returns the distinct algorithms in the set, sorted.
func (h HashSet) Algorithms() []string {
	seen := make(map[string]bool)
	var algs []string
	for _, d := range h {
		if !seen[d.Algorithm] {
			seen[d.Algorithm] = true
			algs = append(algs, d.Algorithm)
		}
	}
	sort.Strings(algs)
	return algs
}

// Sorted returns a sorted copy with duplicates removed.
func (h HashSet) Sorted() HashSet {
	out := make(HashSet, 0, len(h))
	for _, d := range h {
		if !out.Contains(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Equal reports set equality, ignoring order and duplicates.
func (h HashSet) Equal(other HashSet) bool {
	a, b := h.Sorted(), other.Sorted()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
