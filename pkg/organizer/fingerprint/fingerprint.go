// Package fingerprint computes content fingerprints of files with a
// selectable hash algorithm, streaming in bounded chunks so arbitrarily
// large inputs never load fully into memory.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies a supported hash algorithm.
type Algorithm string

const (
	XXH64   Algorithm = "xxh64"
	FNV1A64 Algorithm = "fnv-1a-64"
	SHA256  Algorithm = "sha-256"
	SHA512  Algorithm = "sha-512"
	SHA3256 Algorithm = "sha3-256"
)

// DefaultWeak is the default algorithm for candidate pre-filtering.
const DefaultWeak = XXH64

// DefaultStrong is the default algorithm for final confirmation.
const DefaultStrong = SHA256

// chunkSize bounds the per-read buffer during streaming.
const chunkSize = 256 * 1024

// quickHeadSize is how much of the file head the quick fingerprint digests.
const quickHeadSize = 1 << 20

// Supported returns the identifiers of all supported algorithms.
func Supported() []string {
	return []string{
		string(XXH64),
		string(FNV1A64),
		string(SHA256),
		string(SHA512),
		string(SHA3256),
	}
}

// Valid reports whether a names a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case XXH64, FNV1A64, SHA256, SHA512, SHA3256:
		return true
	}
	return false
}

// Strong reports whether a is cryptographic. Weak algorithms are only
// suitable for pre-filtering and must be confirmed with a strong one.
func (a Algorithm) Strong() bool {
	switch a {
	case SHA256, SHA512, SHA3256:
		return true
	}
	return false
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case XXH64:
		return xxhash.New(), nil
	case FNV1A64:
		return fnv.New64a(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA3256:
		return sha3.New256(), nil
	}
	return nil, fmt.Errorf("unknown hash algorithm %q", a)
}

// Fingerprint is a content digest tagged with the algorithm that produced
// it. Two fingerprints are comparable only when the tags match.
type Fingerprint struct {
	Algorithm Algorithm
	Digest    []byte
}

// Equal reports whether f and other carry the same algorithm and digest.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Algorithm == other.Algorithm && bytes.Equal(f.Digest, other.Digest)
}

// String renders the fingerprint as "<algorithm>:<hex digest>".
func (f Fingerprint) String() string {
	return string(f.Algorithm) + ":" + hex.EncodeToString(f.Digest)
}

// File computes the fingerprint of the whole file at path, streaming in
// bounded chunks. A file that becomes unreadable mid-stream returns an
// error; callers map that to a failed outcome.
func File(path string, algo Algorithm) (Fingerprint, error) {
	h, err := algo.newHash()
	if err != nil {
		return Fingerprint{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return Fingerprint{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Fingerprint{Algorithm: algo, Digest: h.Sum(nil)}, nil
}

// Quick computes a cheap fingerprint from the file size and the first
// 1 MiB of content. It is a pre-filter: equal quick fingerprints mean
// "possible duplicate", never a confirmed one, but differing quick
// fingerprints are a definitive mismatch for identical algorithms.
func Quick(path string, algo Algorithm) (Fingerprint, error) {
	h, err := algo.newHash()
	if err != nil {
		return Fingerprint{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	fmt.Fprintf(h, "%d:", info.Size())

	if _, err := io.CopyN(h, f, quickHeadSize); err != nil && err != io.EOF {
		return Fingerprint{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Fingerprint{Algorithm: algo, Digest: h.Sum(nil)}, nil
}
