package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// EmptyContentHash is the SHA-256 digest of zero bytes. Hashing an empty
// file succeeds and yields this value.
const EmptyContentHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Hasher computes a content digest over a byte stream.
type Hasher interface {
	// Sum reads r to EOF and returns the digest as a lowercase hex string.
	Sum(r io.Reader) (string, error)
}

// SHA256Hasher streams the input through SHA-256 in bounded-size chunks,
// so arbitrarily large files never need whole-file buffering.
type SHA256Hasher struct{}

func (SHA256Hasher) Sum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Compile-time check that SHA256Hasher implements Hasher
var _ Hasher = SHA256Hasher{}
