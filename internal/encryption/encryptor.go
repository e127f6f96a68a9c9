package encryption

import "io"

// Encryptor protects record store snapshots before they leave the host.
//
// Setup is a one-time operation that generates the key material. Encrypt
// only needs the public half. Unlock requires the passphrase and returns a
// DecryptionContext for the session.
type Encryptor interface {
	// Setup generates a new key pair protected by the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase and returns a
	// DecryptionContext that can decrypt data for the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// duration of a snapshot pull. Created by Encryptor.Unlock; never
// persisted.
type DecryptionContext interface {
	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
