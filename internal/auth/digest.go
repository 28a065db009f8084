package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestHasher stores passwords as lowercase hex SHA-256 with no salt.
//
// This is the format the seed admin and every account in an existing
// weather.db were written with. It is fast and unsalted, so prefer
// the bcrypt scheme for new installs that do not need to open old files.
type DigestHasher struct{}

var (
	_ PasswordHasher = DigestHasher{}
	_ Digester       = DigestHasher{}
)

func NewDigestHasher() DigestHasher {
	return DigestHasher{}
}

// Digest returns the 64-character hex SHA-256 of plaintext.
func (DigestHasher) Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (d DigestHasher) Hash(plaintext string) (string, error) {
	return d.Digest(plaintext), nil
}

func (d DigestHasher) Verify(hash, plaintext string) error {
	if subtle.ConstantTimeCompare([]byte(hash), []byte(d.Digest(plaintext))) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
