// Package auth covers everything about proving who someone is: password
// hashing, the signed UI session cookie, and the middleware that checks it.
//
// TWO PASSWORD SCHEMES:
// Weatherly ships with two interchangeable hashers, selected by the
// auth.password_scheme setting:
//
//	sha256 (default) → unsalted hex SHA-256. Deterministic, so login can ask
//	                   the store for an exact (username, hash) match. This is
//	                   the format every existing weather.db already holds.
//	bcrypt           → salted, slow, self-describing. Login must load the
//	                   stored hash and compare; an exact-match lookup is
//	                   impossible because every hash has its own salt.
//
// Both satisfy PasswordHasher. Callers that can use the exact-match path check
// for the Digester interface.
//
// Switching schemes does not rewrite stored hashes: accounts created under
// one scheme cannot log in under the other.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns plaintext passwords into storable hashes and checks
// them later.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify returns nil when plaintext matches hash.
	Verify(hash, plaintext string) error
}

// Digester is implemented by hashers whose output depends only on the input.
// For those, Digest(p) == stored hash is the whole check.
type Digester interface {
	Digest(plaintext string) string
}

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// NewHasher builds the hasher for a configured scheme. cost only applies to
// bcrypt; values outside bcrypt's range fall back to DefaultBcryptCost.
func NewHasher(scheme string, cost int) (PasswordHasher, error) {
	switch scheme {
	case "", SchemeSHA256:
		return NewDigestHasher(), nil
	case SchemeBcrypt:
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = DefaultBcryptCost
		}
		return &BcryptHasher{cost: cost}, nil
	default:
		return nil, fmt.Errorf("auth: unknown password scheme %q", scheme)
	}
}

// DefaultBcryptCost is the bcrypt work factor.
//
// Cost 12 takes roughly 250ms on a modern machine. For a desktop login that
// is unnoticeable; for an attacker with a stolen weather.db it is expensive.
const DefaultBcryptCost = 12

// BcryptHasher hashes with bcrypt.
//
// bcrypt automatically:
//   - Generates a random salt (two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
type BcryptHasher struct {
	cost int
}

// NewBcryptHasherForTest returns a BcryptHasher with the given cost. Tests in
// other packages pass bcrypt.MinCost (4) to keep hashing fast.
//
// Do NOT use in production. Cost 4 is far too weak.
func NewBcryptHasherForTest(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns an error if the plaintext is longer than 72 bytes. bcrypt would
// silently truncate it, so two passwords sharing the first 72 bytes would
// collide.
func (b *BcryptHasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plaintext against a stored bcrypt hash.
// bcrypt.CompareHashAndPassword compares in constant time.
func (b *BcryptHasher) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
