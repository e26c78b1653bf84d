// Package crypto implements vault key derivation, password hashing, AEAD and recovery phrases.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters shared by key derivation and password hashing.
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 4
	KeyLen              = 32

	SaltLen = 16
	HashLen = SaltLen + KeyLen // salt || hash
)

// ErrInvalidHashLength is returned when a stored hash is not salt||hash.
var ErrInvalidHashLength = errors.New("invalid stored hash length")

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// GenerateSalt returns SaltLen random bytes.
func GenerateSalt() ([]byte, error) {
	return RandBytes(SaltLen)
}

// DeriveKey derives a 32-byte key from password and salt using Argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeyLen)
}

// HashPassword returns salt||Argon2id(password, salt) with a fresh random salt.
func HashPassword(password []byte) ([]byte, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HashLen)
	out = append(out, salt...)
	out = append(out, DeriveKey(password, salt)...)
	return out, nil
}

// VerifyPassword recomputes the hash with the stored salt and compares in constant time.
func VerifyPassword(password, stored []byte) (bool, error) {
	if len(stored) != HashLen {
		return false, fmt.Errorf("%w: got %d, want %d", ErrInvalidHashLength, len(stored), HashLen)
	}
	got := DeriveKey(password, stored[:SaltLen])
	return ConstantTimeEq(got, stored[SaltLen:]), nil
}

// ConstantTimeEq reports whether a and b are equal. Only the length check short-circuits.
func ConstantTimeEq(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
