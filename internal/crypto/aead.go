package crypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceLen and TagLen describe the Encrypt output layout: nonce || ciphertext || tag.
const (
	NonceLen = chacha20poly1305.NonceSize
	TagLen   = chacha20poly1305.Overhead
)

// ErrCiphertextTooShort is returned by Decrypt for input shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Encrypt seals data with ChaCha20-Poly1305 under a fresh random nonce.
func Encrypt(data, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce, err := RandBytes(NonceLen)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(data)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Tag mismatch is reported as an error.
func Decrypt(blob, key []byte) ([]byte, error) {
	if len(blob) < NonceLen {
		return nil, ErrCiphertextTooShort
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, blob[:NonceLen], blob[NonceLen:], nil)
}
