package service

import (
	"crypto/subtle"
	"sync"

	"github.com/awnumar/memguard"
)

// Session holds the database key of the unlocked vault in an encrypted memguard enclave.
type Session struct {
	mu  sync.RWMutex
	key *memguard.Enclave
}

// NewSession returns an empty (locked) session.
func NewSession() *Session { return &Session{} }

// Set stores key and wipes the caller's buffer.
func (s *Session) Set(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = memguard.NewEnclave(key)
}

// Clear drops the key.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
}

// Active reports whether a key is held.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Matches reports whether key equals the held key. The enclave is decrypted only for
// the comparison and the plaintext buffer is destroyed afterwards.
func (s *Session) Matches(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return false
	}
	buf, err := s.key.Open()
	if err != nil {
		return false
	}
	defer buf.Destroy()
	return subtle.ConstantTimeCompare(buf.Bytes(), key) == 1
}
