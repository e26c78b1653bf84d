package sqlcipher

import (
	"fmt"
	"os"

	"github.com/and161185/localvault/internal/crypto"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
)

// minRecoveryLen is salt + hash + nonce + tag with an empty ciphertext.
const minRecoveryLen = crypto.SaltLen + crypto.HashLen + crypto.NonceLen + crypto.TagLen

// WriteSalt stores the database key derivation salt.
func (s *Store) WriteSalt(salt []byte) error {
	if len(salt) != crypto.SaltLen {
		return fmt.Errorf("%w: salt length %d", errs.ErrValidation, len(salt))
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	if err := writeFile(s.saltPath(), salt); err != nil {
		return fmt.Errorf("write salt: %w", err)
	}
	return nil
}

// ReadSalt loads the salt written by WriteSalt.
func (s *Store) ReadSalt() ([]byte, error) {
	b, err := os.ReadFile(s.saltPath())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrSaltMissing, err)
	}
	if len(b) != crypto.SaltLen {
		return nil, fmt.Errorf("%w: salt file has %d bytes", errs.ErrCorrupted, len(b))
	}
	return b, nil
}

// WriteRecovery stores the escrow envelope as salt || hash || encrypted key.
func (s *Store) WriteRecovery(env model.RecoveryEnvelope) error {
	if len(env.Salt) != crypto.SaltLen || len(env.Hash) != crypto.HashLen {
		return fmt.Errorf("%w: malformed recovery envelope", errs.ErrValidation)
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	buf := make([]byte, 0, len(env.Salt)+len(env.Hash)+len(env.EncryptedDBKey))
	buf = append(buf, env.Salt...)
	buf = append(buf, env.Hash...)
	buf = append(buf, env.EncryptedDBKey...)
	if err := writeFile(s.recoveryPath(), buf); err != nil {
		return fmt.Errorf("write recovery: %w", err)
	}
	return nil
}

// ReadRecovery loads and splits the escrow envelope.
func (s *Store) ReadRecovery() (model.RecoveryEnvelope, error) {
	b, err := os.ReadFile(s.recoveryPath())
	if err != nil {
		return model.RecoveryEnvelope{}, fmt.Errorf("read recovery: %w", err)
	}
	if len(b) < minRecoveryLen {
		return model.RecoveryEnvelope{}, fmt.Errorf("%w: recovery file has %d bytes", errs.ErrCorrupted, len(b))
	}
	return model.RecoveryEnvelope{
		Salt:           b[:crypto.SaltLen],
		Hash:           b[crypto.SaltLen : crypto.SaltLen+crypto.HashLen],
		EncryptedDBKey: b[crypto.SaltLen+crypto.HashLen:],
	}, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return err
	}
	return os.Chmod(path, fileMode)
}
