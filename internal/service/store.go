package service

import (
	"context"

	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

// VaultStore is the on-disk vault lifecycle used by the auth service.
type VaultStore interface {
	Exists() bool
	IsOpen() bool
	Create(ctx context.Context, passwordHash, recoveryHash, salt []byte, keyHex string) error
	Open(ctx context.Context, keyHex string) error
	Lock(ctx context.Context) ([]model.ActivePath, error)
	Destroy(ctx context.Context) error
	AuthRecord(ctx context.Context) (*model.AuthRecord, error)

	WriteSalt(salt []byte) error
	ReadSalt() ([]byte, error)
	WriteRecovery(env model.RecoveryEnvelope) error
	ReadRecovery() (model.RecoveryEnvelope, error)
}

// SecretStore gives guarded access to the secret repository of an unlocked vault.
type SecretStore interface {
	WithSecrets(ctx context.Context, fn func(repo repository.SecretRepository) error) error
}
