// Package service contains the vault auth orchestrator and the secret registry.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/localvault/internal/crypto"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/fileops"
	"github.com/and161185/localvault/internal/limiter"
	"github.com/and161185/localvault/internal/model"
)

const limiterKey = "unlock"

// AuthService defines vault lifecycle operations.
type AuthService interface {
	// VaultStatus reports whether the vault exists and is unlocked.
	VaultStatus(ctx context.Context) model.Status
	// CreateMasterPassword initializes a new vault and returns the one-time recovery phrase.
	CreateMasterPassword(ctx context.Context, password string) (string, error)
	// Login unlocks the vault. A wrong password yields false without error.
	Login(ctx context.Context, password string) (bool, error)
	// RecoverVault unlocks the vault with the recovery phrase. A wrong phrase yields false without error.
	RecoverVault(ctx context.Context, phrase string) (bool, error)
	// LockVault deactivates all materialized secrets and closes the vault.
	LockVault(ctx context.Context) error
	// DestroyVault locks and deletes every vault artifact.
	DestroyVault(ctx context.Context) error
	// Touch postpones the inactivity auto-lock.
	Touch()
}

// AuthOptions tunes optional behaviour of AuthServiceImpl.
type AuthOptions struct {
	// IdleTimeout locks the vault after this much inactivity. Zero disables auto-lock.
	IdleTimeout time.Duration
}

type AuthServiceImpl struct {
	// mu serializes lifecycle transitions so the session key and the connection change together.
	mu      sync.Mutex
	store   VaultStore
	session *Session
	lim     limiter.Limiter
	log     *zap.Logger

	idleMu  sync.Mutex
	idle    time.Duration
	timer   *time.Timer
	idleGen uint64
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(store VaultStore, session *Session, lim limiter.Limiter, log *zap.Logger, opts AuthOptions) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if session == nil {
		session = NewSession()
	}
	return &AuthServiceImpl{
		store:   store,
		session: session,
		lim:     lim,
		log:     log.Named("auth"),
		idle:    opts.IdleTimeout,
	}
}

// VaultStatus is read-only and never blocks on a running unlock.
func (s *AuthServiceImpl) VaultStatus(_ context.Context) model.Status {
	return model.Status{
		Exists:   s.store.Exists(),
		Unlocked: s.session.Active() && s.store.IsOpen(),
	}
}

// CreateMasterPassword derives the database key, escrows it under a fresh recovery phrase,
// writes the salt and recovery files and creates the encrypted database.
func (s *AuthServiceImpl) CreateMasterPassword(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty password", errs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists() {
		return "", errs.ErrVaultExists
	}

	salt, err := pkgcrypto.GenerateSalt()
	if err != nil {
		return "", err
	}
	key := pkgcrypto.DeriveKey([]byte(password), salt)
	keyHex := hex.EncodeToString(key)

	pwdHash, err := pkgcrypto.HashPassword([]byte(password))
	if err != nil {
		return "", err
	}

	phrase, err := pkgcrypto.GenerateRecoveryKey()
	if err != nil {
		return "", err
	}
	recHash, err := pkgcrypto.HashPassword([]byte(phrase))
	if err != nil {
		return "", err
	}
	recSalt, err := pkgcrypto.GenerateSalt()
	if err != nil {
		return "", err
	}
	recKey := pkgcrypto.DeriveKey([]byte(phrase), recSalt)
	escrow, err := pkgcrypto.Encrypt([]byte(keyHex), recKey)
	if err != nil {
		return "", err
	}

	if err := s.store.WriteSalt(salt); err != nil {
		return "", err
	}
	env := model.RecoveryEnvelope{Salt: recSalt, Hash: recHash, EncryptedDBKey: escrow}
	if err := s.store.WriteRecovery(env); err != nil {
		s.cleanupPartial(ctx)
		return "", err
	}
	if err := s.store.Create(ctx, pwdHash, recHash, salt, keyHex); err != nil {
		s.cleanupPartial(ctx)
		return "", err
	}

	s.session.Set(key)
	s.armIdle()
	s.log.Info("vault initialized")
	return phrase, nil
}

// Login derives the key from password and opens the vault with it.
// The limiter is consulted under mu so concurrent attempts are counted one by one.
// Re-entering the password of the current session keeps the open connection.
func (s *AuthServiceImpl) Login(ctx context.Context, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLimiter(ctx); err != nil {
		return false, err
	}

	salt, err := s.store.ReadSalt()
	if err != nil {
		return false, err
	}
	key := pkgcrypto.DeriveKey([]byte(password), salt)

	if s.store.IsOpen() && s.session.Matches(key) {
		s.unlocked(ctx, key)
		s.log.Info("vault already unlocked")
		return true, nil
	}

	if err := s.store.Open(ctx, hex.EncodeToString(key)); err != nil {
		if errors.Is(err, errs.ErrInvalidKey) {
			s.recordFailure(ctx)
			s.log.Info("unlock rejected")
			return false, nil
		}
		return false, err
	}

	s.unlocked(ctx, key)
	s.log.Info("vault unlocked")
	return true, nil
}

// RecoverVault verifies phrase against the escrow, decrypts the database key and opens the vault.
func (s *AuthServiceImpl) RecoverVault(ctx context.Context, phrase string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLimiter(ctx); err != nil {
		return false, err
	}

	env, err := s.store.ReadRecovery()
	if err != nil {
		return false, err
	}
	ok, err := pkgcrypto.VerifyPassword([]byte(phrase), env.Hash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errs.ErrCorrupted, err)
	}
	if !ok {
		s.recordFailure(ctx)
		s.log.Info("recovery rejected")
		return false, nil
	}

	recKey := pkgcrypto.DeriveKey([]byte(phrase), env.Salt)
	keyHex, err := pkgcrypto.Decrypt(env.EncryptedDBKey, recKey)
	if err != nil {
		return false, fmt.Errorf("%w: escrowed key: %w", errs.ErrCorrupted, err)
	}
	key, err := hex.DecodeString(string(keyHex))
	if err != nil {
		return false, fmt.Errorf("%w: escrowed key: %w", errs.ErrCorrupted, err)
	}

	if err := s.store.Open(ctx, string(keyHex)); err != nil {
		if errors.Is(err, errs.ErrInvalidKey) {
			return false, fmt.Errorf("%w: escrowed key does not open the vault", errs.ErrCorrupted)
		}
		return false, err
	}
	rec, err := s.store.AuthRecord(ctx)
	if err == nil && !pkgcrypto.ConstantTimeEq(rec.RecoveryHash, env.Hash) {
		err = fmt.Errorf("%w: recovery file does not belong to this vault", errs.ErrCorrupted)
	}
	if err != nil {
		if lerr := s.lockLocked(ctx); lerr != nil {
			s.log.Warn("lock after failed recovery", zap.Error(lerr))
		}
		return false, err
	}

	s.unlocked(ctx, key)
	s.log.Info("vault recovered")
	return true, nil
}

// LockVault closes the vault, removes materialized files and clears the session key.
func (s *AuthServiceImpl) LockVault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockLocked(ctx)
}

// DestroyVault locks the vault and deletes the database, salt and recovery files.
func (s *AuthServiceImpl) DestroyVault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockLocked(ctx); err != nil {
		return err
	}
	return s.store.Destroy(ctx)
}

// Touch restarts the inactivity timer while the vault is unlocked.
func (s *AuthServiceImpl) Touch() {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	if s.timer != nil {
		s.timer.Reset(s.idle)
	}
}

// lockLocked is LockVault with s.mu already held.
func (s *AuthServiceImpl) lockLocked(ctx context.Context) error {
	pairs, err := s.store.Lock(ctx)
	if err != nil {
		return err
	}
	removed := fileops.DeactivateAll(pairs)
	s.session.Clear()
	s.disarmIdle()
	if len(pairs) > 0 {
		s.log.Info("vault locked", zap.Int("files_removed", removed), zap.Int("files_total", len(pairs)))
	}
	return nil
}

func (s *AuthServiceImpl) unlocked(ctx context.Context, key []byte) {
	s.session.Set(key)
	if s.lim != nil {
		if err := s.lim.Success(ctx, limiterKey); err != nil {
			s.log.Warn("limiter reset", zap.Error(err))
		}
	}
	s.armIdle()
}

// cleanupPartial removes side files of an aborted create. The database is removed by the store.
func (s *AuthServiceImpl) cleanupPartial(ctx context.Context) {
	if s.store.Exists() {
		return
	}
	if err := s.store.Destroy(ctx); err != nil {
		s.log.Warn("cleanup after failed create", zap.Error(err))
	}
}

func (s *AuthServiceImpl) checkLimiter(ctx context.Context) error {
	if s.lim == nil {
		return nil
	}
	allowed, retry, err := s.lim.Allow(ctx, limiterKey)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retry.Round(time.Second))
	}
	return nil
}

func (s *AuthServiceImpl) recordFailure(ctx context.Context) {
	if s.lim == nil {
		return
	}
	blocked, d, err := s.lim.Failure(ctx, limiterKey)
	if err != nil {
		s.log.Warn("limiter failure", zap.Error(err))
		return
	}
	if blocked {
		s.log.Warn("unlock blocked after repeated failures", zap.Duration("lockout", d))
	}
}

// armIdle (re)starts the auto-lock timer. Each arm gets a new generation so a timer
// from a previous unlock can never lock a newer session.
func (s *AuthServiceImpl) armIdle() {
	if s.idle <= 0 {
		return
	}
	s.idleMu.Lock()
	defer s.idleMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.idleGen++
	gen := s.idleGen
	s.timer = time.AfterFunc(s.idle, func() { s.autoLock(gen) })
}

func (s *AuthServiceImpl) disarmIdle() {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.idleGen++
}

func (s *AuthServiceImpl) autoLock(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idleMu.Lock()
	current := gen == s.idleGen
	s.idleMu.Unlock()
	if !current {
		return
	}

	if err := s.lockLocked(context.Background()); err != nil {
		s.log.Error("auto-lock failed", zap.Error(err))
		return
	}
	s.log.Info("vault auto-locked after inactivity", zap.Duration("idle", s.idle))
}

var _ AuthService = (*AuthServiceImpl)(nil)
