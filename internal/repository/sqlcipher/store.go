// Package sqlcipher implements the vault store on top of an SQLCipher-encrypted SQLite file.
package sqlcipher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
	"go.uber.org/zap"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/migrate"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

// On-disk artifact names inside the vault directory.
const (
	DBFileName       = "vault.db"
	SaltFileName     = "vault.salt"
	RecoveryFileName = "vault.recovery"

	fileMode = 0o600
	dirMode  = 0o700

	cipherPageSize = 4096
)

// Querier is the subset of *sql.DB and *sql.Tx used by repositories.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the encrypted database handle and the two plaintext side files.
// The vault is unlocked exactly while db is non-nil.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	dir string
	log *zap.Logger
}

// New creates a store rooted at dir. Nothing is opened or created yet.
func New(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log.Named("store")}
}

// Dir returns the vault directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) dbPath() string       { return filepath.Join(s.dir, DBFileName) }
func (s *Store) saltPath() string     { return filepath.Join(s.dir, SaltFileName) }
func (s *Store) recoveryPath() string { return filepath.Join(s.dir, RecoveryFileName) }

// Exists reports whether the encrypted database file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.dbPath())
	return err == nil
}

// IsOpen reports whether a connection is currently held.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Create makes a new encrypted database keyed by keyHex, migrates it, writes the auth
// row and keeps the connection. On failure the partial database file is removed.
func (s *Store) Create(ctx context.Context, passwordHash, recoveryHash, salt []byte, keyHex string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exists() {
		return errs.ErrVaultExists
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}

	db, err := openDB(s.dbPath(), keyHex)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
			_ = os.Remove(s.dbPath())
		}
	}()

	if err = db.PingContext(ctx); err != nil {
		return fmt.Errorf("create vault database: %w", err)
	}
	if err = migrate.Up(ctx, db, s.log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rec := model.AuthRecord{PasswordHash: passwordHash, RecoveryHash: recoveryHash, Salt: salt}
	if err = NewAuthRepo(db).Insert(ctx, rec); err != nil {
		return fmt.Errorf("insert auth row: %w", err)
	}
	if cerr := os.Chmod(s.dbPath(), fileMode); cerr != nil {
		s.log.Warn("chmod vault db", zap.Error(cerr))
	}

	s.replace(db)
	s.log.Info("vault created", zap.String("dir", s.dir))
	return nil
}

// Open opens the existing database with keyHex. A key that does not decrypt the file
// yields errs.ErrInvalidKey. A held connection is replaced only after the new one is
// validated and migrated.
func (s *Store) Open(ctx context.Context, keyHex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Exists() {
		return errs.ErrVaultNotFound
	}

	db, err := openDB(s.dbPath(), keyHex)
	if err != nil {
		return err
	}
	if err := checkKey(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	if err := migrate.Up(ctx, db, s.log); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	version, err := migrate.Version(ctx, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("schema version: %w", err)
	}

	s.replace(db)
	s.log.Info("vault opened", zap.Int64("schema_version", version))
	return nil
}

// Lock flips every active secret to inactive, closes the connection and returns the
// pre-lock (id, path) pairs. File removal is left to the caller. Locking a locked
// store returns an empty list.
func (s *Store) Lock(ctx context.Context) ([]model.ActivePath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	repo := NewSecretRepo(tx)
	active, err := repo.ListActive(ctx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if _, err := repo.DeactivateAll(ctx); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.replace(nil)
	s.log.Info("vault locked", zap.Int("active", len(active)))
	return active, nil
}

// WithConn runs fn against the live connection, or fails with errs.ErrVaultLocked.
func (s *Store) WithConn(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errs.ErrVaultLocked
	}
	return fn(s.db)
}

// WithSecrets runs fn with a secret repository bound to the live connection.
func (s *Store) WithSecrets(ctx context.Context, fn func(repo repository.SecretRepository) error) error {
	return s.WithConn(ctx, func(q Querier) error {
		return fn(NewSecretRepo(q))
	})
}

// AuthRecord returns the singleton auth row. Requires an open vault.
func (s *Store) AuthRecord(ctx context.Context) (*model.AuthRecord, error) {
	var rec *model.AuthRecord
	err := s.WithConn(ctx, func(q Querier) error {
		var err error
		rec, err = NewAuthRepo(q).Get(ctx)
		return err
	})
	return rec, err
}

// Destroy closes the connection and deletes the database, salt and recovery files.
func (s *Store) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replace(nil)

	var errList []error
	for _, p := range []string{s.dbPath(), s.saltPath(), s.recoveryPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errList = append(errList, err)
		}
	}
	if err := errors.Join(errList...); err != nil {
		return fmt.Errorf("destroy vault: %w", err)
	}
	s.log.Warn("vault destroyed", zap.String("dir", s.dir))
	return nil
}

// replace swaps the held connection, closing the previous one. Caller holds mu.
func (s *Store) replace(db *sql.DB) {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("close vault db", zap.Error(err))
		}
	}
	s.db = db
}

func openDB(path, keyHex string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=%d", path, keyHex, cipherPageSize)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open vault database: %w", err)
	}
	db.SetMaxIdleConns(1)
	return db, nil
}

// checkKey runs a cheap read so that a wrong key surfaces here and not on first use.
func checkKey(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		if isNotADB(err) {
			return errs.ErrInvalidKey
		}
		return fmt.Errorf("connect vault database: %w", err)
	}
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&n); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidKey, err)
	}
	return nil
}

func isNotADB(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrNotADB
}
