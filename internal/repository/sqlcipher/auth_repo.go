package sqlcipher

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

// AuthRepo implements repository.AuthRepository for the singleton vault_auth row.
type AuthRepo struct{ q Querier }

// NewAuthRepo binds an auth repository to q.
func NewAuthRepo(q Querier) *AuthRepo { return &AuthRepo{q: q} }

// Insert writes the row with id 1. A second insert violates the primary key.
func (r *AuthRepo) Insert(ctx context.Context, rec model.AuthRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO vault_auth (id, password_hash, recovery_hash, salt, created_at) VALUES (1, ?, ?, ?, ?)`,
		rec.PasswordHash, rec.RecoveryHash, rec.Salt, created)
	return err
}

// Get loads the row.
func (r *AuthRepo) Get(ctx context.Context) (*model.AuthRecord, error) {
	var rec model.AuthRecord
	err := r.q.QueryRowContext(ctx,
		`SELECT password_hash, recovery_hash, salt, created_at FROM vault_auth WHERE id = 1`).
		Scan(&rec.PasswordHash, &rec.RecoveryHash, &rec.Salt, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ repository.AuthRepository = (*AuthRepo)(nil)
