// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/localvault/internal/model"
)

// SecretRepository provides access to vault secrets over an open vault connection.
type SecretRepository interface {
	// List returns all secrets without content, newest first.
	List(ctx context.Context) ([]model.Secret, error)

	// Get returns a single secret including content.
	Get(ctx context.Context, id string) (*model.Secret, error)

	// Insert stores a new secret; ID must already be set.
	Insert(ctx context.Context, s *model.Secret) error

	// Update applies only the supplied fields and bumps updated_at.
	Update(ctx context.Context, id string, upd model.SecretUpdate) error

	// Delete removes the row.
	Delete(ctx context.Context, id string) error

	// SetActive flips is_active for one secret.
	SetActive(ctx context.Context, id string, active bool) error

	// ListActive returns (id, file_path) of every active secret with a path.
	ListActive(ctx context.Context) ([]model.ActivePath, error)

	// DeactivateAll marks every secret inactive and returns the number of flipped rows.
	DeactivateAll(ctx context.Context) (int64, error)
}
