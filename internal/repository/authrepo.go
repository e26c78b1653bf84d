package repository

import (
	"context"

	"github.com/and161185/localvault/internal/model"
)

// AuthRepository reads and writes the singleton master auth record.
type AuthRepository interface {
	// Insert writes the auth row; fails if it already exists.
	Insert(ctx context.Context, rec model.AuthRecord) error
	// Get loads the auth row.
	Get(ctx context.Context) (*model.AuthRecord, error)
}
