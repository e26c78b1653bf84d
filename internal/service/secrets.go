package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/fileops"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

// SecretService defines operations over secrets of the unlocked vault.
type SecretService interface {
	// List returns every secret without content, newest first.
	List(ctx context.Context) ([]model.Secret, error)
	// Add validates and stores a new secret, returning its id.
	Add(ctx context.Context, in model.NewSecret) (string, error)
	// Update applies the supplied fields only.
	Update(ctx context.Context, id string, upd model.SecretUpdate) error
	// Delete removes a secret, erasing its file first when active.
	Delete(ctx context.Context, id string) error
	// Activate writes the secret content to its file path.
	Activate(ctx context.Context, id string) error
	// Deactivate erases the materialized file and marks the secret inactive.
	Deactivate(ctx context.Context, id string) error
	// DeactivateAll erases every materialized file and returns how many secrets were flipped.
	DeactivateAll(ctx context.Context) (int, error)
}

type SecretServiceImpl struct {
	store    SecretStore
	validate *validator.Validate
	log      *zap.Logger
}

// NewSecretService constructs SecretService over the guarded store accessor.
func NewSecretService(store SecretStore, log *zap.Logger) *SecretServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &SecretServiceImpl{
		store:    store,
		validate: validator.New(),
		log:      log.Named("secrets"),
	}
}

// List returns metadata of every secret.
func (s *SecretServiceImpl) List(ctx context.Context) ([]model.Secret, error) {
	var out []model.Secret
	err := s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		var err error
		out, err = repo.List(ctx)
		return err
	})
	return out, err
}

// Add stores a new inactive secret under a random UUID.
func (s *SecretServiceImpl) Add(ctx context.Context, in model.NewSecret) (string, error) {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return "", validationError(err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	sec := &model.Secret{
		ID:       id.String(),
		Name:     in.Name,
		Category: model.Category(in.Category),
		Content:  in.Content,
		FilePath: lo.EmptyableToPtr(lo.FromPtr(in.FilePath)),
		Notes:    lo.EmptyableToPtr(lo.FromPtr(in.Notes)),
	}
	err = s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		return repo.Insert(ctx, sec)
	})
	if err != nil {
		return "", err
	}
	s.log.Info("secret added", zap.String("id", sec.ID), zap.String("category", in.Category))
	return sec.ID, nil
}

// Update changes only the non-nil fields. An empty update still checks that id exists.
// An active secret is rewritten at its (possibly new) path.
func (s *SecretServiceImpl) Update(ctx context.Context, id string, upd model.SecretUpdate) error {
	if upd.Name != nil {
		if err := s.validate.VarCtx(ctx, *upd.Name, "required,max=256"); err != nil {
			return validationError(err)
		}
	}
	if upd.Category != nil && !model.Category(*upd.Category).Valid() {
		return fmt.Errorf("%w: unknown category %q", errs.ErrValidation, *upd.Category)
	}

	return s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		sec, err := repo.Get(ctx, id)
		if err != nil || upd.Empty() {
			return err
		}
		if err := repo.Update(ctx, id, upd); err != nil {
			return err
		}
		if sec.IsActive && (upd.FilePath != nil || upd.Content != nil) {
			return s.rematerialize(ctx, repo, sec, upd)
		}
		return nil
	})
}

// rematerialize keeps the file of an active secret in step with an update of its path
// or content. The old file is erased when the path moves; a cleared path deactivates.
func (s *SecretServiceImpl) rematerialize(ctx context.Context, repo repository.SecretRepository, sec *model.Secret, upd model.SecretUpdate) error {
	oldPath := lo.FromPtr(sec.FilePath)
	newPath := oldPath
	if upd.FilePath != nil {
		newPath = *upd.FilePath
	}
	content := sec.Content
	if upd.Content != nil {
		content = upd.Content
	}

	if newPath != oldPath && oldPath != "" {
		fileops.SecureDelete(oldPath)
	}
	if newPath == "" {
		if err := repo.SetActive(ctx, sec.ID, false); err != nil {
			return err
		}
		s.log.Info("secret deactivated by path change", zap.String("id", sec.ID))
		return nil
	}
	if err := fileops.ActivateFile(newPath, content); err != nil {
		fileops.SecureDelete(newPath)
		if serr := repo.SetActive(ctx, sec.ID, false); serr != nil {
			return errors.Join(err, serr)
		}
		return err
	}
	s.log.Info("secret rematerialized", zap.String("id", sec.ID))
	return nil
}

// Delete erases an active secret's file and removes the row.
func (s *SecretServiceImpl) Delete(ctx context.Context, id string) error {
	return s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		sec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if sec.IsActive && lo.FromPtr(sec.FilePath) != "" {
			fileops.SecureDelete(*sec.FilePath)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info("secret deleted", zap.String("id", id))
		return nil
	})
}

// Activate materializes the secret at its file path.
func (s *SecretServiceImpl) Activate(ctx context.Context, id string) error {
	return s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		sec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		path := lo.FromPtr(sec.FilePath)
		if path == "" {
			return errs.ErrNoFilePath
		}
		if err := fileops.ActivateFile(path, sec.Content); err != nil {
			return err
		}
		if err := repo.SetActive(ctx, id, true); err != nil {
			fileops.SecureDelete(path)
			return err
		}
		s.log.Info("secret activated", zap.String("id", id))
		return nil
	})
}

// Deactivate erases the file if a path is set and marks the secret inactive regardless.
func (s *SecretServiceImpl) Deactivate(ctx context.Context, id string) error {
	return s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		sec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if path := lo.FromPtr(sec.FilePath); path != "" {
			fileops.SecureDelete(path)
		}
		if err := repo.SetActive(ctx, id, false); err != nil {
			return err
		}
		s.log.Info("secret deactivated", zap.String("id", id))
		return nil
	})
}

// DeactivateAll erases every materialized file and flips all rows inactive.
func (s *SecretServiceImpl) DeactivateAll(ctx context.Context) (int, error) {
	var flipped int64
	err := s.store.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		active, err := repo.ListActive(ctx)
		if err != nil {
			return err
		}
		removed := fileops.DeactivateAll(active)

		flipped, err = repo.DeactivateAll(ctx)
		if err != nil {
			return err
		}
		s.log.Info("secrets deactivated",
			zap.Strings("ids", lo.Map(active, func(ap model.ActivePath, _ int) string { return ap.ID })),
			zap.Int("files_removed", removed))
		return nil
	})
	return int(flipped), err
}

// validationError flattens validator errors into a single ErrValidation.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	msgs := lo.Map(ve, func(fe validator.FieldError, _ int) string {
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("field '%s' is required", fe.Field())
		case "max":
			return fmt.Sprintf("field '%s' must be at most %s characters", fe.Field(), fe.Param())
		case "oneof":
			return fmt.Sprintf("field '%s' must be one of: %s", fe.Field(), fe.Param())
		default:
			return fmt.Sprintf("field '%s' failed on '%s'", fe.Field(), fe.Tag())
		}
	})
	return fmt.Errorf("%w: %s", errs.ErrValidation, strings.Join(msgs, "; "))
}

var _ SecretService = (*SecretServiceImpl)(nil)
