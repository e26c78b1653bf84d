package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

type fakeSecretRepo struct {
	rows map[string]*model.Secret
	seq  int

	setActiveErr error
}

var _ repository.SecretRepository = (*fakeSecretRepo)(nil)

func newFakeSecretRepo() *fakeSecretRepo {
	return &fakeSecretRepo{rows: map[string]*model.Secret{}}
}

func (f *fakeSecretRepo) List(context.Context) ([]model.Secret, error) {
	out := make([]model.Secret, 0, len(f.rows))
	for _, r := range f.rows {
		c := *r
		c.Content = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
func (f *fakeSecretRepo) Get(_ context.Context, id string) (*model.Secret, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}
func (f *fakeSecretRepo) Insert(_ context.Context, s *model.Secret) error {
	f.seq++
	c := *s
	c.CreatedAt = time.Unix(int64(f.seq), 0)
	f.rows[s.ID] = &c
	return nil
}
func (f *fakeSecretRepo) Update(_ context.Context, id string, upd model.SecretUpdate) error {
	r, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Category != nil {
		r.Category = model.Category(*upd.Category)
	}
	if upd.Content != nil {
		r.Content = upd.Content
	}
	if upd.FilePath != nil {
		r.FilePath = emptyToNil(upd.FilePath)
	}
	if upd.Notes != nil {
		r.Notes = emptyToNil(upd.Notes)
	}
	return nil
}
func (f *fakeSecretRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}
func (f *fakeSecretRepo) SetActive(_ context.Context, id string, active bool) error {
	if f.setActiveErr != nil {
		return f.setActiveErr
	}
	r, ok := f.rows[id]
	if !ok {
		return errs.ErrNotFound
	}
	r.IsActive = active
	return nil
}
func (f *fakeSecretRepo) ListActive(context.Context) ([]model.ActivePath, error) {
	var out []model.ActivePath
	for _, r := range f.rows {
		if r.IsActive && r.FilePath != nil {
			out = append(out, model.ActivePath{ID: r.ID, FilePath: *r.FilePath})
		}
	}
	return out, nil
}
func (f *fakeSecretRepo) DeactivateAll(context.Context) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.IsActive {
			r.IsActive = false
			n++
		}
	}
	return n, nil
}

type fakeSecretStore struct {
	mu     sync.Mutex
	locked bool
	repo   *fakeSecretRepo
}

var _ SecretStore = (*fakeSecretStore)(nil)

func (f *fakeSecretStore) WithSecrets(_ context.Context, fn func(repository.SecretRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return errs.ErrVaultLocked
	}
	return fn(f.repo)
}

// emptyToNil mirrors the store, where "" clears an optional column.
func emptyToNil(p *string) *string {
	if *p == "" {
		return nil
	}
	return p
}
