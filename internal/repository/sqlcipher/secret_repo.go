package sqlcipher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

// SecretRepo implements repository.SecretRepository over a single vault connection.
type SecretRepo struct{ q Querier }

// NewSecretRepo binds a secret repository to q.
func NewSecretRepo(q Querier) *SecretRepo { return &SecretRepo{q: q} }

// List returns all secrets without content, newest first.
func (r *SecretRepo) List(ctx context.Context) ([]model.Secret, error) {
	const q = `SELECT id, name, category, file_path, notes, is_active, created_at, updated_at
FROM vault_secrets ORDER BY created_at DESC, rowid DESC`

	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Secret, 0)
	for rows.Next() {
		var (
			s         model.Secret
			cat       string
			path, nts sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Name, &cat, &path, &nts, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Category = model.Category(cat)
		s.FilePath = nullToPtr(path)
		s.Notes = nullToPtr(nts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns one secret with its content.
func (r *SecretRepo) Get(ctx context.Context, id string) (*model.Secret, error) {
	const q = `SELECT id, name, category, content, file_path, notes, is_active, created_at, updated_at
FROM vault_secrets WHERE id = ?`

	var (
		s         model.Secret
		cat       string
		path, nts sql.NullString
	)
	err := r.q.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.Name, &cat, &s.Content, &path, &nts, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Category = model.Category(cat)
	s.FilePath = nullToPtr(path)
	s.Notes = nullToPtr(nts)
	return &s, nil
}

// Insert stores a new inactive secret. Timestamps are set when zero.
func (r *SecretRepo) Insert(ctx context.Context, s *model.Secret) error {
	const q = `INSERT INTO vault_secrets (id, name, category, content, file_path, notes, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	if s.Content == nil {
		s.Content = []byte{}
	}
	s.IsActive = false

	_, err := r.q.ExecContext(ctx, q, s.ID, s.Name, string(s.Category), s.Content,
		ptrToNull(s.FilePath), ptrToNull(s.Notes), s.CreatedAt, s.UpdatedAt)
	return err
}

// Update applies the non-nil fields of upd and bumps updated_at.
func (r *SecretRepo) Update(ctx context.Context, id string, upd model.SecretUpdate) error {
	q, args := buildUpdate(id, upd, time.Now().UTC())
	res, err := r.q.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes the row.
func (r *SecretRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM vault_secrets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetActive flips is_active for one secret.
func (r *SecretRepo) SetActive(ctx context.Context, id string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE vault_secrets SET is_active = ?, updated_at = ? WHERE id = ?`, v, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// ListActive returns (id, file_path) of active secrets that have a path.
func (r *SecretRepo) ListActive(ctx context.Context) ([]model.ActivePath, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, file_path FROM vault_secrets WHERE is_active = 1 AND file_path IS NOT NULL ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivePath
	for rows.Next() {
		var ap model.ActivePath
		if err := rows.Scan(&ap.ID, &ap.FilePath); err != nil {
			return nil, err
		}
		out = append(out, ap)
	}
	return out, rows.Err()
}

// DeactivateAll flips every active secret in one statement.
func (r *SecretRepo) DeactivateAll(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE vault_secrets SET is_active = 0, updated_at = ? WHERE is_active = 1`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// secretColumn enumerates the columns an update may touch. Column names never come from callers.
type secretColumn int

const (
	colName secretColumn = iota
	colCategory
	colContent
	colFilePath
	colNotes
)

var secretColumnNames = map[secretColumn]string{
	colName:     "name",
	colCategory: "category",
	colContent:  "content",
	colFilePath: "file_path",
	colNotes:    "notes",
}

type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(c secretColumn, v any) {
	b.sets = append(b.sets, secretColumnNames[c]+" = ?")
	b.args = append(b.args, v)
}

func buildUpdate(id string, upd model.SecretUpdate, now time.Time) (string, []any) {
	var b updateBuilder
	if upd.Name != nil {
		b.set(colName, *upd.Name)
	}
	if upd.Category != nil {
		b.set(colCategory, *upd.Category)
	}
	if upd.Content != nil {
		b.set(colContent, upd.Content)
	}
	if upd.FilePath != nil {
		b.set(colFilePath, emptyToNull(*upd.FilePath))
	}
	if upd.Notes != nil {
		b.set(colNotes, emptyToNull(*upd.Notes))
	}
	b.sets = append(b.sets, "updated_at = ?")
	b.args = append(b.args, now, id)

	return fmt.Sprintf("UPDATE vault_secrets SET %s WHERE id = ?", strings.Join(b.sets, ", ")), b.args
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// emptyToNull lets an update clear an optional text column with "".
func emptyToNull(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ repository.SecretRepository = (*SecretRepo)(nil)
