package sqlcipher

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/localvault/internal/crypto"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/repository"
)

func testKey(t *testing.T) string {
	t.Helper()
	k, err := crypto.RandBytes(crypto.KeyLen)
	require.NoError(t, err)
	return hex.EncodeToString(k)
}

func newCreatedStore(t *testing.T) (*Store, string) {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "vault"), zaptest.NewLogger(t))
	key := testKey(t)
	ph, rh, salt := make([]byte, crypto.HashLen), make([]byte, crypto.HashLen), make([]byte, crypto.SaltLen)
	require.NoError(t, s.Create(context.Background(), ph, rh, salt, key))
	t.Cleanup(func() { _, _ = s.Lock(context.Background()) })
	return s, key
}

func TestStore_CreateOpenLock(t *testing.T) {
	ctx := context.Background()
	s, key := newCreatedStore(t)

	require.True(t, s.Exists())
	require.True(t, s.IsOpen())

	rec, err := s.AuthRecord(ctx)
	require.NoError(t, err)
	require.Len(t, rec.PasswordHash, crypto.HashLen)
	require.Len(t, rec.Salt, crypto.SaltLen)
	require.False(t, rec.CreatedAt.IsZero())

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(filepath.Join(s.Dir(), DBFileName))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	pairs, err := s.Lock(ctx)
	require.NoError(t, err)
	require.Empty(t, pairs)
	require.False(t, s.IsOpen())

	err = s.WithConn(ctx, func(Querier) error { return nil })
	require.ErrorIs(t, err, errs.ErrVaultLocked)

	require.NoError(t, s.Open(ctx, key))
	require.True(t, s.IsOpen())
}

func TestStore_CreateTwice(t *testing.T) {
	s, key := newCreatedStore(t)

	err := s.Create(context.Background(), nil, nil, nil, key)
	require.ErrorIs(t, err, errs.ErrVaultExists)
	require.True(t, s.IsOpen())
}

func TestStore_OpenWrongKey(t *testing.T) {
	ctx := context.Background()
	s, key := newCreatedStore(t)

	_, err := s.Lock(ctx)
	require.NoError(t, err)

	err = s.Open(ctx, testKey(t))
	require.ErrorIs(t, err, errs.ErrInvalidKey)
	require.False(t, s.IsOpen())

	require.NoError(t, s.Open(ctx, key))
}

func TestStore_FailedReopenKeepsConnection(t *testing.T) {
	ctx := context.Background()
	s, _ := newCreatedStore(t)

	require.ErrorIs(t, s.Open(ctx, testKey(t)), errs.ErrInvalidKey)
	require.True(t, s.IsOpen())

	_, err := s.AuthRecord(ctx)
	require.NoError(t, err)
}

func TestStore_OpenMissing(t *testing.T) {
	s := New(t.TempDir(), zaptest.NewLogger(t))
	require.False(t, s.Exists())
	require.ErrorIs(t, s.Open(context.Background(), testKey(t)), errs.ErrVaultNotFound)
}

func TestStore_LockReturnsActivePairs(t *testing.T) {
	ctx := context.Background()
	s, key := newCreatedStore(t)

	path := "/tmp/kubeconfig"
	require.NoError(t, s.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		for _, sec := range []*model.Secret{
			{ID: "a", Name: "a", Category: model.CategoryKubeconfig, Content: []byte("1"), FilePath: &path},
			{ID: "b", Name: "b", Category: model.CategoryToken, Content: []byte("2")},
			{ID: "c", Name: "c", Category: model.CategoryOther, Content: []byte("3"), FilePath: &path},
		} {
			if err := repo.Insert(ctx, sec); err != nil {
				return err
			}
		}
		if err := repo.SetActive(ctx, "a", true); err != nil {
			return err
		}
		return repo.SetActive(ctx, "b", true)
	}))

	pairs, err := s.Lock(ctx)
	require.NoError(t, err)
	require.Equal(t, []model.ActivePath{{ID: "a", FilePath: path}}, pairs)

	again, err := s.Lock(ctx)
	require.NoError(t, err)
	require.Empty(t, again)

	require.NoError(t, s.Open(ctx, key))
	require.NoError(t, s.WithSecrets(ctx, func(repo repository.SecretRepository) error {
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for _, sec := range list {
			require.False(t, sec.IsActive, sec.ID)
		}
		return nil
	}))
}

func TestStore_Destroy(t *testing.T) {
	ctx := context.Background()
	s, _ := newCreatedStore(t)
	require.NoError(t, s.WriteSalt(make([]byte, crypto.SaltLen)))

	require.NoError(t, s.Destroy(ctx))
	require.False(t, s.Exists())
	require.False(t, s.IsOpen())
	_, err := s.ReadSalt()
	require.ErrorIs(t, err, errs.ErrSaltMissing)

	require.NoError(t, s.Destroy(ctx))
}

func TestStore_SaltFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "v"), zaptest.NewLogger(t))

	_, err := s.ReadSalt()
	require.ErrorIs(t, err, errs.ErrSaltMissing)

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	require.NoError(t, s.WriteSalt(salt))

	got, err := s.ReadSalt()
	require.NoError(t, err)
	require.Equal(t, salt, got)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), SaltFileName), []byte("short"), 0o600))
	_, err = s.ReadSalt()
	require.ErrorIs(t, err, errs.ErrCorrupted)
}

func TestStore_RecoveryFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "v"), zaptest.NewLogger(t))

	key, _ := crypto.RandBytes(crypto.KeyLen)
	enc, err := crypto.Encrypt([]byte("deadbeef"), key)
	require.NoError(t, err)
	env := model.RecoveryEnvelope{
		Salt:           make([]byte, crypto.SaltLen),
		Hash:           make([]byte, crypto.HashLen),
		EncryptedDBKey: enc,
	}
	env.Salt[0], env.Hash[0] = 1, 2
	require.NoError(t, s.WriteRecovery(env))

	got, err := s.ReadRecovery()
	require.NoError(t, err)
	require.Equal(t, env, got)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(filepath.Join(s.Dir(), RecoveryFileName))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), RecoveryFileName), make([]byte, minRecoveryLen-1), 0o600))
	_, err = s.ReadRecovery()
	require.ErrorIs(t, err, errs.ErrCorrupted)
}
