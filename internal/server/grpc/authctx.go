package grpcserver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	pkgcrypto "github.com/and161185/localvault/internal/crypto"
)

const (
	tokenSubject = "vault"
	signKeyLen   = 32
)

// TokenIssuer signs and verifies HS256 session tokens. The signing key lives only in
// memory and is replaced on every unlock and lock, which invalidates older tokens.
type TokenIssuer struct {
	mu  sync.RWMutex
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenIssuer creates an issuer with a fresh random key.
func NewTokenIssuer(ttl time.Duration) (*TokenIssuer, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	t := &TokenIssuer{ttl: ttl, now: time.Now}
	if err := t.Rotate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Rotate replaces the signing key.
func (t *TokenIssuer) Rotate() error {
	key, err := pkgcrypto.RandBytes(signKeyLen)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.key = key
	t.mu.Unlock()
	return nil
}

// Issue creates a signed token and returns it with its expiry.
func (t *TokenIssuer) Issue() (string, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := t.now()
	exp := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, exp, err
}

// Verify checks signature, algorithm, subject and expiry.
func (t *TokenIssuer) Verify(tok string) error {
	t.mu.RLock()
	key := t.key
	t.mu.RUnlock()

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(tokenSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
}

// bearerTokenFromMD extracts "authorization: Bearer <JWT>" from incoming metadata.
func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
