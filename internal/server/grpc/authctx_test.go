package grpcserver

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func TestTokenIssuer_IssueVerify(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tok, exp, err := ti.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 || time.Until(exp) > time.Minute {
		t.Fatalf("bad expiry %v", exp)
	}
	if err := ti.Verify(tok); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := ti.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := ti.Verify(tok); err == nil {
		t.Fatalf("token must be invalid after key rotation")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	base := time.Now()
	ti.now = func() time.Time { return base }
	tok, _, err := ti.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ti.now = func() time.Time { return base.Add(2 * time.Minute) }
	if err := ti.Verify(tok); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	sign := func(claims jwt.RegisteredClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		return s
	}
	now := time.Now()

	wrongSubject := sign(jwt.RegisteredClaims{
		Subject: "someone", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}, jwt.SigningMethodHS256, ti.key)
	if err := ti.Verify(wrongSubject); err == nil {
		t.Fatalf("wrong subject accepted")
	}

	noExpiry := sign(jwt.RegisteredClaims{Subject: tokenSubject}, jwt.SigningMethodHS256, ti.key)
	if err := ti.Verify(noExpiry); err == nil {
		t.Fatalf("token without exp accepted")
	}

	otherAlg := sign(jwt.RegisteredClaims{
		Subject: tokenSubject, ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}, jwt.SigningMethodHS512, ti.key)
	if err := ti.Verify(otherAlg); err == nil {
		t.Fatalf("HS512 token accepted")
	}
}
