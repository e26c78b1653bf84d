package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/and161185/localvault/internal/convert"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	"github.com/and161185/localvault/internal/service"
)

type fakeAuth struct {
	st        model.Status
	phrase    string
	createErr error
	loginOK   bool
	loginErr  error
	lockErr   error
	locks     int
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) VaultStatus(context.Context) model.Status { return f.st }
func (f *fakeAuth) CreateMasterPassword(context.Context, string) (string, error) {
	return f.phrase, f.createErr
}
func (f *fakeAuth) Login(context.Context, string) (bool, error)        { return f.loginOK, f.loginErr }
func (f *fakeAuth) RecoverVault(context.Context, string) (bool, error) { return f.loginOK, f.loginErr }
func (f *fakeAuth) LockVault(context.Context) error                    { f.locks++; return f.lockErr }
func (f *fakeAuth) DestroyVault(context.Context) error                 { return f.lockErr }
func (f *fakeAuth) Touch()                                             {}

type fakeSecrets struct {
	list []model.Secret
	err  error
	last string
	n    int
}

var _ service.SecretService = (*fakeSecrets)(nil)

func (f *fakeSecrets) List(context.Context) ([]model.Secret, error) { return f.list, f.err }
func (f *fakeSecrets) Add(_ context.Context, in model.NewSecret) (string, error) {
	f.last = in.Name
	return "new-id", f.err
}
func (f *fakeSecrets) Update(_ context.Context, id string, _ model.SecretUpdate) error {
	f.last = id
	return f.err
}
func (f *fakeSecrets) Delete(_ context.Context, id string) error     { f.last = id; return f.err }
func (f *fakeSecrets) Activate(_ context.Context, id string) error   { f.last = id; return f.err }
func (f *fakeSecrets) Deactivate(_ context.Context, id string) error { f.last = id; return f.err }
func (f *fakeSecrets) DeactivateAll(context.Context) (int, error)    { return f.n, f.err }

func newServerUnderTest(t *testing.T) (*Server, *fakeAuth, *fakeSecrets, *TokenIssuer) {
	t.Helper()
	tokens, err := NewTokenIssuer(time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	a, s := &fakeAuth{}, &fakeSecrets{}
	return New(a, s, tokens, zaptest.NewLogger(t)), a, s, tokens
}

func TestServer_LoginIssuesTokenAndRotates(t *testing.T) {
	t.Parallel()
	srv, auth, _, tokens := newServerUnderTest(t)
	ctx := context.Background()

	auth.loginOK = false
	out, err := srv.Login(ctx, wrapperspb.String("wrong"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	res, _ := convert.FromProtoUnlockResult(out)
	if res.OK || res.Token != "" {
		t.Fatalf("rejected login must not carry a token: %+v", res)
	}

	auth.loginOK = true
	out, err = srv.Login(ctx, wrapperspb.String("right"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	first, _ := convert.FromProtoUnlockResult(out)
	if !first.OK || first.Token == "" {
		t.Fatalf("want token, got %+v", first)
	}
	if err := tokens.Verify(first.Token); err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}

	out, _ = srv.Recover(ctx, wrapperspb.String("phrase"))
	second, _ := convert.FromProtoUnlockResult(out)
	if err := tokens.Verify(first.Token); err == nil {
		t.Fatalf("old token must be invalid after a new unlock")
	}
	if err := tokens.Verify(second.Token); err != nil {
		t.Fatalf("new token invalid: %v", err)
	}

	if _, err := srv.Lock(ctx, &emptypb.Empty{}); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := tokens.Verify(second.Token); err == nil {
		t.Fatalf("token must be invalid after lock")
	}
	if auth.locks != 1 {
		t.Fatalf("want 1 lock, got %d", auth.locks)
	}
}

func TestServer_CreateReturnsPhrase(t *testing.T) {
	t.Parallel()
	srv, auth, _, _ := newServerUnderTest(t)
	auth.phrase = "apple-banana"

	if _, err := srv.Create(context.Background(), wrapperspb.String("")); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument for empty password, got %v", err)
	}

	out, err := srv.Create(context.Background(), wrapperspb.String("pw"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, _ := convert.FromProtoUnlockResult(out)
	if res.RecoveryPhrase != "apple-banana" || res.Token == "" {
		t.Fatalf("bad create result: %+v", res)
	}

	auth.createErr = errs.ErrVaultExists
	if _, err := srv.Create(context.Background(), wrapperspb.String("pw")); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("want AlreadyExists, got %v", err)
	}
}

func TestServer_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{errs.ErrVaultLocked, codes.FailedPrecondition},
		{fmt.Errorf("read salt: %w", errs.ErrSaltMissing), codes.FailedPrecondition},
		{errs.ErrNotFound, codes.NotFound},
		{errs.ErrNoFilePath, codes.InvalidArgument},
		{fmt.Errorf("%w: name", errs.ErrValidation), codes.InvalidArgument},
		{errs.ErrVaultExists, codes.AlreadyExists},
		{errs.ErrRateLimited, codes.ResourceExhausted},
		{errs.ErrCorrupted, codes.DataLoss},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus("op", tc.err)); got != tc.code {
			t.Fatalf("%v: want %v, got %v", tc.err, tc.code, got)
		}
	}
}

func TestServer_SecretHandlers(t *testing.T) {
	t.Parallel()
	srv, _, secrets, _ := newServerUnderTest(t)
	ctx := context.Background()

	secrets.list = []model.Secret{{ID: "1", Name: "a", Category: model.CategoryToken}}
	l, err := srv.ListSecrets(ctx, &emptypb.Empty{})
	if err != nil || len(l.GetValues()) != 1 {
		t.Fatalf("ListSecrets: %v %v", l, err)
	}

	id, err := srv.AddSecret(ctx, convert.ToProtoNewSecret(model.NewSecret{Name: "n", Category: "token", Content: []byte("x")}))
	if err != nil || id.GetValue() != "new-id" || secrets.last != "n" {
		t.Fatalf("AddSecret: %v %v", id, err)
	}

	bad := &structpb.Struct{Fields: map[string]*structpb.Value{convert.FieldContent: structpb.NewStringValue("%%")}}
	if _, err := srv.AddSecret(ctx, bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument for bad content, got %v", err)
	}

	if _, err := srv.UpdateSecret(ctx, convert.ToProtoSecretUpdate("u1", model.SecretUpdate{})); err != nil || secrets.last != "u1" {
		t.Fatalf("UpdateSecret: %v", err)
	}

	for name, fn := range map[string]func(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error){
		"delete": srv.DeleteSecret, "activate": srv.ActivateSecret, "deactivate": srv.DeactivateSecret,
	} {
		if _, err := fn(ctx, wrapperspb.String("")); status.Code(err) != codes.InvalidArgument {
			t.Fatalf("%s: want InvalidArgument for empty id, got %v", name, err)
		}
		if _, err := fn(ctx, wrapperspb.String(name)); err != nil || secrets.last != name {
			t.Fatalf("%s: %v", name, err)
		}
	}

	secrets.n = 3
	n, err := srv.DeactivateAll(ctx, &emptypb.Empty{})
	if err != nil || n.GetValue() != 3 {
		t.Fatalf("DeactivateAll: %v %v", n, err)
	}

	secrets.err = errs.ErrVaultLocked
	if _, err := srv.ListSecrets(ctx, &emptypb.Empty{}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("want FailedPrecondition when locked, got %v", err)
	}
}

func TestRequiresAuth(t *testing.T) {
	t.Parallel()

	for m, want := range map[string]bool{
		FullMethod(MethodStatus):        false,
		FullMethod(MethodLock):          false,
		FullMethod(MethodAddSecret):     true,
		FullMethod(MethodDestroy):       true,
		FullMethod(MethodDeactivateAll): true,
		"/grpc.health.v1.Health/Check":  false,
		"/" + ServiceName + "/":         false,
	} {
		if got := RequiresAuth(m); got != want {
			t.Fatalf("%s: want %v, got %v", m, want, got)
		}
	}
}
