// Package grpcserver exposes the vault daemon gRPC API over protobuf well-known types.
package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
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

// Server wires services into gRPC handlers.
type Server struct {
	auth    service.AuthService
	secrets service.SecretService
	tokens  *TokenIssuer
	log     *zap.Logger
}

var _ VaultServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, secrets service.SecretService, tokens *TokenIssuer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, secrets: secrets, tokens: tokens, log: log.Named("grpc")}
}

// --- Vault lifecycle ---

// Status reports whether the vault exists and is unlocked.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return convert.ToProtoStatus(s.auth.VaultStatus(ctx)), nil
}

// Create initializes the vault and returns the recovery phrase with a session token.
func (s *Server) Create(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "empty password")
	}
	phrase, err := s.auth.CreateMasterPassword(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus("create", err)
	}
	res, err := s.issue()
	if err != nil {
		return nil, toStatus("issue token", err)
	}
	res.RecoveryPhrase = phrase
	return convert.ToProtoUnlockResult(res), nil
}

// Login unlocks with the master password. A wrong password is a normal response with ok=false.
func (s *Server) Login(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ok, err := s.auth.Login(ctx, req.GetValue())
	return s.unlockResult(ok, err, "login")
}

// Recover unlocks with the recovery phrase.
func (s *Server) Recover(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	ok, err := s.auth.RecoverVault(ctx, req.GetValue())
	return s.unlockResult(ok, err, "recover")
}

// Lock closes the vault and invalidates every issued token.
func (s *Server) Lock(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.auth.LockVault(ctx); err != nil {
		return nil, toStatus("lock", err)
	}
	if err := s.tokens.Rotate(); err != nil {
		return nil, toStatus("rotate token key", err)
	}
	return &emptypb.Empty{}, nil
}

// Destroy locks the vault and removes all of its files.
func (s *Server) Destroy(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.auth.DestroyVault(ctx); err != nil {
		return nil, toStatus("destroy", err)
	}
	if err := s.tokens.Rotate(); err != nil {
		return nil, toStatus("rotate token key", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) unlockResult(ok bool, err error, op string) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(op, err)
	}
	if !ok {
		return convert.ToProtoUnlockResult(model.UnlockResult{}), nil
	}
	res, err := s.issue()
	if err != nil {
		return nil, toStatus("issue token", err)
	}
	return convert.ToProtoUnlockResult(res), nil
}

// issue rotates the signing key and returns a fresh token for the new session.
func (s *Server) issue() (model.UnlockResult, error) {
	if err := s.tokens.Rotate(); err != nil {
		return model.UnlockResult{}, err
	}
	tok, exp, err := s.tokens.Issue()
	if err != nil {
		return model.UnlockResult{}, err
	}
	return model.UnlockResult{OK: true, Token: tok, ExpiresAt: exp}, nil
}

// --- Secrets ---

// ListSecrets returns secret metadata, newest first.
func (s *Server) ListSecrets(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := s.secrets.List(ctx)
	if err != nil {
		return nil, toStatus("list", err)
	}
	return convert.ToProtoSecrets(list), nil
}

// AddSecret stores a new secret and returns its id.
func (s *Server) AddSecret(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	in, err := convert.FromProtoNewSecret(req)
	if err != nil {
		return nil, toStatus("add", err)
	}
	id, err := s.secrets.Add(ctx, in)
	if err != nil {
		return nil, toStatus("add", err)
	}
	return wrapperspb.String(id), nil
}

// UpdateSecret applies a partial update.
func (s *Server) UpdateSecret(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, upd, err := convert.FromProtoSecretUpdate(req)
	if err != nil {
		return nil, toStatus("update", err)
	}
	if err := s.secrets.Update(ctx, id, upd); err != nil {
		return nil, toStatus("update", err)
	}
	return &emptypb.Empty{}, nil
}

// DeleteSecret removes a secret.
func (s *Server) DeleteSecret(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.byID(ctx, req, "delete", s.secrets.Delete)
}

// ActivateSecret writes a secret to its file path.
func (s *Server) ActivateSecret(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.byID(ctx, req, "activate", s.secrets.Activate)
}

// DeactivateSecret erases a materialized secret.
func (s *Server) DeactivateSecret(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return s.byID(ctx, req, "deactivate", s.secrets.Deactivate)
}

// DeactivateAll erases every materialized secret.
func (s *Server) DeactivateAll(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	n, err := s.secrets.DeactivateAll(ctx)
	if err != nil {
		return nil, toStatus("deactivate all", err)
	}
	return wrapperspb.Int64(int64(n)), nil
}

func (s *Server) byID(ctx context.Context, req *wrapperspb.StringValue, op string, fn func(context.Context, string) error) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "empty id")
	}
	if err := fn(ctx, req.GetValue()); err != nil {
		return nil, toStatus(op, err)
	}
	return &emptypb.Empty{}, nil
}

// toStatus maps domain errors to gRPC status codes. Sentinel messages are kept verbatim
// so the client can map them back.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrVaultLocked):
		return status.Error(codes.FailedPrecondition, errs.ErrVaultLocked.Error())
	case errors.Is(err, errs.ErrVaultNotFound), errors.Is(err, errs.ErrSaltMissing):
		return status.Error(codes.FailedPrecondition, errs.ErrVaultNotFound.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrNoFilePath):
		return status.Error(codes.InvalidArgument, errs.ErrNoFilePath.Error())
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrVaultExists):
		return status.Error(codes.AlreadyExists, errs.ErrVaultExists.Error())
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, errs.ErrCorrupted):
		return status.Errorf(codes.DataLoss, "%s: %v", op, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}
