// Package client is the typed gRPC client of the vault daemon.
package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/and161185/localvault/internal/convert"
	"github.com/and161185/localvault/internal/errs"
	"github.com/and161185/localvault/internal/model"
	grpcserver "github.com/and161185/localvault/internal/server/grpc"
)

// Client talks to vaultd. A non-empty token is sent as a bearer token on every call.
type Client struct {
	cc     grpc.ClientConnInterface
	token  string
	closer func() error
}

// Dial connects to the daemon socket. The daemon listens on an owner-only unix socket,
// so the transport is not encrypted.
func Dial(socket, token string) (*Client, error) {
	cc, err := grpc.NewClient("unix://"+socket, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socket, err)
	}
	return &Client{cc: cc, token: token, closer: cc.Close}, nil
}

// New wraps an existing connection.
func New(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token, closer: func() error { return nil }}
}

// SetToken replaces the bearer token, e.g. right after an unlock.
func (c *Client) SetToken(token string) { c.token = token }

// Close releases the connection.
func (c *Client) Close() error { return c.closer() }

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	if err := c.cc.Invoke(ctx, grpcserver.FullMethod(method), in, out); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Status returns vault existence and lock state.
func (c *Client) Status(ctx context.Context) (model.Status, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, grpcserver.MethodStatus, &emptypb.Empty{}, out); err != nil {
		return model.Status{}, err
	}
	return convert.FromProtoStatus(out), nil
}

// Create initializes the vault.
func (c *Client) Create(ctx context.Context, password string) (model.UnlockResult, error) {
	return c.unlock(ctx, grpcserver.MethodCreate, password)
}

// Login unlocks with the master password.
func (c *Client) Login(ctx context.Context, password string) (model.UnlockResult, error) {
	return c.unlock(ctx, grpcserver.MethodLogin, password)
}

// Recover unlocks with the recovery phrase.
func (c *Client) Recover(ctx context.Context, phrase string) (model.UnlockResult, error) {
	return c.unlock(ctx, grpcserver.MethodRecover, phrase)
}

func (c *Client) unlock(ctx context.Context, method, secret string) (model.UnlockResult, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, wrapperspb.String(secret), out); err != nil {
		return model.UnlockResult{}, err
	}
	return convert.FromProtoUnlockResult(out)
}

// Lock closes the vault.
func (c *Client) Lock(ctx context.Context) error {
	return c.invoke(ctx, grpcserver.MethodLock, &emptypb.Empty{}, new(emptypb.Empty))
}

// Destroy deletes the vault.
func (c *Client) Destroy(ctx context.Context) error {
	return c.invoke(ctx, grpcserver.MethodDestroy, &emptypb.Empty{}, new(emptypb.Empty))
}

// List returns secret metadata.
func (c *Client) List(ctx context.Context) ([]model.Secret, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, grpcserver.MethodListSecrets, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return convert.FromProtoSecrets(out)
}

// Add stores a secret and returns its id.
func (c *Client) Add(ctx context.Context, in model.NewSecret) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, grpcserver.MethodAddSecret, convert.ToProtoNewSecret(in), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, id string, upd model.SecretUpdate) error {
	return c.invoke(ctx, grpcserver.MethodUpdateSecret, convert.ToProtoSecretUpdate(id, upd), new(emptypb.Empty))
}

// Delete removes a secret.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.invoke(ctx, grpcserver.MethodDeleteSecret, wrapperspb.String(id), new(emptypb.Empty))
}

// Activate materializes a secret.
func (c *Client) Activate(ctx context.Context, id string) error {
	return c.invoke(ctx, grpcserver.MethodActivateSecret, wrapperspb.String(id), new(emptypb.Empty))
}

// Deactivate erases a materialized secret.
func (c *Client) Deactivate(ctx context.Context, id string) error {
	return c.invoke(ctx, grpcserver.MethodDeactivateSecret, wrapperspb.String(id), new(emptypb.Empty))
}

// DeactivateAll erases every materialized secret and returns how many were flipped.
func (c *Client) DeactivateAll(ctx context.Context) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.invoke(ctx, grpcserver.MethodDeactivateAll, &emptypb.Empty{}, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// fromStatus maps gRPC status codes back to domain sentinels.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	switch st.Code() {
	case codes.FailedPrecondition:
		if msg == errs.ErrVaultNotFound.Error() {
			return errs.ErrVaultNotFound
		}
		return errs.ErrVaultLocked
	case codes.NotFound:
		return errs.ErrNotFound
	case codes.InvalidArgument:
		if msg == errs.ErrNoFilePath.Error() {
			return errs.ErrNoFilePath
		}
		return fmt.Errorf("%w: %s", errs.ErrValidation, trimSentinel(msg, errs.ErrValidation))
	case codes.AlreadyExists:
		return errs.ErrVaultExists
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", errs.ErrRateLimited, trimSentinel(msg, errs.ErrRateLimited))
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", errs.ErrUnauthorized, msg)
	case codes.DataLoss:
		return fmt.Errorf("%w: %s", errs.ErrCorrupted, msg)
	case codes.Unavailable:
		return fmt.Errorf("daemon unavailable: %s", msg)
	default:
		return err
	}
}

// trimSentinel drops a leading "<sentinel>: " that the server already put in msg.
func trimSentinel(msg string, sentinel error) string {
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}
