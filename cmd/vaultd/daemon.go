package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/and161185/localvault/internal/config"
	"github.com/and161185/localvault/internal/limiter"
	"github.com/and161185/localvault/internal/repository/sqlcipher"
	grpcserver "github.com/and161185/localvault/internal/server/grpc"
	"github.com/and161185/localvault/internal/service"
)

const shutdownTimeout = 5 * time.Second

// run serves until ctx is cancelled, then stops the server and locks the vault.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store := sqlcipher.New(cfg.Vault.Dir, log)
	lim := limiter.NewMemory(cfg.Vault.Window, cfg.Vault.MaxFailures, cfg.Vault.Lockout)

	authSvc := service.NewAuthService(store, service.NewSession(), lim, log,
		service.AuthOptions{IdleTimeout: cfg.Vault.IdleTimeout})
	secretSvc := service.NewSecretService(store, log)

	tokens, err := grpcserver.NewTokenIssuer(cfg.Server.TokenTTL)
	if err != nil {
		return err
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(log),
			grpcserver.LoggingUnary(log),
			grpcserver.AuthUnary(tokens, authSvc.Touch),
		),
	)
	grpcserver.RegisterVaultServer(s, grpcserver.New(authSvc, secretSvc, tokens, log))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := listenUnix(cfg.Server.Socket)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(cfg.Server.Socket) }()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("socket", cfg.Server.Socket))
		errCh <- s.Serve(lis)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			s.Stop()
		}
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
	}

	if err := authSvc.LockVault(context.Background()); err != nil {
		log.Error("lock on shutdown", zap.Error(err))
		serveErr = errors.Join(serveErr, err)
	}
	log.Info("shutdown complete")
	return serveErr
}

// listenUnix removes a stale socket file and listens with owner-only permissions.
// A live daemon on the same socket is an error.
func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&fs.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", path)
		}
		if c, err := net.DialTimeout("unix", path, time.Second); err == nil {
			_ = c.Close()
			return nil, fmt.Errorf("another daemon is listening on %s", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	lis, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = lis.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return lis, nil
}
