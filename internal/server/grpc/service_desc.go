package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name of the vault daemon.
const ServiceName = "localvault.v1.Vault"

// Method names.
const (
	MethodStatus           = "Status"
	MethodCreate           = "Create"
	MethodLogin            = "Login"
	MethodRecover          = "Recover"
	MethodLock             = "Lock"
	MethodDestroy          = "Destroy"
	MethodListSecrets      = "ListSecrets"
	MethodAddSecret        = "AddSecret"
	MethodUpdateSecret     = "UpdateSecret"
	MethodDeleteSecret     = "DeleteSecret"
	MethodActivateSecret   = "ActivateSecret"
	MethodDeactivateSecret = "DeactivateSecret"
	MethodDeactivateAll    = "DeactivateAll"
)

// publicMethods are callable without a session token.
var publicMethods = map[string]bool{
	FullMethod(MethodStatus):  true,
	FullMethod(MethodCreate):  true,
	FullMethod(MethodLogin):   true,
	FullMethod(MethodRecover): true,
	FullMethod(MethodLock):    true,
}

// FullMethod returns "/localvault.v1.Vault/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// RequiresAuth reports whether fullMethod is a vault method guarded by a bearer token.
// Methods of other services (health) are not guarded.
func RequiresAuth(fullMethod string) bool {
	prefix := "/" + ServiceName + "/"
	if len(fullMethod) <= len(prefix) || fullMethod[:len(prefix)] != prefix {
		return false
	}
	return !publicMethods[fullMethod]
}

// VaultServer is the server API of the vault daemon.
type VaultServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Create(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Login(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Recover(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Lock(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Destroy(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ListSecrets(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	AddSecret(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	UpdateSecret(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	DeleteSecret(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ActivateSecret(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	DeactivateSecret(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	DeactivateAll(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
}

// ServiceDesc describes the vault service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodStatus, VaultServer.Status),
		unary(MethodCreate, VaultServer.Create),
		unary(MethodLogin, VaultServer.Login),
		unary(MethodRecover, VaultServer.Recover),
		unary(MethodLock, VaultServer.Lock),
		unary(MethodDestroy, VaultServer.Destroy),
		unary(MethodListSecrets, VaultServer.ListSecrets),
		unary(MethodAddSecret, VaultServer.AddSecret),
		unary(MethodUpdateSecret, VaultServer.UpdateSecret),
		unary(MethodDeleteSecret, VaultServer.DeleteSecret),
		unary(MethodActivateSecret, VaultServer.ActivateSecret),
		unary(MethodDeactivateSecret, VaultServer.DeactivateSecret),
		unary(MethodDeactivateAll, VaultServer.DeactivateAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "localvault/v1/vault.proto",
}

// RegisterVaultServer registers srv on s.
func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds a method descriptor whose request type is inferred from call.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](name string, call func(VaultServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(VaultServer), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
