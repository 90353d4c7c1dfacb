package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "vaultkeeper.VaultService"

// VaultServer is the server API of vaultkeeper.VaultService.
type VaultServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Logout(context.Context, *RefreshTokenRequest) (*Empty, error)

	ListSecrets(context.Context, *Empty) (*ListSecretsResponse, error)
	GetSecret(context.Context, *IDRequest) (*Secret, error)
	CreateSecret(context.Context, *SecretInput) (*Secret, error)
	UpdateSecret(context.Context, *SecretInput) (*Secret, error)
	DeleteSecret(context.Context, *IDRequest) (*Empty, error)

	UploadFile(context.Context, *UploadFileRequest) (*File, error)
	DownloadFile(context.Context, *IDRequest) (*DownloadFileResponse, error)
	ListFiles(context.Context, *Empty) (*ListFilesResponse, error)
	DeleteFile(context.Context, *IDRequest) (*Empty, error)

	GetProfileSummary(context.Context, *Empty) (*ProfileSummary, error)
	RecordAdView(context.Context, *Empty) (*AdViewResponse, error)
}

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary builds a MethodDesc that decodes Req, runs the interceptor chain
// and dispatches to call.
func unary[Req, Resp any](name string, call func(VaultServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(VaultServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes vaultkeeper.VaultService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", VaultServer.Ping),
		unary("Register", VaultServer.Register),
		unary("Login", VaultServer.Login),
		unary("RefreshToken", VaultServer.RefreshToken),
		unary("Logout", VaultServer.Logout),
		unary("ListSecrets", VaultServer.ListSecrets),
		unary("GetSecret", VaultServer.GetSecret),
		unary("CreateSecret", VaultServer.CreateSecret),
		unary("UpdateSecret", VaultServer.UpdateSecret),
		unary("DeleteSecret", VaultServer.DeleteSecret),
		unary("UploadFile", VaultServer.UploadFile),
		unary("DownloadFile", VaultServer.DownloadFile),
		unary("ListFiles", VaultServer.ListFiles),
		unary("DeleteFile", VaultServer.DeleteFile),
		unary("GetProfileSummary", VaultServer.GetProfileSummary),
		unary("RecordAdView", VaultServer.RecordAdView),
	},
	Streams: []grpc.StreamDesc{},
}

// publicMethods can be called without an access token.
var publicMethods = map[string]bool{
	FullMethod("Ping"):         true,
	FullMethod("Register"):     true,
	FullMethod("Login"):        true,
	FullMethod("RefreshToken"): true,
	FullMethod("Logout"):       true,
}
