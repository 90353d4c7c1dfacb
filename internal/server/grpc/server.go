// Package grpc exposes the vault services over gRPC. Messages are CBOR
// encoded through a registered codec and the service descriptor is written
// by hand.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/vaultkeeper/internal/logging"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/models"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/services"
	"google.golang.org/grpc"
)

// maxMessageBytes leaves room for a 50 MiB file plus message framing.
const maxMessageBytes = 80 << 20

// UserService is the account API used by the transport.
type UserService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password, answerOrPIN string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type SecretService interface {
	Create(ctx context.Context, userID string, f services.SecretFields) (*services.SecretView, error)
	Update(ctx context.Context, userID, id string, f services.SecretFields) (*services.SecretView, error)
	Get(ctx context.Context, userID, id string) (*services.SecretView, error)
	List(ctx context.Context, userID string) ([]*services.SecretView, error)
	Delete(ctx context.Context, userID, id string) error
}

type FileService interface {
	Upload(ctx context.Context, userID, name string, content []byte) (*services.FileView, error)
	Download(ctx context.Context, userID, id string) ([]byte, string, error)
	List(ctx context.Context, userID string) ([]*services.FileView, error)
	Delete(ctx context.Context, userID, id string) error
}

type QuotaService interface {
	Summary(ctx context.Context, userID string) (*services.ProfileSummary, error)
	RecordAdView(ctx context.Context, userID string) (int, int, error)
}

// Services groups the business services the server dispatches to.
type Services struct {
	Users   UserService
	Secrets SecretService
	Files   FileService
	Quota   QuotaService
}

type GRPCServer struct {
	address      string
	svc          Services
	logger       logging.Logger
	jwtSecret    []byte
	loginLimiter *fixedWindowLimiter
}

var _ VaultServer = (*GRPCServer)(nil)

// NewGRPCServer builds a server listening on address. loginsPerMinute
// caps Login calls per client address; 0 disables the limit.
func NewGRPCServer(address string, l logging.Logger, svc Services, secretKey string, loginsPerMinute int) *GRPCServer {
	s := &GRPCServer{
		address:   address,
		svc:       svc,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
	}
	if loginsPerMinute > 0 {
		s.loginLimiter = newFixedWindowLimiter(loginsPerMinute, time.Minute)
	}
	return s
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.loginRateLimitInterceptor, s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
	)
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
		if s.loginLimiter != nil {
			s.loginLimiter.Stop()
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
