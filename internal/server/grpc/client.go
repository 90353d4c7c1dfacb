package grpc

import (
	"context"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client is a thin typed client for vaultkeeper.VaultService.
type Client struct {
	conn        grpc.ClientConnInterface
	accessToken string
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// WithAccessToken returns a copy of c that authenticates its calls.
func (c *Client) WithAccessToken(token string) *Client {
	cp := *c
	cp.accessToken = token
	return &cp
}

// CallOptions are added to every call: CBOR subtype and large message limits.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{
		grpc.CallContentSubtype(codecName),
		grpc.MaxCallRecvMsgSize(maxMessageBytes),
		grpc.MaxCallSendMsgSize(maxMessageBytes),
	}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	if c.accessToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.accessToken)
	}
	out := new(Resp)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, append(CallOptions(), opts...)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &Empty{})
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c, "Register", req)
}

// Login returns the security question from the trailer when the server
// answers FailedPrecondition.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, string, error) {
	var trailer metadata.MD
	resp, err := invoke[TokenResponse](ctx, c, "Login", req, grpc.Trailer(&trailer))
	var question string
	if v := trailer.Get(ChallengeTrailer); len(v) > 0 {
		question = v[0]
	}
	return resp, question, err
}

func (c *Client) RefreshToken(ctx context.Context, token string) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c, "RefreshToken", &RefreshTokenRequest{RefreshToken: token})
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := invoke[Empty](ctx, c, "Logout", &RefreshTokenRequest{RefreshToken: token})
	return err
}

func (c *Client) ListSecrets(ctx context.Context) (*ListSecretsResponse, error) {
	return invoke[ListSecretsResponse](ctx, c, "ListSecrets", &Empty{})
}

func (c *Client) GetSecret(ctx context.Context, id string) (*Secret, error) {
	return invoke[Secret](ctx, c, "GetSecret", &IDRequest{ID: id})
}

func (c *Client) CreateSecret(ctx context.Context, in *SecretInput) (*Secret, error) {
	return invoke[Secret](ctx, c, "CreateSecret", in)
}

func (c *Client) UpdateSecret(ctx context.Context, in *SecretInput) (*Secret, error) {
	return invoke[Secret](ctx, c, "UpdateSecret", in)
}

func (c *Client) DeleteSecret(ctx context.Context, id string) error {
	_, err := invoke[Empty](ctx, c, "DeleteSecret", &IDRequest{ID: id})
	return err
}

func (c *Client) UploadFile(ctx context.Context, name string, content []byte) (*File, error) {
	return invoke[File](ctx, c, "UploadFile", &UploadFileRequest{Name: name, Content: content})
}

func (c *Client) DownloadFile(ctx context.Context, id string) (*DownloadFileResponse, error) {
	return invoke[DownloadFileResponse](ctx, c, "DownloadFile", &IDRequest{ID: id})
}

func (c *Client) ListFiles(ctx context.Context) (*ListFilesResponse, error) {
	return invoke[ListFilesResponse](ctx, c, "ListFiles", &Empty{})
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	_, err := invoke[Empty](ctx, c, "DeleteFile", &IDRequest{ID: id})
	return err
}

func (c *Client) GetProfileSummary(ctx context.Context) (*ProfileSummary, error) {
	return invoke[ProfileSummary](ctx, c, "GetProfileSummary", &Empty{})
}

func (c *Client) RecordAdView(ctx context.Context) (*AdViewResponse, error) {
	return invoke[AdViewResponse](ctx, c, "RecordAdView", &Empty{})
}
