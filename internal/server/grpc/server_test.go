package grpc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type testClient struct {
	conn *grpc.ClientConn
}

func (c *testClient) call(ctx context.Context, name string, req, resp any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return c.conn.Invoke(ctx, FullMethod(name), req, resp, opts...)
}

func startBufServer(t *testing.T, s *GRPCServer) *testClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return &testClient{conn: conn}
}

func bearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestServer_Ping(t *testing.T) {
	c := startBufServer(t, newTestServer(Options{}, nil, nil, nil))

	var resp StatusResponse
	require.NoError(t, c.call(context.Background(), "Ping", &Empty{}, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "OK", resp.Message)
}

func TestServer_LoginSetsCookies(t *testing.T) {
	tokens := newTestTokens()
	a := &stubAuth{
		login: func(_ context.Context, email, password string) (*services.LoginResult, error) {
			if password != "right" {
				return nil, common.Unauthorized("invalid credentials")
			}
			access, _ := tokens.IssueAccess("u1", email)
			refresh, _ := tokens.IssueRefresh("u1", email)
			return &services.LoginResult{
				Tokens: &services.TokenPair{AccessToken: access, RefreshToken: refresh},
				User:   &models.PublicUser{ID: "u1", Email: email},
			}, nil
		},
	}
	c := startBufServer(t, newTestServer(Options{}, a, nil, nil))
	ctx := context.Background()

	var header metadata.MD
	var resp LoginResponse
	require.NoError(t, c.call(ctx, "Login", &LoginRequest{Email: "a@example.com", Password: "right"}, &resp, grpc.Header(&header)))

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)

	cookies := header.Get("set-cookie")
	require.Len(t, cookies, 2)
	assert.True(t, strings.HasPrefix(cookies[0], "accessToken="+resp.AccessToken))
	assert.True(t, strings.HasPrefix(cookies[1], "refreshToken="+resp.RefreshToken))
	assert.Contains(t, cookies[0], "HttpOnly")

	err := c.call(ctx, "Login", &LoginRequest{Email: "a@example.com", Password: "wrong"}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "invalid credentials", status.Convert(err).Message())
}

func TestServer_TwoFactorChallengeSetsNoCookies(t *testing.T) {
	a := &stubAuth{
		login: func(context.Context, string, string) (*services.LoginResult, error) {
			return &services.LoginResult{RequiresTwoFactor: true}, nil
		},
	}
	c := startBufServer(t, newTestServer(Options{}, a, nil, nil))

	var header metadata.MD
	var resp LoginResponse
	require.NoError(t, c.call(context.Background(), "Login", &LoginRequest{Email: "a@example.com", Password: "pw"}, &resp, grpc.Header(&header)))
	assert.True(t, resp.RequiresTwoFactor)
	assert.Empty(t, resp.AccessToken)
	assert.Empty(t, header.Get("set-cookie"))
}

func TestServer_RefreshReadsCookie(t *testing.T) {
	var seen string
	a := &stubAuth{
		refresh: func(_ context.Context, token string) (*services.TokenPair, error) {
			seen = token
			return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	c := startBufServer(t, newTestServer(Options{}, a, nil, nil))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "cookie", "refreshToken=r1")
	var resp TokenResponse
	require.NoError(t, c.call(ctx, "Refresh", &RefreshRequest{}, &resp))
	assert.Equal(t, "r1", seen)
	assert.Equal(t, "a2", resp.AccessToken)

	err := c.call(context.Background(), "Refresh", &RefreshRequest{}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_LogoutExpiresCookies(t *testing.T) {
	c := startBufServer(t, newTestServer(Options{}, nil, nil, nil))

	var header metadata.MD
	var resp StatusResponse
	require.NoError(t, c.call(context.Background(), "Logout", &Empty{}, &resp, grpc.Header(&header)))

	cookies := header.Get("set-cookie")
	require.Len(t, cookies, 2)
	for _, line := range cookies {
		assert.Contains(t, line, "Max-Age=0")
	}
}

func TestServer_VaultRequiresToken(t *testing.T) {
	var owner string
	v := &stubVaults{
		create: func(_ context.Context, o string, in services.VaultInput) (*models.Vault, error) {
			owner = o
			return &models.Vault{ID: "v1", UserID: o, Category: models.Category(in.Category), SiteAddress: in.SiteAddress}, nil
		},
		getByID: func(context.Context, string, string) (*models.Vault, error) {
			return nil, common.Forbidden("vault belongs to another user")
		},
		counts: func(context.Context, string) (map[models.Category]int, error) {
			return map[models.Category]int{models.CategoryBrowser: 2, models.CategoryMobile: 0, models.CategoryOther: 1}, nil
		},
	}
	s := newTestServer(Options{}, nil, v, nil)
	c := startBufServer(t, s)
	ctx := context.Background()

	req := &VaultRequest{Category: "browser", SiteAddress: "example.com", Username: "u", Password: "Passw0rd!"}
	var resp VaultResponse

	err := c.call(ctx, "CreateVault", req, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	access, err := s.tokens.IssueAccess("u1", "u1@example.com")
	require.NoError(t, err)

	require.NoError(t, c.call(bearer(ctx, access), "CreateVault", req, &resp))
	assert.Equal(t, "u1", owner)
	assert.Equal(t, "v1", resp.Vault.ID)
	assert.Equal(t, models.CategoryBrowser, resp.Vault.Category)

	err = c.call(bearer(ctx, access), "GetVault", &VaultIDRequest{ID: "v9"}, &resp)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, "vault belongs to another user", status.Convert(err).Message())

	var counts CategoryCountsResponse
	require.NoError(t, c.call(bearer(ctx, access), "CategoryCounts", &Empty{}, &counts))
	assert.Equal(t, 2, counts.Counts[models.CategoryBrowser])
	assert.Len(t, counts.Counts, 3)
}

func TestServer_InternalErrorsAreOpaque(t *testing.T) {
	acc := &stubAccounts{
		profile: func(context.Context, string) (*models.PublicUser, error) {
			return nil, common.Internal(assert.AnError)
		},
	}
	s := newTestServer(Options{}, nil, nil, acc)
	c := startBufServer(t, s)

	access, err := s.tokens.IssueAccess("u1", "u1@example.com")
	require.NoError(t, err)

	var resp UserResponse
	err = c.call(bearer(context.Background(), access), "Profile", &Empty{}, &resp)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestServer_OAuthLoginNeedsGatewaySecret(t *testing.T) {
	var got services.OAuthIdentity
	a := &stubAuth{
		oauthLogin: func(_ context.Context, id services.OAuthIdentity) (*services.LoginResult, error) {
			got = id
			return &services.LoginResult{
				Tokens: &services.TokenPair{AccessToken: "a", RefreshToken: "r"},
				User:   &models.PublicUser{ID: "u1", Email: id.Email},
			}, nil
		},
	}
	req := &OAuthLoginRequest{ProviderID: "g-1", Email: "a@example.com"}
	ctx := context.Background()
	var resp LoginResponse

	disabled := startBufServer(t, newTestServer(Options{}, a, nil, nil))
	err := disabled.call(metadata.AppendToOutgoingContext(ctx, GatewaySecretHeader, ""), "OAuthLogin", req, &resp)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	c := startBufServer(t, newTestServer(Options{OAuthGatewaySecret: "s3"}, a, nil, nil))

	err = c.call(ctx, "OAuthLogin", req, &resp)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = c.call(metadata.AppendToOutgoingContext(ctx, GatewaySecretHeader, "nope"), "OAuthLogin", req, &resp)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	require.NoError(t, c.call(metadata.AppendToOutgoingContext(ctx, GatewaySecretHeader, "s3"), "OAuthLogin", req, &resp))
	assert.Equal(t, "g-1", got.ProviderID)
	assert.Equal(t, "a", resp.AccessToken)
}

func TestServer_SignupThrottled(t *testing.T) {
	a := &stubAuth{
		signup: func(context.Context, services.SignupInput) (time.Time, error) {
			return time.Now().Add(time.Minute), nil
		},
	}
	c := startBufServer(t, newTestServer(Options{AuthRateLimit: 0.001, AuthRateBurst: 1}, a, nil, nil))
	ctx := context.Background()
	req := &SignupRequest{Email: "a@example.com", Password: "pw"}

	var resp SignupResponse
	require.NoError(t, c.call(ctx, "Signup", req, &resp))
	assert.False(t, resp.OTPExpiry.IsZero())

	err := c.call(ctx, "Signup", req, &resp)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}
