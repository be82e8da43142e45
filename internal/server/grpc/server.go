// Package grpc exposes the Tresorly services over gRPC. Messages are plain
// Go structs carried by a JSON codec; the service descriptor is declared by
// hand in service.go.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
	"google.golang.org/grpc"
)

// AuthOperations is implemented by *services.AuthService.
type AuthOperations interface {
	Signup(ctx context.Context, in services.SignupInput) (time.Time, error)
	VerifySignup(ctx context.Context, email, code string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyTwoFactor(ctx context.Context, email, code string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResendPasswordReset(ctx context.Context, email string) error
	VerifyPasswordReset(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	OAuthLogin(ctx context.Context, id services.OAuthIdentity) (*services.LoginResult, error)
}

// VaultOperations is implemented by *services.VaultService.
type VaultOperations interface {
	Create(ctx context.Context, owner string, in services.VaultInput) (*models.Vault, error)
	ListForOwner(ctx context.Context, owner string) ([]*models.Vault, error)
	GetByID(ctx context.Context, owner, id string) (*models.Vault, error)
	Update(ctx context.Context, owner, id string, patch services.VaultPatch) (*models.Vault, error)
	Delete(ctx context.Context, owner, id string) error
	CategoryCounts(ctx context.Context, owner string) (map[models.Category]int, error)
	RecentlyUsed(ctx context.Context, owner string, limit int) ([]*models.Vault, error)
	Favorites(ctx context.Context, owner string) ([]*models.Vault, error)
	MostRecentlyEdited(ctx context.Context, owner string, limit int) ([]*models.Vault, error)
	ToggleFavorite(ctx context.Context, owner, id string) (bool, error)
	IconURL(ctx context.Context, owner, id string) (string, error)
	ListAll(ctx context.Context, actorID string) ([]*models.Vault, error)
	WipeForUser(ctx context.Context, actorID, userID string) (int64, error)
}

// AccountOperations is implemented by *services.AccountService.
type AccountOperations interface {
	Profile(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, p services.ProfilePatch) (*models.PublicUser, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	ToggleTwoFactor(ctx context.Context, userID string) (*models.PublicUser, error)
	ToggleBiometric(ctx context.Context, userID string) (*models.PublicUser, error)
	ToggleNotification(ctx context.Context, userID string, kind models.Notification) (*models.PublicUser, error)
	DeleteAccount(ctx context.Context, userID string) error
	SetAccountStatus(ctx context.Context, actorID, userID string, status models.AccountStatus) (*models.PublicUser, error)
}

// Options holds the transport settings taken from the server config.
type Options struct {
	Address            string
	CookieSecure       bool
	OAuthGatewaySecret string
	// AuthRateLimit is the sustained requests per second allowed per peer on
	// public auth methods; zero or less disables throttling.
	AuthRateLimit float64
	AuthRateBurst int
}

type GRPCServer struct {
	opts     Options
	auth     AuthOperations
	vaults   VaultOperations
	accounts AccountOperations
	tokens   *auth.TokenService
	limiter  *peerLimiter
	logger   logging.Logger
}

var _ API = (*GRPCServer)(nil)

func NewGRPCServer(opts Options, l logging.Logger, as AuthOperations, vs VaultOperations,
	acs AccountOperations, tokens *auth.TokenService) *GRPCServer {
	return &GRPCServer{
		opts:     opts,
		auth:     as,
		vaults:   vs,
		accounts: acs,
		tokens:   tokens,
		limiter:  newPeerLimiter(opts.AuthRateLimit, opts.AuthRateBurst),
		logger:   l.With("module", "grpc_server"),
	}
}

// NewServer builds a grpc.Server with the interceptor chain and the
// Tresorly service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.rateLimitInterceptor, s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(maxMessageBytes),
	)
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// maxMessageBytes leaves room for a base64-encoded icon upload.
const maxMessageBytes = 8 << 20

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

func toVaultInput(r *VaultRequest) services.VaultInput {
	return services.VaultInput{
		Category:                r.Category,
		SiteAddress:             r.SiteAddress,
		Username:                r.Username,
		Password:                r.Password,
		SecureGeneratedPassword: r.SecureGeneratedPassword,
		Tags:                    r.Tags,
		Icon:                    r.Icon,
	}
}

func toVaultPatch(r *VaultRequest) services.VaultPatch {
	return services.VaultPatch(toVaultInput(r))
}
