package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
)

const (
	testAccessSecret  = "access"
	testRefreshSecret = "refresh"
)

// Embedded interfaces are nil: calling a method a test did not stub panics.

type stubAuth struct {
	AuthOperations
	login      func(ctx context.Context, email, password string) (*services.LoginResult, error)
	refresh    func(ctx context.Context, token string) (*services.TokenPair, error)
	oauthLogin func(ctx context.Context, id services.OAuthIdentity) (*services.LoginResult, error)
	signup     func(ctx context.Context, in services.SignupInput) (time.Time, error)
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return s.login(ctx, email, password)
}

func (s *stubAuth) Refresh(ctx context.Context, token string) (*services.TokenPair, error) {
	return s.refresh(ctx, token)
}

func (s *stubAuth) OAuthLogin(ctx context.Context, id services.OAuthIdentity) (*services.LoginResult, error) {
	return s.oauthLogin(ctx, id)
}

func (s *stubAuth) Signup(ctx context.Context, in services.SignupInput) (time.Time, error) {
	return s.signup(ctx, in)
}

type stubVaults struct {
	VaultOperations
	create  func(ctx context.Context, owner string, in services.VaultInput) (*models.Vault, error)
	getByID func(ctx context.Context, owner, id string) (*models.Vault, error)
	counts  func(ctx context.Context, owner string) (map[models.Category]int, error)
}

func (s *stubVaults) Create(ctx context.Context, owner string, in services.VaultInput) (*models.Vault, error) {
	return s.create(ctx, owner, in)
}

func (s *stubVaults) GetByID(ctx context.Context, owner, id string) (*models.Vault, error) {
	return s.getByID(ctx, owner, id)
}

func (s *stubVaults) CategoryCounts(ctx context.Context, owner string) (map[models.Category]int, error) {
	return s.counts(ctx, owner)
}

type stubAccounts struct {
	AccountOperations
	profile func(ctx context.Context, userID string) (*models.PublicUser, error)
}

func (s *stubAccounts) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	return s.profile(ctx, userID)
}

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService(testAccessSecret, testRefreshSecret, time.Hour, 2*time.Hour)
}

func newTestServer(opts Options, a AuthOperations, v VaultOperations, acc AccountOperations) *GRPCServer {
	return NewGRPCServer(opts, logging.Discard(), a, v, acc, newTestTokens())
}
