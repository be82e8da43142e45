// Package services contains server-side business logic: the vault pipeline
// (VaultService), signup/login/reset flows (AuthService) and profile and
// administration operations (AccountService). Services return *common.Error
// values; anything untagged is wrapped as internal before leaving.
package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/otp"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/users"
	"github.com/google/uuid"
)

// PasswordHasher is implemented by *cryptox.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
	DummyVerify(ctx context.Context, plain string) error
}

// SecurityAnalyzer is implemented by *breach.Analyzer.
type SecurityAnalyzer interface {
	Analyze(ctx context.Context, password string) breach.Report
}

// TokenIssuer is implemented by *auth.TokenService.
type TokenIssuer interface {
	IssueAccess(userID, email string) (string, error)
	IssueRefresh(userID, email string) (string, error)
	VerifyRefresh(token string) (*auth.Claims, error)
}

// SignupRegistry is implemented by *otp.Registry.
type SignupRegistry interface {
	Issue(ctx context.Context, email string, p otp.PendingSignup) (*otp.PendingSignup, error)
	Fetch(ctx context.Context, email string) (*otp.PendingSignup, error)
	Consume(ctx context.Context, email string) error
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// wrap tags unexpected errors as internal, keeping tagged ones as they are.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var e *common.Error
	if errors.As(err, &e) {
		return err
	}
	return common.Internal(err)
}

// parseID returns the canonical form of a caller-supplied row id. Row ids
// are UUIDs; anything else cannot name a row.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requireAdmin loads actorID and fails with Forbidden unless it is an admin.
func requireAdmin(ctx context.Context, repo users.Repository, actorID string) (*models.User, error) {
	actor, err := repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized("invalid token")
		}
		return nil, wrap(err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, common.Forbidden("admin access required")
	}
	return actor, nil
}
