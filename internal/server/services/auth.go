package services

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/dbx"
	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/notify"
	"github.com/dmitrijs2005/tresorly/internal/server/otp"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/users"
)

var (
	errInvalidCredentials = common.Unauthorized("invalid credentials")
	errInvalidToken       = common.Unauthorized("invalid token")
	errAccountInactive    = common.Forbidden("account is inactive")
	errIncorrectOTP       = common.Validation("Incorrect OTP")
	errExpiredOTP         = common.Validation("OTP has expired")
)

type SignupInput struct {
	Email    string
	Name     string
	Phone    string
	Password string
}

// OAuthIdentity is a user identity already asserted by an OAuth provider.
type OAuthIdentity struct {
	ProviderID string
	Email      string
	Name       string
}

// LoginResult is either a session (Tokens and User set) or a pending
// two-factor challenge (RequiresTwoFactor set, no tokens).
type LoginResult struct {
	Tokens            *TokenPair
	User              *models.PublicUser
	RequiresTwoFactor bool
}

// AuthService implements signup, login, token refresh, two-factor login,
// password reset and OAuth login.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenIssuer
	signups     SignupRegistry
	notifier    notify.Notifier
	otpTTL      time.Duration
	now         func() time.Time
	log         logging.Logger
}

// NewAuthService wires the orchestrator. otpTTL bounds the codes stored on
// the user row (password reset and two-factor challenges).
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenIssuer,
	signups SignupRegistry, notifier notify.Notifier, otpTTL time.Duration, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		signups:     signups,
		notifier:    notifier,
		otpTTL:      otpTTL,
		now:         time.Now,
		log:         log.With("module", "auth"),
	}
}

// Signup stores a pending account and mails its OTP. No user row is written
// until VerifySignup succeeds. It returns the OTP expiry.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (time.Time, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return time.Time{}, err
	}
	if in.Password == "" {
		return time.Time{}, common.Validation("email and password are required")
	}

	_, err = s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return time.Time{}, common.Conflict("user already exists")
	case !errors.Is(err, common.ErrorNotFound):
		return time.Time{}, wrap(err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return time.Time{}, wrap(err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.DefaultUserName
	}

	p, err := s.signups.Issue(ctx, email, otp.PendingSignup{
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	})
	if err != nil {
		return time.Time{}, wrap(err)
	}

	s.send(ctx, email, notify.PurposeSignup, p.OTP)
	return p.OTPExpiry, nil
}

// VerifySignup promotes a pending signup to a verified user.
func (s *AuthService) VerifySignup(ctx context.Context, email, code string) (*models.PublicUser, error) {
	email = users.NormalizeEmail(email)

	p, err := s.signups.Fetch(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("OTP expired or invalid request")
		}
		return nil, wrap(err)
	}
	if !codesEqual(p.OTP, code) {
		return nil, errIncorrectOTP
	}
	if otp.Expired(p.OTPExpiry, s.now()) {
		return nil, errExpiredOTP
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		Name:         p.Name,
		Phone:        p.Phone,
		PasswordHash: p.PasswordHash,
		IsVerified:   true,
		SignupDate:   s.now(),
	})
	if err != nil {
		return nil, wrap(err)
	}

	if err := s.signups.Consume(ctx, email); err != nil {
		s.log.Warn(ctx, "pending signup not consumed", "email", email, "error", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u.Public(), nil
}

// Login checks credentials. Accounts with two-factor enabled receive a
// challenge code instead of tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if err := s.hasher.DummyVerify(ctx, password); err != nil {
				return nil, wrap(err)
			}
			return nil, errInvalidCredentials
		}
		return nil, wrap(err)
	}

	ok, err := s.hasher.Verify(ctx, password, u.PasswordHash)
	if err != nil {
		return nil, wrap(err)
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	if u.AccountStatus == models.StatusInactive {
		return nil, errAccountInactive
	}

	if u.IsTwoFactor {
		if err := s.issueRowOTP(ctx, u, models.OTPTwoFactor); err != nil {
			return nil, err
		}
		return &LoginResult{RequiresTwoFactor: true}, nil
	}

	return s.startSession(ctx, u)
}

// VerifyTwoFactor completes a login challenged by Login.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, email, code string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, wrap(err)
	}
	if !u.IsTwoFactor || !hasRowOTP(u, models.OTPTwoFactor) {
		return nil, common.Validation("no pending two-factor challenge")
	}
	if err := s.checkRowOTP(u, code); err != nil {
		return nil, err
	}
	if u.AccountStatus == models.StatusInactive {
		return nil, errAccountInactive
	}

	clearRowOTP(u)
	if err := repo.Update(ctx, u); err != nil {
		return nil, wrap(err)
	}

	return s.startSession(ctx, u)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, common.Unauthorized("refresh token expired")
		}
		return nil, errInvalidToken
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errInvalidToken
		}
		return nil, wrap(err)
	}
	if u.AccountStatus == models.StatusInactive {
		return nil, errAccountInactive
	}

	return s.issuePair(u)
}

// RequestPasswordReset mails a fresh reset code, replacing any earlier one.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userForReset(ctx, email)
	if err != nil {
		return err
	}
	return s.issueRowOTP(ctx, u, models.OTPPasswordReset)
}

// ResendPasswordReset mails a new code, but only once the previous one has
// expired. A resend invalidates any earlier verification.
func (s *AuthService) ResendPasswordReset(ctx context.Context, email string) error {
	u, err := s.userForReset(ctx, email)
	if err != nil {
		return err
	}
	if hasRowOTP(u, models.OTPPasswordReset) && !otp.Expired(*u.OTPExpiry, s.now()) {
		return common.Validation("OTP is still valid")
	}
	return s.issueRowOTP(ctx, u, models.OTPPasswordReset)
}

// VerifyPasswordReset marks the outstanding reset code as verified.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, email, code string) error {
	u, err := s.userForReset(ctx, email)
	if err != nil {
		return err
	}
	if !hasRowOTP(u, models.OTPPasswordReset) {
		return common.Validation("no password reset requested")
	}
	if err := s.checkRowOTP(u, code); err != nil {
		return err
	}

	u.ResetVerified = true
	return wrap(s.repomanager.Users(s.db).Update(ctx, u))
}

// ResetPassword sets a new password once the reset code has been verified.
// The row is locked while the hash is replaced and the code and
// verification flag are cleared, so a code cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return common.Validation("password is required")
	}
	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return wrap(err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.LockByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NotFound("User not found")
			}
			return err
		}
		if !u.ResetVerified || !hasRowOTP(u, models.OTPPasswordReset) {
			return common.Forbidden("OTP not verified")
		}

		u.PasswordHash = hash
		clearRowOTP(u)
		return repo.Update(ctx, u)
	})
	if err != nil {
		return wrap(err)
	}

	s.log.Info(ctx, "password reset", "email", users.NormalizeEmail(email))
	return nil
}

// OAuthLogin signs in a provider-asserted identity, linking it to an
// existing account by e-mail or creating a verified password-less account.
func (s *AuthService) OAuthLogin(ctx context.Context, id OAuthIdentity) (*LoginResult, error) {
	if id.ProviderID == "" {
		return nil, common.Validation("provider id is required")
	}
	email, err := normalizeEmail(id.Email)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByGoogleID(ctx, id.ProviderID)
	if errors.Is(err, common.ErrorNotFound) {
		u, err = repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			u.GoogleID = id.ProviderID
			err = repo.Update(ctx, u)
		case errors.Is(err, common.ErrorNotFound):
			name := strings.TrimSpace(id.Name)
			if name == "" {
				name = models.DefaultUserName
			}
			u, err = repo.Create(ctx, &models.User{
				Email:      email,
				Name:       name,
				GoogleID:   id.ProviderID,
				IsVerified: true,
				SignupDate: s.now(),
			})
		}
	}
	if err != nil {
		return nil, wrap(err)
	}
	if u.AccountStatus == models.StatusInactive {
		return nil, errAccountInactive
	}

	return s.startSession(ctx, u)
}

func (s *AuthService) startSession(ctx context.Context, u *models.User) (*LoginResult, error) {
	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repomanager.Users(s.db).SetLastLogin(ctx, u.ID, now); err != nil {
		return nil, wrap(err)
	}
	u.LastLogin = &now

	return &LoginResult{Tokens: pair, User: u.Public()}, nil
}

func (s *AuthService) issuePair(u *models.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(u.ID, u.Email)
	if err != nil {
		return nil, common.Internal(err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID, u.Email)
	if err != nil {
		return nil, common.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) userForReset(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, wrap(err)
	}
	return u, nil
}

// issueRowOTP stores a new code for purpose on the user row and mails it.
// The new code replaces any earlier one and any reset verification.
func (s *AuthService) issueRowOTP(ctx context.Context, u *models.User, purpose models.OTPPurpose) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return common.Internal(err)
	}
	expiry := s.now().Add(s.otpTTL)

	u.OTP, u.OTPExpiry, u.OTPPurpose = code, &expiry, purpose
	u.ResetVerified = false
	if err := s.repomanager.Users(s.db).Update(ctx, u); err != nil {
		return wrap(err)
	}

	s.send(ctx, u.Email, notify.Purpose(purpose), code)
	return nil
}

// hasRowOTP reports whether u holds an outstanding code issued for purpose.
func hasRowOTP(u *models.User, purpose models.OTPPurpose) bool {
	return u.OTP != "" && u.OTPExpiry != nil && u.OTPPurpose == purpose
}

func clearRowOTP(u *models.User) {
	u.OTP, u.OTPExpiry, u.OTPPurpose = "", nil, ""
	u.ResetVerified = false
}

func (s *AuthService) checkRowOTP(u *models.User, code string) error {
	if !codesEqual(u.OTP, code) {
		return errIncorrectOTP
	}
	if otp.Expired(*u.OTPExpiry, s.now()) {
		return errExpiredOTP
	}
	return nil
}

// send delivers a code. Delivery failures are logged and otherwise ignored.
func (s *AuthService) send(ctx context.Context, email string, purpose notify.Purpose, code string) {
	if err := s.notifier.SendOTP(ctx, email, purpose, code); err != nil {
		s.log.Warn(ctx, "otp delivery failed", "email", email, "purpose", string(purpose), "error", err)
	}
}

func normalizeEmail(email string) (string, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return "", common.Validation("email and password are required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", common.Validation("invalid email address")
	}
	return email, nil
}
