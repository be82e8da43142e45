package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/users"
)

// ProfilePatch carries profile changes. Empty fields are left unchanged.
type ProfilePatch struct {
	Name     string
	Phone    string
	Language string
	Currency string
}

// AccountService covers the signed-in user's profile and settings plus the
// admin account-status switch.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	log         logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, log logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "account"),
	}
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	u, err := s.load(ctx, s.repomanager.Users(s.db), userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, p ProfilePatch) (*models.PublicUser, error) {
	return s.mutate(ctx, userID, func(u *models.User) error {
		if v := strings.TrimSpace(p.Name); v != "" {
			u.Name = v
		}
		if v := strings.TrimSpace(p.Phone); v != "" {
			u.Phone = v
		}
		if v := strings.TrimSpace(p.Language); v != "" {
			u.Language = v
		}
		if v := strings.TrimSpace(p.Currency); v != "" {
			u.Currency = v
		}
		return nil
	})
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return common.Validation("new password is required")
	}

	repo := s.repomanager.Users(s.db)
	u, err := s.load(ctx, repo, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, oldPassword, u.PasswordHash)
	if err != nil {
		return wrap(err)
	}
	if !ok {
		return common.Validation("incorrect current password")
	}

	if u.PasswordHash, err = s.hasher.Hash(ctx, newPassword); err != nil {
		return wrap(err)
	}
	if err := repo.Update(ctx, u); err != nil {
		return wrap(err)
	}

	s.log.Info(ctx, "password changed", "user_id", u.ID)
	return nil
}

// ToggleTwoFactor flips two-factor login. A pending login challenge is
// dropped; an outstanding password reset is left alone.
func (s *AccountService) ToggleTwoFactor(ctx context.Context, userID string) (*models.PublicUser, error) {
	return s.mutate(ctx, userID, func(u *models.User) error {
		u.IsTwoFactor = !u.IsTwoFactor
		if u.OTPPurpose == models.OTPTwoFactor {
			clearRowOTP(u)
		}
		return nil
	})
}

func (s *AccountService) ToggleBiometric(ctx context.Context, userID string) (*models.PublicUser, error) {
	return s.mutate(ctx, userID, func(u *models.User) error {
		u.IsBiometric = !u.IsBiometric
		return nil
	})
}

// ToggleNotification flips one notification preference.
func (s *AccountService) ToggleNotification(ctx context.Context, userID string, kind models.Notification) (*models.PublicUser, error) {
	var flag func(u *models.User) *bool
	switch kind {
	case models.NotificationSecurity:
		flag = func(u *models.User) *bool { return &u.SecurityAlerts }
	case models.NotificationRegular:
		flag = func(u *models.User) *bool { return &u.RegularUpdates }
	case models.NotificationPromotion:
		flag = func(u *models.User) *bool { return &u.Promotions }
	case models.NotificationEmail:
		flag = func(u *models.User) *bool { return &u.EmailNotifications }
	default:
		return nil, common.Validation("notification must be one of security, regular, promotion, email")
	}

	return s.mutate(ctx, userID, func(u *models.User) error {
		p := flag(u)
		*p = !*p
		return nil
	})
}

// DeleteAccount removes the user row. Vault entries are left in place.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("User not found")
		}
		return wrap(err)
	}
	s.log.Info(ctx, "account deleted", "user_id", userID)
	return nil
}

// SetAccountStatus activates or deactivates userID. Admin only; an admin
// cannot change their own status.
func (s *AccountService) SetAccountStatus(ctx context.Context, actorID, userID string, status models.AccountStatus) (*models.PublicUser, error) {
	if !status.Valid() {
		return nil, common.Validation("account_status must be one of active, inactive")
	}

	repo := s.repomanager.Users(s.db)
	actor, err := requireAdmin(ctx, repo, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID == userID {
		return nil, common.Forbidden("cannot change own account status")
	}

	u, err := s.load(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	u.AccountStatus = status
	if err := repo.Update(ctx, u); err != nil {
		return nil, wrap(err)
	}

	s.log.Info(ctx, "account status changed", "actor_id", actor.ID, "user_id", u.ID, "status", string(status))
	return u.Public(), nil
}

func (s *AccountService) mutate(ctx context.Context, userID string, fn func(u *models.User) error) (*models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)
	u, err := s.load(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, u); err != nil {
		return nil, wrap(err)
	}
	return u.Public(), nil
}

func (s *AccountService) load(ctx context.Context, repo users.Repository, userID string) (*models.User, error) {
	userID, ok := parseID(userID)
	if !ok {
		return nil, common.NotFound("User not found")
	}
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, wrap(err)
	}
	return u, nil
}
