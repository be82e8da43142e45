package grpc

import (
	"time"

	"github.com/dmitrijs2005/tresorly/internal/server/blob"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
)

// Status is embedded in every response.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func success(message string) Status {
	return Status{Success: true, Message: message}
}

type Empty struct{}

type StatusResponse struct {
	Status
}

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Status
	OTPExpiry time.Time `json:"otp_expiry"`
}

type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

type OAuthLoginRequest struct {
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
}

// LoginResponse carries either a session or a two-factor challenge. Tokens
// are also set as cookies.
type LoginResponse struct {
	Status
	RequiresTwoFactor bool               `json:"requires_two_factor,omitempty"`
	AccessToken       string             `json:"access_token,omitempty"`
	RefreshToken      string             `json:"refresh_token,omitempty"`
	User              *models.PublicUser `json:"user,omitempty"`
}

// RefreshRequest may leave RefreshToken empty when the token travels in the
// refreshToken cookie or the authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type TokenResponse struct {
	Status
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	Status
	User *models.PublicUser `json:"user"`
}

type VaultRequest struct {
	Category                string       `json:"vault_category"`
	SiteAddress             string       `json:"vault_site_address"`
	Username                string       `json:"vault_username"`
	Password                string       `json:"password"`
	SecureGeneratedPassword string       `json:"secure_generated_password,omitempty"`
	Tags                    []string     `json:"tags,omitempty"`
	Icon                    *blob.Upload `json:"icon,omitempty"`
}

type UpdateVaultRequest struct {
	ID string `json:"id"`
	VaultRequest
}

type VaultIDRequest struct {
	ID string `json:"id"`
}

type LimitRequest struct {
	Limit int `json:"limit,omitempty"`
}

type VaultResponse struct {
	Status
	Vault *models.Vault `json:"vault"`
}

type VaultListResponse struct {
	Status
	Vaults []*models.Vault `json:"vaults"`
}

type CategoryCountsResponse struct {
	Status
	Counts map[models.Category]int `json:"counts"`
}

type FavoriteResponse struct {
	Status
	IsLiked bool `json:"is_liked"`
}

type IconURLResponse struct {
	Status
	URL string `json:"url"`
}

type ProfileRequest struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Language string `json:"language,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type NotificationRequest struct {
	Kind models.Notification `json:"kind"`
}

type UserIDRequest struct {
	UserID string `json:"user_id"`
}

type AccountStatusRequest struct {
	UserID string               `json:"user_id"`
	Status models.AccountStatus `json:"account_status"`
}

type WipeResponse struct {
	Status
	Deleted int64 `json:"deleted"`
}
