// Package models defines server-side data models persisted in the database.
package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
)

func (s AccountStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Notification names a per-user notification preference.
type Notification string

const (
	NotificationSecurity  Notification = "security"
	NotificationRegular   Notification = "regular"
	NotificationPromotion Notification = "promotion"
	NotificationEmail     Notification = "email"
)

const (
	DefaultUserName = "Tresorly User"
	DefaultLanguage = "English"
	DefaultCurrency = "US"
)

// OTPPurpose tags the code held on a user row.
type OTPPurpose string

const (
	OTPPasswordReset OTPPurpose = "password_reset"
	OTPTwoFactor     OTPPurpose = "two_factor"
)

// User is an account record. PasswordHash is empty for OAuth-only accounts.
// OTP and OTPExpiry hold the single outstanding code, and OTPPurpose says
// whether it answers a password reset or a two-factor login challenge.
// IsVerified is the signup verification flag; ResetVerified is only set
// once a password reset code has been confirmed.
type User struct {
	ID           string
	Email        string
	Phone        string
	Name         string
	PasswordHash string
	GoogleID     string

	IsVerified    bool
	OTP           string
	OTPExpiry     *time.Time
	OTPPurpose    OTPPurpose
	ResetVerified bool

	Role          Role
	AccountStatus AccountStatus

	IsTwoFactor        bool
	IsBiometric        bool
	SecurityAlerts     bool
	RegularUpdates     bool
	Promotions         bool
	EmailNotifications bool

	Language string
	Currency string

	LastLogin  *time.Time
	SignupDate time.Time

	ResetToken       string
	ResetTokenExpiry *time.Time
}

// PublicUser is the caller-visible view of a User: no password hash, codes
// or reset tokens.
type PublicUser struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone,omitempty"`
	Name               string     `json:"name,omitempty"`
	IsVerified         bool       `json:"is_verified"`
	Role               Role       `json:"role"`
	AccountStatus      string     `json:"account_status"`
	IsTwoFactor        bool       `json:"is_two_factor"`
	IsBiometric        bool       `json:"is_biometric"`
	SecurityAlerts     bool       `json:"security_alert_notification"`
	RegularUpdates     bool       `json:"regular_updates_notification"`
	Promotions         bool       `json:"promotion_notification"`
	EmailNotifications bool       `json:"email_notification"`
	Language           string     `json:"language"`
	Currency           string     `json:"currency"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	SignupDate         time.Time  `json:"signup_date"`
}

// Public strips secrets from u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:                 u.ID,
		Email:              u.Email,
		Phone:              u.Phone,
		Name:               u.Name,
		IsVerified:         u.IsVerified,
		Role:               u.Role,
		AccountStatus:      string(u.AccountStatus),
		IsTwoFactor:        u.IsTwoFactor,
		IsBiometric:        u.IsBiometric,
		SecurityAlerts:     u.SecurityAlerts,
		RegularUpdates:     u.RegularUpdates,
		Promotions:         u.Promotions,
		EmailNotifications: u.EmailNotifications,
		Language:           u.Language,
		Currency:           u.Currency,
		LastLogin:          u.LastLogin,
		SignupDate:         u.SignupDate,
	}
}
