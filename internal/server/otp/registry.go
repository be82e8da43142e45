package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
)

const (
	codeMin = 1000
	codeMax = 9999

	signupKeyPrefix = "signup:"
)

// PendingSignup is a candidate account waiting for its e-mail OTP.
type PendingSignup struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"password_hash"`
	OTP          string    `json:"otp"`
	OTPExpiry    time.Time `json:"otp_expiry"`
	SignupDate   time.Time `json:"signup_date"`
}

// Registry stores pending signups keyed by e-mail. Records outlive their OTP
// by a grace period so late verifications can be told apart from unknown ones.
type Registry struct {
	cache Cache
	ttl   time.Duration
	grace time.Duration
	now   func() time.Time
}

func NewRegistry(cache Cache, ttl, grace time.Duration) *Registry {
	return &Registry{cache: cache, ttl: ttl, grace: grace, now: time.Now}
}

// TTL is the validity window of a signup OTP.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Issue stamps p with a fresh code and expiry and stores it, replacing any
// record already held for email.
func (r *Registry) Issue(ctx context.Context, email string, p PendingSignup) (*PendingSignup, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := r.now()
	p.Email = email
	p.OTP = code
	p.OTPExpiry = now.Add(r.ttl)
	if p.SignupDate.IsZero() {
		p.SignupDate = now
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode pending signup: %w", err)
	}
	if err := r.cache.Set(ctx, signupKey(email), b, r.ttl+r.grace); err != nil {
		return nil, err
	}
	return &p, nil
}

// Fetch returns the pending record for email or common.ErrorNotFound.
func (r *Registry) Fetch(ctx context.Context, email string) (*PendingSignup, error) {
	b, err := r.cache.Get(ctx, signupKey(email))
	if err != nil {
		return nil, err
	}

	var p PendingSignup
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode pending signup: %w", err)
	}
	return &p, nil
}

// Consume drops the pending record for email.
func (r *Registry) Consume(ctx context.Context, email string) error {
	return r.cache.Delete(ctx, signupKey(email))
}

func signupKey(email string) string {
	return signupKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// GenerateCode returns a 4-digit code drawn uniformly from [1000, 9999].
func GenerateCode() (string, error) {
	n, err := common.RandomIntInRange(codeMin, codeMax)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

// Expired reports whether a code with the given expiry is stale at now.
// A check made exactly at the expiry instant still passes.
func Expired(expiry, now time.Time) bool {
	return now.After(expiry)
}
