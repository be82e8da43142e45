// Package users persists account records in PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/dbx"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, phone, name, password_hash, google_id, is_verified, otp, otp_expiry,
		role, account_status, is_two_factor, is_biometric, security_alert_notification,
		regular_updates_notification, promotion_notification, email_notification,
		language, currency, last_login, signup_date, reset_token, reset_token_expiry,
		otp_purpose, reset_verified`

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, phone, name, password_hash, google_id, is_verified, role,
		 account_status, language, currency, signup_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`

	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.AccountStatus == "" {
		u.AccountStatus = models.StatusActive
	}
	if u.Language == "" {
		u.Language = models.DefaultLanguage
	}
	if u.Currency == "" {
		u.Currency = models.DefaultCurrency
	}
	if u.SignupDate.IsZero() {
		u.SignupDate = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query,
		u.Email, nullString(u.Phone), nullString(u.Name), u.PasswordHash, nullString(u.GoogleID),
		u.IsVerified, string(u.Role), string(u.AccountStatus), u.Language, u.Currency, u.SignupDate,
	).Scan(&u.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, common.Conflict("user already exists")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email))
}

func (r *PostgresRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

func (r *PostgresRepository) LockByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, NormalizeEmail(email))
}

// Update writes every mutable column of u. Email and signup date never change.
func (r *PostgresRepository) Update(ctx context.Context, u *models.User) error {
	query :=
		`UPDATE users SET phone = $2, name = $3, password_hash = $4, google_id = $5,
		 is_verified = $6, otp = $7, otp_expiry = $8, role = $9, account_status = $10,
		 is_two_factor = $11, is_biometric = $12, security_alert_notification = $13,
		 regular_updates_notification = $14, promotion_notification = $15,
		 email_notification = $16, language = $17, currency = $18,
		 reset_token = $19, reset_token_expiry = $20,
		 otp_purpose = $21, reset_verified = $22
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		u.ID, nullString(u.Phone), nullString(u.Name), u.PasswordHash, nullString(u.GoogleID),
		u.IsVerified, nullString(u.OTP), u.OTPExpiry, string(u.Role), string(u.AccountStatus),
		u.IsTwoFactor, u.IsBiometric, u.SecurityAlerts,
		u.RegularUpdates, u.Promotions,
		u.EmailNotifications, u.Language, u.Currency,
		nullString(u.ResetToken), u.ResetTokenExpiry,
		nullString(string(u.OTPPurpose)), u.ResetVerified,
	)
	if err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return common.Conflict("user already exists")
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u                                      models.User
		phone, name, googleID, otp, resetToken sql.NullString
		purpose                                sql.NullString
		otpExpiry, lastLogin, resetExpiry      sql.NullTime
		role, status                           string
	)

	err := row.Scan(
		&u.ID, &u.Email, &phone, &name, &u.PasswordHash, &googleID, &u.IsVerified, &otp, &otpExpiry,
		&role, &status, &u.IsTwoFactor, &u.IsBiometric, &u.SecurityAlerts,
		&u.RegularUpdates, &u.Promotions, &u.EmailNotifications,
		&u.Language, &u.Currency, &lastLogin, &u.SignupDate, &resetToken, &resetExpiry,
		&purpose, &u.ResetVerified,
	)
	if err != nil {
		return nil, err
	}

	u.Phone, u.Name, u.GoogleID = phone.String, name.String, googleID.String
	u.OTP, u.ResetToken = otp.String, resetToken.String
	u.OTPPurpose = models.OTPPurpose(purpose.String)
	u.OTPExpiry, u.LastLogin, u.ResetTokenExpiry = timePtr(otpExpiry), timePtr(lastLogin), timePtr(resetExpiry)
	u.Role, u.AccountStatus = models.Role(role), models.AccountStatus(status)

	return &u, nil
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
