package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userCols = []string{
	"id", "email", "phone", "name", "password_hash", "google_id", "is_verified", "otp", "otp_expiry",
	"role", "account_status", "is_two_factor", "is_biometric", "security_alert_notification",
	"regular_updates_notification", "promotion_notification", "email_notification",
	"language", "currency", "last_login", "signup_date", "reset_token", "reset_token_expiry",
	"otp_purpose", "reset_verified",
}

func userRow(id, email string, otp any, otpExpiry any) []driver.Value {
	signup := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{
		id, email, nil, "Alice", "$2a$hash", nil, true, otp, otpExpiry,
		"user", "active", false, false, true,
		false, false, true,
		"English", "US", nil, signup, nil, nil,
		purposeOf(otp), false,
	}
}

func purposeOf(otp any) any {
	if otp == nil {
		return nil
	}
	return string(models.OTPPasswordReset)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,.*\)\s*VALUES\s*\(\$1,.*\$11\)\s*RETURNING\s+id$`
	signup := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q).
		WithArgs("alice@example.com", nil, "Alice", "hash", nil, true, "user", "active", "English", "US", signup).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))

	u := &models.User{Email: " Alice@Example.com", Name: "Alice", PasswordHash: "hash", IsVerified: true, SignupDate: signup}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "u-1" || got.Email != "alice@example.com" || got.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.com"})
	if !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expiry := time.Date(2024, 1, 2, 3, 5, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(userRow("u-1", "alice@example.com", "1234", expiry)...))

	got, err := repo.GetByEmail(context.Background(), "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.Name != "Alice" || got.Phone != "" || got.OTP != "1234" || got.OTPPurpose != models.OTPPasswordReset {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.OTPExpiry == nil || !got.OTPExpiry.Equal(expiry) {
		t.Fatalf("unexpected otp expiry: %v", got.OTPExpiry)
	}
	if got.LastLogin != nil || got.ResetTokenExpiry != nil {
		t.Fatalf("expected nil timestamps, got %+v", got)
	}
	if got.AccountStatus != models.StatusActive || !got.SecurityAlerts || !got.EmailNotifications {
		t.Fatalf("unexpected flags: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetByGoogleID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+google_id\s*=\s*\$1`).
		WithArgs("g-1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(userRow("u-2", "g@x.io", nil, nil)...))

	got, err := repo.GetByGoogleID(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("GetByGoogleID error: %v", err)
	}
	if got.ID != "u-2" || got.OTP != "" || got.OTPExpiry != nil || got.OTPPurpose != "" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestLockByEmail_UsesRowLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+email\s*=\s*\$1\s+FOR\s+UPDATE$`).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(userRow("u-3", "a@b.com", nil, nil)...))

	if _, err := repo.LockByEmail(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("LockByEmail error: %v", err)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+phone\s*=\s*\$2,.*WHERE\s+id\s*=\s*\$1$`).
		WithArgs("u-1", "+100", nil, "hash", nil, false, nil, nil, "user", "inactive",
			true, false, false, false, false, false, "English", "US", nil, nil,
			"two_factor", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{
		ID: "u-1", Phone: "+100", PasswordHash: "hash", Role: models.RoleUser,
		AccountStatus: models.StatusInactive, IsTwoFactor: true, Language: "English", Currency: "US",
		OTPPurpose: models.OTPTwoFactor,
	}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdate_NoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), &models.User{ID: "gone"}); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSetLastLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+last_login\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetLastLogin(context.Background(), "u-1", at); err != nil {
		t.Fatalf("SetLastLogin error: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+users`).
		WithArgs("u-1").
		WillReturnError(errors.New("boom"))

	if err := repo.Delete(context.Background(), "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), "u-1"); err == nil {
		t.Fatal("expected error")
	}
}
