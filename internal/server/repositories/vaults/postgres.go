// Package vaults persists credential records in PostgreSQL.
package vaults

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

const vaultColumns = `id, user_id, vault_category, vault_site_address, vault_username, password,
		secure_generated_password, tags, icon, is_liked, password_strength, health_score,
		password_breach, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vault) (*models.Vault, error) {
	query :=
		`INSERT INTO vaults (user_id, vault_category, vault_site_address, vault_username, password,
		 secure_generated_password, tags, icon, is_liked, password_strength, health_score, password_breach)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`

	tags, err := encodeTags(v.Tags)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, query,
		v.UserID, string(v.Category), v.SiteAddress, v.Username, v.Password,
		v.SecureGeneratedPassword, tags, v.Icon, v.IsLiked, v.Strength, v.HealthScore, v.Breach,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Vault, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE id = $1`, id)
	v, err := scanVault(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Vault, error) {
	return r.list(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Vault, error) {
	return r.list(ctx, `SELECT `+vaultColumns+` FROM vaults ORDER BY created_at DESC`)
}

func (r *PostgresRepository) Update(ctx context.Context, v *models.Vault) error {
	query :=
		`UPDATE vaults SET vault_category = $2, vault_site_address = $3, vault_username = $4,
		 password = $5, secure_generated_password = $6, tags = $7, icon = $8,
		 password_strength = $9, health_score = $10, password_breach = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`

	tags, err := encodeTags(v.Tags)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		v.ID, string(v.Category), v.SiteAddress, v.Username,
		v.Password, v.SecureGeneratedPassword, tags, v.Icon,
		v.Strength, v.HealthScore, v.Breach,
	).Scan(&v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vaults WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vaults WHERE user_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// CountByCategory returns the number of vaults per category. Categories
// without vaults are absent from the result.
func (r *PostgresRepository) CountByCategory(ctx context.Context, ownerID string) (map[models.Category]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT vault_category, COUNT(*) FROM vaults WHERE user_id = $1 GROUP BY vault_category`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var (
			c string
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[models.Category(c)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) RecentlyUsed(ctx context.Context, ownerID string, limit int) ([]*models.Vault, error) {
	return r.list(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2`,
		ownerID, limit)
}

func (r *PostgresRepository) Favorites(ctx context.Context, ownerID string) ([]*models.Vault, error) {
	return r.list(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE user_id = $1 AND is_liked ORDER BY updated_at DESC`,
		ownerID)
}

func (r *PostgresRepository) MostRecentlyEdited(ctx context.Context, ownerID string, limit int) ([]*models.Vault, error) {
	return r.list(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE user_id = $1 AND updated_at > created_at ORDER BY updated_at DESC LIMIT $2`,
		ownerID, limit)
}

func (r *PostgresRepository) ToggleLiked(ctx context.Context, id string) (bool, error) {
	var liked bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE vaults SET is_liked = NOT is_liked WHERE id = $1 RETURNING is_liked`, id).Scan(&liked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return liked, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Vault, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Vault, 0)
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVault(s scanner) (*models.Vault, error) {
	var (
		v        models.Vault
		category string
		tags     []byte
	)
	err := s.Scan(&v.ID, &v.UserID, &category, &v.SiteAddress, &v.Username, &v.Password,
		&v.SecureGeneratedPassword, &tags, &v.Icon, &v.IsLiked, &v.Strength, &v.HealthScore,
		&v.Breach, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Category = models.Category(category)
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &v.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return &v, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}
