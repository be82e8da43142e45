package vaults

import (
	"context"

	"github.com/dmitrijs2005/tresorly/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Vault) (*models.Vault, error)
	GetByID(ctx context.Context, id string) (*models.Vault, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Vault, error)
	ListAll(ctx context.Context) ([]*models.Vault, error)
	// Update overwrites the mutable fields and bumps updated_at.
	Update(ctx context.Context, v *models.Vault) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	CountByCategory(ctx context.Context, ownerID string) (map[models.Category]int, error)
	RecentlyUsed(ctx context.Context, ownerID string, limit int) ([]*models.Vault, error)
	Favorites(ctx context.Context, ownerID string) ([]*models.Vault, error)
	MostRecentlyEdited(ctx context.Context, ownerID string, limit int) ([]*models.Vault, error)
	// ToggleLiked flips is_liked without touching updated_at and returns the new value.
	ToggleLiked(ctx context.Context, id string) (bool, error)
}
