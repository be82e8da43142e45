package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/cryptox"
	"github.com/dmitrijs2005/tresorly/internal/logging"
	"github.com/dmitrijs2005/tresorly/internal/server/blob"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/vaults"
	"golang.org/x/sync/errgroup"
)

const (
	defaultProjectionLimit = 5
	maxProjectionLimit     = 50
	iconURLValidity        = 15 * time.Minute
)

// VaultInput carries the fields of a new vault entry.
type VaultInput struct {
	Category                string
	SiteAddress             string
	Username                string
	Password                string
	SecureGeneratedPassword string
	Tags                    []string
	Icon                    *blob.Upload
}

// VaultPatch carries an update. Empty strings and nil slices mean "keep".
type VaultPatch struct {
	Category                string
	SiteAddress             string
	Username                string
	Password                string
	SecureGeneratedPassword string
	Tags                    []string
	Icon                    *blob.Upload
}

type VaultService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       PasswordHasher
	analyzer     SecurityAnalyzer
	blobs        blob.Store
	maxIconBytes int64
	now          func() time.Time
	log          logging.Logger
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher,
	analyzer SecurityAnalyzer, blobs blob.Store, maxIconBytes int64, log logging.Logger) *VaultService {
	return &VaultService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		analyzer:     analyzer,
		blobs:        blobs,
		maxIconBytes: maxIconBytes,
		now:          time.Now,
		log:          log.With("module", "vaults"),
	}
}

// Create validates in, hashes and analyzes the password concurrently,
// stores an optional icon and persists the entry.
func (s *VaultService) Create(ctx context.Context, owner string, in VaultInput) (*models.Vault, error) {
	category, err := parseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	site, user := strings.TrimSpace(in.SiteAddress), strings.TrimSpace(in.Username)
	if site == "" || user == "" || in.Password == "" {
		return nil, common.Validation("vault_site_address, vault_username and password are required")
	}
	if err := checkVaultPassword(in.Password); err != nil {
		return nil, err
	}

	var (
		iconType, iconExt string
	)
	if in.Icon != nil {
		if iconType, iconExt, err = blob.CheckImage(in.Icon, s.maxIconBytes); err != nil {
			return nil, err
		}
	}

	hash, report, err := s.secure(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	v := &models.Vault{
		UserID:                  owner,
		Category:                category,
		SiteAddress:             site,
		Username:                user,
		Password:                hash,
		SecureGeneratedPassword: in.SecureGeneratedPassword,
		Tags:                    cleanTags(in.Tags),
		Strength:                report.Strength,
		HealthScore:             report.HealthScore,
		Breach:                  string(report.Breach),
	}
	if v.SecureGeneratedPassword == "" {
		v.SecureGeneratedPassword = "false"
	}

	if in.Icon != nil {
		key := blob.IconKey(owner, iconExt, s.now())
		if err := s.blobs.Put(ctx, key, in.Icon.Data, iconType); err != nil {
			return nil, common.Internal(err)
		}
		v.Icon = key
	}

	created, err := s.repomanager.Vaults(s.db).Create(ctx, v)
	if err != nil {
		s.dropIcon(ctx, v.Icon)
		return nil, wrap(err)
	}

	s.log.Info(ctx, "vault created", "vault_id", created.ID, "category", string(category), "breach", created.Breach)
	return created, nil
}

func (s *VaultService) ListForOwner(ctx context.Context, owner string) ([]*models.Vault, error) {
	list, err := s.repomanager.Vaults(s.db).ListByOwner(ctx, owner)
	return list, wrap(err)
}

// GetByID returns the entry when owner owns it: NotFound if it does not
// exist, Forbidden if someone else owns it.
func (s *VaultService) GetByID(ctx context.Context, owner, id string) (*models.Vault, error) {
	return s.owned(ctx, s.repomanager.Vaults(s.db), owner, id)
}

// Update merges patch into the entry. A new password is re-hashed and
// re-analyzed; a new icon replaces the old object.
func (s *VaultService) Update(ctx context.Context, owner, id string, patch VaultPatch) (*models.Vault, error) {
	repo := s.repomanager.Vaults(s.db)

	v, err := s.owned(ctx, repo, owner, id)
	if err != nil {
		return nil, err
	}
	if err := checkVaultPassword(patch.Password); err != nil {
		return nil, err
	}

	if patch.Category != "" {
		if v.Category, err = parseCategory(patch.Category); err != nil {
			return nil, err
		}
	}
	if site := strings.TrimSpace(patch.SiteAddress); site != "" {
		v.SiteAddress = site
	}
	if user := strings.TrimSpace(patch.Username); user != "" {
		v.Username = user
	}
	if patch.SecureGeneratedPassword != "" {
		v.SecureGeneratedPassword = patch.SecureGeneratedPassword
	}
	if patch.Tags != nil {
		v.Tags = cleanTags(patch.Tags)
	}

	var iconType, iconExt string
	if patch.Icon != nil {
		if iconType, iconExt, err = blob.CheckImage(patch.Icon, s.maxIconBytes); err != nil {
			return nil, err
		}
	}

	if patch.Password != "" {
		hash, report, err := s.secure(ctx, patch.Password)
		if err != nil {
			return nil, err
		}
		v.Password = hash
		v.Strength = report.Strength
		v.HealthScore = report.HealthScore
		v.Breach = string(report.Breach)
	}

	oldIcon := v.Icon
	if patch.Icon != nil {
		key := blob.IconKey(owner, iconExt, s.now())
		if err := s.blobs.Put(ctx, key, patch.Icon.Data, iconType); err != nil {
			return nil, common.Internal(err)
		}
		v.Icon = key
	}

	if err := repo.Update(ctx, v); err != nil {
		if v.Icon != oldIcon {
			s.dropIcon(ctx, v.Icon)
		}
		return nil, wrap(err)
	}
	if v.Icon != oldIcon {
		s.dropIcon(ctx, oldIcon)
	}

	return v, nil
}

// Delete removes an entry owned by owner.
func (s *VaultService) Delete(ctx context.Context, owner, id string) error {
	repo := s.repomanager.Vaults(s.db)

	v, err := s.owned(ctx, repo, owner, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, v.ID); err != nil {
		return wrap(err)
	}
	s.dropIcon(ctx, v.Icon)
	return nil
}

// CategoryCounts reports how many entries owner has per category. Every
// category is present, possibly with zero.
func (s *VaultService) CategoryCounts(ctx context.Context, owner string) (map[models.Category]int, error) {
	counts, err := s.repomanager.Vaults(s.db).CountByCategory(ctx, owner)
	if err != nil {
		return nil, wrap(err)
	}
	out := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = counts[c]
	}
	return out, nil
}

func (s *VaultService) RecentlyUsed(ctx context.Context, owner string, limit int) ([]*models.Vault, error) {
	list, err := s.repomanager.Vaults(s.db).RecentlyUsed(ctx, owner, normalizeLimit(limit))
	return list, wrap(err)
}

func (s *VaultService) Favorites(ctx context.Context, owner string) ([]*models.Vault, error) {
	list, err := s.repomanager.Vaults(s.db).Favorites(ctx, owner)
	return list, wrap(err)
}

// MostRecentlyEdited lists entries modified after creation, newest first.
func (s *VaultService) MostRecentlyEdited(ctx context.Context, owner string, limit int) ([]*models.Vault, error) {
	list, err := s.repomanager.Vaults(s.db).MostRecentlyEdited(ctx, owner, normalizeLimit(limit))
	return list, wrap(err)
}

// ToggleFavorite flips the liked flag of an entry owned by owner.
func (s *VaultService) ToggleFavorite(ctx context.Context, owner, id string) (bool, error) {
	repo := s.repomanager.Vaults(s.db)
	v, err := s.owned(ctx, repo, owner, id)
	if err != nil {
		return false, err
	}
	liked, err := repo.ToggleLiked(ctx, v.ID)
	return liked, wrap(err)
}

// IconURL returns a short-lived download URL for the entry's icon.
func (s *VaultService) IconURL(ctx context.Context, owner, id string) (string, error) {
	v, err := s.owned(ctx, s.repomanager.Vaults(s.db), owner, id)
	if err != nil {
		return "", err
	}
	if v.Icon == "" {
		return "", common.NotFound("vault has no icon")
	}
	url, err := s.blobs.PresignGet(ctx, v.Icon, iconURLValidity)
	return url, wrap(err)
}

// ListAll returns every entry in the store. Admin only.
func (s *VaultService) ListAll(ctx context.Context, actorID string) ([]*models.Vault, error) {
	if _, err := requireAdmin(ctx, s.repomanager.Users(s.db), actorID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Vaults(s.db).ListAll(ctx)
	return list, wrap(err)
}

// WipeForUser deletes every entry of userID and reports how many went. Admin only.
func (s *VaultService) WipeForUser(ctx context.Context, actorID, userID string) (int64, error) {
	actor, err := requireAdmin(ctx, s.repomanager.Users(s.db), actorID)
	if err != nil {
		return 0, err
	}

	userID, ok := parseID(userID)
	if !ok {
		return 0, common.NotFound("User not found")
	}

	repo := s.repomanager.Vaults(s.db)
	list, err := repo.ListByOwner(ctx, userID)
	if err != nil {
		return 0, wrap(err)
	}
	n, err := repo.DeleteByOwner(ctx, userID)
	if err != nil {
		return 0, wrap(err)
	}
	for _, v := range list {
		s.dropIcon(ctx, v.Icon)
	}

	s.log.Info(ctx, "vaults wiped", "actor_id", actor.ID, "user_id", userID, "count", n)
	return n, nil
}

func (s *VaultService) owned(ctx context.Context, repo vaults.Repository, owner, id string) (*models.Vault, error) {
	id, ok := parseID(id)
	if !ok {
		return nil, common.NotFound("vault not found")
	}
	v, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("vault not found")
		}
		return nil, wrap(err)
	}
	if v.UserID != owner {
		return nil, common.Forbidden("vault belongs to another user")
	}
	return v, nil
}

// checkVaultPassword rejects passwords bcrypt cannot hash before any
// hashing or analysis starts.
func checkVaultPassword(password string) error {
	if len(password) > cryptox.MaxPasswordBytes {
		return common.Validation("password must be at most 72 bytes")
	}
	return nil
}

// secure hashes and analyzes password in parallel.
func (s *VaultService) secure(ctx context.Context, password string) (string, breach.Report, error) {
	var (
		hash   string
		report breach.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hash, err = s.hasher.Hash(gctx, password)
		return err
	})
	g.Go(func() error {
		report = s.analyzer.Analyze(gctx, password)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", breach.Report{}, wrap(err)
	}
	return hash, report, nil
}

func (s *VaultService) dropIcon(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "icon cleanup failed", "key", key, "error", err)
	}
}

func parseCategory(c string) (models.Category, error) {
	category := models.Category(strings.ToLower(strings.TrimSpace(c)))
	if !category.Valid() {
		return "", common.Validation("vault_category must be one of browser, mobile, other")
	}
	return category, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultProjectionLimit
	case limit > maxProjectionLimit:
		return maxProjectionLimit
	default:
		return limit
	}
}
