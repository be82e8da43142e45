package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/cryptox"
	"github.com/dmitrijs2005/tresorly/internal/dbx"
	"github.com/dmitrijs2005/tresorly/internal/server/breach"
	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/notify"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/users"
	"github.com/dmitrijs2005/tresorly/internal/server/repositories/vaults"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testHasher() *cryptox.Hasher {
	return cryptox.NewHasher(bcrypt.MinCost, 2)
}

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	getErr error

	lastLoginCalls int
	updates        int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := users.NormalizeEmail(u.Email)
	for _, x := range r.byID {
		if x.Email == email || (u.GoogleID != "" && x.GoogleID == u.GoogleID) {
			return nil, common.Conflict("user already exists")
		}
	}
	c := cloneUser(u)
	c.ID = uuid.NewString()
	c.Email = email
	if c.Name == "" {
		c.Name = models.DefaultUserName
	}
	if c.Role == "" {
		c.Role = models.RoleUser
	}
	if c.AccountStatus == "" {
		c.AccountStatus = models.StatusActive
	}
	if c.Language == "" {
		c.Language = models.DefaultLanguage
	}
	if c.Currency == "" {
		c.Currency = models.DefaultCurrency
	}
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	email = users.NormalizeEmail(email)
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *fakeUsersRepo) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return googleID != "" && u.GoogleID == googleID })
}

func (r *fakeUsersRepo) LockByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.GetByEmail(ctx, email)
}

func (r *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return common.ErrorNotFound
	}
	r.updates++
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *fakeUsersRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.lastLoginCalls++
	u.LastLogin = &at
	return nil
}

func (r *fakeUsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

// stored returns the current row for id, bypassing getErr.
func (r *fakeUsersRepo) stored(t *testing.T, id string) *models.User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return cloneUser(u)
}

// --- vaults ---

type fakeVaultsRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.Vault
	now       time.Time
	createErr error
	updateErr error
	getErr    error
	gets      int
}

func newFakeVaultsRepo() *fakeVaultsRepo {
	return &fakeVaultsRepo{byID: map[string]*models.Vault{}, now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func cloneVault(v *models.Vault) *models.Vault {
	c := *v
	c.Tags = make([]string, len(v.Tags))
	copy(c.Tags, v.Tags)
	return &c
}

func (r *fakeVaultsRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *fakeVaultsRepo) Create(_ context.Context, v *models.Vault) (*models.Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	c := cloneVault(v)
	c.ID = uuid.NewString()
	c.CreatedAt = r.tick()
	c.UpdatedAt = c.CreatedAt
	r.byID[c.ID] = c
	return cloneVault(c), nil
}

func (r *fakeVaultsRepo) GetByID(_ context.Context, id string) (*models.Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	v, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneVault(v), nil
}

func (r *fakeVaultsRepo) filter(match func(*models.Vault) bool, less func(a, b *models.Vault) bool, limit int) []*models.Vault {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Vault{}
	for _, v := range r.byID {
		if match(v) {
			out = append(out, cloneVault(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newestCreated(a, b *models.Vault) bool { return a.CreatedAt.After(b.CreatedAt) }
func newestUpdated(a, b *models.Vault) bool { return a.UpdatedAt.After(b.UpdatedAt) }

func (r *fakeVaultsRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.Vault, error) {
	return r.filter(func(v *models.Vault) bool { return v.UserID == ownerID }, newestCreated, 0), nil
}

func (r *fakeVaultsRepo) ListAll(context.Context) ([]*models.Vault, error) {
	return r.filter(func(*models.Vault) bool { return true }, newestCreated, 0), nil
}

func (r *fakeVaultsRepo) Update(_ context.Context, v *models.Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	old, ok := r.byID[v.ID]
	if !ok {
		return common.ErrorNotFound
	}
	c := cloneVault(v)
	c.UserID = old.UserID
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = r.tick()
	v.UpdatedAt = c.UpdatedAt
	r.byID[v.ID] = c
	return nil
}

func (r *fakeVaultsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeVaultsRepo) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, v := range r.byID {
		if v.UserID == ownerID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeVaultsRepo) CountByCategory(_ context.Context, ownerID string) (map[models.Category]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[models.Category]int{}
	for _, v := range r.byID {
		if v.UserID == ownerID {
			out[v.Category]++
		}
	}
	return out, nil
}

func (r *fakeVaultsRepo) RecentlyUsed(_ context.Context, ownerID string, limit int) ([]*models.Vault, error) {
	return r.filter(func(v *models.Vault) bool { return v.UserID == ownerID }, newestUpdated, limit), nil
}

func (r *fakeVaultsRepo) Favorites(_ context.Context, ownerID string) ([]*models.Vault, error) {
	return r.filter(func(v *models.Vault) bool { return v.UserID == ownerID && v.IsLiked }, newestUpdated, 0), nil
}

func (r *fakeVaultsRepo) MostRecentlyEdited(_ context.Context, ownerID string, limit int) ([]*models.Vault, error) {
	return r.filter(func(v *models.Vault) bool {
		return v.UserID == ownerID && v.UpdatedAt.After(v.CreatedAt)
	}, newestUpdated, limit), nil
}

func (r *fakeVaultsRepo) ToggleLiked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	v.IsLiked = !v.IsLiked
	return v.IsLiked, nil
}

// --- repo manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	v *fakeVaultsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), v: newFakeVaultsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.u }
func (m *fakeRepoManager) Vaults(dbx.DBTX) vaults.Repository            { return m.v }

// --- blobs ---

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (b *fakeBlobStore) Put(_ context.Context, key string, body []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	b.objects[key] = body
	return nil
}

func (b *fakeBlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?ttl=" + ttl.String(), nil
}

func (b *fakeBlobStore) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok
}

// --- notifier ---

type sentCode struct {
	email   string
	purpose notify.Purpose
	code    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (n *fakeNotifier) SendOTP(_ context.Context, email string, purpose notify.Purpose, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentCode{email: email, purpose: purpose, code: code})
	return n.err
}

func (n *fakeNotifier) last(t *testing.T) sentCode {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatalf("no code sent")
	}
	return n.sent[len(n.sent)-1]
}

// --- breach ---

type stubChecker struct {
	breached bool
	err      error
}

func (c stubChecker) Breached(context.Context, string) (bool, error) {
	return c.breached, c.err
}

var errCheckerDown = errors.New("range api down")

var _ breach.Checker = stubChecker{}
