// Package cryptox implements password hashing for account and vault secrets.
//
// Hashing is CPU bound, so every Hasher call runs under a weighted semaphore
// whose width bounds the number of concurrent bcrypt computations. Callers
// waiting for a slot observe their context.
package cryptox

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var errPasswordTooLong = common.Validation("password must be at most 72 bytes")

// Hasher produces and verifies salted, slow password hashes.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher returns a Hasher with the given bcrypt cost and worker count.
// Non-positive values fall back to DefaultCost and runtime.NumCPU().
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash returns the bcrypt encoding of plain. The result embeds its own salt,
// so hashing the same input twice yields different strings.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", common.Validation("password must not be empty")
	}
	if len(plain) > MaxPasswordBytes {
		return "", errPasswordTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", errPasswordTooLong
		}
		return "", common.Internal(err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. Empty or malformed hashes
// never match.
func (h *Hasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil, nil
}

// DummyVerify spends the same effort as Verify and always reports false.
func (h *Hasher) DummyVerify(ctx context.Context, plain string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	// Compared against a hash of the same cost so unknown accounts take as
	// long as known ones.
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword(common.GenerateRandByteArray(16), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plain))
	return nil
}
