// AngelaMos | 2026
// testutil_test.go

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/config"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/order"
	"github.com/nexxstore/storefront/internal/user"
)

const testStorageKey = "nexx_session"

// fakeUsers is an in-memory UserStore with the uniqueness rules of the
// users table.
type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*user.User
	order   []string
	nextID  int
	updates int
	inserts int

	updateErr   error
	updateDelay time.Duration
	findErr     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*user.User)}
}

func copyUser(u *user.User) *user.User {
	c := *u
	c.Permissions = slices.Clone(u.Permissions)
	c.Profile = u.Profile.Merge(user.ProfileUpdate{})
	return &c
}

func (f *fakeUsers) FindByLoginIdentifier(_ context.Context, identifier string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	email := user.NormalizeEmail(identifier)
	for _, id := range f.order {
		u := f.byID[id]
		if u.IsActive && (u.Email == email || u.Phone == identifier) {
			return copyUser(u), nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, id := range f.order {
		if f.byID[id].Email == email {
			return copyUser(f.byID[id]), nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) FindByPhone(_ context.Context, phone string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, id := range f.order {
		if f.byID[id].Phone == phone {
			return copyUser(f.byID[id]), nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUsers) Insert(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return user.ErrEmailExists
		}
		if existing.Phone == u.Phone {
			return user.ErrPhoneExists
		}
	}

	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = copyUser(u)
	f.order = append(f.order, u.ID)
	f.inserts++
	return nil
}

// write applies fn to the stored record the way a single UPDATE would:
// nothing changes when fn fails.
func (f *fakeUsers) write(ctx context.Context, id string, fn func(u *user.User) error) (*user.User, error) {
	if f.updateDelay > 0 {
		select {
		case <-time.After(f.updateDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}

	stored, ok := f.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	next := copyUser(stored)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	f.byID[id] = next
	f.updates++

	return copyUser(next), nil
}

func (f *fakeUsers) Update(ctx context.Context, id string, patch user.Patch) (*user.User, error) {
	return f.write(ctx, id, func(u *user.User) error {
		if patch.Profile != nil {
			u.Profile = patch.Profile.Merge(user.ProfileUpdate{})
		}
		if patch.PasswordHash != nil {
			u.PasswordHash = *patch.PasswordHash
		}
		return nil
	})
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (*user.User, error) {
	return f.write(ctx, id, func(u *user.User) error {
		u.Profile = u.Profile.Merge(upd)
		return nil
	})
}

func (f *fakeUsers) AdjustBalance(ctx context.Context, id string, delta money.Amount) (*user.User, error) {
	return f.write(ctx, id, func(u *user.User) error {
		sum, ok := u.Account.Balance.Add(delta)
		if !ok {
			return user.ErrOutOfRange
		}
		if sum < 0 {
			return user.ErrInsufficientBalance
		}
		u.Account.Balance = sum
		return nil
	})
}

func (f *fakeUsers) AddBonusPoints(ctx context.Context, id string, points int64) (*user.User, error) {
	return f.write(ctx, id, func(u *user.User) error {
		if u.Account.BonusPoints > math.MaxInt64-points {
			return user.ErrOutOfRange
		}
		u.Account.BonusPoints += points
		return nil
	})
}

// edit changes the stored record behind the manager's back, as another
// process or the admin panel would.
func (f *fakeUsers) edit(t *testing.T, id string, fn func(u *user.User)) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		t.Fatalf("user %q not in store", id)
	}
	fn(u)
}

func (f *fakeUsers) get(t *testing.T, id string) *user.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[id]
	if !ok {
		t.Fatalf("user %q not in store", id)
	}
	return copyUser(u)
}

func (f *fakeUsers) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates + f.inserts
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUsers) failUpdates(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

// seed stores a user with the given role and plaintext password and
// returns its ID.
func (f *fakeUsers) seed(t *testing.T, role user.Role, email, phone, password string) string {
	t.Helper()

	hash, err := core.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return f.seedHash(t, role, email, phone, hash)
}

func (f *fakeUsers) seedHash(t *testing.T, role user.Role, email, phone, hash string) string {
	t.Helper()

	u := &user.User{
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		ProfileType:  user.ProfileIndividual,
		Profile: user.NewProfile(user.ProfileIndividual, user.ProfileFields{
			FullName: "Test " + string(role),
		}),
		Permissions: auth.PermissionsFor(role),
	}
	if err := f.Insert(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return u.ID
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string][]order.Order
	calls  int
	err    error
}

func (f *fakeOrders) ListByUserID(_ context.Context, userID string) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.orders[userID]), nil
}

// failingStorage fails every write and read.
type failingStorage struct{}

var errStorageDown = errors.New("storage down")

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errStorageDown
}

func (failingStorage) Set(context.Context, string, string) error {
	return errStorageDown
}

func (failingStorage) Remove(context.Context, string) error {
	return errStorageDown
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSealer(t *testing.T) *auth.Sealer {
	t.Helper()

	sealer, err := auth.NewEphemeralSealer(config.SealConfig{
		Issuer:   "storefront-test",
		Audience: "storefront-session",
	})
	if err != nil {
		t.Fatalf("NewEphemeralSealer: %v", err)
	}
	return sealer
}

func testConfig() Config {
	return Config{
		StorageKey:            testStorageKey,
		StoreTimeout:          time.Second,
		CreditLimitIndividual: money.Rubles(10000),
		CreditLimitLegal:      money.Rubles(100000),
	}
}

type harness struct {
	users   *fakeUsers
	orders  *fakeOrders
	storage *MemoryStorage
	sealer  *auth.Sealer
	manager *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		users:   newFakeUsers(),
		orders:  &fakeOrders{orders: make(map[string][]order.Order)},
		storage: NewMemoryStorage(),
		sealer:  testSealer(t),
	}
	h.manager = h.newManager()
	return h
}

// newManager builds a second Manager over the same store, storage and key,
// as a restarted process would.
func (h *harness) newManager() *Manager {
	return New(
		context.Background(),
		testConfig(),
		h.users,
		h.orders,
		h.storage,
		h.sealer,
		discardLogger(),
	)
}

func (h *harness) register(t *testing.T, email, phone string) *AuthResult {
	t.Helper()

	res, err := h.manager.Register(context.Background(), RegisterInput{
		Email:    email,
		Phone:    phone,
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res
}
