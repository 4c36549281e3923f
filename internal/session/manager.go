// AngelaMos | 2026
// manager.go

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/order"
	"github.com/nexxstore/storefront/internal/user"
)

const (
	RedirectAdmin   = "admin"
	RedirectProfile = "profile"

	defaultStoreTimeout = 5 * time.Second
)

type UserStore interface {
	FindByLoginIdentifier(ctx context.Context, identifier string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByPhone(ctx context.Context, phone string) (*user.User, error)
	Insert(ctx context.Context, u *user.User) error
	Update(ctx context.Context, id string, patch user.Patch) (*user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (*user.User, error)
	AdjustBalance(ctx context.Context, id string, delta money.Amount) (*user.User, error)
	AddBonusPoints(ctx context.Context, id string, points int64) (*user.User, error)
}

type OrderStore interface {
	ListByUserID(ctx context.Context, userID string) ([]order.Order, error)
}

// Codec turns a session into the string kept in Storage and back.
type Codec interface {
	Seal(u user.User) (string, error)
	Open(sealed string) (user.User, error)
}

type Config struct {
	StorageKey            string
	StoreTimeout          time.Duration
	CreditLimitIndividual money.Amount
	CreditLimitLegal      money.Amount
}

type RegisterInput struct {
	Email       string
	Phone       string
	Password    string
	ProfileType user.ProfileType
	Profile     user.ProfileFields
}

type AuthResult struct {
	User     user.User `json:"user"`
	Redirect string    `json:"redirect"`
}

// Manager owns the one session slot of this process. The store decides
// every ledger and profile change; the slot caches its last answer.
type Manager struct {
	mu      sync.RWMutex
	current *user.User
	version uint64

	cfg     Config
	users   UserStore
	orders  OrderStore
	storage Storage
	codec   Codec
	logger  *slog.Logger

	subMu      sync.Mutex
	subs       map[uint64]func(View)
	nextSub    uint64
	pending    *View
	published  uint64
	publishing bool
}

// New builds a Manager and restores any session persisted by a previous
// run. A missing or unreadable session leaves it logged out.
func New(
	ctx context.Context,
	cfg Config,
	users UserStore,
	orders OrderStore,
	storage Storage,
	codec Codec,
	logger *slog.Logger,
) *Manager {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:     cfg,
		users:   users,
		orders:  orders,
		storage: storage,
		codec:   codec,
		logger:  logger.With("component", "session"),
		subs:    make(map[uint64]func(View)),
	}
	m.restore(ctx)

	return m
}

func (m *Manager) restore(ctx context.Context) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	raw, ok, err := m.storage.Get(ctx, m.cfg.StorageKey)
	if err != nil {
		m.discardStored(ctx, fmt.Errorf("%w: %w", ErrStorageCorrupt, err))
		return
	}
	if !ok {
		return
	}

	u, err := m.codec.Open(raw)
	if err != nil {
		m.discardStored(ctx, fmt.Errorf("%w: %w", ErrStorageCorrupt, err))
		return
	}

	m.current = &u
	m.logger.Info("session restored", "user_id", u.ID, "role", u.Role)
}

func (m *Manager) discardStored(ctx context.Context, cause error) {
	m.logger.Warn("discarding stored session", "error", cause)

	if err := m.storage.Remove(ctx, m.cfg.StorageKey); err != nil {
		m.logger.Warn("remove stored session", "error", err)
	}
}

// persistLocked mirrors the session slot into Storage. The store already
// holds the truth, so a storage failure is logged and not returned.
func (m *Manager) persistLocked(ctx context.Context) {
	ctx, cancel := m.storeContext(ctx)
	defer cancel()

	if m.current == nil {
		if err := m.storage.Remove(ctx, m.cfg.StorageKey); err != nil {
			m.logger.Error("clear persisted session", "error", err)
		}
		return
	}

	sealed, err := m.codec.Seal(*m.current)
	if err != nil {
		m.logger.Error("seal session", "error", err, "user_id", m.current.ID)
		return
	}

	if err := m.storage.Set(ctx, m.cfg.StorageKey, sealed); err != nil {
		m.logger.Error("persist session", "error", err, "user_id", m.current.ID)
	}
}

func (m *Manager) setSessionLocked(ctx context.Context, u *user.User) {
	m.version++
	if u == nil {
		m.current = nil
	} else {
		redacted := u.Redacted()
		m.current = &redacted
	}
	m.persistLocked(ctx)
}

func (m *Manager) viewLocked() View {
	return viewOf(m.current, m.version)
}

func (m *Manager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}

func (m *Manager) Login(
	ctx context.Context,
	identifier, secret string,
) (*AuthResult, error) {
	ctx, span := core.StartSpan(ctx, "session.Login")
	defer span.End()

	m.mu.Lock()
	res, err := m.loginLocked(ctx, strings.TrimSpace(identifier), secret)
	view := m.viewLocked()
	m.mu.Unlock()

	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		core.AttrUserID.String(res.User.ID),
		core.AttrUserRole.String(string(res.User.Role)),
	)
	m.publish(view)
	return res, nil
}

func (m *Manager) loginLocked(
	ctx context.Context,
	identifier, secret string,
) (*AuthResult, error) {
	if identifier == "" {
		//nolint:errcheck // timing equalization only
		_, _, _ = core.VerifyPasswordTimingSafe(secret, nil)
		return nil, ErrUserNotFound
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	u, err := m.users.FindByLoginIdentifier(storeCtx, identifier)
	if errors.Is(err, core.ErrNotFound) {
		//nolint:errcheck // timing equalization only
		_, _, _ = core.VerifyPasswordTimingSafe(secret, nil)
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(secret, &u.PasswordHash)
	if err != nil {
		m.logger.Warn("stored credential unreadable", "user_id", u.ID, "error", err)
		return nil, ErrInvalidCredential
	}
	if !valid {
		return nil, ErrInvalidCredential
	}

	if newHash != "" {
		if _, err := m.users.Update(storeCtx, u.ID, user.Patch{PasswordHash: &newHash}); err != nil {
			m.logger.Warn("credential rehash not saved", "user_id", u.ID, "error", err)
		}
	}

	m.setSessionLocked(ctx, u)
	m.logger.Info("login", "user_id", u.ID, "role", u.Role)

	redirect := RedirectProfile
	if u.IsAdmin() {
		redirect = RedirectAdmin
	}

	return &AuthResult{User: *m.current, Redirect: redirect}, nil
}

func (m *Manager) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := core.StartSpan(ctx, "session.Register")
	defer span.End()

	m.mu.Lock()
	res, err := m.registerLocked(ctx, in)
	view := m.viewLocked()
	m.mu.Unlock()

	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		core.AttrUserID.String(res.User.ID),
		core.AttrUserRole.String(string(res.User.Role)),
	)
	m.publish(view)
	return res, nil
}

func (m *Manager) registerLocked(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := user.NormalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if email == "" || phone == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, phone and password are required", ErrInvalidInput)
	}

	profileType := in.ProfileType
	if profileType == "" {
		profileType = user.ProfileIndividual
	}
	if !profileType.Valid() {
		return nil, fmt.Errorf("%w: unknown profile type %q", ErrInvalidInput, in.ProfileType)
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	if err := m.ensureFree(storeCtx, email, phone); err != nil {
		return nil, err
	}

	hash, err := core.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	creditLimit := m.cfg.CreditLimitIndividual
	if profileType == user.ProfileLegal {
		creditLimit = m.cfg.CreditLimitLegal
	}

	fields := in.Profile
	fields.Email = email

	u := &user.User{
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         user.RoleUser,
		IsActive:     true,
		ProfileType:  profileType,
		Profile:      user.NewProfile(profileType, fields),
		Account:      user.Account{CreditLimit: creditLimit},
		Permissions:  user.DefaultPermissions(),
	}

	if err := m.users.Insert(storeCtx, u); err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			return nil, ErrEmailTaken
		case errors.Is(err, user.ErrPhoneExists):
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	m.setSessionLocked(ctx, u)
	m.logger.Info("registered", "user_id", u.ID, "profile_type", profileType)

	return &AuthResult{User: *m.current, Redirect: RedirectProfile}, nil
}

func (m *Manager) ensureFree(ctx context.Context, email, phone string) error {
	_, err := m.users.FindByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("register: %w", err)
	}

	_, err = m.users.FindByPhone(ctx, phone)
	if err == nil {
		return ErrPhoneTaken
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("register: %w", err)
	}

	return nil
}

// Logout is idempotent.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	wasIn := m.current != nil
	if wasIn {
		m.logger.Info("logout", "user_id", m.current.ID)
	}
	m.setSessionLocked(ctx, nil)
	view := m.viewLocked()
	m.mu.Unlock()

	if wasIn {
		m.publish(view)
	}
	return nil
}

func (m *Manager) HasPermission(capability string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return false
	}
	return auth.Allows(m.current.Role, m.current.Permissions, capability)
}

func (m *Manager) HasRole(role user.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current != nil && m.current.Role == role
}

func (m *Manager) UpdateProfile(
	ctx context.Context,
	upd user.ProfileUpdate,
) (*user.User, error) {
	ctx, span := core.StartSpan(ctx, "session.UpdateProfile")
	defer span.End()

	m.mu.Lock()
	updated, err := m.updateProfileLocked(ctx, upd)
	view := m.viewLocked()
	m.mu.Unlock()

	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	m.publish(view)
	return updated, nil
}

func (m *Manager) updateProfileLocked(
	ctx context.Context,
	upd user.ProfileUpdate,
) (*user.User, error) {
	if m.current == nil {
		return nil, ErrNotAuthenticated
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	stored, err := m.users.UpdateProfile(storeCtx, m.current.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	m.setSessionLocked(ctx, stored)
	out := *m.current
	return &out, nil
}

func (m *Manager) AddToBalance(ctx context.Context, amount money.Amount) (money.Amount, error) {
	return m.changeBalance(ctx, "session.AddToBalance", amount, false)
}

func (m *Manager) DeductFromBalance(ctx context.Context, amount money.Amount) (money.Amount, error) {
	return m.changeBalance(ctx, "session.DeductFromBalance", amount, true)
}

func (m *Manager) changeBalance(
	ctx context.Context,
	op string,
	amount money.Amount,
	debit bool,
) (money.Amount, error) {
	ctx, span := core.StartSpan(ctx, op, core.AttrAmount.Int64(int64(amount)))
	defer span.End()

	m.mu.Lock()
	balance, err := m.changeBalanceLocked(ctx, amount, debit)
	view := m.viewLocked()
	m.mu.Unlock()

	if err != nil {
		core.SetSpanError(ctx, err)
		return 0, err
	}

	m.publish(view)
	return balance, nil
}

func (m *Manager) changeBalanceLocked(
	ctx context.Context,
	amount money.Amount,
	debit bool,
) (money.Amount, error) {
	if m.current == nil {
		return 0, ErrNotAuthenticated
	}
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}

	delta := amount
	if debit {
		delta = -amount
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	stored, err := m.users.AdjustBalance(storeCtx, m.current.ID, delta)
	if err != nil {
		return 0, m.ledgerError(err)
	}
	m.setSessionLocked(ctx, stored)

	m.logger.Info("balance changed",
		"user_id", stored.ID,
		"debit", debit,
		"amount", amount.String(),
		"balance", stored.Account.Balance.String(),
	)

	return stored.Account.Balance, nil
}

func (m *Manager) AddBonusPoints(ctx context.Context, points int64) (int64, error) {
	ctx, span := core.StartSpan(ctx, "session.AddBonusPoints", core.AttrBonusPoints.Int64(points))
	defer span.End()

	m.mu.Lock()
	total, err := m.addBonusLocked(ctx, points)
	view := m.viewLocked()
	m.mu.Unlock()

	if err != nil {
		core.SetSpanError(ctx, err)
		return 0, err
	}

	m.publish(view)
	return total, nil
}

func (m *Manager) addBonusLocked(ctx context.Context, points int64) (int64, error) {
	if m.current == nil {
		return 0, ErrNotAuthenticated
	}
	if points <= 0 {
		return 0, ErrInvalidAmount
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	stored, err := m.users.AddBonusPoints(storeCtx, m.current.ID, points)
	if err != nil {
		return 0, m.ledgerError(err)
	}
	m.setSessionLocked(ctx, stored)

	return stored.Account.BonusPoints, nil
}

// ledgerError maps a refused or failed ledger write. The session slot is
// left as it was.
func (m *Manager) ledgerError(err error) error {
	switch {
	case errors.Is(err, user.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, user.ErrOutOfRange):
		return ErrInvalidAmount
	}

	m.logger.Error("ledger write failed", "user_id", m.current.ID, "error", err)
	return fmt.Errorf("%w: %w", ErrLedgerUpdateFailed, err)
}

// UserOrders queries the store on every call. A logged-out manager returns
// nil without touching the store.
func (m *Manager) UserOrders(ctx context.Context) ([]order.Order, error) {
	m.mu.RLock()
	var userID string
	if m.current != nil {
		userID = m.current.ID
	}
	m.mu.RUnlock()

	if userID == "" {
		return nil, nil
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	orders, err := m.orders.ListByUserID(storeCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("user orders: %w", err)
	}
	return orders, nil
}

func (m *Manager) CurrentUser() (user.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return user.User{}, false
	}
	return m.current.Redacted(), true
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current != nil
}

func (m *Manager) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.viewLocked()
}

// Subscribe registers fn to receive the View after every state change.
// fn runs outside the manager's lock and may call back into it.
func (m *Manager) Subscribe(fn func(View)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// publish delivers v unless a newer view has already gone out. One caller
// at a time drains the queue, so subscribers see versions in increasing
// order; a view superseded while waiting is skipped.
func (m *Manager) publish(v View) {
	m.subMu.Lock()
	if v.Version <= m.published || (m.pending != nil && v.Version <= m.pending.Version) {
		m.subMu.Unlock()
		return
	}
	m.pending = &v
	if m.publishing {
		m.subMu.Unlock()
		return
	}

	m.publishing = true
	drained := false
	defer func() {
		if !drained {
			// A subscriber panicked while subMu was released.
			m.subMu.Lock()
			m.publishing = false
			m.subMu.Unlock()
		}
	}()

	for m.pending != nil {
		next := *m.pending
		m.pending = nil
		m.published = next.Version

		fns := make([]func(View), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}

		m.subMu.Unlock()
		for _, fn := range fns {
			fn(next)
		}
		m.subMu.Lock()
	}
	m.publishing = false
	drained = true
	m.subMu.Unlock()
}
