// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/money"
)

var (
	ErrEmailExists = fmt.Errorf("email: %w", core.ErrDuplicateKey)
	ErrPhoneExists = fmt.Errorf("phone: %w", core.ErrDuplicateKey)

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOutOfRange          = fmt.Errorf("value out of range: %w", core.ErrInvalidInput)
)

const (
	pgUniqueViolation   = "23505"
	pgCheckViolation    = "23514"
	pgNumericOutOfRange = "22003"

	emailConstraint = "users_email_key"
	phoneConstraint = "users_phone_key"
)

const userColumns = `id, email, phone, password_hash, role, is_active,
		       profile_type, profile, balance, bonus_points, credit_limit,
		       permissions, created_at, updated_at`

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	FindByLoginIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, id string, patch Patch) (*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	AdjustBalance(ctx context.Context, id string, delta money.Amount) (*User, error)
	AddBonusPoints(ctx context.Context, id string, points int64) (*User, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	Phone        string      `db:"phone"`
	PasswordHash string      `db:"password_hash"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	ProfileType  string      `db:"profile_type"`
	Profile      Profile     `db:"profile"`
	Balance      int64       `db:"balance"`
	BonusPoints  int64       `db:"bonus_points"`
	CreditLimit  int64       `db:"credit_limit"`
	Permissions  Permissions `db:"permissions"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r *userRow) toUser() *User {
	return &User{
		ID:           r.ID,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Role:         Role(r.Role),
		IsActive:     r.IsActive,
		ProfileType:  ProfileType(r.ProfileType),
		Profile:      r.Profile,
		Account: Account{
			Balance:     money.Amount(r.Balance),
			BonusPoints: r.BonusPoints,
			CreditLimit: money.Amount(r.CreditLimit),
		},
		Permissions: r.Permissions,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return getOne(ctx, r.db, "get user", query, id)
}

func (r *repository) FindByLoginIdentifier(
	ctx context.Context,
	identifier string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE (email = $1 OR phone = $2) AND is_active = TRUE
		ORDER BY created_at
		LIMIT 1`

	return getOne(ctx, r.db, "find user by login",
		query, NormalizeEmail(identifier), strings.TrimSpace(identifier))
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	return getOne(ctx, r.db, "find user by email", query, NormalizeEmail(email))
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE phone = $1`

	return getOne(ctx, r.db, "find user by phone", query, strings.TrimSpace(phone))
}

func getOne(
	ctx context.Context,
	q core.DBTX,
	op, query string,
	args ...any,
) (*User, error) {
	var row userRow
	err := q.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapWriteError(err))
	}

	return row.toUser(), nil
}

// Insert assigns the user's ID and timestamps.
func (r *repository) Insert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (
			id, email, phone, password_hash, role, is_active,
			profile_type, profile, balance, bonus_points, credit_limit,
			permissions
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12::jsonb
		)
		RETURNING created_at, updated_at`

	id := uuid.New().String()
	email := NormalizeEmail(user.Email)
	phone := strings.TrimSpace(user.Phone)

	var ts struct {
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	err := r.db.GetContext(ctx, &ts, query,
		id,
		email,
		phone,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		string(user.ProfileType),
		user.Profile,
		int64(user.Account.Balance),
		user.Account.BonusPoints,
		int64(user.Account.CreditLimit),
		user.Permissions,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapWriteError(err))
	}

	user.ID = id
	user.Email = email
	user.Phone = phone
	user.CreatedAt = ts.CreatedAt
	user.UpdatedAt = ts.UpdatedAt

	return nil
}

// Update writes the non-nil parts of patch and returns the stored record.
func (r *repository) Update(
	ctx context.Context,
	id string,
	patch Patch,
) (*User, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}
	return update(ctx, r.db, id, patch)
}

func update(ctx context.Context, q core.DBTX, id string, patch Patch) (*User, error) {
	var sets []string
	var args []any
	argIdx := 1

	add := func(expr string, val any) {
		sets = append(sets, fmt.Sprintf(expr, argIdx))
		args = append(args, val)
		argIdx++
	}

	if patch.Profile != nil {
		add("profile = $%d::jsonb", *patch.Profile)
	}
	if patch.PasswordHash != nil {
		add("password_hash = $%d", *patch.PasswordHash)
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING `+userColumns,
		strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	return getOne(ctx, q, "update user", query, args...)
}

// UpdateProfile merges upd into the stored profile while holding the row
// lock, so concurrent writers never lose each other's fields.
func (r *repository) UpdateProfile(
	ctx context.Context,
	id string,
	upd ProfileUpdate,
) (*User, error) {
	var updated *User

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `SELECT ` + userColumns + `
			FROM users
			WHERE id = $1
			FOR UPDATE`

		current, err := getOne(ctx, tx, "lock user", query, id)
		if err != nil {
			return err
		}

		merged := current.Profile.Merge(upd)
		updated, err = update(ctx, tx, id, Patch{Profile: &merged})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return updated, nil
}

// AdjustBalance adds delta to the stored balance in one statement. A
// result below zero leaves the row untouched and returns
// ErrInsufficientBalance.
func (r *repository) AdjustBalance(
	ctx context.Context,
	id string,
	delta money.Amount,
) (*User, error) {
	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING ` + userColumns

	u, err := getOne(ctx, r.db, "adjust balance", query, int64(delta), id)
	if !errors.Is(err, core.ErrNotFound) {
		return u, err
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("adjust balance: %w", err)
	}
	return nil, fmt.Errorf("adjust balance: %w", ErrInsufficientBalance)
}

func (r *repository) AddBonusPoints(
	ctx context.Context,
	id string,
	points int64,
) (*User, error) {
	query := `
		UPDATE users
		SET bonus_points = bonus_points + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	return getOne(ctx, r.db, "add bonus points", query, points, id)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case emailConstraint:
			return ErrEmailExists
		case phoneConstraint:
			return ErrPhoneExists
		}
		return core.ErrDuplicateKey
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", core.ErrInvalidInput, pgErr.ConstraintName)
	case pgNumericOutOfRange:
		return ErrOutOfRange
	}

	return err
}
