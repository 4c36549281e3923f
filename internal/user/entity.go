// AngelaMos | 2026
// entity.go

package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/nexxstore/storefront/internal/money"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleModerator  Role = "moderator"
	RoleAccountant Role = "accountant"
	RoleUser       Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleModerator, RoleAccountant, RoleUser:
		return true
	}
	return false
}

type ProfileType string

const (
	ProfileIndividual ProfileType = "individual"
	ProfileLegal      ProfileType = "legal"
)

func (t ProfileType) Valid() bool {
	return t == ProfileIndividual || t == ProfileLegal
}

const (
	PermProfileView = "profile.view"
	PermOrdersView  = "orders.view"
	PermCartManage  = "cart.manage"
)

// DefaultPermissions is the capability set granted on self-registration.
func DefaultPermissions() Permissions {
	return Permissions{PermProfileView, PermOrdersView, PermCartManage}
}

type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	IsActive     bool        `json:"isActive"`
	ProfileType  ProfileType `json:"profileType"`
	Profile      Profile     `json:"profile"`
	Account      Account     `json:"account"`
	Permissions  Permissions `json:"permissions"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type Account struct {
	Balance     money.Amount `json:"balance"`
	BonusPoints int64        `json:"bonusPoints"`
	CreditLimit money.Amount `json:"creditLimit"`
}

// Redacted returns a copy safe to hand to session and UI layers.
func (u User) Redacted() User {
	u.PasswordHash = ""
	u.Permissions = slices.Clone(u.Permissions)
	u.Profile = u.Profile.clone()
	return u
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName picks the first non-empty of full name, company name, email.
func (u *User) DisplayName() string {
	if p := u.Profile.Individual; p != nil && p.FullName != "" {
		return p.FullName
	}
	if p := u.Profile.Legal; p != nil && p.CompanyName != "" {
		return p.CompanyName
	}
	return u.Email
}

// Patch carries the fields an update writes; nil fields are left alone.
type Patch struct {
	Profile      *Profile
	PasswordHash *string
}

func (p Patch) Empty() bool {
	return p.Profile == nil && p.PasswordHash == nil
}

type Permissions []string

func (p Permissions) Has(capability string) bool {
	return slices.Contains(p, capability)
}

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		p = Permissions{}
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

func (p *Permissions) Scan(src any) error {
	return scanJSON(src, (*[]string)(p))
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan json: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
