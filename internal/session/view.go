// AngelaMos | 2026
// view.go

package session

import (
	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/user"
)

// View is the display state a presentation layer renders from. Version
// grows with every state change; a higher Version is newer.
type View struct {
	Version        uint64       `json:"version"`
	Authenticated  bool         `json:"authenticated"`
	UserID         string       `json:"userId,omitempty"`
	DisplayName    string       `json:"displayName,omitempty"`
	Role           user.Role    `json:"role,omitempty"`
	CanAccessAdmin bool         `json:"canAccessAdmin"`
	AdminSections  []string     `json:"adminSections,omitempty"`
	Balance        money.Amount `json:"balance"`
	BonusPoints    int64        `json:"bonusPoints"`
	CreditLimit    money.Amount `json:"creditLimit"`
}

func viewOf(u *user.User, version uint64) View {
	if u == nil {
		return View{Version: version}
	}

	return View{
		Version:        version,
		Authenticated:  true,
		UserID:         u.ID,
		DisplayName:    u.DisplayName(),
		Role:           u.Role,
		CanAccessAdmin: auth.CanAccessAdmin(u.Role),
		AdminSections:  auth.VisibleSections(u.Role, u.Permissions),
		Balance:        u.Account.Balance,
		BonusPoints:    u.Account.BonusPoints,
		CreditLimit:    u.Account.CreditLimit,
	}
}
