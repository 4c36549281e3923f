// AngelaMos | 2026
// dto.go

package session

import (
	"github.com/nexxstore/storefront/internal/money"
	"github.com/nexxstore/storefront/internal/order"
	"github.com/nexxstore/storefront/internal/user"
)

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password"   validate:"required,max=128"`
}

type RegisterRequest struct {
	Email           string `json:"email"           validate:"required,email,max=255"`
	Phone           string `json:"phone"           validate:"required,min=3,max=32"`
	Password        string `json:"password"        validate:"required,min=6,max=128"`
	ProfileType     string `json:"profileType"     validate:"omitempty,oneof=individual legal"`
	FullName        string `json:"fullName"        validate:"max=255"`
	BirthDate       string `json:"birthDate"       validate:"max=32"`
	Gender          string `json:"gender"          validate:"max=32"`
	DeliveryAddress string `json:"deliveryAddress" validate:"max=500"`
	CompanyName     string `json:"companyName"     validate:"max=255"`
	INN             string `json:"inn"             validate:"max=12"`
	KPP             string `json:"kpp"             validate:"max=9"`
	LegalAddress    string `json:"legalAddress"    validate:"max=500"`
	ContactPerson   string `json:"contactPerson"   validate:"max=255"`
}

func (r RegisterRequest) toInput() RegisterInput {
	return RegisterInput{
		Email:       r.Email,
		Phone:       r.Phone,
		Password:    r.Password,
		ProfileType: user.ProfileType(r.ProfileType),
		Profile: user.ProfileFields{
			FullName:        r.FullName,
			BirthDate:       r.BirthDate,
			Gender:          r.Gender,
			DeliveryAddress: r.DeliveryAddress,
			CompanyName:     r.CompanyName,
			INN:             r.INN,
			KPP:             r.KPP,
			LegalAddress:    r.LegalAddress,
			ContactPerson:   r.ContactPerson,
		},
	}
}

// AmountRequest carries rubles, 12.34.
type AmountRequest struct {
	Amount money.Amount `json:"amount"`
}

type BonusRequest struct {
	Points int64 `json:"points"`
}

type BalanceResponse struct {
	Balance money.Amount `json:"balance"`
}

type BonusResponse struct {
	BonusPoints int64 `json:"bonusPoints"`
}

type StateResponse struct {
	View View       `json:"view"`
	User *user.User `json:"user,omitempty"`
}

type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

type OrdersResponse struct {
	Orders []order.Order `json:"orders"`
}
