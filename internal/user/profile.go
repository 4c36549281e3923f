// AngelaMos | 2026
// profile.go

package user

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Profile holds exactly one populated variant, matching the user's
// ProfileType.
type Profile struct {
	Individual *IndividualProfile `json:"individual,omitempty"`
	Legal      *LegalProfile      `json:"legal,omitempty"`
}

type IndividualProfile struct {
	FullName        string `json:"fullName"`
	BirthDate       string `json:"birthDate"`
	Gender          string `json:"gender"`
	DeliveryAddress string `json:"deliveryAddress"`
	PassportSeries  string `json:"passportSeries"`
	PassportNumber  string `json:"passportNumber"`
	PassportIssued  string `json:"passportIssued"`
}

type LegalProfile struct {
	CompanyName     string `json:"companyName"`
	INN             string `json:"inn"`
	KPP             string `json:"kpp"`
	LegalAddress    string `json:"legalAddress"`
	ContactPerson   string `json:"contactPerson"`
	DeliveryAddress string `json:"deliveryAddress"`
	AccountingEmail string `json:"accountingEmail"`
	DirectorName    string `json:"directorName"`
}

// ProfileUpdate is a shallow partial update: non-nil fields overwrite,
// nil fields keep their current value. Fields that belong to the other
// profile variant are ignored.
type ProfileUpdate struct {
	FullName        *string `json:"fullName,omitempty"`
	BirthDate       *string `json:"birthDate,omitempty"`
	Gender          *string `json:"gender,omitempty"`
	PassportSeries  *string `json:"passportSeries,omitempty"`
	PassportNumber  *string `json:"passportNumber,omitempty"`
	PassportIssued  *string `json:"passportIssued,omitempty"`
	CompanyName     *string `json:"companyName,omitempty"`
	INN             *string `json:"inn,omitempty"`
	KPP             *string `json:"kpp,omitempty"`
	LegalAddress    *string `json:"legalAddress,omitempty"`
	ContactPerson   *string `json:"contactPerson,omitempty"`
	AccountingEmail *string `json:"accountingEmail,omitempty"`
	DirectorName    *string `json:"directorName,omitempty"`
	DeliveryAddress *string `json:"deliveryAddress,omitempty"`
}

// NewProfile builds the variant for t. Unsupplied fields are "".
func NewProfile(t ProfileType, in ProfileFields) Profile {
	if t == ProfileLegal {
		return Profile{Legal: &LegalProfile{
			CompanyName:     in.CompanyName,
			INN:             in.INN,
			KPP:             in.KPP,
			LegalAddress:    in.LegalAddress,
			ContactPerson:   in.ContactPerson,
			DeliveryAddress: in.DeliveryAddress,
			AccountingEmail: in.Email,
			DirectorName:    in.ContactPerson,
		}}
	}

	return Profile{Individual: &IndividualProfile{
		FullName:        in.FullName,
		BirthDate:       in.BirthDate,
		Gender:          in.Gender,
		DeliveryAddress: in.DeliveryAddress,
	}}
}

// ProfileFields is the flat registration form.
type ProfileFields struct {
	Email           string
	FullName        string
	BirthDate       string
	Gender          string
	DeliveryAddress string
	CompanyName     string
	INN             string
	KPP             string
	LegalAddress    string
	ContactPerson   string
}

// Merge returns a copy of p with upd applied.
func (p Profile) Merge(upd ProfileUpdate) Profile {
	out := p.clone()

	if ind := out.Individual; ind != nil {
		set(&ind.FullName, upd.FullName)
		set(&ind.BirthDate, upd.BirthDate)
		set(&ind.Gender, upd.Gender)
		set(&ind.PassportSeries, upd.PassportSeries)
		set(&ind.PassportNumber, upd.PassportNumber)
		set(&ind.PassportIssued, upd.PassportIssued)
		set(&ind.DeliveryAddress, upd.DeliveryAddress)
	}

	if leg := out.Legal; leg != nil {
		set(&leg.CompanyName, upd.CompanyName)
		set(&leg.INN, upd.INN)
		set(&leg.KPP, upd.KPP)
		set(&leg.LegalAddress, upd.LegalAddress)
		set(&leg.ContactPerson, upd.ContactPerson)
		set(&leg.AccountingEmail, upd.AccountingEmail)
		set(&leg.DirectorName, upd.DirectorName)
		set(&leg.DeliveryAddress, upd.DeliveryAddress)
	}

	return out
}

func (p Profile) clone() Profile {
	var out Profile
	if p.Individual != nil {
		ind := *p.Individual
		out.Individual = &ind
	}
	if p.Legal != nil {
		leg := *p.Legal
		out.Legal = &leg
	}
	return out
}

func (p Profile) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return string(b), nil
}

func (p *Profile) Scan(src any) error {
	return scanJSON(src, p)
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
