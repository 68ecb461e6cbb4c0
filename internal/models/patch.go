package models

import "time"

// Patch structs list exactly the mutable fields of an entity. A nil field is
// "not touched"; anything a client sends outside these fields never reaches
// the store.

type TripPatch struct {
	CountryFrom         *string    `json:"country_from"`
	CountryTo           *string    `json:"country_to"`
	Date                *time.Time `json:"-"`
	DepartureTime       *string    `json:"departure_time"`
	RatePerKg           *float64   `json:"rate_per_kg"`
	Currency            *string    `json:"currency"`
	AvailableCargoSpace *float64   `json:"available_cargo_space"`
	Description         *string    `json:"description"`
	ContactInfo         *string    `json:"contact_info"`
	Status              *string    `json:"status"`
}

// Empty reports whether no field is set.
func (p TripPatch) Empty() bool {
	return p.CountryFrom == nil && p.CountryTo == nil && p.Date == nil &&
		p.DepartureTime == nil && p.RatePerKg == nil && p.Currency == nil &&
		p.AvailableCargoSpace == nil && p.Description == nil &&
		p.ContactInfo == nil && p.Status == nil
}

// Updates flattens the set fields into a column->value map for the store.
func (p TripPatch) Updates() map[string]any {
	u := map[string]any{}
	if p.CountryFrom != nil {
		u["country_from"] = *p.CountryFrom
	}
	if p.CountryTo != nil {
		u["country_to"] = *p.CountryTo
	}
	if p.Date != nil {
		u["date"] = *p.Date
	}
	if p.DepartureTime != nil {
		u["departure_time"] = *p.DepartureTime
	}
	if p.RatePerKg != nil {
		u["rate_per_kg"] = *p.RatePerKg
	}
	if p.Currency != nil {
		u["currency"] = *p.Currency
	}
	if p.AvailableCargoSpace != nil {
		u["available_cargo_space"] = *p.AvailableCargoSpace
	}
	if p.Description != nil {
		u["description"] = *p.Description
	}
	if p.ContactInfo != nil {
		u["contact_info"] = *p.ContactInfo
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	return u
}

type ProfilePatch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`
	Website   *string `json:"website"`
	Bio       *string `json:"bio"`
}

func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.Company == nil && p.Website == nil && p.Bio == nil
}

func (p ProfilePatch) Updates() map[string]any {
	u := map[string]any{}
	if p.FirstName != nil {
		u["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		u["last_name"] = *p.LastName
	}
	if p.Phone != nil {
		u["phone"] = *p.Phone
	}
	if p.Company != nil {
		u["company"] = *p.Company
	}
	if p.Website != nil {
		u["website"] = *p.Website
	}
	if p.Bio != nil {
		u["bio"] = *p.Bio
	}
	return u
}
