package model

import (
	"strings"
	"time"
)

// Record is a contact record as it is stored in the phone_numbers table.
// The optional address and location fields are nil when no value was given.
type Record struct {
	Id        int64     `json:"id"         db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	Surname   string    `json:"surname"    db:"surname"`
	Phone     string    `json:"phone"      db:"phone"`
	Address1  *string   `json:"address_1"  db:"address_1"`
	Address2  *string   `json:"address_2"  db:"address_2"`
	City      *string   `json:"city"       db:"city"`
	State     *string   `json:"state"      db:"state"`
	Postcode  *string   `json:"postcode"   db:"postcode"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Fields is the complete set of editable contact fields. It is the only shape in which input is
// accepted for a create or an update, so nothing outside this list can ever be written.
type Fields struct {
	FirstName string  `json:"first_name" db:"first_name" validate:"required,max=255"`
	Surname   string  `json:"surname"    db:"surname"    validate:"required,max=255"`
	Phone     string  `json:"phone"      db:"phone"      validate:"required,max=50"`
	Address1  *string `json:"address_1"  db:"address_1"  validate:"omitempty,max=255"`
	Address2  *string `json:"address_2"  db:"address_2"  validate:"omitempty,max=255"`
	City      *string `json:"city"       db:"city"       validate:"omitempty,max=255"`
	State     *string `json:"state"      db:"state"      validate:"omitempty,max=255"`
	Postcode  *string `json:"postcode"   db:"postcode"   validate:"omitempty,max=20"`
}

// Normalize trims surrounding whitespace from every field. Optional fields that end up empty are
// set to nil so that they are stored as NULL.
func (f Fields) Normalize() Fields {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.Surname = strings.TrimSpace(f.Surname)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address1 = trimOptional(f.Address1)
	f.Address2 = trimOptional(f.Address2)
	f.City = trimOptional(f.City)
	f.State = trimOptional(f.State)
	f.Postcode = trimOptional(f.Postcode)
	return f
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
