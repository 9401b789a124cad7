package authclient

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers without a country prefix
const DefaultPhoneRegion = "US"

// Identity is the authenticated user profile
type Identity struct {
	ID        string     `json:"id"`
	Name      string     `json:"name,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      UserRole   `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// UUID parses the identity ID
func (i *Identity) UUID() (uuid.UUID, error) {
	return uuid.Parse(i.ID)
}

// HasRole checks the identity role
func (i *Identity) HasRole(role UserRole) bool {
	if i == nil {
		return false
	}
	return i.Role == role
}

// Validate checks the invariants we rely on after login: an identifier,
// a login name and exactly one role.
func (i Identity) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ID, validation.Required),
		validation.Field(&i.Username, validation.Required),
		validation.Field(&i.Email, is.Email),
		validation.Field(&i.Role, validation.Required),
	)
}

// Clone returns a copy so callers can't mutate session state
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.CreatedAt != nil {
		t := *i.CreatedAt
		c.CreatedAt = &t
	}
	if i.UpdatedAt != nil {
		t := *i.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// NormalizePhone formats a phone number as E.164. Numbers that can't be
// parsed are returned trimmed but otherwise untouched.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return raw
	}
	if !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
