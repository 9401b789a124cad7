package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the opaque bearer token returned by the backend
type Credential string

func (c Credential) String() string {
	return string(c)
}

// IsZero reports an empty credential
func (c Credential) IsZero() bool {
	return c == ""
}

// CredentialClaims is the decoded credential payload
type CredentialClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the user ID
func (c *CredentialClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role embedded in the credential, if any
func (c *CredentialClaims) Role() (UserRole, bool) {
	if c.UserRole == "" {
		return "", false
	}
	return ParseRole(c.UserRole)
}

// Expires returns the expiration time
func (c *CredentialClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *CredentialClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// IsExpired is true when there is no expiry or it is not after now
func (c *CredentialClaims) IsExpired(now time.Time) bool {
	exp := c.Expires()
	if exp.IsZero() {
		return true
	}
	return !exp.After(now)
}
