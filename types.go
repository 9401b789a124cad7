package authclient

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetLoginPath() string
	GetAuthScheme() string
	GetLoginRoute() string
	GetDefaultRoute() string
	GetStorageKeys() StorageKeys
	GetPhoneRegion() string
	GetLoginFields() LoginFields
}

// Credentials is the username/password pair sent to the login endpoint
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate ensures both fields are present before any network call
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Password, validation.Required, validation.Length(1, 200)),
	)
}

// LoginResult is what a backend returns on a successful login
type LoginResult struct {
	Credential Credential
	Identity   *Identity
}

// LoginClient sends credentials to the backend
type LoginClient interface {
	Login(ctx context.Context, credentials Credentials) (*LoginResult, error)
}

// LoginClientFunc adapts a function into a LoginClient.
type LoginClientFunc func(ctx context.Context, credentials Credentials) (*LoginResult, error)

// Login satisfies the LoginClient interface.
func (f LoginClientFunc) Login(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	return f(ctx, credentials)
}

// CredentialSource is what the request authenticator needs from a session
type CredentialSource interface {
	Credential(ctx context.Context) (Credential, bool)
	HandleAuthenticationDenied(ctx context.Context, used Credential)
}

// SessionReader exposes the read side of a session plus the forced logout
// used by guards.
type SessionReader interface {
	IsAuthenticated(ctx context.Context) bool
	IsExpired(ctx context.Context) bool
	CurrentIdentity() *Identity
	Logout(ctx context.Context) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] AUTH " + render(format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] AUTH " + render(format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] AUTH " + render(format, args...))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] AUTH " + render(format, args...))
}

// render accepts both printf style calls and a message followed by
// key/value pairs.
func render(format string, args ...any) string {
	if len(args) == 0 {
		return newline(format)
	}
	if strings.Contains(format, "%") {
		return newline(fmt.Sprintf(format, args...))
	}

	var b strings.Builder
	b.WriteString(format)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(logger Logger) Logger {
	if logger == nil {
		return defLogger{}
	}
	return logger
}
