package authclient

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeMissingCredentials    = "MISSING_CREDENTIALS"
	TextCodeNetworkUnavailable    = "NETWORK_UNAVAILABLE"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeAuthenticationDenied  = "AUTHENTICATION_DENIED"
	TextCodeAccessDenied          = "ACCESS_DENIED"
	TextCodeUnableToParseData     = "UNABLE_TO_PARSE_DATA"
	TextCodeNoSession             = "NO_SESSION"
	TextCodeUnexpectedAPIResponse = "UNEXPECTED_API_RESPONSE"
)

// ErrInvalidCredentials is returned when the backend rejects a username/password pair.
var ErrInvalidCredentials = errors.New("invalid username or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrMissingCredentials is returned before any network call when the login form is incomplete.
var ErrMissingCredentials = errors.New("username and password are required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingCredentials).
	WithCode(errors.CodeBadRequest)

// ErrNetworkUnavailable is returned when the backend cannot be reached.
var ErrNetworkUnavailable = errors.New("unable to reach the server, check your connection", errors.CategoryOperation).
	WithTextCode(TextCodeNetworkUnavailable).
	WithCode(http.StatusServiceUnavailable)

// ErrTokenExpired is returned when the stored credential expiry has passed.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a credential cannot be decoded.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAuthenticationDenied is returned when the backend answers 401 on a protected call.
var ErrAuthenticationDenied = errors.New("not authorized, please sign in again", errors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationDenied).
	WithCode(errors.CodeUnauthorized)

// ErrAccessDenied is returned when the current role cannot reach a section.
var ErrAccessDenied = errors.New("access denied", errors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(errors.CodeForbidden)

// ErrNoSession is returned when an operation requires an authenticated session.
var ErrNoSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryInternal).
	WithTextCode(TextCodeUnableToParseData).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsAuthenticationDenied reports whether err came from a backend 401.
func IsAuthenticationDenied(err error) bool {
	return hasTextCode(err, TextCodeAuthenticationDenied)
}

// IsInvalidCredentials reports whether the backend rejected a login.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsNetworkUnavailable reports whether err is a transport failure.
func IsNetworkUnavailable(err error) bool {
	return hasTextCode(err, TextCodeNetworkUnavailable)
}

// IsAccessDenied reports whether err is a role gating failure.
func IsAccessDenied(err error) bool {
	return hasTextCode(err, TextCodeAccessDenied)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	for richErr != nil {
		if richErr.TextCode == code {
			return true
		}
		next, ok := richErr.Source.(*errors.Error)
		if !ok {
			return false
		}
		richErr = next
	}
	return false
}

func withCause(sentinel *errors.Error, cause error, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(metadata) > 0 {
		return clone.WithMetadata(metadata)
	}
	return clone
}
