package authclient_test

import (
	"fmt"
	"net/http"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", authclient.ErrAccessDenied)

	tests := []struct {
		name  string
		check func(error) bool
		err   error
		want  bool
	}{
		{"expired sentinel", authclient.IsTokenExpiredError, authclient.ErrTokenExpired, true},
		{"expired by message", authclient.IsTokenExpiredError, fmt.Errorf("token is expired"), true},
		{"expired nil", authclient.IsTokenExpiredError, nil, false},
		{"malformed sentinel", authclient.IsMalformedError, authclient.ErrTokenMalformed, true},
		{"malformed jwtware message", authclient.IsMalformedError, fmt.Errorf("missing or malformed JWT"), true},
		{"denied", authclient.IsAuthenticationDenied, authclient.ErrAuthenticationDenied, true},
		{"denied plain error", authclient.IsAuthenticationDenied, fmt.Errorf("401"), false},
		{"invalid credentials", authclient.IsInvalidCredentials, authclient.ErrInvalidCredentials, true},
		{"network", authclient.IsNetworkUnavailable, authclient.ErrNetworkUnavailable, true},
		{"access denied wrapped", authclient.IsAccessDenied, wrapped, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestErrorFromResponse(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		category errors.Category
		message  string
		check    func(error) bool
	}{
		{http.StatusBadRequest, `{"message":"name is required"}`, errors.CategoryBadInput, "bad request", nil},
		{http.StatusUnauthorized, "", errors.CategoryAuth, authclient.ErrAuthenticationDenied.Message, authclient.IsAuthenticationDenied},
		{http.StatusForbidden, "", errors.CategoryAuthz, authclient.ErrAccessDenied.Message, authclient.IsAccessDenied},
		{http.StatusNotFound, "", errors.CategoryNotFound, "resource not found", nil},
		{http.StatusUnprocessableEntity, `{"detail":"bad","errors":{"email":["invalid"]}}`, errors.CategoryValidation, "invalid input data", nil},
		{http.StatusInternalServerError, "oops", errors.CategoryInternal, "internal server error", nil},
		{http.StatusTeapot, "", errors.CategoryOperation, "error 418: I'm a teapot", nil},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := authclient.ErrorFromResponse(http.MethodGet, "/patients", tt.status, []byte(tt.body))

			var richErr *errors.Error
			if assert.True(t, errors.As(err, &richErr)) {
				assert.Equal(t, tt.category, richErr.Category)
				assert.Equal(t, tt.message, richErr.Message)
				assert.Equal(t, tt.status, richErr.Metadata["status"])
			}
			if tt.check != nil {
				assert.True(t, tt.check(err))
			}
		})
	}
}

func TestErrorFromResponse_ServerMessage(t *testing.T) {
	err := authclient.ErrorFromResponse(http.MethodPost, "/users", http.StatusUnprocessableEntity,
		[]byte(`{"message":"email taken","errors":{"email":["taken"]}}`))

	var richErr *errors.Error
	if assert.True(t, errors.As(err, &richErr)) {
		assert.Equal(t, "email taken", richErr.Metadata["server_message"])
		assert.Equal(t, map[string][]string{"email": {"taken"}}, richErr.Metadata["fields"])
	}
}

func TestSentinelsAreNotMutated(t *testing.T) {
	_ = authclient.ErrorFromResponse(http.MethodGet, "/x", http.StatusForbidden, nil)
	assert.Empty(t, authclient.ErrAccessDenied.Metadata)
}
