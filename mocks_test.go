package authclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key")

// MockLoginClient implements authclient.LoginClient
type MockLoginClient struct {
	mock.Mock
}

func (m *MockLoginClient) Login(ctx context.Context, credentials authclient.Credentials) (*authclient.LoginResult, error) {
	args := m.Called(ctx, credentials)
	res, _ := args.Get(0).(*authclient.LoginResult)
	return res, args.Error(1)
}

// baseContext names the embedded router.Context so it does not clash with
// the Context method
type baseContext = router.Context

// MockContext mocks the router.Context methods the guard middleware uses.
// Any other method panics through the nil embedded interface.
type MockContext struct {
	baseContext
	mock.Mock
	ctx     context.Context
	headers map[string]string
	status  int
	sent    bool
}

func newMockContext(method string) *MockContext {
	m := &MockContext{ctx: context.Background(), headers: map[string]string{}}
	m.On("Method").Return(method)
	return m
}

func (m *MockContext) Context() context.Context {
	return m.ctx
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SetHeader(key, value string) router.ResponseWriter {
	m.headers[key] = value
	return m
}

func (m *MockContext) Header(key string) string {
	return m.headers[key]
}

func (m *MockContext) Status(code int) router.ResponseWriter {
	m.status = code
	return m
}

func (m *MockContext) Send(body []byte) error {
	m.sent = true
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event authclient.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []authclient.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authclient.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// signToken builds an HS256 credential expiring at exp. A zero exp leaves
// the claim out.
func signToken(t *testing.T, uid, role string, exp time.Time) authclient.Credential {
	t.Helper()

	claims := &authclient.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uid,
			IssuedAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UID:      uid,
		UserRole: role,
	}
	if !exp.IsZero() {
		claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return authclient.Credential(raw)
}

func loginResult(t *testing.T, username string, role authclient.UserRole, exp time.Time) *authclient.LoginResult {
	t.Helper()
	return &authclient.LoginResult{
		Credential: signToken(t, "id-"+username, string(role), exp),
		Identity: &authclient.Identity{
			ID:       "id-" + username,
			Username: username,
			Role:     role,
			Active:   true,
		},
	}
}

// newTestSession wires a session manager over storage with a mocked login
// client that accepts any credentials for username.
func newTestSession(t *testing.T, storage authclient.Storage, role authclient.UserRole, exp time.Time) (*authclient.SessionManager, *MockLoginClient) {
	t.Helper()
	client := &MockLoginClient{}
	client.On("Login", mock.Anything, mock.MatchedBy(func(c authclient.Credentials) bool {
		return c.Password == "secret"
	})).Return(loginResult(t, "tester", role, exp), nil).Maybe()

	store := authclient.NewTokenStore(storage, authclient.DefaultStorageKeys())
	session := authclient.NewSessionManager(client, store).WithLogger(nopLogger{})
	return session, client
}

// richMessage returns the message of the outermost rich error in err
func richMessage(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
