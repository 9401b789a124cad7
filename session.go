package authclient

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-print"
)

// SessionState is either anonymous or authenticated
type SessionState string

const (
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

var _ CredentialSource = &SessionManager{}
var _ SessionReader = &SessionManager{}

// SessionManager owns the in-memory session and is the only writer of the
// token store. Login, Logout and forced logouts are serialized and each
// transition is published to subscribers in the order it happened.
type SessionManager struct {
	client       LoginClient
	store        *TokenStore
	decoder      CredentialDecoder
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time

	transitionMu sync.Mutex
	stateMu      sync.RWMutex
	identity     *Identity
	feed         identityFeed
}

// NewSessionManager returns a session manager. Call Start to rehydrate.
func NewSessionManager(client LoginClient, store *TokenStore) *SessionManager {
	if store == nil {
		store = NewTokenStore(nil, DefaultStorageKeys())
	}
	return &SessionManager{
		client:       client,
		store:        store,
		decoder:      NewCredentialDecoder(nil),
		logger:       defLogger{},
		activitySink: discardSink{},
		now:          time.Now,
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	m.logger = normalizeLogger(logger)
	return m
}

// WithClock injects a custom clock (useful for tests).
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithDecoder sets the credential decoder, e.g. one that verifies signatures.
func (m *SessionManager) WithDecoder(decoder CredentialDecoder) *SessionManager {
	if decoder != nil {
		m.decoder = decoder
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting session events.
func (m *SessionManager) WithActivitySink(sink ActivitySink) *SessionManager {
	m.activitySink = normalizeActivitySink(sink)
	return m
}

// Start rehydrates the session from storage and publishes the result once.
// Leftover entries that don't form a valid session are cleared.
func (m *SessionManager) Start(ctx context.Context) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	identity, err := m.rehydrate(ctx)
	m.swapIdentity(identity)
	m.feed.publish(identity)
	return err
}

func (m *SessionManager) rehydrate(ctx context.Context) (*Identity, error) {
	credential, ok, err := m.store.ReadCredential(ctx)
	if err != nil {
		m.logger.Error("rehydrate read credential error", "error", err)
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	claims, err := m.decoder.Decode(credential)
	if err != nil {
		m.discard(ctx, "malformed", err)
		return nil, nil
	}

	if claims.IsExpired(m.now()) {
		m.discard(ctx, "expired", ErrTokenExpired)
		return nil, nil
	}

	identity, ok, err := m.store.ReadIdentity(ctx)
	if err != nil || !ok {
		m.discard(ctx, "identity", err)
		return nil, nil
	}

	m.resolveRole(identity, claims)

	m.emitActivity(ctx, ActivityEventSessionRehydrated, identity, map[string]any{
		"expires_at": claims.Expires(),
	})

	return identity, nil
}

func (m *SessionManager) discard(ctx context.Context, reason string, cause error) {
	m.logger.Warn("discarding stored session", "reason", reason, "error", cause)
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("discard stored session clear error", "error", err)
	}
	meta := map[string]any{"reason": reason}
	if cause != nil {
		meta["error"] = cause.Error()
	}
	m.emitActivity(ctx, ActivityEventSessionRehydrateFail, nil, meta)
}

// Login sends credentials to the backend. On success the session is saved
// and published; on failure any previous session is left untouched.
func (m *SessionManager) Login(ctx context.Context, credentials Credentials) (*Identity, error) {
	if err := credentials.Validate(); err != nil {
		return nil, withCause(ErrMissingCredentials, err, nil)
	}

	if m.client == nil {
		return nil, withCause(ErrNetworkUnavailable, nil, map[string]any{"reason": "no login client configured"})
	}

	result, err := m.client.Login(ctx, credentials)
	if err != nil {
		m.logger.Error("Login backend error", "error", err)
		m.emitActivity(ctx, ActivityEventLoginFailure, nil, map[string]any{
			"username": credentials.Username,
			"error":    err.Error(),
		})
		return nil, err
	}

	if result == nil || result.Credential.IsZero() || result.Identity == nil {
		m.logger.Error("Login response is missing credential or identity")
		return nil, withCause(ErrUnableToParseData, nil, map[string]any{"reason": "incomplete login response"})
	}

	claims, err := m.decoder.Decode(result.Credential)
	if err != nil {
		m.logger.Error("Login credential decode error", "error", err)
		return nil, err
	}

	if claims.IsExpired(m.now()) {
		return nil, ErrTokenExpired
	}

	identity := result.Identity.Clone()
	if identity.ID == "" {
		identity.ID = claims.UserID()
	}
	m.resolveRole(identity, claims)

	if err := identity.Validate(); err != nil {
		m.logger.Error("Login identity validation error", "error", err)
		return nil, withCause(ErrUnableToParseData, err, map[string]any{"reason": "invalid identity"})
	}

	m.transitionMu.Lock()
	if err := m.store.Save(ctx, result.Credential, identity); err != nil {
		m.transitionMu.Unlock()
		m.logger.Error("Login save session error", "error", err)
		return nil, err
	}
	m.swapIdentity(identity)
	m.feed.publish(identity)
	m.transitionMu.Unlock()

	m.emitActivity(ctx, ActivityEventLoginSuccess, identity, map[string]any{
		"expires_at": claims.Expires(),
	})

	return identity.Clone(), nil
}

// resolveRole keeps the payload role when present and falls back to the
// role embedded in the credential. Anything else becomes RoleUnknown.
func (m *SessionManager) resolveRole(identity *Identity, claims *CredentialClaims) {
	if identity.Role != "" {
		role, _ := ParseRole(string(identity.Role))
		identity.Role = role
		return
	}
	if role, ok := claims.Role(); ok {
		identity.Role = role
		return
	}
	identity.Role = RoleUnknown
}

// Logout clears storage and publishes an absent identity. Safe to call
// without an active session; subscribers only hear about real transitions.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.endSession(ctx, ActivityEventLogout)
}

// ExpireSession is the forced logout used when a guard finds the stored
// credential expired.
func (m *SessionManager) ExpireSession(ctx context.Context) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.endSession(ctx, ActivityEventSessionExpired)
}

// HandleAuthenticationDenied is called when the backend answers 401 to a
// request signed with used. The session only ends when used is still the
// stored credential; a late 401 for a replaced session is ignored.
func (m *SessionManager) HandleAuthenticationDenied(ctx context.Context, used Credential) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	current, ok := m.Credential(ctx)
	if !ok || current != used {
		m.logger.Debug("authentication denied for a stale credential, keeping session")
		return
	}

	if err := m.endSession(ctx, ActivityEventSessionDenied); err != nil {
		m.logger.Error("forced logout error", "error", err)
	}
}

func (m *SessionManager) endSession(ctx context.Context, event ActivityEventType) error {
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error("session clear error", "event", event, "error", err)
	}

	prev := m.swapIdentity(nil)
	if prev == nil {
		return err
	}

	m.feed.publish(nil)
	m.emitActivity(ctx, event, prev, nil)
	return err
}

// CurrentIdentity returns a copy of the in-memory identity or nil
func (m *SessionManager) CurrentIdentity() *Identity {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.identity.Clone()
}

// Role returns the current role, ok is false when anonymous
func (m *SessionManager) Role() (UserRole, bool) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.identity == nil {
		return "", false
	}
	return m.identity.Role, true
}

// State returns the in-memory session state
func (m *SessionManager) State() SessionState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.identity == nil {
		return SessionAnonymous
	}
	return SessionAuthenticated
}

// IsAuthenticated is true when a credential is currently stored
func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.Credential(ctx)
	return ok
}

// IsExpired decodes the stored credential and compares its expiry with the
// clock. Absent or malformed credentials count as expired.
func (m *SessionManager) IsExpired(ctx context.Context) bool {
	credential, ok := m.Credential(ctx)
	if !ok {
		return true
	}

	claims, err := m.decoder.Decode(credential)
	if err != nil {
		m.logger.Debug("stored credential could not be decoded", "error", err)
		return true
	}

	return claims.IsExpired(m.now())
}

// Credential reads the stored credential
func (m *SessionManager) Credential(ctx context.Context) (Credential, bool) {
	credential, ok, err := m.store.ReadCredential(ctx)
	if err != nil {
		m.logger.Error("read credential error", "error", err)
		return "", false
	}
	return credential, ok
}

// Subscribe registers an observer. It is called right away with the current
// identity and then once per transition. Observers may use the read
// accessors but must not call Login, Logout or Subscribe from the callback.
func (m *SessionManager) Subscribe(fn IdentityObserver) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	fn(m.CurrentIdentity())
	return m.feed.add(fn)
}

func (m *SessionManager) swapIdentity(identity *Identity) *Identity {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	prev := m.identity
	m.identity = identity.Clone()
	return prev
}

func (m *SessionManager) emitActivity(ctx context.Context, eventType ActivityEventType, identity *Identity, metadata map[string]any) {
	sink := normalizeActivitySink(m.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}

	if identity != nil {
		event.UserID = identity.ID
		event.Username = identity.Username
		event.Role = identity.Role
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error", "event", eventType, "details", print.MaybePrettyJSON(event.Metadata), "error", err)
	}
}
