package authclient

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-errors"
)

// StorageKeys are the fixed keys the token store writes
type StorageKeys struct {
	Credential string
	Identity   string
	Role       string
}

// DefaultStorageKeys matches the keys used by the web front-end
func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		Credential: "auth_token",
		Identity:   "user_data",
		Role:       "user_role",
	}
}

func (k StorageKeys) withDefaults() StorageKeys {
	def := DefaultStorageKeys()
	if k.Credential == "" {
		k.Credential = def.Credential
	}
	if k.Identity == "" {
		k.Identity = def.Identity
	}
	if k.Role == "" {
		k.Role = def.Role
	}
	return k
}

func (k StorageKeys) all() []string {
	return []string{k.Credential, k.Identity, k.Role}
}

// TokenStore persists the credential, the serialized identity and the
// denormalized role. It keeps no cache: every read goes to storage.
type TokenStore struct {
	storage Storage
	keys    StorageKeys
}

// NewTokenStore creates a token store over the given storage
func NewTokenStore(storage Storage, keys StorageKeys) *TokenStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &TokenStore{
		storage: storage,
		keys:    keys.withDefaults(),
	}
}

// Keys returns the storage keys in use
func (s *TokenStore) Keys() StorageKeys {
	return s.keys
}

// Save writes all three entries in one go
func (s *TokenStore) Save(ctx context.Context, credential Credential, identity *Identity) error {
	if identity == nil {
		return errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to serialize identity")
	}

	if err := s.storage.SetAll(ctx, map[string]string{
		s.keys.Credential: credential.String(),
		s.keys.Identity:   string(data),
		s.keys.Role:       identity.Role.String(),
	}); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to save session")
	}
	return nil
}

// Clear removes the credential, identity and role entries
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.keys.all()...); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear session")
	}
	return nil
}

// ReadCredential returns the stored credential, ok is false when absent
func (s *TokenStore) ReadCredential(ctx context.Context) (Credential, bool, error) {
	raw, ok, err := s.storage.Get(ctx, s.keys.Credential)
	if err != nil {
		return "", false, errors.Wrap(err, errors.CategoryInternal, "failed to read credential")
	}
	if !ok || raw == "" {
		return "", false, nil
	}
	return Credential(raw), true, nil
}

// ReadIdentity returns the stored identity, ok is false when absent
func (s *TokenStore) ReadIdentity(ctx context.Context) (*Identity, bool, error) {
	raw, ok, err := s.storage.Get(ctx, s.keys.Identity)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to read identity")
	}
	if !ok || raw == "" {
		return nil, false, nil
	}

	identity := &Identity{}
	if err := json.Unmarshal([]byte(raw), identity); err != nil {
		return nil, false, withCause(ErrUnableToParseData, err, map[string]any{"key": s.keys.Identity})
	}
	return identity, true, nil
}

// ReadRole returns the denormalized role entry
func (s *TokenStore) ReadRole(ctx context.Context) (UserRole, bool, error) {
	raw, ok, err := s.storage.Get(ctx, s.keys.Role)
	if err != nil {
		return "", false, errors.Wrap(err, errors.CategoryInternal, "failed to read role")
	}
	if !ok || raw == "" {
		return "", false, nil
	}
	role, _ := ParseRole(raw)
	return role, true, nil
}
