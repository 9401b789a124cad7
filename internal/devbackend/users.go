package devbackend

import (
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound      = errors.New("user not found", errors.CategoryNotFound).WithCode(errors.CodeNotFound)
	ErrMismatchedHash    = errors.New("invalid credentials", errors.CategoryAuth).WithCode(errors.CodeUnauthorized)
	ErrEmptyPassword     = errors.New("password must not be empty", errors.CategoryBadInput).WithCode(errors.CodeBadRequest)
	ErrDuplicateUsername = errors.New("username already taken", errors.CategoryConflict).WithCode(errors.CodeConflict)
)

// User is an account known to the dev backend
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"nombre"`
	Username     string    `json:"nombre_usuario"`
	Email        string    `json:"email"`
	Phone        string    `json:"telefono"`
	Role         string    `json:"rol"`
	Active       bool      `json:"activo"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"fecha_creacion"`
	UpdatedAt    time.Time `json:"fecha_edicion"`
}

// SeedUser describes an account to create on startup
type SeedUser struct {
	Name     string
	Username string
	Password string
	Email    string
	Phone    string
	Role     string
}

// DefaultSeedUsers has one account per role, all with password "secret"
func DefaultSeedUsers() []SeedUser {
	return []SeedUser{
		{Name: "Ada Admin", Username: "admin", Password: "secret", Email: "admin@example.com", Phone: "+1 415 555 0100", Role: "admin"},
		{Name: "Gregory House", Username: "doctor", Password: "secret", Email: "doctor@example.com", Phone: "415 555 0101", Role: "medico"},
		{Name: "Florence N", Username: "nurse", Password: "secret", Email: "nurse@example.com", Role: "enfermera"},
		{Name: "Pat Patient", Username: "patient", Password: "secret", Email: "patient@example.com", Role: "paciente"},
		{Name: "Una User", Username: "user", Password: "secret", Email: "user@example.com", Role: "usuario"},
	}
}

// HashPassword generates a bcrypt hash with the given cost
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash validates the cleartext password against hash
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHash
		}
		return err
	}
	return nil
}

// UserStore is an in-memory user table keyed by username
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*User
	cost  int
}

// NewUserStore creates an empty store. cost is the bcrypt cost.
func NewUserStore(cost int) *UserStore {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &UserStore{
		users: make(map[string]*User),
		cost:  cost,
	}
}

// Add hashes the seed password and stores the user
func (s *UserStore) Add(seed SeedUser) (*User, error) {
	hash, err := HashPassword(seed.Password, s.cost)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.TrimSpace(seed.Username))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; ok {
		return nil, ErrDuplicateUsername.Clone().WithMetadata(map[string]any{"username": seed.Username})
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Name:         seed.Name,
		Username:     seed.Username,
		Email:        seed.Email,
		Phone:        seed.Phone,
		Role:         seed.Role,
		Active:       true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[key] = user
	return user, nil
}

// Authenticate returns the user matching username and password
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	user, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrUserNotFound
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	if !user.Active {
		return nil, ErrMismatchedHash
	}

	return user, nil
}

// Len returns the number of users
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
