// Package devbackend is a small fiber server that speaks the back office
// API: a login endpoint that mints bearer tokens and a protected, paginated
// section API. It is meant for local development and integration tests.
package devbackend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultLoginPath  = "/auth/login"
	DefaultAuthScheme = "Bearer"
	DefaultIssuer     = "backoffice-dev"

	localsClaims = "claims"
)

// Config configures the dev backend
type Config struct {
	SigningKey []byte
	TokenTTL   time.Duration
	Issuer     string
	BcryptCost int
	LoginPath  string
	AuthScheme string
	Seed       []SeedUser
	Rules      authclient.AccessRules
	Fixtures   map[authclient.Section][]map[string]any
	Logger     authclient.Logger
}

// Server is the dev backend
type Server struct {
	app      *fiber.App
	users    *UserStore
	tokens   *TokenService
	policy   *authclient.AccessPolicy
	fixtures map[authclient.Section][]map[string]any
	scheme   string
	logger   authclient.Logger
}

// New creates a server and seeds its users
func New(cfg Config) (*Server, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("signing key is required", errors.CategoryValidation)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Seed == nil {
		cfg.Seed = DefaultSeedUsers()
	}
	if cfg.Rules == nil {
		cfg.Rules = authclient.DefaultAccessRules()
	}
	if cfg.Fixtures == nil {
		cfg.Fixtures = DefaultFixtures()
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	s := &Server{
		users:    NewUserStore(cfg.BcryptCost),
		tokens:   NewTokenService(cfg.SigningKey, cfg.TokenTTL, cfg.Issuer),
		policy:   authclient.NewAccessPolicy(cfg.Rules),
		fixtures: cfg.Fixtures,
		scheme:   cfg.AuthScheme,
		logger:   cfg.Logger,
	}

	for _, seed := range cfg.Seed {
		if _, err := s.users.Add(seed); err != nil {
			return nil, err
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "backoffice-dev",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Post(cfg.LoginPath, s.login)

	api := s.app.Group("/", s.authenticate)
	api.Get("/:section", s.listSection)
	api.Get("/:section/:id", s.getEntry)

	return s, nil
}

// App exposes the fiber app, mostly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Tokens exposes the token service so tests can mint custom tokens
func (s *Server) Tokens() *TokenService {
	return s.tokens
}

// Users exposes the user table
func (s *Server) Users() *UserStore {
	return s.users
}

// Transport returns a RoundTripper that serves requests in process through
// the fiber app, no listener needed.
func (s *Server) Transport() http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return s.app.Test(req, -1)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Listen serves on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("dev backend listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// loginRequest accepts both the english and the spanish field names
type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	NombreUsuario string `json:"nombre_usuario"`
	Contrasena    string `json:"contrasena"`
}

func (r loginRequest) credentials() (string, string) {
	username, password := r.Username, r.Password
	if strings.TrimSpace(username) == "" {
		username = r.NombreUsuario
	}
	if password == "" {
		password = r.Contrasena
	}
	return strings.TrimSpace(username), password
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (s *Server) login(c *fiber.Ctx) error {
	req := loginRequest{}
	if err := c.BodyParser(&req); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid login payload").
			WithCode(fiber.StatusBadRequest)
	}

	username, password := req.credentials()
	if username == "" || password == "" {
		return errors.New("username and password are required", errors.CategoryValidation).
			WithCode(fiber.StatusBadRequest)
	}

	user, err := s.users.Authenticate(username, password)
	if err != nil {
		s.logger.Info("dev backend login rejected", "username", username)
		return ErrMismatchedHash
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return err
	}

	s.logger.Info("dev backend login", "username", user.Username, "role", user.Role)

	return c.JSON(loginResponse{
		Token: token,
		User:  user,
	})
}

// authenticate is the bearer middleware guarding the section API
func (s *Server) authenticate(c *fiber.Ctx) error {
	raw, err := bearerToken(c.Get(fiber.HeaderAuthorization), s.scheme)
	if err != nil {
		return ErrTokenInvalid.Clone().WithMetadata(map[string]any{"reason": "missing bearer token"})
	}

	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return err
	}

	c.Locals(localsClaims, claims)
	return c.Next()
}

func (s *Server) claims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(localsClaims).(*Claims)
	return claims
}

func (s *Server) section(c *fiber.Ctx) (authclient.Section, error) {
	section := authclient.Section(strings.ToLower(c.Params("section")))
	rows, ok := s.fixtures[section]
	if !ok || rows == nil {
		return "", errors.New("resource not found", errors.CategoryNotFound).
			WithCode(fiber.StatusNotFound).
			WithMetadata(map[string]any{"section": section})
	}

	claims := s.claims(c)
	if claims == nil {
		return "", ErrTokenInvalid
	}

	role, _ := authclient.ParseRole(claims.Role)
	if !s.policy.CanReach(role, section) {
		return "", errors.New("access denied", errors.CategoryAuthz).
			WithCode(fiber.StatusForbidden).
			WithMetadata(map[string]any{"section": section, "role": role})
	}

	return section, nil
}

func (s *Server) listSection(c *fiber.Ctx) error {
	section, err := s.section(c)
	if err != nil {
		return err
	}

	q := listQuery{}
	if err := c.QueryParser(&q); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid query").
			WithCode(fiber.StatusBadRequest)
	}

	filters := map[string]string{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		if reservedQueryKeys[k] {
			return
		}
		filters[k] = string(value)
	})

	return c.JSON(paginate(s.fixtures[section], q, filters))
}

func (s *Server) getEntry(c *fiber.Ctx) error {
	section, err := s.section(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	for _, row := range s.fixtures[section] {
		if toString(row["id"]) == id {
			return c.JSON(row)
		}
	}

	return errors.New("resource not found", errors.CategoryNotFound).
		WithCode(fiber.StatusNotFound).
		WithMetadata(map[string]any{"section": section, "id": id})
}

type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	var richErr *errors.Error
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &richErr):
		if richErr.Code != 0 {
			status = richErr.Code
		}
		message = richErr.Message
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		message = fiberErr.Message
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("dev backend error", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(errorBody{
		Message: message,
		Status:  status,
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
