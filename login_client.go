package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"
)

// DefaultLoginPath is the backend login endpoint
const DefaultLoginPath = "/auth/login"

// LoginFields names the JSON fields carrying the username and password in
// the login request body
type LoginFields struct {
	Username string
	Password string
}

// DefaultLoginFields sends {"username","password"}
func DefaultLoginFields() LoginFields {
	return LoginFields{Username: "username", Password: "password"}
}

// SpanishLoginFields sends {"nombre_usuario","contrasena"}, the request
// shape of the spanish back office API
func SpanishLoginFields() LoginFields {
	return LoginFields{Username: "nombre_usuario", Password: "contrasena"}
}

func (f LoginFields) withDefaults() LoginFields {
	def := DefaultLoginFields()
	if f.Username = strings.TrimSpace(f.Username); f.Username == "" {
		f.Username = def.Username
	}
	if f.Password = strings.TrimSpace(f.Password); f.Password == "" {
		f.Password = def.Password
	}
	return f
}

func (f LoginFields) body(credentials Credentials) map[string]string {
	return map[string]string{
		f.Username: credentials.Username,
		f.Password: credentials.Password,
	}
}

// HTTPLoginClient posts credentials to the backend login endpoint. It must
// not share the authenticated transport so a failed login never signs out
// an existing session.
type HTTPLoginClient struct {
	api         *APIClient
	path        string
	phoneRegion string
	fields      LoginFields
}

var _ LoginClient = &HTTPLoginClient{}

// NewHTTPLoginClient creates a login client for the given API client
func NewHTTPLoginClient(api *APIClient) *HTTPLoginClient {
	return &HTTPLoginClient{
		api:         api,
		path:        DefaultLoginPath,
		phoneRegion: DefaultPhoneRegion,
		fields:      DefaultLoginFields(),
	}
}

// WithFields sets the request field names. Empty names keep the defaults.
func (c *HTTPLoginClient) WithFields(fields LoginFields) *HTTPLoginClient {
	c.fields = fields.withDefaults()
	return c
}

// WithPath overrides the login endpoint path
func (c *HTTPLoginClient) WithPath(path string) *HTTPLoginClient {
	if path != "" {
		c.path = path
	}
	return c
}

// WithPhoneRegion sets the default region used to normalize phone numbers
func (c *HTTPLoginClient) WithPhoneRegion(region string) *HTTPLoginClient {
	if region != "" {
		c.phoneRegion = region
	}
	return c
}

// Login implements LoginClient. 401 and 403 mean bad credentials.
func (c *HTTPLoginClient) Login(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	var res loginResponse
	if err := c.api.Post(ctx, c.path, c.fields.body(credentials), &res); err != nil {
		if IsAuthenticationDenied(err) || IsAccessDenied(err) {
			return nil, withCause(ErrInvalidCredentials, err, map[string]any{
				"username": credentials.Username,
			})
		}
		return nil, err
	}

	token := res.token()
	user := res.user()
	if token == "" || user == nil {
		return nil, withCause(ErrUnableToParseData, nil, map[string]any{
			"reason": "login response without token or user",
		})
	}

	return &LoginResult{
		Credential: Credential(token),
		Identity:   user.toIdentity(c.phoneRegion),
	}, nil
}

// loginResponse accepts the field names used across backend versions
type loginResponse struct {
	Token         string          `json:"token"`
	AccessToken   string          `json:"access_token"`
	Clave         string          `json:"clave"`
	User          *userPayload    `json:"user"`
	Usuario       *userPayload    `json:"usuario"`
	NombreUsuario json.RawMessage `json:"nombre_usuario"`
}

func (r loginResponse) token() string {
	for _, t := range []string{r.Token, r.AccessToken, r.Clave} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

func (r loginResponse) user() *userPayload {
	for _, u := range []*userPayload{r.User, r.Usuario} {
		if u != nil {
			return u
		}
	}
	// older backends send the user object under nombre_usuario
	raw := bytes.TrimSpace(r.NombreUsuario)
	if len(raw) > 0 && raw[0] == '{' {
		u := &userPayload{}
		if err := json.Unmarshal(raw, u); err == nil {
			return u
		}
	}
	return nil
}

type userPayload struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	Nombre        string          `json:"nombre"`
	Username      string          `json:"username"`
	NombreUsuario string          `json:"nombre_usuario"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Telefono      string          `json:"telefono"`
	Role          string          `json:"role"`
	Rol           string          `json:"rol"`
	IsAdmin       *bool           `json:"es_admin"`
	Active        *bool           `json:"active"`
	Activo        *bool           `json:"activo"`
	CreatedAt     string          `json:"created_at"`
	FechaCreacion string          `json:"fecha_creacion"`
	UpdatedAt     string          `json:"updated_at"`
	FechaEdicion  string          `json:"fecha_edicion"`
}

func (u *userPayload) toIdentity(phoneRegion string) *Identity {
	identity := &Identity{
		ID:        rawID(u.ID),
		Name:      coalesce(u.Name, u.Nombre),
		Username:  coalesce(u.Username, u.NombreUsuario),
		Email:     strings.TrimSpace(u.Email),
		Phone:     NormalizePhone(coalesce(u.Phone, u.Telefono), phoneRegion),
		Active:    true,
		CreatedAt: parseTimestamp(coalesce(u.CreatedAt, u.FechaCreacion)),
		UpdatedAt: parseTimestamp(coalesce(u.UpdatedAt, u.FechaEdicion)),
	}

	if roleStr := coalesce(u.Role, u.Rol); roleStr != "" {
		identity.Role, _ = ParseRole(roleStr)
	} else if u.IsAdmin != nil {
		identity.Role = roleFromAdminFlag(*u.IsAdmin)
	}

	if u.Active != nil {
		identity.Active = *u.Active
	} else if u.Activo != nil {
		identity.Active = *u.Activo
	}

	return identity
}

// rawID accepts string or numeric ids
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
