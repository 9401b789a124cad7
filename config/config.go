package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "BACKOFFICE"

	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var _ authclient.Config = &Config{}

// Config is the CLI configuration
type Config struct {
	BaseURL      string
	LoginPath    string
	AuthScheme   string
	LoginRoute   string
	DefaultRoute string
	PhoneRegion  string
	JWKSURL      string
	LogLevel     string
	AuditPath    string
	AuditChannel string
	Timeout      time.Duration
	Storage      *Storage
	Keys         authclient.StorageKeys
	LoginFields  authclient.LoginFields
	AccessRules  map[string][]string
}

// Storage selects where the session lives
type Storage struct {
	Driver        string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	TTL           time.Duration
}

// Load reads configuration from path (or the default locations) and the
// BACKOFFICE_* environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to read config").
				WithMetadata(map[string]any{"path": path})
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid config")
	}
	return cfg, nil
}

// FromViper builds a Config from a viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		BaseURL:      v.GetString("api.base_url"),
		LoginPath:    v.GetString("api.login_path"),
		AuthScheme:   v.GetString("api.auth_scheme"),
		Timeout:      v.GetDuration("api.timeout"),
		JWKSURL:      v.GetString("api.jwks_url"),
		LoginRoute:   v.GetString("routes.login"),
		DefaultRoute: v.GetString("routes.default"),
		PhoneRegion:  v.GetString("phone_region"),
		LogLevel:     v.GetString("log.level"),
		AuditPath:    v.GetString("log.audit_path"),
		AuditChannel: v.GetString("log.audit_channel"),
		Storage:      getStorage(v),
		Keys: authclient.StorageKeys{
			Credential: v.GetString("storage.keys.credential"),
			Identity:   v.GetString("storage.keys.identity"),
			Role:       v.GetString("storage.keys.role"),
		},
		LoginFields: authclient.LoginFields{
			Username: v.GetString("auth.login_fields.username"),
			Password: v.GetString("auth.login_fields.password"),
		},
		AccessRules: v.GetStringMapStringSlice("access_rules"),
	}
}

func getStorage(v *viper.Viper) *Storage {
	return &Storage{
		Driver:        v.GetString("storage.driver"),
		Path:          v.GetString("storage.path"),
		RedisAddr:     v.GetString("storage.redis.addr"),
		RedisPassword: v.GetString("storage.redis.password"),
		RedisDB:       v.GetInt("storage.redis.db"),
		RedisPrefix:   v.GetString("storage.redis.prefix"),
		TTL:           v.GetDuration("storage.ttl"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.login_path", authclient.DefaultLoginPath)
	v.SetDefault("api.auth_scheme", authclient.DefaultAuthScheme)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("auth.login_fields.username", authclient.DefaultLoginFields().Username)
	v.SetDefault("auth.login_fields.password", authclient.DefaultLoginFields().Password)
	v.SetDefault("routes.login", authclient.DefaultLoginRoute)
	v.SetDefault("routes.default", authclient.DefaultDefaultRoute)
	v.SetDefault("phone_region", authclient.DefaultPhoneRegion)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.audit_channel", "backoffice")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", filepath.Join(defaultDir(), "session.db"))
	v.SetDefault("storage.redis.prefix", "backoffice:session:")
}

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "backoffice")
}

// Validate checks the required settings
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.JWKSURL, is.URL),
		validation.Field(&c.Storage, validation.Required),
	); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// Validate checks storage settings for the selected driver
func (s *Storage) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&s.Driver, validation.Required, validation.In(DriverSQLite, DriverRedis, DriverMemory)),
	}
	switch s.Driver {
	case DriverSQLite:
		fields = append(fields, validation.Field(&s.Path, validation.Required))
	case DriverRedis:
		fields = append(fields, validation.Field(&s.RedisAddr, validation.Required))
	}
	return validation.ValidateStruct(s, fields...)
}

// Rules returns the configured access rules or the defaults when none are set
func (c *Config) Rules() (authclient.AccessRules, error) {
	if len(c.AccessRules) == 0 {
		return authclient.DefaultAccessRules(), nil
	}

	rules := make(authclient.AccessRules, len(c.AccessRules))
	for name, sections := range c.AccessRules {
		role, ok := authclient.ParseRole(name)
		if !ok {
			return nil, errors.New("unknown role in access rules", errors.CategoryValidation).
				WithMetadata(map[string]any{"role": name})
		}
		for _, s := range sections {
			rules[role] = append(rules[role], authclient.Section(strings.ToLower(strings.TrimSpace(s))))
		}
	}
	return rules, nil
}

func (c *Config) GetBaseURL() string {
	return c.BaseURL
}

func (c *Config) GetLoginPath() string {
	return c.LoginPath
}

func (c *Config) GetAuthScheme() string {
	return c.AuthScheme
}

func (c *Config) GetLoginRoute() string {
	return c.LoginRoute
}

func (c *Config) GetDefaultRoute() string {
	return c.DefaultRoute
}

func (c *Config) GetStorageKeys() authclient.StorageKeys {
	return c.Keys
}

func (c *Config) GetPhoneRegion() string {
	return c.PhoneRegion
}

func (c *Config) GetLoginFields() authclient.LoginFields {
	return c.LoginFields
}
