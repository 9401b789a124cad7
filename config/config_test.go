package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api:
  base_url: https://api.example.com/v1
  login_path: /auth/signin
  timeout: 10s
routes:
  default: /home
auth:
  login_fields:
    username: nombre_usuario
    password: contrasena
phone_region: MX
log:
  level: debug
  audit_path: /tmp/backoffice-audit.jsonl
  audit_channel: clinic
storage:
  driver: redis
  ttl: 12h
  redis:
    addr: localhost:6379
    db: 2
  keys:
    credential: jwt
access_rules:
  admin: [dashboard, users]
  medico: [Dashboard, " patients "]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.GetBaseURL())
	assert.Equal(t, "/auth/signin", cfg.GetLoginPath())
	assert.Equal(t, authclient.DefaultAuthScheme, cfg.GetAuthScheme())
	assert.Equal(t, authclient.DefaultLoginRoute, cfg.GetLoginRoute())
	assert.Equal(t, "/home", cfg.GetDefaultRoute())
	assert.Equal(t, "MX", cfg.GetPhoneRegion())
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/backoffice-audit.jsonl", cfg.AuditPath)
	assert.Equal(t, "clinic", cfg.AuditChannel)

	require.NotNil(t, cfg.Storage)
	assert.Equal(t, config.DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, "backoffice:session:", cfg.Storage.RedisPrefix)
	assert.Equal(t, 12*time.Hour, cfg.Storage.TTL)

	assert.Equal(t, "jwt", cfg.GetStorageKeys().Credential)
	assert.Equal(t, authclient.SpanishLoginFields(), cfg.GetLoginFields())

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, authclient.AccessRules{
		authclient.RoleAdmin:  {authclient.SectionDashboard, authclient.SectionUsers},
		authclient.RoleDoctor: {authclient.SectionDashboard, authclient.SectionPatients},
	}, rules)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BACKOFFICE_API_BASE_URL", "http://env.example.com")
	t.Setenv("BACKOFFICE_STORAGE_DRIVER", "memory")

	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", cfg.BaseURL)
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.BaseURL)
	assert.Equal(t, authclient.DefaultLoginPath, cfg.LoginPath)
	assert.Equal(t, authclient.DefaultDefaultRoute, cfg.DefaultRoute)
	assert.Equal(t, authclient.DefaultPhoneRegion, cfg.PhoneRegion)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "session.db", filepath.Base(cfg.Storage.Path))
	assert.Empty(t, cfg.AuditPath)
	assert.Equal(t, "backoffice", cfg.AuditChannel)
	assert.Equal(t, authclient.DefaultLoginFields(), cfg.LoginFields)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, authclient.DefaultAccessRules(), rules)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad base url", "api:\n  base_url: not a url\n"},
		{"unknown driver", "storage:\n  driver: etcd\n"},
		{"redis without addr", "storage:\n  driver: redis\n"},
		{"bad jwks url", "api:\n  jwks_url: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &config.Config{
		BaseURL: "http://localhost:8000",
		Storage: &config.Storage{Driver: config.DriverMemory},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Storage = &config.Storage{Driver: config.DriverSQLite}
	assert.Error(t, cfg.Validate())

	cfg.Storage = nil
	assert.Error(t, cfg.Validate())
}

func TestConfig_RulesUnknownRole(t *testing.T) {
	cfg := &config.Config{AccessRules: map[string][]string{"janitor": {"dashboard"}}}
	_, err := cfg.Rules()
	assert.Error(t, err)
}
