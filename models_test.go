package authclient_test

import (
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected authclient.UserRole
		ok       bool
	}{
		{"admin", authclient.RoleAdmin, true},
		{" Administrador ", authclient.RoleAdmin, true},
		{"medico", authclient.RoleDoctor, true},
		{"médico", authclient.RoleDoctor, true},
		{"DOCTOR", authclient.RoleDoctor, true},
		{"enfermera", authclient.RoleNurse, true},
		{"paciente", authclient.RolePatient, true},
		{"usuario", authclient.RoleUser, true},
		{"consumer", authclient.RoleUser, true},
		{"", authclient.RoleUnknown, false},
		{"superuser", authclient.RoleUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := authclient.ParseRole(tt.input)
			assert.Equal(t, tt.expected, role)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestUserRole_IsValid(t *testing.T) {
	for _, role := range authclient.GetAllRoles() {
		assert.True(t, role.IsValid(), role)
	}
	assert.False(t, authclient.RoleUnknown.IsValid())
	assert.False(t, authclient.UserRole("").IsValid())
}

func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name     string
		identity authclient.Identity
		wantErr  bool
	}{
		{
			name:     "valid",
			identity: authclient.Identity{ID: "1", Username: "admin", Email: "admin@example.com", Role: authclient.RoleAdmin},
		},
		{
			name:     "missing id",
			identity: authclient.Identity{Username: "admin", Role: authclient.RoleAdmin},
			wantErr:  true,
		},
		{
			name:     "missing username",
			identity: authclient.Identity{ID: "1", Role: authclient.RoleAdmin},
			wantErr:  true,
		},
		{
			name:     "missing role",
			identity: authclient.Identity{ID: "1", Username: "admin"},
			wantErr:  true,
		},
		{
			name:     "bad email",
			identity: authclient.Identity{ID: "1", Username: "admin", Email: "nope", Role: authclient.RoleAdmin},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.identity.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdentity_CloneIsDeep(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	identity := &authclient.Identity{ID: "1", Username: "nurse", Role: authclient.RoleNurse, CreatedAt: &created}

	clone := identity.Clone()
	require.NotNil(t, clone)
	clone.Username = "changed"
	*clone.CreatedAt = created.Add(time.Hour)

	assert.Equal(t, "nurse", identity.Username)
	assert.Equal(t, created, *identity.CreatedAt)

	var nilIdentity *authclient.Identity
	assert.Nil(t, nilIdentity.Clone())
	assert.False(t, nilIdentity.HasRole(authclient.RoleAdmin))
	assert.True(t, identity.HasRole(authclient.RoleNurse))
}

func TestIdentity_UUID(t *testing.T) {
	identity := &authclient.Identity{ID: "0b9c1f5e-7a55-4c44-9a8e-3f5e2f1f9b10"}
	id, err := identity.UUID()
	require.NoError(t, err)
	assert.Equal(t, identity.ID, id.String())

	_, err = (&authclient.Identity{ID: "42"}).UUID()
	assert.Error(t, err)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		region string
		want   string
	}{
		{"national with default region", "415 555 0101", "", "+14155550101"},
		{"already e164", "+14155550101", "US", "+14155550101"},
		{"unparseable is kept", "  call me  ", "US", "call me"},
		{"empty", "   ", "US", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, authclient.NormalizePhone(tt.raw, tt.region))
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, authclient.Credentials{Username: "a", Password: "b"}.Validate())
	assert.Error(t, authclient.Credentials{Username: "a"}.Validate())
	assert.Error(t, authclient.Credentials{Password: "b"}.Validate())
}
