package devbackend_test

import (
	"testing"

	"github.com/goliatone/go-auth-client/internal/devbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	_, err := devbackend.HashPassword("", bcrypt.MinCost)
	assert.ErrorIs(t, err, devbackend.ErrEmptyPassword)

	hash, err := devbackend.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	assert.NoError(t, devbackend.ComparePasswordAndHash("secret", hash))
	assert.ErrorIs(t, devbackend.ComparePasswordAndHash("other", hash), devbackend.ErrMismatchedHash)
}

func TestUserStore(t *testing.T) {
	store := devbackend.NewUserStore(bcrypt.MinCost)

	user, err := store.Add(devbackend.SeedUser{Username: "Ana", Password: "pw", Role: "admin"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID.String())
	assert.True(t, user.Active)

	_, err = store.Add(devbackend.SeedUser{Username: "ana", Password: "pw2"})
	assert.Error(t, err)
	assert.Equal(t, 1, store.Len())

	got, err := store.Authenticate(" ANA ", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = store.Authenticate("ana", "bad")
	assert.ErrorIs(t, err, devbackend.ErrMismatchedHash)

	_, err = store.Authenticate("nobody", "pw")
	assert.ErrorIs(t, err, devbackend.ErrUserNotFound)
}
