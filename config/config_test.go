package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "secret")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, ":8080", c.Addr())
	assert.Equal(t, 168*time.Hour, c.TokenTTL)
	assert.Equal(t, 10*time.Second, c.DBTimeout)
	assert.Equal(t, 15*time.Second, c.ProviderTimeout)
	assert.Equal(t, "mongo", c.StoreDriver)
	assert.Equal(t, int64(1000), c.RegistrationFeeCents)
	assert.Equal(t, "usd", c.Currency)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, c.CORSAllowedOrigins)
}

func TestLoadPrefixedOverride(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("MERU_PORT", "9100")
	t.Setenv("STORE_DRIVER", "memory")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", c.Port)
	assert.Equal(t, "memory", c.StoreDriver)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	for _, key := range []string{"JWT_SECRET", "MERU_JWT_SECRET"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	assert.Error(t, err)
}
