package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/auth"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := auth.NewStore(dir)

	t.Run("LoadWithoutFileReturnsNil", func(t *testing.T) {
		c, err := s.Load()
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("SaveThenLoad", func(t *testing.T) {
		require.NoError(t, s.Save(auth.Credentials{
			AccessToken:  "tok-123",
			RefreshToken: "ref-456",
		}))

		c, err := s.Load()
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "tok-123", c.AccessToken)
		assert.Equal(t, "ref-456", c.RefreshToken)
	})

	t.Run("FileIsOwnerOnly", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(dir, "credentials.yml"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("ClearRemoves", func(t *testing.T) {
		require.NoError(t, s.Clear())
		c, err := s.Load()
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("ClearIsIdempotent", func(t *testing.T) {
		require.NoError(t, s.Clear())
		require.NoError(t, s.Clear())
	})
}

// unsignedJWT builds a token with the given claims and a junk signature;
// expiry inspection never verifies.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("sig"))
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("FutureExpNotExpired", func(t *testing.T) {
		tok := unsignedJWT(t, map[string]any{"exp": now.Add(time.Hour).Unix()})
		assert.False(t, auth.TokenExpired(tok, now))
	})

	t.Run("PastExpExpired", func(t *testing.T) {
		tok := unsignedJWT(t, map[string]any{"exp": now.Add(-time.Hour).Unix()})
		assert.True(t, auth.TokenExpired(tok, now))
	})

	t.Run("NoExpLeftToServer", func(t *testing.T) {
		tok := unsignedJWT(t, map[string]any{"sub": "u1"})
		assert.False(t, auth.TokenExpired(tok, now))
	})

	t.Run("GarbageLeftToServer", func(t *testing.T) {
		assert.False(t, auth.TokenExpired("not-a-jwt", now))
	})
}
