package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kubedeck/sessionkit/credentials"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, passphrase string) (*credentials.FileRepo, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "credentials.enc")
	repo, err := credentials.NewFileRepo(path, passphrase)
	require.NoError(t, err)
	return repo, path
}

func TestFileRepo_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t, "test-passphrase")

	t.Run("missing file reads as empty store", func(t *testing.T) {
		_, err := repo.Get(credentials.AccessTokenKey)
		require.ErrorIs(t, err, credentials.NotFoundErr)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, repo.Set(credentials.AccessTokenKey, "token-123"))
		value, err := repo.Get(credentials.AccessTokenKey)
		require.NoError(t, err)
		require.Equal(t, "token-123", value)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, repo.Set(credentials.AccessTokenKey, "token-456"))
		value, err := repo.Get(credentials.AccessTokenKey)
		require.NoError(t, err)
		require.Equal(t, "token-456", value)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Delete(credentials.AccessTokenKey, credentials.RefreshTokenKey))
		require.NoError(t, repo.Delete(credentials.AccessTokenKey))
		_, err := repo.Get(credentials.AccessTokenKey)
		require.ErrorIs(t, err, credentials.NotFoundErr)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, repo.Set(credentials.RefreshTokenKey, "refresh-1"))
		require.NoError(t, repo.Clear())
		_, err := repo.Get(credentials.RefreshTokenKey)
		require.ErrorIs(t, err, credentials.NotFoundErr)
	})
}

func TestFileRepo_SurvivesReopen(t *testing.T) {
	repo, path := newTestRepo(t, "test-passphrase")
	require.NoError(t, repo.Set(credentials.RefreshTokenKey, "refresh-789"))

	reopened, err := credentials.NewFileRepo(path, "test-passphrase")
	require.NoError(t, err)

	value, err := reopened.Get(credentials.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-789", value)
}

func TestFileRepo_WrongPassphrase(t *testing.T) {
	repo, path := newTestRepo(t, "correct-passphrase")
	require.NoError(t, repo.Set(credentials.AccessTokenKey, "secret"))

	other, err := credentials.NewFileRepo(path, "wrong-passphrase")
	require.NoError(t, err)

	_, err = other.Get(credentials.AccessTokenKey)
	require.ErrorIs(t, err, credentials.DecryptFailedErr)
}

func TestFileRepo_EncryptedAtRest(t *testing.T) {
	repo, path := newTestRepo(t, "test-passphrase")
	require.NoError(t, repo.Set(credentials.AccessTokenKey, "plaintext-token-value"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "plaintext-token-value")
	require.NotContains(t, string(raw), credentials.AccessTokenKey)
}

func TestNewFileRepo_RequiresPassphrase(t *testing.T) {
	_, err := credentials.NewFileRepo(filepath.Join(t.TempDir(), "c.enc"), "")
	require.ErrorIs(t, err, credentials.NoPassphraseErr)
}
