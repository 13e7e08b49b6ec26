package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/kubedeck/sessionkit/authapi"
	"github.com/kubedeck/sessionkit/internal/utils"
	"github.com/kubedeck/sessionkit/session"
	"github.com/stretchr/testify/require"
)

func TestManager_TokenSource(t *testing.T) {
	t.Run("yields a bearer token with expiry", func(t *testing.T) {
		f := setupTestFixture(t)
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		fresh := makeToken(t, map[string]any{"preferred_username": "alice", "exp": exp.Unix()})
		f.manager.SetToken(fresh)

		source := f.manager.TokenSource(context.Background())
		tok, err := source.Token()
		require.NoError(t, err)
		require.Equal(t, fresh, tok.AccessToken)
		require.Equal(t, "Bearer", tok.TokenType)
		require.Equal(t, exp.Unix(), tok.Expiry.Unix())
	})

	t.Run("refreshes through the manager", func(t *testing.T) {
		f := setupTestFixture(t)
		renewed := freshToken(t, "alice")
		f.api.RefreshResult = &authapi.RefreshResult{AccessToken: utils.Ptr(renewed)}
		f.manager.SetToken(staleToken(t, "alice"))
		f.manager.SetRefreshToken("refresh-1")

		tok, err := f.manager.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, renewed, tok.AccessToken)
	})

	t.Run("unauthenticated source errors", func(t *testing.T) {
		f := setupTestFixture(t)

		_, err := f.manager.TokenSource(context.Background()).Token()
		require.ErrorIs(t, err, session.NotAuthenticatedErr)
	})
}
