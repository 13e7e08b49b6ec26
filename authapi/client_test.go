package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kubedeck/sessionkit/authapi"
	"github.com/kubedeck/sessionkit/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("requires base url", func(t *testing.T) {
		_, err := authapi.NewClient("")
		require.ErrorIs(t, err, authapi.MissingBaseURLErr)
	})

	t.Run("trailing slash is trimmed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/auth/verify", r.URL.Path)
			_ = json.NewEncoder(w).Encode(authapi.VerifyResult{Valid: true})
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL + "/")
		require.NoError(t, err)
		_, err = client.VerifyToken(context.Background(), "tok")
		require.NoError(t, err)
	})
}

func TestClient_VerifyToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(authapi.VerifyResult{
				Valid:    true,
				Username: utils.Ptr("alice"),
				Role:     utils.Ptr("admin"),
			})
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)

		result, err := client.VerifyToken(context.Background(), "access-1")
		require.NoError(t, err)
		require.True(t, result.Valid)
		require.Equal(t, "alice", utils.Value(result.Username))
		require.Equal(t, "admin", utils.Value(result.Role))
	})

	t.Run("unauthorized maps to invalid, not error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)

		result, err := client.VerifyToken(context.Background(), "dead-token")
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("server error is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)

		_, err = client.VerifyToken(context.Background(), "tok")
		require.ErrorIs(t, err, authapi.UnexpectedStatusErr)
	})
}

func TestClient_RefreshToken(t *testing.T) {
	t.Run("grants a new access token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/auth/refresh", r.URL.Path)
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "refresh-1", req["refresh_token"])
			_ = json.NewEncoder(w).Encode(authapi.RefreshResult{AccessToken: utils.Ptr("access-2")})
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)

		result, err := client.RefreshToken(context.Background(), "refresh-1")
		require.NoError(t, err)
		require.Equal(t, "access-2", utils.Value(result.AccessToken))
	})

	t.Run("rejection returns no token and no error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)

		result, err := client.RefreshToken(context.Background(), "stale-refresh")
		require.NoError(t, err)
		require.Nil(t, result.AccessToken)
	})
}

func TestClient_Logout(t *testing.T) {
	t.Run("revokes", func(t *testing.T) {
		var gotToken string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/auth/logout", r.URL.Path)
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotToken = req["refresh_token"]
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)
		require.NoError(t, client.Logout(context.Background(), "refresh-1"))
		require.Equal(t, "refresh-1", gotToken)
	})

	t.Run("failure is reported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client, err := authapi.NewClient(srv.URL)
		require.NoError(t, err)
		require.ErrorIs(t, client.Logout(context.Background(), "refresh-1"), authapi.UnexpectedStatusErr)
	})
}
