package session

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/kubedeck/sessionkit/token"
)

// TokenSource adapts the manager to oauth2.TokenSource so it can plug
// straight into oauth2.NewClient and any SDK that accepts a token source.
// Each Token call goes through GetValidAccessToken, so renewal happens
// transparently behind the HTTP client.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	accessToken, ok := ts.manager.GetValidAccessToken(ts.ctx)
	if !ok {
		return nil, NotAuthenticatedErr
	}

	t := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if claims, err := token.DecodePayload(accessToken); err == nil {
		if expiresAt, ok := claims.ExpiresAt(); ok {
			t.Expiry = expiresAt
		}
	}
	return t, nil
}
