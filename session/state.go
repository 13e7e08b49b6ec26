package session

import (
	"encoding/json"

	"github.com/kubedeck/sessionkit/authapi"
	"github.com/kubedeck/sessionkit/internal/utils"
	"github.com/pkg/errors"
)

// User is the account record confirmed by the auth API. It exists only
// while the session is authenticated.
type User struct {
	ID       int64
	Username string
	Email    string
	Role     string
	IsActive bool
}

// Snapshot is a point-in-time copy of the session state. Callers read
// outcomes from snapshots; public operations never return errors.
type Snapshot struct {
	AccessToken     string
	RefreshToken    string
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// persistedAuthState is the restoration blob written under
// credentials.AuthStateKey, alongside the two individual token keys.
type persistedAuthState struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func decodeAuthState(raw string) (persistedAuthState, error) {
	var state persistedAuthState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return persistedAuthState{}, errors.Wrap(err, "[decodeAuthState] Unmarshal")
	}
	return state, nil
}

func encodeAuthState(state persistedAuthState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", errors.Wrap(err, "[encodeAuthState] Marshal")
	}
	return string(raw), nil
}

// userFromVerify builds the session user from a successful verification,
// applying the documented defaults for fields the server omits.
func userFromVerify(result *authapi.VerifyResult) *User {
	role := utils.ValueOr(result.Role, "user")

	isActive := true
	if result.IsActive != nil {
		isActive = *result.IsActive
	}

	return &User{
		ID:       utils.Value(result.ID),
		Username: utils.Value(result.Username),
		Email:    utils.Value(result.Email),
		Role:     role,
		IsActive: isActive,
	}
}
