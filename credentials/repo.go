// Package credentials persists the client-side session state that must
// survive a restart: the bearer tokens and the serialized blobs the session
// and cluster layers keep alongside them.
package credentials

// Well-known keys. Teardown removes all of them in one call.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	AuthStateKey    = "auth_state"
	ClusterStateKey = "cluster_state"
)

// AllKeys lists every key owned by the session layer.
var AllKeys = []string{AccessTokenKey, RefreshTokenKey, AuthStateKey, ClusterStateKey}

type Repo interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
	Clear() error
}
