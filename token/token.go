// Package token decodes bearer tokens issued by the kubedeck auth API and
// decides whether they should still be presented. Signature verification is
// deliberately left to the server; this codec only reads the embedded claims
// so the client can reason about expiry before spending a network round-trip.
package token

import (
	"encoding/json"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// DefaultSkew is subtracted from a token's nominal expiry so a token that
// would expire mid-flight is refreshed before it is used.
const DefaultSkew = 30 * time.Second

// Claims holds the decoded, unverified payload segment of a bearer token.
type Claims map[string]any

// DecodePayload splits the raw token, base64url-decodes the payload segment
// and parses it as JSON. A missing or mangled token is a normal condition
// (e.g. first run, cleared storage) and is reported as MalformedTokenErr,
// never as a panic or a wrapped transport error.
func DecodePayload(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, MalformedTokenErr
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(MalformedTokenErr, err.Error())
	}

	mapClaims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, MalformedTokenErr
	}

	return Claims(mapClaims), nil
}

// IsExpired reports whether the token should be treated as unusable given
// the skew tolerance. Undecodable tokens and tokens whose exp claim is
// absent or non-numeric count as expired: forcing re-authentication is
// safer than trusting a credential whose lifetime cannot be established.
func IsExpired(rawToken string, skew time.Duration) bool {
	claims, err := DecodePayload(rawToken)
	if err != nil {
		return true
	}

	exp, ok := claims.expUnix()
	if !ok {
		return true
	}

	return exp <= NowTimeFunc().Add(skew).Unix()
}

// ExpiresAt returns the expiry timestamp of the token, or false when the
// exp claim is absent or non-numeric.
func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, ok := c.expUnix()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(exp, 0), true
}

// Subject returns the sub claim, or an empty string when absent.
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Username returns the preferred_username claim, falling back to the
// username claim used by older kubedeck API builds.
func (c Claims) Username() string {
	if name, ok := c["preferred_username"].(string); ok && name != "" {
		return name
	}
	name, _ := c["username"].(string)
	return name
}

func (c Claims) expUnix() (int64, bool) {
	switch v := c["exp"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
