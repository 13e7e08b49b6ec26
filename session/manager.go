// Package session is the single source of truth for the client's
// authentication state. It mediates every read and write of the bearer
// tokens, coordinates renewal against the auth API, and tears down all
// dependent state when the session ends, however it ends.
//
// Public operations never return errors: every failure path converges on
// the same teardown routine and leaves the manager unauthenticated, which
// callers observe through Snapshot. The single exception is
// GetValidAccessToken, which reports absence through its boolean result.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/kubedeck/sessionkit/authapi"
	"github.com/kubedeck/sessionkit/credentials"
	"github.com/kubedeck/sessionkit/internal/utils"
	"github.com/kubedeck/sessionkit/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AuthAPI is the slice of the auth plane the manager consumes.
type AuthAPI interface {
	VerifyToken(ctx context.Context, accessToken string) (*authapi.VerifyResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*authapi.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// ClusterState is the dependent state teardown must reset.
type ClusterState interface {
	Reset() error
}

// Deps holds the manager's collaborators.
type Deps struct {
	Credentials credentials.Repo
	AuthAPI     AuthAPI
	Clusters    ClusterState // optional
}

// Manager owns the session lifecycle. Construct one per process and share
// it; all methods are safe for concurrent use, though concurrent verify or
// refresh calls may each perform their own network round-trip (last write
// wins, no single-flight).
type Manager struct {
	deps Deps
	skew time.Duration
	log  zerolog.Logger

	lock            sync.Mutex
	accessToken     string
	refreshToken    string
	user            *User
	isAuthenticated bool
	isLoading       bool
}

type ManagerOption func(*Manager)

// WithSkew overrides the expiry skew tolerance. Default: token.DefaultSkew.
func WithSkew(skew time.Duration) ManagerOption {
	return func(m *Manager) {
		if skew >= 0 {
			m.skew = skew
		}
	}
}

// WithLogger sets the manager logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(deps Deps, options ...ManagerOption) (*Manager, error) {
	if deps.Credentials == nil {
		return nil, errors.New("[NewManager] Credentials repo is required")
	}
	if deps.AuthAPI == nil {
		return nil, errors.New("[NewManager] AuthAPI is required")
	}

	m := &Manager{
		deps: deps,
		skew: token.DefaultSkew,
		log:  zerolog.Nop(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// Load restores tokens from the persisted restoration blob, falling back
// to the individual token keys. It does not authenticate; call Verify to
// confirm the restored tokens against the auth API.
func (m *Manager) Load() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if raw, err := m.deps.Credentials.Get(credentials.AuthStateKey); err == nil {
		if state, err := decodeAuthState(raw); err == nil {
			m.accessToken = state.AccessToken
			m.refreshToken = state.RefreshToken
			return
		}
	}

	if v, err := m.deps.Credentials.Get(credentials.AccessTokenKey); err == nil {
		m.accessToken = v
	}
	if v, err := m.deps.Credentials.Get(credentials.RefreshTokenKey); err == nil {
		m.refreshToken = v
	}
}

// Login stores the freshly issued token pair and verifies it. Subsequent
// reads observe the new tokens even before verification resolves; a
// verification failure surfaces through Verify's own teardown path.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string) {
	m.SetToken(accessToken)
	if refreshToken != "" {
		m.SetRefreshToken(refreshToken)
	}
	m.Verify(ctx)
}

// SetToken replaces the access token in memory and persistence.
func (m *Manager) SetToken(accessToken string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.accessToken = accessToken
	m.persistTokensLocked()
}

// SetRefreshToken replaces the refresh token in memory and persistence.
func (m *Manager) SetRefreshToken(refreshToken string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.refreshToken = refreshToken
	m.persistTokensLocked()
}

// Verify is the core state transition: it reconciles with the persisted
// store, renews an expired access token when a refresh token is available,
// confirms the token against the auth API with at most one refresh-and-
// retry, and either marks the session authenticated or tears it down.
func (m *Manager) Verify(ctx context.Context) {
	accessToken, refreshToken := m.reconcile()

	// No credential at all is a normal state, not a failure.
	if accessToken == "" {
		m.lock.Lock()
		m.user = nil
		m.isAuthenticated = false
		m.isLoading = false
		m.lock.Unlock()
		return
	}

	m.setLoading(true)
	defer m.setLoading(false)

	// Renew ahead of the round-trip when the token is already stale.
	if refreshToken != "" && token.IsExpired(accessToken, m.skew) {
		newToken, ok := m.RefreshAccessToken(ctx)
		if !ok {
			verifyFailureTotal.Inc()
			return // refresh failure already tore the session down
		}
		accessToken = newToken
	}

	result, err := m.deps.AuthAPI.VerifyToken(ctx, accessToken)
	if err != nil || !result.Valid {
		if err != nil {
			m.log.Debug().Err(err).Msg("token verification failed")
		}

		// Bounded retry: one refresh, one re-verify, never more. Covers a
		// token that expired between issuance checks and the server clock.
		if refreshToken == "" {
			verifyFailureTotal.Inc()
			m.teardown()
			return
		}

		newToken, ok := m.RefreshAccessToken(ctx)
		if !ok {
			verifyFailureTotal.Inc()
			return
		}

		verifyRetryTotal.Inc()
		result, err = m.deps.AuthAPI.VerifyToken(ctx, newToken)
		if err != nil || !result.Valid {
			if err != nil {
				m.log.Debug().Err(err).Msg("token verification retry failed")
			}
			verifyFailureTotal.Inc()
			m.teardown()
			return
		}
	}

	// A valid verdict without a username cannot populate the session.
	if utils.Value(result.Username) == "" {
		verifyFailureTotal.Inc()
		m.teardown()
		return
	}

	m.lock.Lock()
	m.user = userFromVerify(result)
	m.isAuthenticated = true
	m.lock.Unlock()

	verifySuccessTotal.Inc()
	m.log.Debug().Str("username", utils.Value(result.Username)).Msg("session verified")
}

// RefreshAccessToken exchanges the refresh token for a new access token.
// It never returns an error: an absent refresh token yields ("", false)
// with no side effects, while a rejected or failed exchange tears the
// session down locally (the server has already invalidated it, so no
// revoke call is made).
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, bool) {
	refreshToken := m.currentRefreshToken()
	if refreshToken == "" {
		return "", false
	}

	result, err := m.deps.AuthAPI.RefreshToken(ctx, refreshToken)
	if err != nil || utils.Value(result.AccessToken) == "" {
		if err != nil {
			m.log.Debug().Err(err).Msg("access token refresh failed")
		}
		refreshFailureTotal.Inc()
		m.Logout(ctx, WithServerRevoke(false))
		return "", false
	}

	newToken := utils.Value(result.AccessToken)
	m.SetToken(newToken)
	refreshSuccessTotal.Inc()
	return newToken, true
}

// TokenOption configures GetValidAccessToken.
type TokenOption func(*tokenOptions)

type tokenOptions struct {
	skew time.Duration
}

// WithSkewTolerance overrides the manager's skew for one call.
func WithSkewTolerance(skew time.Duration) TokenOption {
	return func(o *tokenOptions) {
		if skew >= 0 {
			o.skew = skew
		}
	}
}

// GetValidAccessToken returns an access token guaranteed fresh under the
// skew tolerance, refreshing it first when needed. A false result means
// the caller must not proceed with an authenticated request; the session
// is already torn down by then.
func (m *Manager) GetValidAccessToken(ctx context.Context, options ...TokenOption) (string, bool) {
	opts := tokenOptions{skew: m.skew}
	for _, opt := range options {
		opt(&opts)
	}

	accessToken := m.currentAccessToken()
	if accessToken == "" {
		return "", false
	}

	if !token.IsExpired(accessToken, opts.skew) {
		return accessToken, true
	}

	newToken, ok := m.RefreshAccessToken(ctx)
	if !ok {
		m.teardown()
		return "", false
	}
	return newToken, true
}

// LogoutOption configures Logout.
type LogoutOption func(*logoutOptions)

type logoutOptions struct {
	revokeServerSession bool
}

// WithServerRevoke controls the best-effort server-side revoke call.
// Default is true.
func WithServerRevoke(revoke bool) LogoutOption {
	return func(o *logoutOptions) {
		o.revokeServerSession = revoke
	}
}

// Logout ends the session. When server revocation is requested and both
// tokens are present, the revoke call is attempted first; its outcome is
// reported and logged but never blocks the local teardown, which always
// runs.
func (m *Manager) Logout(ctx context.Context, options ...LogoutOption) RevokeOutcome {
	opts := logoutOptions{revokeServerSession: true}
	for _, opt := range options {
		opt(&opts)
	}

	accessToken := m.currentAccessToken()
	refreshToken := m.currentRefreshToken()

	outcome := RevokeOutcome{}
	if opts.revokeServerSession && accessToken != "" && refreshToken != "" {
		outcome.Attempted = true
		if err := m.deps.AuthAPI.Logout(ctx, refreshToken); err != nil {
			outcome.Cause = err
			m.log.Warn().Err(err).Msg("server-side session revoke failed; continuing local logout")
		} else {
			outcome.OK = true
		}
	}

	m.teardown()
	logoutTotal.Inc()
	return outcome
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	snapshot := Snapshot{
		AccessToken:     m.accessToken,
		RefreshToken:    m.refreshToken,
		IsAuthenticated: m.isAuthenticated,
		IsLoading:       m.isLoading,
	}
	if m.user != nil {
		user := *m.user
		snapshot.User = &user
	}
	return snapshot
}

// IsAuthenticated reports whether the session has been confirmed by the
// auth API since the last login or teardown.
func (m *Manager) IsAuthenticated() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.isAuthenticated
}

// teardown clears both tokens, every persisted key, the dependent cluster
// state, and the in-memory flags. It is idempotent; every failure and
// logout path converges here. The persisted cleanup runs after the lock is
// released, so a concurrent reader may briefly see cleared in-memory state
// while persisted keys still exist.
func (m *Manager) teardown() {
	m.lock.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.user = nil
	m.isAuthenticated = false
	m.isLoading = false
	m.lock.Unlock()

	if err := m.deps.Credentials.Delete(credentials.AllKeys...); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted credentials")
	}

	if m.deps.Clusters != nil {
		if err := m.deps.Clusters.Reset(); err != nil {
			m.log.Warn().Err(err).Msg("failed to reset cluster state")
		}
	}

	teardownTotal.Inc()
}

// reconcile aligns in-memory tokens with persistence before a verify pass.
// Precedence: a persisted value wins when present and different (another
// process may have rotated the tokens); otherwise remaining in-memory
// tokens are written through.
func (m *Manager) reconcile() (string, string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	persistedAccess, accessErr := m.deps.Credentials.Get(credentials.AccessTokenKey)
	persistedRefresh, refreshErr := m.deps.Credentials.Get(credentials.RefreshTokenKey)

	changed := false
	if accessErr == nil && persistedAccess != "" && persistedAccess != m.accessToken {
		m.accessToken = persistedAccess
		changed = true
	}
	if refreshErr == nil && persistedRefresh != "" && persistedRefresh != m.refreshToken {
		m.refreshToken = persistedRefresh
		changed = true
	}

	needWriteThrough := (m.accessToken != "" && (accessErr != nil || persistedAccess == "")) ||
		(m.refreshToken != "" && (refreshErr != nil || persistedRefresh == ""))
	if changed || needWriteThrough {
		m.persistTokensLocked()
	}

	return m.accessToken, m.refreshToken
}

// currentAccessToken and currentRefreshToken fall back to the persisted key
// when memory is empty, and adopt the persisted value into memory so a later
// persist pass can never overwrite that key with the empty in-memory value.
func (m *Manager) currentAccessToken() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.accessToken == "" {
		if v, err := m.deps.Credentials.Get(credentials.AccessTokenKey); err == nil {
			m.accessToken = v
		}
	}
	return m.accessToken
}

func (m *Manager) currentRefreshToken() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.refreshToken == "" {
		if v, err := m.deps.Credentials.Get(credentials.RefreshTokenKey); err == nil {
			m.refreshToken = v
		}
	}
	return m.refreshToken
}

func (m *Manager) setLoading(loading bool) {
	m.lock.Lock()
	m.isLoading = loading
	m.lock.Unlock()
}

// persistTokensLocked writes both token keys and the restoration blob.
// Persistence failures are logged, not surfaced; the in-memory state stays
// authoritative for this process.
func (m *Manager) persistTokensLocked() {
	if err := m.deps.Credentials.Set(credentials.AccessTokenKey, m.accessToken); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist access token")
	}
	if err := m.deps.Credentials.Set(credentials.RefreshTokenKey, m.refreshToken); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist refresh token")
	}

	blob, err := encodeAuthState(persistedAuthState{
		AccessToken:  m.accessToken,
		RefreshToken: m.refreshToken,
	})
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to encode auth state")
		return
	}
	if err := m.deps.Credentials.Set(credentials.AuthStateKey, blob); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist auth state")
	}
}
