package session

// RevokeOutcome reports what happened to the best-effort server-side revoke
// during logout. It exists so the swallowed failure stays observable: local
// teardown never waits on it, but callers and logs can still see the cause.
type RevokeOutcome struct {
	// Attempted is false when revocation was skipped (disabled by the
	// caller, or no complete token pair was present).
	Attempted bool

	// OK is true when the server acknowledged the revoke.
	OK bool

	// Cause holds the revoke error, when one occurred.
	Cause error
}
