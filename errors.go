package authcore

import (
	"errors"

	"github.com/catatanlab/authcore/access"
)

var (
	// ErrInvalidCredentials covers every credential failure on login: unknown
	// email, missing password hash, and hash mismatch. The message never
	// discloses which check failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotVerified is returned when an unverified account in a
	// verification-gated role presents correct credentials.
	ErrNotVerified = errors.New("account not verified")
	// ErrUnauthenticated covers every session validation failure: malformed,
	// bad signature, expired, revoked, and unresolvable subject. Callers are
	// never told which check failed.
	ErrUnauthenticated = errors.New("invalid or expired session")
	// ErrUserNotFound is the sentinel Directory implementations must return
	// (or wrap) for missing user rows.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleNotFound is returned by Directory.AssignRole when the named
	// role is not seeded.
	ErrRoleNotFound = errors.New("role not found")
	// ErrAccountExists is returned by Register when the email or the
	// username is already taken.
	ErrAccountExists = errors.New("email or username already registered")
	// ErrEmailUnknown is the bad-request variant of an unknown email used
	// by VerifyAccount; ResendVerificationCode reports ErrUserNotFound
	// instead.
	ErrEmailUnknown = errors.New("email not found")
	// ErrCodeInvalid is returned when no live code row matches the given
	// user and code pair.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeExpired is returned once for an expired code row; the row is
	// deleted on detection.
	ErrCodeExpired = errors.New("verification code expired, request a new one")
	// ErrAlreadyVerified rejects a resend for an account that no longer
	// needs verification.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrResendLimit is the hard stop after the maximum number of resends.
	ErrResendLimit = errors.New("verification code resend limit reached")
	// ErrPasswordIncorrect is returned by ChangePassword when the supplied
	// current password does not match.
	ErrPasswordIncorrect = errors.New("current password is incorrect")
	// ErrPasswordPolicy is returned when a new password fails hashing
	// policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidInput is returned for requests missing required fields.
	ErrInvalidInput = errors.New("missing required field")
	// ErrEngineNotReady signals use of an Engine that was not built through
	// Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Kind classifies engine errors into the transport-facing taxonomy.
type Kind int

const (
	// KindInternal covers unexpected store/transport failures, propagated
	// unmodified underneath.
	KindInternal Kind = iota
	// KindUnauthenticated covers missing, invalid, expired, and revoked
	// sessions as well as failed login credentials.
	KindUnauthenticated
	// KindForbidden covers authenticated callers lacking a required role or
	// permission, and exhausted resend budgets.
	KindForbidden
	// KindBadRequest covers malformed verification input, wrong current
	// password, and expired or invalid codes.
	KindBadRequest
	// KindConflict covers duplicate unique names.
	KindConflict
	// KindNotFound covers absent referenced entities.
	KindNotFound
)

// KindOf maps an error returned by Engine methods to its Kind. Unknown
// errors classify as KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrResendLimit),
		errors.Is(err, access.ErrNoSubject),
		errors.Is(err, access.ErrRoleDenied),
		errors.Is(err, access.ErrPermissionDenied):
		return KindForbidden
	case errors.Is(err, ErrEmailUnknown),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrPasswordIncorrect),
		errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrInvalidInput):
		return KindBadRequest
	case errors.Is(err, ErrAccountExists):
		return KindConflict
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRoleNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
