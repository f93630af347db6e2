package authcore

import (
	"context"
	"time"

	"github.com/catatanlab/authcore/access"
)

// UserRecord is the account identity returned by [Directory] lookups.
// PasswordHash is empty for federated-only accounts; VerifiedAt is the zero
// time until the account passes email verification. Role is the user's
// primary role name (the first membership), used by the login verification
// gate; full authorization data comes from [Directory.GrantsForUser].
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	VerifiedAt   time.Time
}

// Verified reports whether the account has completed email verification.
func (u UserRecord) Verified() bool {
	return !u.VerifiedAt.IsZero()
}

// Profile is the presentation record created alongside a user.
type Profile struct {
	UserID   string
	Name     string
	Username string
	Photo    string
}

// CreateUserInput is the input for [Directory.CreateUser]. PasswordHash is
// empty for federated accounts.
type CreateUserInput struct {
	Email        string
	Username     string
	PasswordHash string
}

// CreateProfileInput is the input for [Directory.CreateProfile].
type CreateProfileInput struct {
	UserID   string
	Name     string
	Username string
	Photo    string
}

// Directory is the credential store contract the host application must
// implement: user identity, profile, and role/permission lookups. The
// engine owns ActiveToken and VerificationCode rows itself and only touches
// user rows through this interface, never mutating identity fields except
// through the explicit setters below.
//
// Implementations must return (or wrap) [ErrUserNotFound] for missing user
// rows and [ErrRoleNotFound] from AssignRole when the role is not seeded.
// Any other error is treated as an internal store failure and propagated
// unmodified.
type Directory interface {
	FindUserByEmail(ctx context.Context, email string) (UserRecord, error)
	FindUserByUsername(ctx context.Context, username string) (UserRecord, error)
	FindUserByID(ctx context.Context, id string) (UserRecord, error)

	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	CreateProfile(ctx context.Context, input CreateProfileInput) (Profile, error)
	AssignRole(ctx context.Context, userID, roleName string) error

	SetVerifiedAt(ctx context.Context, userID string, when time.Time) error
	SetUsername(ctx context.Context, userID, username string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// GrantsForUser resolves the user's role memberships and, transitively,
	// each role's permissions in a single lookup.
	GrantsForUser(ctx context.Context, userID string) (access.Grants, error)
}

// Mailer is the notification collaborator. Delivery is fire-and-forget
// from the engine's perspective: failures are surfaced to the caller but
// never roll back the already-committed code or user rows.
type Mailer interface {
	SendVerificationCode(ctx context.Context, user UserRecord, code string) error
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email    string
	Username string
	Password string
	Name     string
}

// FederatedProfile is the identity asserted by an external provider for
// [Engine.FederatedSignIn]. ProviderID must be the provider's stable
// subject identifier.
type FederatedProfile struct {
	ProviderID string
	Email      string
	Name       string
	Photo      string
}
