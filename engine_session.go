package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/catatanlab/authcore/access"
)

// Session is the result of a successful login: the signed bearer token and
// the account it authenticates.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      UserRecord
}

// Identity is the resolved caller behind a validated token, with the
// grants aggregated for display ("who am I").
type Identity struct {
	User   UserRecord
	Grants access.Grants
}

// Login verifies the email/password pair and issues a session. Every
// credential failure, unknown email included, collapses into
// ErrInvalidCredentials. An unverified account in a verification-gated
// role is rejected with ErrNotVerified even when the credentials are
// correct. Issuing replaces any prior session for the user.
func (e *Engine) Login(ctx context.Context, email, pass string) (*Session, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || pass == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": email, "reason": "empty_input"}
		})
		return nil, ErrInvalidCredentials
	}

	user, err := e.directory.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": email, "reason": "user_not_found"}
		})
		return nil, ErrInvalidCredentials
	}

	// Federated-only accounts carry no hash and cannot log in with a
	// password.
	if user.PasswordHash == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": email, "reason": "no_password_hash"}
		})
		return nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": email, "reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	if e.verificationGated(user.Role) && !user.Verified() {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrNotVerified, func() map[string]string {
			return map[string]string{"identifier": email, "reason": "not_verified"}
		})
		return nil, ErrNotVerified
	}

	sess, err := e.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return sess, nil
}

// Validate authenticates a bearer token: signature and expiry first, then
// presence of the literal token in the session store, then subject
// resolution. All three failures are indistinguishable to the caller.
func (e *Engine) Validate(ctx context.Context, token string) (UserRecord, error) {
	if e == nil || e.jwtManager == nil {
		return UserRecord{}, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return UserRecord{}, ErrUnauthenticated
	}

	// A valid signature is not enough: the token must still be the user's
	// single active session. Store failures reject too; validation fails
	// closed.
	if _, err := e.sessionStore.Find(ctx, token); err != nil {
		e.metricInc(MetricValidateFailure)
		return UserRecord{}, ErrUnauthenticated
	}

	user, err := e.directory.FindUserByID(ctx, claims.Subject)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return UserRecord{}, ErrUnauthenticated
	}

	e.metricInc(MetricValidateSuccess)
	return user, nil
}

// CurrentUser resolves a token into the caller plus their aggregated
// roles and permissions.
func (e *Engine) CurrentUser(ctx context.Context, token string) (*Identity, error) {
	user, err := e.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	grants, err := e.directory.GrantsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Identity{User: user, Grants: grants}, nil
}

// Logout revokes the session behind the literal token string. Revoking a
// token that is already gone is not an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrInvalidInput
	}

	userID, err := e.sessionStore.Delete(ctx, token)
	if err != nil {
		return err
	}

	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)

	return nil
}

// issueSession signs a fresh token and installs it as the user's single
// active session, displacing any prior one.
func (e *Engine) issueSession(ctx context.Context, user UserRecord) (*Session, error) {
	token, err := e.jwtManager.Sign(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := e.sessionStore.Save(ctx, user.ID, token, e.jwtManager.TTL()); err != nil {
		return nil, err
	}

	e.metricInc(MetricSessionIssued)

	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(e.jwtManager.TTL()),
		User:      user,
	}, nil
}

// verificationGated reports whether role members must verify before login.
func (e *Engine) verificationGated(role string) bool {
	for _, gated := range e.config.Account.VerificationGatedRoles {
		if strings.EqualFold(gated, role) {
			return true
		}
	}
	return false
}
