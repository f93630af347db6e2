package authcore

import (
	"context"
	"errors"
	"strings"
)

// Register creates a password account with the default role and a pending
// verification code, and returns the new profile. It never returns a
// session: the account has to verify before it can log in. A duplicate
// email or username is a single conflict error that does not reveal which
// field collided.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	if e == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" || input.Password == "" || input.Name == "" {
		return nil, ErrInvalidInput
	}

	taken, err := e.accountExists(ctx, input.Email, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		e.metricInc(MetricRegisterConflict)
		e.emitAudit(ctx, auditEventRegister, false, "", ErrAccountExists, func() map[string]string {
			return map[string]string{"identifier": input.Email}
		})
		return nil, ErrAccountExists
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, ErrPasswordPolicy
	}

	user, err := e.directory.CreateUser(ctx, CreateUserInput{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	profile, err := e.directory.CreateProfile(ctx, CreateProfileInput{
		UserID:   user.ID,
		Name:     input.Name,
		Username: input.Username,
		Photo:    e.config.Account.DefaultProfilePhoto,
	})
	if err != nil {
		return nil, err
	}

	if err := e.directory.AssignRole(ctx, user.ID, e.config.Account.DefaultRole); err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegister, true, user.ID, nil, nil)

	// Code issue and delivery run last: a mail failure surfaces to the
	// caller but the account rows above are already committed.
	if err := e.issueVerificationCode(ctx, user); err != nil {
		return nil, err
	}

	return &profile, nil
}

// accountExists reports whether the email or the username is taken.
func (e *Engine) accountExists(ctx context.Context, email, username string) (bool, error) {
	if _, err := e.directory.FindUserByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	if _, err := e.directory.FindUserByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	return false, nil
}
