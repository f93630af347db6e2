package authcore

import (
	"context"
	"errors"
)

// ChangePassword re-hashes and persists a new password after checking the
// current one. Federated-only accounts have no hash and cannot take this
// path. Existing sessions stay valid; the user keeps their active token.
func (e *Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	if e == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	if userID == "" || current == "" || next == "" {
		e.metricInc(MetricPasswordChangeFailure)
		return ErrInvalidInput
	}

	user, err := e.directory.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricPasswordChangeFailure)
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash == "" {
		e.metricInc(MetricPasswordChangeFailure)
		return ErrUserNotFound
	}

	ok, err := e.passwordHash.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChange, false, userID, ErrPasswordIncorrect, nil)
		return ErrPasswordIncorrect
	}

	hash, err := e.passwordHash.Hash(next)
	if err != nil {
		e.metricInc(MetricPasswordChangeFailure)
		return ErrPasswordPolicy
	}

	if err := e.directory.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChange, true, userID, nil, nil)

	return nil
}
