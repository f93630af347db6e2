package authcore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/catatanlab/authcore/internal"
)

// VerifyAccount consumes a verification code for the account behind
// email. Codes are one-shot: a correct code verifies the account and is
// gone; an expired code is deleted the moment it is detected and the
// caller must request a new one.
func (e *Engine) VerifyAccount(ctx context.Context, email, code string) error {
	if e == nil || e.verificationStore == nil {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" || code == "" {
		e.metricInc(MetricVerifyFailure)
		return ErrInvalidInput
	}

	user, err := e.directory.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		e.metricInc(MetricVerifyFailure)
		return ErrEmailUnknown
	}

	err = e.verificationStore.Consume(ctx, user.ID, code, time.Now().Unix())
	if err != nil {
		var failure error
		switch {
		case errors.Is(err, errCodeRowNotFound), errors.Is(err, errCodeMismatch):
			failure = ErrCodeInvalid
		case errors.Is(err, errCodeRowExpired):
			failure = ErrCodeExpired
		default:
			return err
		}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyConfirm, false, user.ID, failure, nil)
		return failure
	}

	if err := e.directory.SetVerifiedAt(ctx, user.ID, time.Now()); err != nil {
		return err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifyConfirm, true, user.ID, nil, nil)

	return nil
}

// ResendVerificationCode replaces the account's pending code with a fresh
// one and emails it. At most MaxResends resends are honored over the
// lifetime of the pending row, expired or not; past that the account is
// stuck until the stale row is consumed through a verify attempt.
// An unknown email surfaces as ErrUserNotFound, not as the bad-request
// ErrEmailUnknown that VerifyAccount reports.
func (e *Engine) ResendVerificationCode(ctx context.Context, email string) error {
	if e == nil || e.verificationStore == nil {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidInput
	}

	user, err := e.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.Verified() {
		return ErrAlreadyVerified
	}

	code, err := internal.NewNumericCode(e.config.Verification.CodeDigits)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(e.config.Verification.CodeTTL).Unix()
	record, err := e.verificationStore.IssueOrResend(
		ctx, user.ID, code, expiresAt, e.config.Verification.MaxResends,
	)
	if err != nil {
		if errors.Is(err, errResendExhausted) {
			e.metricInc(MetricResendThrottled)
			e.emitAudit(ctx, auditEventVerifyResend, false, user.ID, ErrResendLimit, nil)
			return ErrResendLimit
		}
		return err
	}

	if record.SendCount == 0 {
		e.metricInc(MetricCodeIssued)
	} else {
		e.metricInc(MetricCodeResent)
	}
	e.emitAudit(ctx, auditEventVerifyResend, true, user.ID, nil, nil)

	// The row is committed; a delivery failure surfaces but does not undo
	// the resend.
	return e.mailer.SendVerificationCode(ctx, user, code)
}

// issueVerificationCode creates a fresh code row for a new account and
// emails it. Any leftover row for the user is replaced outright.
func (e *Engine) issueVerificationCode(ctx context.Context, user UserRecord) error {
	code, err := internal.NewNumericCode(e.config.Verification.CodeDigits)
	if err != nil {
		return err
	}

	record := &verificationRecord{
		Code:      code,
		ExpiresAt: time.Now().Add(e.config.Verification.CodeTTL).Unix(),
	}
	if err := e.verificationStore.Create(ctx, user.ID, record); err != nil {
		return err
	}

	e.metricInc(MetricCodeIssued)

	return e.mailer.SendVerificationCode(ctx, user, code)
}
