package authcore

import (
	"context"

	"github.com/catatanlab/authcore/access"
	"github.com/catatanlab/authcore/jwt"
	"github.com/catatanlab/authcore/password"
	"github.com/catatanlab/authcore/session"
)

// Engine is the authentication facade. Construct it through Builder; a
// zero Engine is not usable. All methods are safe for concurrent use.
type Engine struct {
	config Config

	directory Directory
	mailer    Mailer

	jwtManager        *jwt.Manager
	passwordHash      *password.Hasher
	sessionStore      *session.Store
	verificationStore *verificationStore
	evaluator         *access.Evaluator

	audit   *auditDispatcher
	metrics *Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Authorize checks the user's grants against req. See
// [access.Evaluator.Authorize] for the decision rules.
func (e *Engine) Authorize(ctx context.Context, userID string, req access.Requirement) error {
	if e == nil || e.evaluator == nil {
		return ErrEngineNotReady
	}
	return e.evaluator.Authorize(ctx, userID, req)
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
