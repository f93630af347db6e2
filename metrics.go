package authcore

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricSessionIssued
	MetricSessionRevoked
	MetricValidateSuccess
	MetricValidateFailure
	MetricRegisterSuccess
	MetricRegisterConflict
	MetricVerifySuccess
	MetricVerifyFailure
	MetricCodeIssued
	MetricCodeResent
	MetricResendThrottled
	MetricFederatedSignIn
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure

	metricIDCount
)

// MetricDef describes one counter for exporters.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

// MetricDefs returns the exporter-facing definition of every counter, in
// MetricID order.
func MetricDefs() []MetricDef {
	return []MetricDef{
		{MetricLoginSuccess, "authcore_login_success_total", "Successful logins."},
		{MetricLoginFailure, "authcore_login_failure_total", "Failed logins (credentials, verification gate)."},
		{MetricSessionIssued, "authcore_session_issued_total", "Bearer tokens issued."},
		{MetricSessionRevoked, "authcore_session_revoked_total", "Bearer tokens revoked by logout."},
		{MetricValidateSuccess, "authcore_validate_success_total", "Session validations that authenticated."},
		{MetricValidateFailure, "authcore_validate_failure_total", "Session validations rejected."},
		{MetricRegisterSuccess, "authcore_register_success_total", "Accounts registered."},
		{MetricRegisterConflict, "authcore_register_conflict_total", "Registrations rejected for duplicate email/username."},
		{MetricVerifySuccess, "authcore_verify_success_total", "Accounts verified."},
		{MetricVerifyFailure, "authcore_verify_failure_total", "Verification attempts rejected."},
		{MetricCodeIssued, "authcore_code_issued_total", "Verification codes issued."},
		{MetricCodeResent, "authcore_code_resent_total", "Verification codes resent."},
		{MetricResendThrottled, "authcore_resend_throttled_total", "Resend requests rejected at the limit."},
		{MetricFederatedSignIn, "authcore_federated_signin_total", "Federated sign-ins."},
		{MetricPasswordChangeSuccess, "authcore_password_change_success_total", "Password changes."},
		{MetricPasswordChangeFailure, "authcore_password_change_failure_total", "Password changes rejected."},
	}
}

// Metrics holds lock-free counters. When disabled, every operation is a
// no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot deep-copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snapshot
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		snapshot.Counters[id] = m.counters[id].Load()
	}
	return snapshot
}
