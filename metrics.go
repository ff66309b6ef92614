package authguard

import (
	"sync/atomic"
)

// MetricID defines a public type used by authguard APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRegisterSuccess is an exported constant or variable used by the security core.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterRejected is an exported constant or variable used by the security core.
	MetricRegisterRejected
	// MetricLoginSuccess is an exported constant or variable used by the security core.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the security core.
	MetricLoginFailure
	// MetricRateLimited is an exported constant or variable used by the security core.
	MetricRateLimited
	// MetricIPLocked is an exported constant or variable used by the security core.
	MetricIPLocked
	// MetricAccountLocked is an exported constant or variable used by the security core.
	MetricAccountLocked
	// MetricCaptchaIssued is an exported constant or variable used by the security core.
	MetricCaptchaIssued
	// MetricCaptchaSolved is an exported constant or variable used by the security core.
	MetricCaptchaSolved
	// MetricCaptchaFailed is an exported constant or variable used by the security core.
	MetricCaptchaFailed
	// MetricOTPIssued is an exported constant or variable used by the security core.
	MetricOTPIssued
	// MetricOTPVerified is an exported constant or variable used by the security core.
	MetricOTPVerified
	// MetricOTPFailed is an exported constant or variable used by the security core.
	MetricOTPFailed
	// MetricPasswordRejected is an exported constant or variable used by the security core.
	MetricPasswordRejected
	// MetricNotifyFailed is an exported constant or variable used by the security core.
	MetricNotifyFailed

	metricCount
)

// Metrics holds lock-free counters for engine activity. Incrementing is a
// single atomic add; Snapshot copies all counters at once.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

func newMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all engine counters.
type MetricsSnapshot struct {
	RegisterSuccess  uint64
	RegisterRejected uint64
	LoginSuccess     uint64
	LoginFailure     uint64
	RateLimited      uint64
	IPLocked         uint64
	AccountLocked    uint64
	CaptchaIssued    uint64
	CaptchaSolved    uint64
	CaptchaFailed    uint64
	OTPIssued        uint64
	OTPVerified      uint64
	OTPFailed        uint64
	PasswordRejected uint64
	NotifyFailed     uint64
}

// Snapshot describes the snapshot operation and its observable behavior.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		RegisterSuccess:  m.counters[MetricRegisterSuccess].Load(),
		RegisterRejected: m.counters[MetricRegisterRejected].Load(),
		LoginSuccess:     m.counters[MetricLoginSuccess].Load(),
		LoginFailure:     m.counters[MetricLoginFailure].Load(),
		RateLimited:      m.counters[MetricRateLimited].Load(),
		IPLocked:         m.counters[MetricIPLocked].Load(),
		AccountLocked:    m.counters[MetricAccountLocked].Load(),
		CaptchaIssued:    m.counters[MetricCaptchaIssued].Load(),
		CaptchaSolved:    m.counters[MetricCaptchaSolved].Load(),
		CaptchaFailed:    m.counters[MetricCaptchaFailed].Load(),
		OTPIssued:        m.counters[MetricOTPIssued].Load(),
		OTPVerified:      m.counters[MetricOTPVerified].Load(),
		OTPFailed:        m.counters[MetricOTPFailed].Load(),
		PasswordRejected: m.counters[MetricPasswordRejected].Load(),
		NotifyFailed:     m.counters[MetricNotifyFailed].Load(),
	}
}
