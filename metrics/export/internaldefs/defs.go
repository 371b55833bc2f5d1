package internaldefs

import (
	yggAuth "github.com/nsiso/yggAuth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   yggAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   yggAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for [yggAuth.Engine.AuditDropped].
const AuditDroppedName = "yggauth_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: yggAuth.MetricLoginSuccess, Name: "yggauth_login_success_total", Help: "Credential logins that returned SUCCESS."},
	{ID: yggAuth.MetricLoginMethodNotAllowed, Name: "yggauth_login_method_not_allowed_total", Help: "Credential logins rejected with HTTP 405."},
	{ID: yggAuth.MetricLoginNotFound, Name: "yggauth_login_not_found_total", Help: "Credential logins rejected with HTTP 404."},
	{ID: yggAuth.MetricLoginInvalidCredentials, Name: "yggauth_login_invalid_credentials_total", Help: "Credential logins rejected with HTTP 403."},
	{ID: yggAuth.MetricLoginTimeout, Name: "yggauth_login_timeout_total", Help: "Credential logins that timed out or were cancelled."},
	{ID: yggAuth.MetricLoginOther, Name: "yggauth_login_other_total", Help: "Credential logins that failed for any other remote reason."},
	{ID: yggAuth.MetricLoginInternal, Name: "yggauth_login_internal_total", Help: "Credential logins interrupted by a local fault."},
	{ID: yggAuth.MetricValidateSuccess, Name: "yggauth_validate_success_total", Help: "Validate calls that accepted the access token."},
	{ID: yggAuth.MetricValidateFailure, Name: "yggauth_validate_failure_total", Help: "Validate calls that rejected the access token."},
	{ID: yggAuth.MetricRefreshSuccess, Name: "yggauth_refresh_success_total", Help: "Refresh calls that issued a new access token."},
	{ID: yggAuth.MetricRefreshTimeout, Name: "yggauth_refresh_timeout_total", Help: "Refresh calls that timed out or were cancelled."},
	{ID: yggAuth.MetricRefreshFailure, Name: "yggauth_refresh_failure_total", Help: "Refresh calls rejected; a new login is required."},
	{ID: yggAuth.MetricReauthInternal, Name: "yggauth_reauth_internal_total", Help: "Re-authentications interrupted by a local fault."},
}

var HistogramDefs = []HistogramDef{
	{ID: yggAuth.MetricAuthenticateLatency, Name: "yggauth_authenticate_latency_seconds", Help: "Authenticate call latency."},
	{ID: yggAuth.MetricValidateLatency, Name: "yggauth_validate_latency_seconds", Help: "Validate call latency."},
	{ID: yggAuth.MetricRefreshLatency, Name: "yggauth_refresh_latency_seconds", Help: "Refresh call latency."},
}

// BucketCount matches the engine's histogram resolution.
const BucketCount = 8

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// bucket is +Inf.
var HistogramUpperBounds = [BucketCount - 1]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBounds are the bucket bounds as exported in "le" labels.
var HistogramBounds = [BucketCount]string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
