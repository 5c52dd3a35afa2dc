package internaldefs

import (
	"strconv"
	"strings"

	"github.com/cooperrunyan/cashflow"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   cashflow.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   cashflow.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: cashflow.MetricAuthorizeSuccess, Name: "cashflow_authorize_success_total", Help: "Requests admitted by the guard."},
	{ID: cashflow.MetricAuthorizeNoCredential, Name: "cashflow_authorize_no_credential_total", Help: "Guard rejections for a missing credential header."},
	{ID: cashflow.MetricAuthorizeMalformed, Name: "cashflow_authorize_malformed_total", Help: "Guard rejections for an unparseable or badly signed token."},
	{ID: cashflow.MetricAuthorizeExpired, Name: "cashflow_authorize_expired_total", Help: "Guard rejections for an expired token."},
	{ID: cashflow.MetricAuthorizeCorrupt, Name: "cashflow_authorize_corrupt_total", Help: "Guard rejections for a token without a subject."},
	{ID: cashflow.MetricTokenIssued, Name: "cashflow_token_issued_total", Help: "Session tokens issued."},
	{ID: cashflow.MetricLoginSuccess, Name: "cashflow_login_success_total", Help: "Successful logins."},
	{ID: cashflow.MetricLoginFailure, Name: "cashflow_login_failure_total", Help: "Failed logins."},
	{ID: cashflow.MetricLoginRateLimited, Name: "cashflow_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: cashflow.MetricRegisterSuccess, Name: "cashflow_register_success_total", Help: "Successful registrations."},
	{ID: cashflow.MetricRegisterDuplicate, Name: "cashflow_register_duplicate_total", Help: "Registrations refused for an existing email."},
	{ID: cashflow.MetricHashComputed, Name: "cashflow_hash_computed_total", Help: "Password digests computed."},
}

var HistogramDefs = []HistogramDef{
	{ID: cashflow.MetricAuthorizeLatency, Name: "cashflow_authorize_latency_seconds", Help: "Guard latency."},
	{ID: cashflow.MetricHashLatency, Name: "cashflow_hash_latency_seconds", Help: "Password hashing latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "cashflow_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(cashflow.HistogramBounds) + 1

// BoundsSeconds returns the finite bucket upper bounds in seconds.
func BoundsSeconds() []float64 {
	out := make([]float64, len(cashflow.HistogramBounds))
	for i, b := range cashflow.HistogramBounds {
		out[i] = b.Seconds()
	}
	return out
}

// BoundSuffixes returns instrument-name-safe labels for each bucket, ending
// with "inf".
func BoundSuffixes() []string {
	out := make([]string, 0, BucketCount)
	for _, s := range BoundsSeconds() {
		out = append(out, strings.ReplaceAll(strconv.FormatFloat(s, 'f', -1, 64), ".", "_"))
	}
	return append(out, "inf")
}

// NormalizeBuckets pads or truncates raw snapshot buckets to BucketCount.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
