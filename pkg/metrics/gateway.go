package metrics

import "time"

// GatewayMetrics provides observability for dispatched filesystem
// operations.
//
// This interface is optional - if not provided to the dispatcher, a
// no-op implementation is used with zero overhead.
type GatewayMetrics interface {
	// RecordRequest records a completed request with its operation name,
	// outcome ("ok" or the error kind) and duration.
	RecordRequest(op, status string, duration time.Duration)

	// RecordRateLimited increments the counter of requests rejected by
	// the rate limiter before any path work.
	RecordRateLimited(op string)

	// RecordPolicyDenial increments the counter of requests refused by a
	// policy rule, labeled with the rule kind that fired.
	RecordPolicyDenial(op, kind string)

	// RecordBytesTransferred records payload bytes moved through the
	// gateway, by direction ("read" or "write").
	RecordBytesTransferred(direction string, bytes int64)
}

// NewNoopGatewayMetrics returns a GatewayMetrics that discards everything.
func NewNoopGatewayMetrics() GatewayMetrics {
	return noopGatewayMetrics{}
}

type noopGatewayMetrics struct{}

func (noopGatewayMetrics) RecordRequest(op, status string, duration time.Duration) {}
func (noopGatewayMetrics) RecordRateLimited(op string)                             {}
func (noopGatewayMetrics) RecordPolicyDenial(op, kind string)                      {}
func (noopGatewayMetrics) RecordBytesTransferred(direction string, bytes int64)    {}
