package resilience

import "strings"

// ErrorClass buckets an error by surface symptom, the same string-matching
// approach internal/agent/failover.go's classifyProviderError uses against
// raw error text (providers rarely expose typed errors across SDKs).
type ErrorClass string

const (
	ClassUnknown          ErrorClass = "unknown"
	ClassTimeout          ErrorClass = "timeout"
	ClassRateLimit        ErrorClass = "rate_limit"
	ClassAuth             ErrorClass = "auth"
	ClassBilling          ErrorClass = "billing"
	ClassModelUnavailable ErrorClass = "model_unavailable"
	ClassServerError      ErrorClass = "server_error"
	ClassInvalidRequest   ErrorClass = "invalid_request"
)

// Classify buckets err by inspecting its message for known substrings.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	s := strings.ToLower(err.Error())

	switch {
	case strings.Contains(s, "timeout"), strings.Contains(s, "deadline exceeded"), strings.Contains(s, "context deadline"):
		return ClassTimeout
	case strings.Contains(s, "rate limit"), strings.Contains(s, "rate_limit"), strings.Contains(s, "too many requests"), strings.Contains(s, "429"):
		return ClassRateLimit
	case strings.Contains(s, "unauthorized"), strings.Contains(s, "invalid api key"), strings.Contains(s, "authentication"), strings.Contains(s, "401"), strings.Contains(s, "403"):
		return ClassAuth
	case strings.Contains(s, "billing"), strings.Contains(s, "payment"), strings.Contains(s, "quota"), strings.Contains(s, "402"):
		return ClassBilling
	case strings.Contains(s, "model not found"), strings.Contains(s, "does not exist"), strings.Contains(s, "unavailable"):
		return ClassModelUnavailable
	case strings.Contains(s, "internal server"), strings.Contains(s, "server error"), strings.Contains(s, "500"), strings.Contains(s, "502"), strings.Contains(s, "503"), strings.Contains(s, "504"):
		return ClassServerError
	case strings.Contains(s, "invalid"), strings.Contains(s, "bad request"), strings.Contains(s, "400"):
		return ClassInvalidRequest
	default:
		return ClassUnknown
	}
}

// IsRetryable reports whether the error's class is generally worth retrying
// against the same backend (timeouts, rate limits, transient server errors).
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ClassTimeout, ClassRateLimit, ClassServerError:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether the error's class warrants trying a
// different backend entirely rather than retrying the same one.
func ShouldFailover(err error) bool {
	switch Classify(err) {
	case ClassBilling, ClassAuth, ClassModelUnavailable:
		return true
	default:
		return false
	}
}
