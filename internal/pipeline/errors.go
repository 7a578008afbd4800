package pipeline

import "fmt"

// FailureKind classifies a per-request failure.
type FailureKind string

// Failure kinds recovered locally into outcomes, never fatal to a batch.
const (
	FailureHTTPStatus FailureKind = "http_status"
	FailureTimeout    FailureKind = "timeout"
	FailureNetwork    FailureKind = "network"
	FailureNoContent  FailureKind = "no_content"
	FailureInternal   FailureKind = "internal"
)

// FetchError is a classified per-request failure. It is a value the
// extraction pipeline folds into an outcome, not an error that aborts
// the batch.
type FetchError struct {
	Kind       FailureKind
	StatusCode int
	Detail     string
}

// Error implements the error interface using the wire classification.
func (e *FetchError) Error() string {
	return e.Classification()
}

// Classification renders the failure the way it is persisted in outcome
// records: HttpStatus(code), Timeout, NetworkError(detail), or an
// internal:<reason> string.
func (e *FetchError) Classification() string {
	switch e.Kind {
	case FailureHTTPStatus:
		return fmt.Sprintf("HttpStatus(%d)", e.StatusCode)
	case FailureTimeout:
		return "Timeout"
	case FailureNetwork:
		return fmt.Sprintf("NetworkError(%s)", truncateDetail(e.Detail))
	case FailureNoContent:
		return "no content"
	default:
		return "internal:" + truncateDetail(e.Detail)
	}
}

// NewHTTPStatusError builds a failure for a terminal non-2xx response.
func NewHTTPStatusError(code int) *FetchError {
	return &FetchError{Kind: FailureHTTPStatus, StatusCode: code}
}

// NewTimeoutError builds a failure for an expired fetch deadline.
func NewTimeoutError() *FetchError {
	return &FetchError{Kind: FailureTimeout}
}

// NewNetworkError builds a failure for transport-level errors.
func NewNetworkError(detail string) *FetchError {
	return &FetchError{Kind: FailureNetwork, Detail: detail}
}

// NewInternalError builds a failure for unexpected faults inside one task.
func NewInternalError(detail string) *FetchError {
	return &FetchError{Kind: FailureInternal, Detail: detail}
}

const maxDetailLen = 100

func truncateDetail(s string) string {
	if len(s) > maxDetailLen {
		return s[:maxDetailLen]
	}
	return s
}
