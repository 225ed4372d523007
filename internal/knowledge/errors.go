package knowledge

import (
	"fmt"
	"net/http"
)

// TransportError indicates the endpoint could not be reached (DNS, connect,
// timeout, reset) on the final attempt.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sparql transport failure after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteStatusError indicates the endpoint answered with a non-2xx status
// on the final attempt.
type RemoteStatusError struct {
	StatusCode int
	Body       string
	Attempts   int
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("sparql endpoint returned HTTP %d after %d attempt(s): %s",
		e.StatusCode, e.Attempts, e.Body)
}

// Retryable reports whether the status is worth another attempt:
// 429 and every 5xx are, any other status is terminal.
func (e *RemoteStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// MalformedDataError indicates the response body is not a SPARQL JSON
// result set. It is never retried.
type MalformedDataError struct {
	Reason string
	Body   string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed sparql result: %s", e.Reason)
}
