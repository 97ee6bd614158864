package eiq

import "fmt"

// TransportError reports a failed delivery to the platform: a connection or
// timeout failure, or a non-2xx upstream response. Deliveries are never
// retried; the error is surfaced to the caller as a message.
type TransportError struct {
	// StatusCode is the upstream HTTP status, or 0 when the request never
	// completed.
	StatusCode int
	// Body is an excerpt of the upstream response body, when one was read.
	Body string
	// Err is the underlying transport error, when the request never
	// completed.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("platform request failed: %v", e.Err)
	}
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
