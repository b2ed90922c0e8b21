package sensorbridge

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is wrapped by [TransportError] when the device answers
// with a non-2xx status code.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// TransportError reports why a fetch produced no Reading: the device could
// not be reached, did not answer in time, answered with a non-2xx status, or
// sent a body the decoder rejected.
//
// A TransportError never escapes [Fetcher.Fetch]; it is logged and turned
// into an absent result. [Fetcher.FetchResult] exposes it for callers that
// want the detail.
type TransportError struct {
	Device     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d: %v", e.Device, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Device, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
