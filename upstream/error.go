package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned by Send while a request with the same id is outstanding.
	ErrDuplicateID = errors.New("request id already in flight")
	// ErrStreamClosed reports an event stream that ended before the terminal response.
	ErrStreamClosed = errors.New("event stream closed before response")
	// ErrTimeout reports a request that exceeded its time budget.
	ErrTimeout = errors.New("request timed out")
	// ErrIDMismatch reports a Direct response addressed to another request.
	ErrIDMismatch = errors.New("response id does not match request id")
)

// TransportError reports a failed upstream exchange. ID is nil for
// connection-level failures not tied to a request.
type TransportError struct {
	ID         json.RawMessage
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	prefix := "upstream " + e.Op
	if len(e.ID) > 0 {
		prefix += " (id " + string(e.ID) + ")"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", prefix, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
