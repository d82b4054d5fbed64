package upstream

import (
	"context"
	"errors"
	"fmt"
)

// Error is returned for every failed call to the runtime: unreachable
// host, timeout, non-2xx status or an undecodable reply.
type Error struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Timeout reports whether the call was cut off by its deadline.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsUpstream reports whether err is, or wraps, an *Error.
func IsUpstream(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}
