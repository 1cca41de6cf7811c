package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrVenueUnavailable covers connection, session and auth failures.
	ErrVenueUnavailable = errors.New("venue unavailable")
	// ErrOrderRejected is matched by every *RejectError.
	ErrOrderRejected = errors.New("order rejected")
)

// RejectError carries the venue's reason for declining a request.
type RejectError struct {
	Symbol  string
	Code    int
	Comment string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("order rejected: %s code=%d %s", e.Symbol, e.Code, e.Comment)
}

func (e *RejectError) Is(target error) bool {
	return target == ErrOrderRejected
}
