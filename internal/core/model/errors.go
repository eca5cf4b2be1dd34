package model

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("unable to get your location")
	ErrRemoteRejected      = errors.New("remote rejected the request")
	ErrNetworkFailure      = errors.New("network failure")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrNotFound            = errors.New("no attendance record")
	ErrMissingCredentials  = errors.New("missing credentials")

	ErrPunchInProgress   = errors.New("a punch request is already in flight")
	ErrInvalidTransition = errors.New("punch action not allowed in current phase")
	ErrSuperseded        = errors.New("result superseded by a newer request")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
)

// RemoteError carries the message the server sent with a non-success reply.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error { return ErrRemoteRejected }

// UserMessage returns the text shown in the transient notification for err.
func UserMessage(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remote):
		return remote.Message
	case errors.Is(err, ErrLocationUnavailable):
		return "Unable to get your location"
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission is required to punch in/out"
	case errors.Is(err, ErrPunchInProgress):
		return "Please wait, your last punch is still being processed"
	default:
		return "Punch action failed"
	}
}
