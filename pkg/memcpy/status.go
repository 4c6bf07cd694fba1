package memcpy

import (
	"errors"
	"fmt"
)

// Status is a runtime status code. The numeric values follow the CUDA and
// HIP runtime enums so native codes can be used unchanged.
type Status int

const (
	Success                     Status = 0
	ErrorInvalidValue           Status = 1
	ErrorOutOfMemory            Status = 2
	ErrorInvalidPitchValue      Status = 12
	ErrorInvalidDevicePointer   Status = 17
	ErrorInvalidMemcpyDirection Status = 21
	ErrorInvalidDevice          Status = 101
	ErrorInvalidResourceHandle  Status = 400
	ErrorNotSupported           Status = 801
	ErrorUnknown                Status = 999
)

var statusNames = map[Status]string{
	Success:                     "success",
	ErrorInvalidValue:           "invalid value",
	ErrorOutOfMemory:            "out of memory",
	ErrorInvalidPitchValue:      "invalid pitch value",
	ErrorInvalidDevicePointer:   "invalid device pointer",
	ErrorInvalidMemcpyDirection: "invalid memcpy direction",
	ErrorInvalidDevice:          "invalid device",
	ErrorInvalidResourceHandle:  "invalid resource handle",
	ErrorNotSupported:           "operation not supported",
	ErrorUnknown:                "unknown error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status %d", int(s))
}

// Error makes a Status usable as an error and as an errors.Is target.
func (s Status) Error() string {
	return s.String()
}

// Known reports whether s is one of the named statuses.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// OpError records the runtime call that failed and its status.
type OpError struct {
	Op     string
	Status Status
	// Err optionally carries the native error with its message.
	Err error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

func (e *OpError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Status, e.Err}
	}
	return []error{e.Status}
}

// Fail returns an *OpError for op, or nil when status is Success.
func Fail(op string, status Status) error {
	if status == Success {
		return nil
	}
	return &OpError{Op: op, Status: status}
}

// StatusOf extracts the Status carried by err. A nil error is Success; an
// error without a status is ErrorUnknown.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Status
	}
	var st Status
	if errors.As(err, &st) {
		return st
	}
	return ErrorUnknown
}
