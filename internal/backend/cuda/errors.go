//go:build cuda

package cuda

import (
	"errors"

	"github.com/samcharles93/copyconf/internal/backend/cuda/native"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// fail converts a native error into a *memcpy.OpError. CUDA runtime and
// driver codes share the numeric values of memcpy.Status for every status
// the suite checks.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var nerr *native.Error
	if errors.As(err, &nerr) {
		return &memcpy.OpError{Op: op, Status: memcpy.Status(nerr.Code), Err: err}
	}
	return &memcpy.OpError{Op: op, Status: memcpy.ErrorUnknown, Err: err}
}
