package memcpytest

import (
	"fmt"
	"math"
	"strings"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// MismatchError reports the first element at which two buffers differ.
type MismatchError struct {
	Index int
	Want  any
	Got   any
	// Count is the total number of differing elements.
	Count int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("mismatch at %d: got %v want %v (%d differing)", e.Index, e.Got, e.Want, e.Count)
}

// CheckFloats compares the first n elements of want and got bit for bit.
func CheckFloats(want, got []float32, n int) error {
	if len(want) < n || len(got) < n {
		return fmt.Errorf("check %d elements: have %d wanted and %d actual", n, len(want), len(got))
	}
	var first *MismatchError
	for i := 0; i < n; i++ {
		if math.Float32bits(want[i]) == math.Float32bits(got[i]) {
			continue
		}
		if first == nil {
			first = &MismatchError{Index: i, Want: want[i], Got: got[i]}
		}
		first.Count++
	}
	if first != nil {
		return first
	}
	return nil
}

// CheckBytes compares two byte buffers.
func CheckBytes(want, got []byte) error {
	if len(want) != len(got) {
		return fmt.Errorf("length mismatch: got %d want %d", len(got), len(want))
	}
	var first *MismatchError
	for i := range want {
		if want[i] == got[i] {
			continue
		}
		if first == nil {
			first = &MismatchError{Index: i, Want: want[i], Got: got[i]}
		}
		first.Count++
	}
	if first != nil {
		return first
	}
	return nil
}

// checkPrefix verifies got[:n] equals src[:n] and got[n:] equals rest[n:].
func checkPrefix(got, src, rest []float32, n int) error {
	if err := CheckFloats(src, got, n); err != nil {
		return fmt.Errorf("copied prefix: %w", err)
	}
	if len(got) != len(rest) {
		return fmt.Errorf("untouched suffix: length mismatch: got %d want %d", len(got), len(rest))
	}
	if err := CheckFloats(rest[n:], got[n:], len(rest)-n); err != nil {
		return fmt.Errorf("untouched suffix (offset %d): %w", n, err)
	}
	return nil
}

// expectSuccess fails unless err is nil.
func expectSuccess(err error) error {
	if err != nil {
		return fmt.Errorf("expected success, got %w", err)
	}
	return nil
}

// expectStatus fails unless err carries one of want.
func expectStatus(err error, want ...memcpy.Status) error {
	got := memcpy.StatusOf(err)
	for _, w := range want {
		if got == w {
			return nil
		}
	}
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = fmt.Sprintf("%q", w)
	}
	if err == nil {
		return fmt.Errorf("expected %s, got success", strings.Join(names, " or "))
	}
	return fmt.Errorf("expected %s, got %w", strings.Join(names, " or "), err)
}

// expectFailure fails when err is nil.
func expectFailure(err error) error {
	if err == nil {
		return fmt.Errorf("expected an error status, got success")
	}
	return nil
}
