//go:build cuda

package cuda

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/samcharles93/copyconf/internal/backend/cuda/native"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

func TestFailMapsNativeCode(t *testing.T) {
	err := fail("Memcpy", &native.Error{Code: 1, Message: "invalid argument"})
	if !errors.Is(err, memcpy.ErrorInvalidValue) {
		t.Fatalf("unexpected status: %v", err)
	}
	if !strings.Contains(err.Error(), "cuda runtime error 1") {
		t.Fatalf("missing native message: %v", err)
	}
}

func TestFailUnknownError(t *testing.T) {
	err := fail("Memcpy", fmt.Errorf("boom"))
	if memcpy.StatusOf(err) != memcpy.ErrorUnknown {
		t.Fatalf("unexpected status: %v", err)
	}
	if fail("Memcpy", nil) != nil {
		t.Fatalf("nil error not preserved")
	}
}
