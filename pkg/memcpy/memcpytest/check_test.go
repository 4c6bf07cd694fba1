package memcpytest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

func TestCheckFloats(t *testing.T) {
	want := []float32{1, 2, 3, 4}
	if err := CheckFloats(want, []float32{1, 2, 3, 4}, 4); err != nil {
		t.Fatalf("CheckFloats: %v", err)
	}
	if err := CheckFloats(want, []float32{1, 2, 9, 9}, 2); err != nil {
		t.Fatalf("CheckFloats prefix: %v", err)
	}

	err := CheckFloats(want, []float32{1, 0, 3, 0}, 4)
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mm.Index != 1 || mm.Count != 2 {
		t.Fatalf("mismatch = %+v", mm)
	}

	if err := CheckFloats(want, want[:2], 3); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestCheckFloatsBitExact(t *testing.T) {
	nan := float32(math.NaN())
	if err := CheckFloats([]float32{nan}, []float32{nan}, 1); err != nil {
		t.Fatalf("identical NaN bits compared unequal: %v", err)
	}
	negZero := float32(math.Copysign(0, -1))
	if err := CheckFloats([]float32{0}, []float32{negZero}, 1); err == nil {
		t.Fatalf("-0 and +0 compared equal")
	}
}

func TestCheckBytes(t *testing.T) {
	if err := CheckBytes([]byte("abc"), []byte("abc")); err != nil {
		t.Fatalf("CheckBytes: %v", err)
	}
	if err := CheckBytes([]byte("abc"), []byte("ab")); err == nil {
		t.Fatalf("expected length error")
	}
	err := CheckBytes([]byte("abc"), []byte("abd"))
	if err == nil || !strings.Contains(err.Error(), "mismatch at 2") {
		t.Fatalf("CheckBytes = %v", err)
	}
}

func TestCheckPrefix(t *testing.T) {
	src := []float32{1, 2, 3, 4}
	rest := []float32{9, 9, 9, 9}
	if err := checkPrefix([]float32{1, 2, 9, 9}, src, rest, 2); err != nil {
		t.Fatalf("checkPrefix: %v", err)
	}
	if err := checkPrefix([]float32{1, 2, 3, 9}, src, rest, 2); err == nil || !strings.Contains(err.Error(), "untouched suffix") {
		t.Fatalf("over copy not reported: %v", err)
	}
	if err := checkPrefix([]float32{1, 9, 9, 9}, src, rest, 2); err == nil || !strings.Contains(err.Error(), "copied prefix") {
		t.Fatalf("short copy not reported: %v", err)
	}
}

func TestExpectStatus(t *testing.T) {
	opErr := memcpy.Fail("Memcpy", memcpy.ErrorInvalidValue)
	if err := expectStatus(opErr, memcpy.ErrorInvalidValue); err != nil {
		t.Fatalf("expectStatus: %v", err)
	}
	if err := expectStatus(fmt.Errorf("wrapped: %w", opErr), memcpy.ErrorInvalidMemcpyDirection, memcpy.ErrorInvalidValue); err != nil {
		t.Fatalf("expectStatus wrapped: %v", err)
	}
	err := expectStatus(nil, memcpy.ErrorInvalidValue)
	if err == nil || !strings.Contains(err.Error(), "got success") {
		t.Fatalf("expectStatus(nil) = %v", err)
	}
	err = expectStatus(memcpy.Fail("Memcpy", memcpy.ErrorInvalidPitchValue), memcpy.ErrorInvalidValue)
	if !errors.Is(err, memcpy.ErrorInvalidPitchValue) {
		t.Fatalf("mismatched status not wrapped: %v", err)
	}
	if expectSuccess(nil) != nil || expectSuccess(opErr) == nil {
		t.Fatalf("expectSuccess misreports")
	}
	if expectFailure(opErr) != nil || expectFailure(nil) == nil {
		t.Fatalf("expectFailure misreports")
	}
}

func TestSelect(t *testing.T) {
	all, err := Select(Filter{Hazardous: true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(all) != len(Cases()) {
		t.Fatalf("Select all = %d, want %d", len(all), len(Cases()))
	}
	safe, err := Select(Filter{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, c := range safe {
		if c.Hazardous {
			t.Fatalf("hazardous case %s selected", c.ID())
		}
	}
	neg, err := Select(Filter{Groups: []Group{GroupNegative}})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(neg) != 3*len(variants()) {
		t.Fatalf("negative cases = %d", len(neg))
	}
}
