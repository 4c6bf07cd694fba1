package memcpy

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	native := errors.New("cuda runtime error 1: invalid argument")
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{name: "nil", err: nil, want: Success},
		{name: "bare status", err: ErrorInvalidPitchValue, want: ErrorInvalidPitchValue},
		{name: "op error", err: Fail("Memcpy", ErrorInvalidValue), want: ErrorInvalidValue},
		{name: "wrapped op error", err: fmt.Errorf("case setup: %w", Fail("Malloc", ErrorOutOfMemory)), want: ErrorOutOfMemory},
		{name: "native cause", err: &OpError{Op: "MemcpyHtoD", Status: ErrorInvalidValue, Err: native}, want: ErrorInvalidValue},
		{name: "foreign error", err: errors.New("boom"), want: ErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Fatalf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOpErrorIs(t *testing.T) {
	t.Parallel()

	native := errors.New("driver said no")
	err := &OpError{Op: "Memcpy2D", Status: ErrorInvalidValue, Err: native}
	if !errors.Is(err, ErrorInvalidValue) {
		t.Fatalf("errors.Is(%v, ErrorInvalidValue) = false", err)
	}
	if !errors.Is(err, native) {
		t.Fatalf("errors.Is(%v, native) = false", err)
	}
	if errors.Is(err, ErrorInvalidMemcpyDirection) {
		t.Fatalf("errors.Is matched the wrong status")
	}
	if !strings.Contains(err.Error(), "Memcpy2D") || !strings.Contains(err.Error(), "driver said no") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestFailSuccessIsNil(t *testing.T) {
	t.Parallel()
	if err := Fail("Memcpy", Success); err != nil {
		t.Fatalf("Fail(Success) = %v, want nil", err)
	}
}

func TestStatusString(t *testing.T) {
	t.Parallel()
	if got := ErrorInvalidValue.String(); got != "invalid value" {
		t.Fatalf("ErrorInvalidValue.String() = %q", got)
	}
	if got := Status(4242).String(); got != "status 4242" {
		t.Fatalf("Status(4242).String() = %q", got)
	}
	if Status(4242).Known() {
		t.Fatalf("Status(4242) reported as known")
	}
}

func TestPtrAndKind(t *testing.T) {
	t.Parallel()

	if !Null.IsNull() || Null.Add(16) != Null {
		t.Fatalf("null pointer arithmetic must stay null")
	}
	p := Ptr(0x1000)
	if got := p.Add(0x20); got != Ptr(0x1020) {
		t.Fatalf("Add: got %v want 0x1020", got)
	}
	if got := p.String(); got != "0x1000" {
		t.Fatalf("String: got %q", got)
	}
	for _, k := range []Kind{HostToHost, HostToDevice, DeviceToHost, DeviceToDevice, Default} {
		if !k.Valid() {
			t.Fatalf("%v reported invalid", k)
		}
	}
	if Kind(99).Valid() || Kind(-1).Valid() {
		t.Fatalf("out of range kinds reported valid")
	}
	if got := Kind(99).String(); got != "Kind(99)" {
		t.Fatalf("Kind(99).String() = %q", got)
	}
}

func TestExtent(t *testing.T) {
	t.Parallel()
	e := Extent{Width: 4096, Height: 8, Depth: 2}
	if e.IsZero() {
		t.Fatalf("%+v reported zero", e)
	}
	if got := e.Bytes(); got != 4096*8*2 {
		t.Fatalf("Bytes: got %d", got)
	}
	for _, z := range []Extent{{0, 8, 2}, {4096, 0, 2}, {4096, 8, 0}} {
		if !z.IsZero() {
			t.Fatalf("%+v not reported zero", z)
		}
	}
	pp := PitchedPtr{Ptr: 0x2000, Pitch: 4608, XSize: 4096, YSize: 8}
	if got := pp.SlicePitch(); got != 4608*8 {
		t.Fatalf("SlicePitch: got %d", got)
	}
}
