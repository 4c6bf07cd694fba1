//go:build hip

package native

import (
	"errors"
	"runtime"
	"testing"
	"unsafe"
)

func TestHostMallocRoundTrip(t *testing.T) {
	count, err := DeviceCount()
	if err != nil {
		t.Fatalf("DeviceCount: %v", err)
	}
	if count < 1 {
		t.Skip("no hip device available")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := SetDevice(0); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}

	const n = 1024
	in, err := HostMalloc(n)
	if err != nil {
		t.Fatalf("HostMalloc: %v", err)
	}
	defer HostFree(in)
	out, err := HostMalloc(n)
	if err != nil {
		t.Fatalf("HostMalloc: %v", err)
	}
	defer HostFree(out)
	dev, err := Malloc(n)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer Free(dev)

	src := unsafe.Slice((*byte)(unsafe.Pointer(in)), n)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(out)), n)
	for i := range src {
		src[i] = byte(i * 7)
	}
	if err := MemcpyHtoD(dev, in, n); err != nil {
		t.Fatalf("MemcpyHtoD: %v", err)
	}
	if err := MemcpyDtoH(out, dev, n); err != nil {
		t.Fatalf("MemcpyDtoH: %v", err)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, dst[i], src[i])
		}
	}

	err = MemcpyDtoD(0, dev, n)
	var herr *Error
	if !errors.As(err, &herr) || herr.Code != 1 {
		t.Fatalf("MemcpyDtoD(nil) = %v, want hip runtime error 1", err)
	}
}
