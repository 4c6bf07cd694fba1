//go:build cuda

package native

import (
	"errors"
	"runtime"
	"testing"
	"unsafe"
)

func requireDevice(t *testing.T) {
	t.Helper()
	count, err := DeviceCount()
	if err != nil {
		t.Fatalf("DeviceCount: %v", err)
	}
	if count < 1 {
		t.Skip("no cuda device available")
	}
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
	if err := SetDevice(0); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}
}

func TestPinnedAllocAndMemcpyRoundTrip(t *testing.T) {
	requireDevice(t)

	stream, err := StreamCreate()
	if err != nil {
		t.Fatalf("StreamCreate: %v", err)
	}
	defer func() {
		if err := StreamDestroy(stream); err != nil {
			t.Fatalf("stream destroy: %v", err)
		}
	}()

	const n = 256
	bytes := n * int64(unsafe.Sizeof(float32(0)))
	hostIn, err := MallocHost(bytes)
	if err != nil {
		t.Fatalf("MallocHost input: %v", err)
	}
	defer FreeHost(hostIn)
	hostOut, err := MallocHost(bytes)
	if err != nil {
		t.Fatalf("MallocHost output: %v", err)
	}
	defer FreeHost(hostOut)
	dev, err := Malloc(bytes)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer Free(dev)

	inSlice := unsafe.Slice((*float32)(unsafe.Pointer(hostIn)), n)
	outSlice := unsafe.Slice((*float32)(unsafe.Pointer(hostOut)), n)
	for i := range inSlice {
		inSlice[i] = float32(i) * 1.25
		outSlice[i] = 0
	}

	if err := MemcpyHtoDAsync(dev, hostIn, bytes, stream); err != nil {
		t.Fatalf("MemcpyHtoDAsync: %v", err)
	}
	if err := MemcpyDtoHAsync(hostOut, dev, bytes, stream); err != nil {
		t.Fatalf("MemcpyDtoHAsync: %v", err)
	}
	if err := StreamSynchronize(stream); err != nil {
		t.Fatalf("stream synchronize: %v", err)
	}

	for i := range inSlice {
		if inSlice[i] != outSlice[i] {
			t.Fatalf("mismatch at %d: got %v want %v", i, outSlice[i], inSlice[i])
		}
	}
}

func TestMemcpyNullReturnsInvalidValue(t *testing.T) {
	requireDevice(t)

	dev, err := Malloc(64)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	defer Free(dev)

	err = Memcpy(0, dev, 64, 4)
	var nerr *Error
	if !errors.As(err, &nerr) || nerr.Code != 1 {
		t.Fatalf("Memcpy(nil) = %v, want runtime error 1", err)
	}
	// The cleared last-error slot must not leak into the next call.
	if err := Memcpy(dev, dev, 64, 4); err != nil {
		t.Fatalf("Memcpy after failure: %v", err)
	}
}

func TestMalloc3DPitch(t *testing.T) {
	requireDevice(t)

	p, err := Malloc3D(Extent{Width: 100, Height: 4, Depth: 2})
	if err != nil {
		t.Fatalf("Malloc3D: %v", err)
	}
	defer Free(p.Ptr)
	if p.Pitch < 100 || p.XSize != 100 || p.YSize != 4 {
		t.Fatalf("Malloc3D = %+v", p)
	}
}
