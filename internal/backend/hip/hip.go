//go:build hip

// Package hip adapts the HIP runtime to memcpy.Runtime.
package hip

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/samcharles93/copyconf/internal/backend/hip/native"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// Runtime drives libamdhip64.
type Runtime struct {
	mu   sync.Mutex
	host map[memcpy.Ptr]int64
}

var _ memcpy.Runtime = (*Runtime)(nil)

func New() (*Runtime, error) {
	count, err := native.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("hip device query failed: %w", err)
	}
	if count < 1 {
		return nil, fmt.Errorf("no hip devices detected")
	}
	return &Runtime{host: make(map[memcpy.Ptr]int64)}, nil
}

func (r *Runtime) Name() string {
	return "hip"
}

func (r *Runtime) DeviceCount() (int, error) {
	n, err := native.DeviceCount()
	return n, fail("DeviceCount", err)
}

func (r *Runtime) SetDevice(device int) error {
	return fail("SetDevice", native.SetDevice(device))
}

func (r *Runtime) Malloc(size int64) (memcpy.Ptr, error) {
	p, err := native.Malloc(size)
	return memcpy.Ptr(p), fail("Malloc", err)
}

func (r *Runtime) MallocHost(size int64) (memcpy.Ptr, error) {
	p, err := native.HostMalloc(size)
	if err != nil {
		return memcpy.Null, fail("MallocHost", err)
	}
	r.mu.Lock()
	r.host[memcpy.Ptr(p)] = size
	r.mu.Unlock()
	return memcpy.Ptr(p), nil
}

func (r *Runtime) MallocPitch(width, height int64) (memcpy.Ptr, int64, error) {
	p, pitch, err := native.MallocPitch(width, height)
	return memcpy.Ptr(p), pitch, fail("MallocPitch", err)
}

func (r *Runtime) Malloc3D(e memcpy.Extent) (memcpy.PitchedPtr, error) {
	p, err := native.Malloc3D(native.Extent(e))
	if err != nil {
		return memcpy.PitchedPtr{}, fail("Malloc3D", err)
	}
	return fromNative(p), nil
}

func (r *Runtime) Free(p memcpy.Ptr) error {
	return fail("Free", native.Free(uintptr(p)))
}

func (r *Runtime) FreeHost(p memcpy.Ptr) error {
	if err := native.HostFree(uintptr(p)); err != nil {
		return fail("FreeHost", err)
	}
	r.mu.Lock()
	delete(r.host, p)
	r.mu.Unlock()
	return nil
}

// HostBytes views pinned memory allocated through MallocHost.
func (r *Runtime) HostBytes(p memcpy.Ptr, size int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for base, n := range r.host {
		if p < base || p >= base.Add(n) {
			continue
		}
		if size < 0 || int64(p-base)+size > n {
			break
		}
		if size == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(p))), size), nil
	}
	return nil, memcpy.Fail("HostBytes", memcpy.ErrorInvalidValue)
}

func (r *Runtime) StreamCreate() (memcpy.Stream, error) {
	s, err := native.StreamCreate()
	return memcpy.Stream(s), fail("StreamCreate", err)
}

func (r *Runtime) StreamDestroy(s memcpy.Stream) error {
	return fail("StreamDestroy", native.StreamDestroy(uintptr(s)))
}

func (r *Runtime) StreamSynchronize(s memcpy.Stream) error {
	return fail("StreamSynchronize", native.StreamSynchronize(uintptr(s)))
}

func (r *Runtime) Memcpy(dst, src memcpy.Ptr, size int64, kind memcpy.Kind) error {
	return fail("Memcpy", native.Memcpy(uintptr(dst), uintptr(src), size, int(kind)))
}

func (r *Runtime) MemcpyAsync(dst, src memcpy.Ptr, size int64, kind memcpy.Kind, s memcpy.Stream) error {
	return fail("MemcpyAsync", native.MemcpyAsync(uintptr(dst), uintptr(src), size, int(kind), uintptr(s)))
}

func (r *Runtime) MemcpyHtoD(dst, src memcpy.Ptr, size int64) error {
	return fail("MemcpyHtoD", native.MemcpyHtoD(uintptr(dst), uintptr(src), size))
}

func (r *Runtime) MemcpyHtoDAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return fail("MemcpyHtoDAsync", native.MemcpyHtoDAsync(uintptr(dst), uintptr(src), size, uintptr(s)))
}

func (r *Runtime) MemcpyDtoH(dst, src memcpy.Ptr, size int64) error {
	return fail("MemcpyDtoH", native.MemcpyDtoH(uintptr(dst), uintptr(src), size))
}

func (r *Runtime) MemcpyDtoHAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return fail("MemcpyDtoHAsync", native.MemcpyDtoHAsync(uintptr(dst), uintptr(src), size, uintptr(s)))
}

func (r *Runtime) MemcpyDtoD(dst, src memcpy.Ptr, size int64) error {
	return fail("MemcpyDtoD", native.MemcpyDtoD(uintptr(dst), uintptr(src), size))
}

func (r *Runtime) MemcpyDtoDAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return fail("MemcpyDtoDAsync", native.MemcpyDtoDAsync(uintptr(dst), uintptr(src), size, uintptr(s)))
}

func (r *Runtime) Memcpy2D(dst memcpy.Ptr, dpitch int64, src memcpy.Ptr, spitch int64, width, height int64, kind memcpy.Kind) error {
	return fail("Memcpy2D", native.Memcpy2D(uintptr(dst), dpitch, uintptr(src), spitch, width, height, int(kind)))
}

func (r *Runtime) Memcpy2DAsync(dst memcpy.Ptr, dpitch int64, src memcpy.Ptr, spitch int64, width, height int64, kind memcpy.Kind, s memcpy.Stream) error {
	return fail("Memcpy2DAsync", native.Memcpy2DAsync(uintptr(dst), dpitch, uintptr(src), spitch, width, height, int(kind), uintptr(s)))
}

func (r *Runtime) Memcpy3D(p *memcpy.Memcpy3DParams) error {
	if p == nil {
		return memcpy.Fail("Memcpy3D", memcpy.ErrorInvalidValue)
	}
	return fail("Memcpy3D", native.Memcpy3D(toNative(p.Dst), toNative(p.Src), native.Extent(p.Extent), int(p.Kind)))
}

func (r *Runtime) Memcpy3DAsync(p *memcpy.Memcpy3DParams, s memcpy.Stream) error {
	if p == nil {
		return memcpy.Fail("Memcpy3DAsync", memcpy.ErrorInvalidValue)
	}
	return fail("Memcpy3DAsync", native.Memcpy3DAsync(toNative(p.Dst), toNative(p.Src), native.Extent(p.Extent), int(p.Kind), uintptr(s)))
}

func (r *Runtime) Close() error {
	return nil
}

func toNative(p memcpy.PitchedPtr) native.Pitched {
	return native.Pitched{Ptr: uintptr(p.Ptr), Pitch: p.Pitch, XSize: p.XSize, YSize: p.YSize}
}

func fromNative(p native.Pitched) memcpy.PitchedPtr {
	return memcpy.PitchedPtr{Ptr: memcpy.Ptr(p.Ptr), Pitch: p.Pitch, XSize: p.XSize, YSize: p.YSize}
}
