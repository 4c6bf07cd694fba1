// Package sim is a host-memory model of the memcpy runtime contract.
//
// It exists so the conformance harness can run without GPU hardware and so
// tests can inject faults that a real runtime would not exhibit. Device memory
// is ordinary Go memory placed in a separate address range from host memory,
// which lets Default copies infer their direction the way a unified address
// space runtime does.
package sim

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const (
	hostBase   = uintptr(0x0000_1000_0000_0000)
	deviceBase = uintptr(0x0000_7000_0000_0000)
	deviceSpan = uintptr(0x0000_0100_0000_0000)

	// guardGap keeps neighbouring allocations apart so overruns land in
	// unmapped space.
	guardGap = 4096

	defaultPitchAlign = 512
)

// Faults makes the runtime deviate from the contract.
type Faults struct {
	// AcceptNull makes copies with a null source or destination succeed
	// without transferring anything.
	AcceptNull bool
	// ZeroSizeError makes zero byte copies fail with ErrorInvalidValue.
	ZeroSizeError bool
	// OverCopy ignores the requested size and copies as much as both
	// allocations allow.
	OverCopy bool
	// SamePointerError rejects copies whose source and destination are equal.
	SamePointerError bool
	// DropAsync accepts asynchronous copies but never performs them.
	DropAsync bool
	// IgnoreKind accepts out of range copy kinds.
	IgnoreKind bool
	// UncheckedBounds clamps out of bounds copies instead of failing.
	UncheckedBounds bool
}

// Options configures a Runtime.
type Options struct {
	// Devices is the number of simulated devices. Zero means one.
	Devices int
	// DeviceMemory caps the bytes allocatable per device. Zero is unlimited.
	DeviceMemory int64
	// PitchAlign is the row alignment used by MallocPitch and Malloc3D.
	PitchAlign int64
	Faults     Faults
}

type allocation struct {
	base   uintptr
	data   []byte
	host   bool
	device int
}

func (a *allocation) end() uintptr {
	return a.base + uintptr(len(a.data))
}

// Runtime implements memcpy.Runtime in host memory.
type Runtime struct {
	opts Options

	mu         sync.Mutex
	allocs     []*allocation
	nextHost   uintptr
	nextDevice []uintptr
	used       []int64
	device     int
	streams    map[memcpy.Stream]*stream
	nextStream memcpy.Stream
	closed     bool
}

var _ memcpy.Runtime = (*Runtime)(nil)

// New creates a Runtime.
func New(opts Options) *Runtime {
	if opts.Devices <= 0 {
		opts.Devices = 1
	}
	if opts.PitchAlign <= 0 {
		opts.PitchAlign = defaultPitchAlign
	}
	r := &Runtime{
		opts:       opts,
		nextHost:   hostBase,
		nextDevice: make([]uintptr, opts.Devices),
		used:       make([]int64, opts.Devices),
		streams:    make(map[memcpy.Stream]*stream),
		nextStream: 1,
	}
	for i := range r.nextDevice {
		r.nextDevice[i] = deviceBase + uintptr(i)*deviceSpan
	}
	r.streams[memcpy.DefaultStream] = newStream(memcpy.DefaultStream)
	return r
}

func (r *Runtime) Name() string {
	return "sim"
}

func (r *Runtime) DeviceCount() (int, error) {
	return r.opts.Devices, nil
}

func (r *Runtime) SetDevice(device int) error {
	if device < 0 || device >= r.opts.Devices {
		return memcpy.Fail("SetDevice", memcpy.ErrorInvalidDevice)
	}
	r.mu.Lock()
	r.device = device
	r.mu.Unlock()
	return nil
}

func (r *Runtime) Malloc(size int64) (memcpy.Ptr, error) {
	return r.alloc("Malloc", size, false)
}

func (r *Runtime) MallocHost(size int64) (memcpy.Ptr, error) {
	return r.alloc("MallocHost", size, true)
}

func (r *Runtime) MallocPitch(width, height int64) (memcpy.Ptr, int64, error) {
	if width < 0 || height < 0 {
		return memcpy.Null, 0, memcpy.Fail("MallocPitch", memcpy.ErrorInvalidValue)
	}
	pitch := alignUp(width, r.opts.PitchAlign)
	p, err := r.alloc("MallocPitch", pitch*height, false)
	if err != nil {
		return memcpy.Null, 0, err
	}
	return p, pitch, nil
}

func (r *Runtime) Malloc3D(extent memcpy.Extent) (memcpy.PitchedPtr, error) {
	if extent.Width < 0 || extent.Height < 0 || extent.Depth < 0 {
		return memcpy.PitchedPtr{}, memcpy.Fail("Malloc3D", memcpy.ErrorInvalidValue)
	}
	pitch := alignUp(extent.Width, r.opts.PitchAlign)
	p, err := r.alloc("Malloc3D", pitch*extent.Height*extent.Depth, false)
	if err != nil {
		return memcpy.PitchedPtr{}, err
	}
	return memcpy.PitchedPtr{Ptr: p, Pitch: pitch, XSize: extent.Width, YSize: extent.Height}, nil
}

func (r *Runtime) alloc(op string, size int64, host bool) (memcpy.Ptr, error) {
	if size < 0 {
		return memcpy.Null, memcpy.Fail(op, memcpy.ErrorInvalidValue)
	}
	if size == 0 {
		return memcpy.Null, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return memcpy.Null, memcpy.Fail(op, memcpy.ErrorUnknown)
	}

	a := &allocation{host: host, device: r.device}
	if host {
		a.base = r.nextHost
		r.nextHost += uintptr(alignUp(size, guardGap)) + guardGap
	} else {
		if limit := r.opts.DeviceMemory; limit > 0 && r.used[r.device]+size > limit {
			return memcpy.Null, memcpy.Fail(op, memcpy.ErrorOutOfMemory)
		}
		a.base = r.nextDevice[r.device]
		r.nextDevice[r.device] += uintptr(alignUp(size, guardGap)) + guardGap
		r.used[r.device] += size
	}
	a.data = make([]byte, size)

	i := sort.Search(len(r.allocs), func(i int) bool { return r.allocs[i].base > a.base })
	r.allocs = append(r.allocs, nil)
	copy(r.allocs[i+1:], r.allocs[i:])
	r.allocs[i] = a
	return memcpy.Ptr(a.base), nil
}

func (r *Runtime) Free(p memcpy.Ptr) error {
	return r.free("Free", p, false)
}

func (r *Runtime) FreeHost(p memcpy.Ptr) error {
	return r.free("FreeHost", p, true)
}

func (r *Runtime) free(op string, p memcpy.Ptr, host bool) error {
	if p.IsNull() {
		return nil
	}
	r.syncAll()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.allocs {
		if a.base != uintptr(p) {
			continue
		}
		if a.host != host {
			return memcpy.Fail(op, memcpy.ErrorInvalidValue)
		}
		if !a.host {
			r.used[a.device] -= int64(len(a.data))
		}
		r.allocs = append(r.allocs[:i], r.allocs[i+1:]...)
		return nil
	}
	return memcpy.Fail(op, memcpy.ErrorInvalidValue)
}

func (r *Runtime) HostBytes(p memcpy.Ptr, size int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, off, ok := r.lookupLocked(p)
	if !ok || !a.host {
		return nil, memcpy.Fail("HostBytes", memcpy.ErrorInvalidValue)
	}
	if size < 0 || off+size > int64(len(a.data)) {
		return nil, memcpy.Fail("HostBytes", memcpy.ErrorInvalidValue)
	}
	return a.data[off : off+size : off+size], nil
}

// lookupLocked finds the allocation containing p and the offset of p in it.
func (r *Runtime) lookupLocked(p memcpy.Ptr) (*allocation, int64, bool) {
	addr := uintptr(p)
	i := sort.Search(len(r.allocs), func(i int) bool { return r.allocs[i].end() > addr })
	if i == len(r.allocs) || r.allocs[i].base > addr {
		return nil, 0, false
	}
	a := r.allocs[i]
	return a, int64(addr - a.base), true
}

// Allocations returns the number of live allocations.
func (r *Runtime) Allocations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.allocs)
}

func (r *Runtime) Close() error {
	r.syncAll()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for id, s := range r.streams {
		s.stop()
		delete(r.streams, id)
	}
	r.allocs = nil
	return nil
}

func (r *Runtime) String() string {
	return fmt.Sprintf("sim(devices=%d)", r.opts.Devices)
}

func alignUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
