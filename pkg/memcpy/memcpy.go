// Package memcpy describes the memory-copy API surface of a GPU runtime.
//
// A Runtime exposes the flat, pitched (2D) and extent based (3D) copy entry
// points in synchronous and stream ordered variants, together with the
// allocation and stream calls needed to set up a copy. Implementations wrap a
// real runtime (CUDA, HIP) or model one in host memory.
package memcpy

import "fmt"

// Ptr is an address in host or device memory owned by a Runtime.
// The zero Ptr is the null pointer.
type Ptr uintptr

// Null is the null pointer.
const Null Ptr = 0

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool {
	return p == Null
}

// Add returns p advanced by off bytes. Adding to the null pointer yields null.
func (p Ptr) Add(off int64) Ptr {
	if p == Null {
		return Null
	}
	return Ptr(int64(p) + off)
}

func (p Ptr) String() string {
	if p == Null {
		return "nil"
	}
	return fmt.Sprintf("0x%x", uintptr(p))
}

// Stream is an opaque execution queue handle. The zero Stream is the
// runtime's default stream.
type Stream uintptr

// DefaultStream is the null stream.
const DefaultStream Stream = 0

// Kind is the direction of a copy. The values match the CUDA and HIP enums.
type Kind int

const (
	HostToHost     Kind = 0
	HostToDevice   Kind = 1
	DeviceToHost   Kind = 2
	DeviceToDevice Kind = 3
	// Default lets the runtime infer the direction from the pointers.
	Default Kind = 4
)

// Valid reports whether k is one of the defined directions.
func (k Kind) Valid() bool {
	return k >= HostToHost && k <= Default
}

func (k Kind) String() string {
	switch k {
	case HostToHost:
		return "HostToHost"
	case HostToDevice:
		return "HostToDevice"
	case DeviceToHost:
		return "DeviceToHost"
	case DeviceToDevice:
		return "DeviceToDevice"
	case Default:
		return "Default"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Extent is the size of a 3D region. Width is in bytes, Height in rows and
// Depth in slices.
type Extent struct {
	Width  int64
	Height int64
	Depth  int64
}

// IsZero reports whether any dimension is zero, which makes a copy of the
// extent a no-op.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0 || e.Depth == 0
}

// Bytes is the number of bytes the extent covers when packed.
func (e Extent) Bytes() int64 {
	return e.Width * e.Height * e.Depth
}

// PitchedPtr is a base pointer plus the pitch (bytes per row) and the
// logical row width and row count of the allocation it points into.
type PitchedPtr struct {
	Ptr   Ptr
	Pitch int64
	XSize int64
	YSize int64
}

// SlicePitch is the distance in bytes between two consecutive 2D slices.
func (p PitchedPtr) SlicePitch() int64 {
	return p.Pitch * p.YSize
}

// Memcpy3DParams describes a 3D copy between two pitched regions.
type Memcpy3DParams struct {
	Src    PitchedPtr
	Dst    PitchedPtr
	Extent Extent
	Kind   Kind
}

// Runtime is the memory-copy API of a GPU runtime.
//
// Every copy call returns nil on success or an error carrying a Status
// (see StatusOf). Asynchronous variants only enqueue work on the given stream;
// results are observable after StreamSynchronize returns.
//
// Device selection in GPU runtimes is bound to the calling OS thread, so
// callers that use SetDevice must lock their goroutine to a thread.
type Runtime interface {
	Name() string
	DeviceCount() (int, error)
	SetDevice(device int) error

	Malloc(size int64) (Ptr, error)
	MallocHost(size int64) (Ptr, error)
	// MallocPitch allocates height rows of at least width bytes and returns
	// the chosen pitch.
	MallocPitch(width, height int64) (Ptr, int64, error)
	Malloc3D(extent Extent) (PitchedPtr, error)
	Free(p Ptr) error
	FreeHost(p Ptr) error
	// HostBytes returns a view of size bytes of host memory starting at p.
	HostBytes(p Ptr, size int64) ([]byte, error)

	StreamCreate() (Stream, error)
	StreamDestroy(s Stream) error
	StreamSynchronize(s Stream) error

	Memcpy(dst, src Ptr, size int64, kind Kind) error
	MemcpyAsync(dst, src Ptr, size int64, kind Kind, s Stream) error
	MemcpyHtoD(dst, src Ptr, size int64) error
	MemcpyHtoDAsync(dst, src Ptr, size int64, s Stream) error
	MemcpyDtoH(dst, src Ptr, size int64) error
	MemcpyDtoHAsync(dst, src Ptr, size int64, s Stream) error
	MemcpyDtoD(dst, src Ptr, size int64) error
	MemcpyDtoDAsync(dst, src Ptr, size int64, s Stream) error
	Memcpy2D(dst Ptr, dpitch int64, src Ptr, spitch int64, width, height int64, kind Kind) error
	Memcpy2DAsync(dst Ptr, dpitch int64, src Ptr, spitch int64, width, height int64, kind Kind, s Stream) error
	Memcpy3D(p *Memcpy3DParams) error
	Memcpy3DAsync(p *Memcpy3DParams, s Stream) error

	Close() error
}
