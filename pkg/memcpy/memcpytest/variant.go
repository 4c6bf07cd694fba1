package memcpytest

import (
	"fmt"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

type shape int

const (
	linearShape shape = iota
	shape2D
	shape3D
)

// target is one side of a copy.
type target struct {
	Ptr   memcpy.Ptr
	Pitch int64
	// Size is the number of bytes a copy through this target may touch.
	Size int64
}

func (t target) null() target {
	t.Ptr = memcpy.Null
	return t
}

// call is the argument set of one copy. Linear variants read the byte
// count from Ext.Width.
type call struct {
	Dst, Src target
	Ext      memcpy.Extent
	Kind     memcpy.Kind
	Stream   memcpy.Stream
}

// variant is one copy entry point.
type variant struct {
	name  string
	shape shape
	async bool
	// dst and src are the endpoints used when a case has no reason to pick
	// others.
	dst, src endpoint
	do       func(f *Fixture, c call) error
}

// issue performs the copy and, for asynchronous variants, waits on the
// fixture stream. The stream wait error is returned separately so callers
// can check the copy status first.
func (v variant) issue(f *Fixture, c call) (callErr, syncErr error) {
	callErr = v.do(f, c)
	if v.async {
		syncErr = f.Sync()
	}
	return callErr, syncErr
}

// full is the extent covering the whole of the variant's buffers.
func (v variant) full(f *Fixture) memcpy.Extent {
	switch v.shape {
	case shape2D:
		return memcpy.Extent{Width: f.RowBytes(), Height: int64(f.Config.Height), Depth: 1}
	case shape3D:
		return f.Extent()
	default:
		return memcpy.Extent{Width: f.Bytes(), Height: 1, Depth: 1}
	}
}

// zero is the zero sized extent for the variant.
func (v variant) zero() memcpy.Extent {
	switch v.shape {
	case shape2D:
		return memcpy.Extent{Depth: 1}
	case shape3D:
		return memcpy.Extent{}
	default:
		return memcpy.Extent{Height: 1, Depth: 1}
	}
}

// call builds the argument set for the variant on the fixture stream.
func (v variant) call(f *Fixture, dst, src target, ext memcpy.Extent) call {
	return call{Dst: dst, Src: src, Ext: ext, Kind: memcpy.Default, Stream: f.Stream}
}

func pitched3D(f *Fixture, t target) memcpy.PitchedPtr {
	return memcpy.PitchedPtr{Ptr: t.Ptr, Pitch: t.Pitch, XSize: f.RowBytes(), YSize: int64(f.Config.Height)}
}

func params3D(f *Fixture, c call) *memcpy.Memcpy3DParams {
	return &memcpy.Memcpy3DParams{
		Src:    pitched3D(f, c.Src),
		Dst:    pitched3D(f, c.Dst),
		Extent: c.Ext,
		Kind:   c.Kind,
	}
}

var (
	vMemcpy = variant{name: "Memcpy", dst: devA, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.Memcpy(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width, c.Kind)
	}}
	vMemcpyAsync = variant{name: "MemcpyAsync", async: true, dst: devA, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyAsync(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width, c.Kind, c.Stream)
	}}
	vHtoD = variant{name: "MemcpyHtoD", dst: devA, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyHtoD(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width)
	}}
	vHtoDAsync = variant{name: "MemcpyHtoDAsync", async: true, dst: devA, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyHtoDAsync(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width, c.Stream)
	}}
	vDtoH = variant{name: "MemcpyDtoH", dst: hostB, src: devA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyDtoH(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width)
	}}
	vDtoHAsync = variant{name: "MemcpyDtoHAsync", async: true, dst: hostB, src: devA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyDtoHAsync(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width, c.Stream)
	}}
	vDtoD = variant{name: "MemcpyDtoD", dst: devB, src: devA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyDtoD(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width)
	}}
	vDtoDAsync = variant{name: "MemcpyDtoDAsync", async: true, dst: devB, src: devA, do: func(f *Fixture, c call) error {
		return f.RT.MemcpyDtoDAsync(c.Dst.Ptr, c.Src.Ptr, c.Ext.Width, c.Stream)
	}}
	v2D = variant{name: "Memcpy2D", shape: shape2D, dst: pitchedBuf, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.Memcpy2D(c.Dst.Ptr, c.Dst.Pitch, c.Src.Ptr, c.Src.Pitch, c.Ext.Width, c.Ext.Height, c.Kind)
	}}
	v2DAsync = variant{name: "Memcpy2DAsync", shape: shape2D, async: true, dst: pitchedBuf, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.Memcpy2DAsync(c.Dst.Ptr, c.Dst.Pitch, c.Src.Ptr, c.Src.Pitch, c.Ext.Width, c.Ext.Height, c.Kind, c.Stream)
	}}
	v3D = variant{name: "Memcpy3D", shape: shape3D, dst: volumeBuf, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.Memcpy3D(params3D(f, c))
	}}
	v3DAsync = variant{name: "Memcpy3DAsync", shape: shape3D, async: true, dst: volumeBuf, src: hostA, do: func(f *Fixture, c call) error {
		return f.RT.Memcpy3DAsync(params3D(f, c), c.Stream)
	}}
)

// variants lists every copy entry point.
func variants() []variant {
	return []variant{
		vMemcpy, vMemcpyAsync,
		vHtoD, vHtoDAsync,
		vDtoH, vDtoHAsync,
		vDtoD, vDtoDAsync,
		v2D, v2DAsync,
		v3D, v3DAsync,
	}
}

// endpoint resolves a buffer of the fixture.
type endpoint func(f *Fixture) (target, error)

func linearBuf(pick func(f *Fixture) memcpy.Ptr) endpoint {
	return func(f *Fixture) (target, error) {
		return target{Ptr: pick(f), Pitch: f.RowBytes(), Size: f.Bytes()}, nil
	}
}

var (
	devA  = linearBuf(func(f *Fixture) memcpy.Ptr { return f.AD })
	devB  = linearBuf(func(f *Fixture) memcpy.Ptr { return f.BD })
	devC  = linearBuf(func(f *Fixture) memcpy.Ptr { return f.CD })
	hostA = linearBuf(func(f *Fixture) memcpy.Ptr { return f.AH })
	hostB = linearBuf(func(f *Fixture) memcpy.Ptr { return f.BH })
	hostC = linearBuf(func(f *Fixture) memcpy.Ptr { return f.CH })
)

func pitchedBuf(f *Fixture) (target, error) {
	p, pitch, err := f.Pitched()
	if err != nil {
		return target{}, err
	}
	return target{Ptr: p, Pitch: pitch, Size: pitch * int64(f.Config.Height)}, nil
}

func volumeBuf(f *Fixture) (target, error) {
	v, err := f.Volume()
	if err != nil {
		return target{}, err
	}
	return target{Ptr: v.Ptr, Pitch: v.Pitch, Size: v.Pitch * int64(f.Config.Height) * int64(f.Config.Depth)}, nil
}

func resolve(f *Fixture, dst, src endpoint) (d, s target, err error) {
	if d, err = dst(f); err != nil {
		return target{}, target{}, err
	}
	if s, err = src(f); err != nil {
		return target{}, target{}, err
	}
	return d, s, nil
}

// fill writes the host buffer from into t with a blocking copy, using the
// entry point that matches t's layout.
func (f *Fixture) fill(t target, from memcpy.Ptr) error {
	switch {
	case t.Ptr == from:
		return nil
	case f.host[t.Ptr]:
		dst, err := f.RT.HostBytes(t.Ptr, f.Bytes())
		if err != nil {
			return fmt.Errorf("fill %v: %w", t.Ptr, err)
		}
		src, err := f.RT.HostBytes(from, f.Bytes())
		if err != nil {
			return fmt.Errorf("fill %v: %w", t.Ptr, err)
		}
		copy(dst, src)
		return nil
	case t.Ptr == f.pitched:
		return f.FillPitched(from)
	case t.Ptr == f.volume.Ptr:
		return f.FillVolume(from)
	default:
		return f.Upload(t.Ptr, from)
	}
}

// prepare loads src with A and a device dst with C. A host dst keeps its
// initial content.
func (f *Fixture) prepare(dst, src target) error {
	if err := f.fill(src, f.AH); err != nil {
		return err
	}
	if dst.Ptr == src.Ptr || f.host[dst.Ptr] {
		return nil
	}
	return f.fill(dst, f.CH)
}
