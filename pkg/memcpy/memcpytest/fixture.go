package memcpytest

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const floatSize = int64(unsafe.Sizeof(float32(0)))

// Fixture holds the buffers a case works on. Every case gets a fresh one.
//
// AD, BD and CD are device buffers and AH, BH and CH pinned host buffers of
// Config.Elements floats. Host buffers start out as A[i]=3.146+i,
// B[i]=1.618+i and C[i]=i; device buffers start with unspecified content.
type Fixture struct {
	RT     memcpy.Runtime
	Config Config
	Stream memcpy.Stream

	AD, BD, CD memcpy.Ptr
	AH, BH, CH memcpy.Ptr

	pitched memcpy.Ptr
	pitch   int64
	volume  memcpy.PitchedPtr

	scratch     memcpy.Ptr
	scratchSize int64

	host     map[memcpy.Ptr]bool
	cleanups []func() error
}

func newFixture(rt memcpy.Runtime, cfg Config) (f *Fixture, err error) {
	f = &Fixture{RT: rt, Config: cfg, host: make(map[memcpy.Ptr]bool)}
	defer func() {
		if err != nil {
			err = errors.Join(err, f.Close())
			f = nil
		}
	}()

	n := f.Bytes()
	for _, p := range []*memcpy.Ptr{&f.AD, &f.BD, &f.CD} {
		if *p, err = f.malloc(n); err != nil {
			return nil, err
		}
	}
	for _, p := range []*memcpy.Ptr{&f.AH, &f.BH, &f.CH} {
		if *p, err = f.mallocHost(n); err != nil {
			return nil, err
		}
	}

	a, err := f.Floats(f.AH)
	if err != nil {
		return nil, err
	}
	b, err := f.Floats(f.BH)
	if err != nil {
		return nil, err
	}
	c, err := f.Floats(f.CH)
	if err != nil {
		return nil, err
	}
	for i := range a {
		a[i] = 3.146 + float32(i)
		b[i] = 1.618 + float32(i)
		c[i] = float32(i)
	}

	s, err := rt.StreamCreate()
	if err != nil {
		return nil, fmt.Errorf("stream create: %w", err)
	}
	f.Stream = s
	f.onClose(func() error { return rt.StreamDestroy(s) })
	return f, nil
}

// Bytes is the size in bytes of each linear buffer.
func (f *Fixture) Bytes() int64 {
	return int64(f.Config.Elements) * floatSize
}

// RowBytes is the width in bytes of one pitched row.
func (f *Fixture) RowBytes() int64 {
	return int64(f.Config.Width) * floatSize
}

func (f *Fixture) onClose(fn func() error) {
	f.cleanups = append(f.cleanups, fn)
}

func (f *Fixture) malloc(n int64) (memcpy.Ptr, error) {
	p, err := f.RT.Malloc(n)
	if err != nil {
		return memcpy.Null, fmt.Errorf("device alloc %d bytes: %w", n, err)
	}
	f.onClose(func() error { return f.RT.Free(p) })
	return p, nil
}

func (f *Fixture) mallocHost(n int64) (memcpy.Ptr, error) {
	p, err := f.RT.MallocHost(n)
	if err != nil {
		return memcpy.Null, fmt.Errorf("host alloc %d bytes: %w", n, err)
	}
	f.host[p] = true
	f.onClose(func() error { return f.RT.FreeHost(p) })
	return p, nil
}

// Close releases every resource in reverse order of acquisition.
func (f *Fixture) Close() error {
	if f.Stream != memcpy.DefaultStream {
		_ = f.RT.StreamSynchronize(f.Stream)
	}
	var errs []error
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		if err := f.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	f.cleanups = nil
	return errors.Join(errs...)
}

// Floats returns the host buffer p viewed as Config.Elements floats.
func (f *Fixture) Floats(p memcpy.Ptr) ([]float32, error) {
	b, err := f.RT.HostBytes(p, f.Bytes())
	if err != nil {
		return nil, fmt.Errorf("host view of %v: %w", p, err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/int(floatSize)), nil
}

// Pitched returns the W×H pitched device buffer, allocating it on first use.
func (f *Fixture) Pitched() (memcpy.Ptr, int64, error) {
	if f.pitched.IsNull() {
		p, pitch, err := f.RT.MallocPitch(f.RowBytes(), int64(f.Config.Height))
		if err != nil {
			return memcpy.Null, 0, fmt.Errorf("pitched alloc: %w", err)
		}
		f.pitched, f.pitch = p, pitch
		f.onClose(func() error { return f.RT.Free(p) })
	}
	return f.pitched, f.pitch, nil
}

// Volume returns the W×H×D device volume, allocating it on first use.
func (f *Fixture) Volume() (memcpy.PitchedPtr, error) {
	if f.volume.Ptr.IsNull() {
		v, err := f.RT.Malloc3D(f.Extent())
		if err != nil {
			return memcpy.PitchedPtr{}, fmt.Errorf("3d alloc: %w", err)
		}
		f.volume = v
		f.onClose(func() error { return f.RT.Free(v.Ptr) })
	}
	return f.volume, nil
}

// Extent is the full W×H×D extent with the width in bytes.
func (f *Fixture) Extent() memcpy.Extent {
	return memcpy.Extent{Width: f.RowBytes(), Height: int64(f.Config.Height), Depth: int64(f.Config.Depth)}
}

// Flat describes a linear buffer as a pitched region of packed rows.
func (f *Fixture) Flat(p memcpy.Ptr, rows int64) memcpy.PitchedPtr {
	return memcpy.PitchedPtr{Ptr: p, Pitch: f.RowBytes(), XSize: f.RowBytes(), YSize: rows}
}

// Upload fills the whole device buffer dst from the host buffer src.
func (f *Fixture) Upload(dst, src memcpy.Ptr) error {
	if err := f.RT.Memcpy(dst, src, f.Bytes(), memcpy.HostToDevice); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// FillPitched writes the first W×H floats of host buffer src into the
// pitched buffer.
func (f *Fixture) FillPitched(src memcpy.Ptr) error {
	p, pitch, err := f.Pitched()
	if err != nil {
		return err
	}
	if err := f.RT.Memcpy2D(p, pitch, src, f.RowBytes(), f.RowBytes(), int64(f.Config.Height), memcpy.HostToDevice); err != nil {
		return fmt.Errorf("fill pitched: %w", err)
	}
	return nil
}

// FillVolume writes the first W×H×D floats of host buffer src into the
// volume.
func (f *Fixture) FillVolume(src memcpy.Ptr) error {
	v, err := f.Volume()
	if err != nil {
		return err
	}
	p := &memcpy.Memcpy3DParams{
		Src:    f.Flat(src, int64(f.Config.Height)),
		Dst:    v,
		Extent: f.Extent(),
		Kind:   memcpy.HostToDevice,
	}
	if err := f.RT.Memcpy3D(p); err != nil {
		return fmt.Errorf("fill volume: %w", err)
	}
	return nil
}

// Snapshot returns a copy of size bytes at p, reading device memory through
// a scratch host buffer.
func (f *Fixture) Snapshot(p memcpy.Ptr, size int64) ([]byte, error) {
	src := p
	if !f.host[p] {
		if err := f.ensureScratch(size); err != nil {
			return nil, err
		}
		if err := f.RT.Memcpy(f.scratch, p, size, memcpy.DeviceToHost); err != nil {
			return nil, fmt.Errorf("snapshot %v: %w", p, err)
		}
		src = f.scratch
	}
	b, err := f.RT.HostBytes(src, size)
	if err != nil {
		return nil, fmt.Errorf("snapshot %v: %w", p, err)
	}
	return append([]byte(nil), b...), nil
}

// SnapshotFloats is Snapshot of a whole linear buffer as floats.
func (f *Fixture) SnapshotFloats(p memcpy.Ptr) ([]float32, error) {
	b, err := f.Snapshot(p, f.Bytes())
	if err != nil {
		return nil, err
	}
	return bytesToFloats(b), nil
}

func (f *Fixture) ensureScratch(size int64) error {
	if size <= f.scratchSize {
		return nil
	}
	p, err := f.mallocHost(size)
	if err != nil {
		return err
	}
	f.scratch, f.scratchSize = p, size
	return nil
}

// Sync waits for the fixture stream.
func (f *Fixture) Sync() error {
	if err := f.RT.StreamSynchronize(f.Stream); err != nil {
		return fmt.Errorf("stream synchronize: %w", err)
	}
	return nil
}

// Unchanged fails when the size bytes at p differ from before.
func (f *Fixture) Unchanged(p memcpy.Ptr, before []byte) error {
	after, err := f.Snapshot(p, int64(len(before)))
	if err != nil {
		return err
	}
	if err := CheckBytes(before, after); err != nil {
		return fmt.Errorf("buffer %v modified: %w", p, err)
	}
	return nil
}

func bytesToFloats(b []byte) []float32 {
	if len(b) < int(floatSize) {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/int(floatSize))
}
