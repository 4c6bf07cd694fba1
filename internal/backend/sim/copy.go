package sim

import (
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

type memClass int

const (
	anyMemory memClass = iota
	hostMemory
	deviceMemory
)

func (c memClass) admits(a *allocation) bool {
	switch c {
	case hostMemory:
		return a.host
	case deviceMemory:
		return !a.host
	default:
		return true
	}
}

// request is one validated-on-entry copy call.
type request struct {
	op       string
	async    bool
	stream   memcpy.Stream
	kind     memcpy.Kind
	dstClass memClass
	srcClass memClass
}

func (r *Runtime) Memcpy(dst, src memcpy.Ptr, size int64, kind memcpy.Kind) error {
	return r.copyLinear(request{op: "Memcpy", kind: kind}, dst, src, size)
}

func (r *Runtime) MemcpyAsync(dst, src memcpy.Ptr, size int64, kind memcpy.Kind, s memcpy.Stream) error {
	return r.copyLinear(request{op: "MemcpyAsync", kind: kind, async: true, stream: s}, dst, src, size)
}

func (r *Runtime) MemcpyHtoD(dst, src memcpy.Ptr, size int64) error {
	return r.copyLinear(request{op: "MemcpyHtoD", kind: memcpy.HostToDevice, dstClass: deviceMemory}, dst, src, size)
}

func (r *Runtime) MemcpyHtoDAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return r.copyLinear(request{op: "MemcpyHtoDAsync", kind: memcpy.HostToDevice, dstClass: deviceMemory, async: true, stream: s}, dst, src, size)
}

func (r *Runtime) MemcpyDtoH(dst, src memcpy.Ptr, size int64) error {
	return r.copyLinear(request{op: "MemcpyDtoH", kind: memcpy.DeviceToHost, srcClass: deviceMemory}, dst, src, size)
}

func (r *Runtime) MemcpyDtoHAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return r.copyLinear(request{op: "MemcpyDtoHAsync", kind: memcpy.DeviceToHost, srcClass: deviceMemory, async: true, stream: s}, dst, src, size)
}

func (r *Runtime) MemcpyDtoD(dst, src memcpy.Ptr, size int64) error {
	return r.copyLinear(request{op: "MemcpyDtoD", kind: memcpy.DeviceToDevice, dstClass: deviceMemory, srcClass: deviceMemory}, dst, src, size)
}

func (r *Runtime) MemcpyDtoDAsync(dst, src memcpy.Ptr, size int64, s memcpy.Stream) error {
	return r.copyLinear(request{op: "MemcpyDtoDAsync", kind: memcpy.DeviceToDevice, dstClass: deviceMemory, srcClass: deviceMemory, async: true, stream: s}, dst, src, size)
}

func (r *Runtime) Memcpy2D(dst memcpy.Ptr, dpitch int64, src memcpy.Ptr, spitch int64, width, height int64, kind memcpy.Kind) error {
	req := request{op: "Memcpy2D", kind: kind}
	return r.copyPitched(req, pitched(dst, dpitch, height), pitched(src, spitch, height), memcpy.Extent{Width: width, Height: height, Depth: 1})
}

func (r *Runtime) Memcpy2DAsync(dst memcpy.Ptr, dpitch int64, src memcpy.Ptr, spitch int64, width, height int64, kind memcpy.Kind, s memcpy.Stream) error {
	req := request{op: "Memcpy2DAsync", kind: kind, async: true, stream: s}
	return r.copyPitched(req, pitched(dst, dpitch, height), pitched(src, spitch, height), memcpy.Extent{Width: width, Height: height, Depth: 1})
}

func (r *Runtime) Memcpy3D(p *memcpy.Memcpy3DParams) error {
	if p == nil {
		return memcpy.Fail("Memcpy3D", memcpy.ErrorInvalidValue)
	}
	return r.copyPitched(request{op: "Memcpy3D", kind: p.Kind}, p.Dst, p.Src, p.Extent)
}

func (r *Runtime) Memcpy3DAsync(p *memcpy.Memcpy3DParams, s memcpy.Stream) error {
	if p == nil {
		return memcpy.Fail("Memcpy3DAsync", memcpy.ErrorInvalidValue)
	}
	return r.copyPitched(request{op: "Memcpy3DAsync", kind: p.Kind, async: true, stream: s}, p.Dst, p.Src, p.Extent)
}

func pitched(p memcpy.Ptr, pitch, rows int64) memcpy.PitchedPtr {
	return memcpy.PitchedPtr{Ptr: p, Pitch: pitch, YSize: rows}
}

// precheck applies the checks shared by every copy shape: stream handle,
// copy kind and null pointers. done is true when the call is already
// settled (err may still be nil under AcceptNull).
func (r *Runtime) precheck(req request, dst, src memcpy.Ptr) (done bool, err error) {
	if req.async {
		if _, err := r.stream(req.op, req.stream); err != nil {
			return true, err
		}
	}
	if !req.kind.Valid() && !r.opts.Faults.IgnoreKind {
		return true, memcpy.Fail(req.op, memcpy.ErrorInvalidMemcpyDirection)
	}
	if dst.IsNull() || src.IsNull() {
		if r.opts.Faults.AcceptNull {
			return true, nil
		}
		return true, memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	if dst == src && r.opts.Faults.SamePointerError {
		return true, memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	return false, nil
}

func (r *Runtime) zeroSize(req request) error {
	if r.opts.Faults.ZeroSizeError {
		return memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	return nil
}

func (r *Runtime) resolve(req request, dst, src memcpy.Ptr) (d *allocation, doff int64, s *allocation, soff int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, doff, okd := r.lookupLocked(dst)
	s, soff, oks := r.lookupLocked(src)
	if !okd || !oks || !req.dstClass.admits(d) || !req.srcClass.admits(s) {
		return nil, 0, nil, 0, memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	return d, doff, s, soff, nil
}

func (r *Runtime) copyLinear(req request, dst, src memcpy.Ptr, size int64) error {
	if done, err := r.precheck(req, dst, src); done {
		return err
	}
	if size < 0 {
		return memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	if size == 0 {
		return r.zeroSize(req)
	}
	d, doff, s, soff, err := r.resolve(req, dst, src)
	if err != nil {
		return err
	}

	dAvail := int64(len(d.data)) - doff
	sAvail := int64(len(s.data)) - soff
	n := size
	if r.opts.Faults.OverCopy {
		n = min(dAvail, sAvail)
	}
	if n > dAvail || n > sAvail {
		if !r.opts.Faults.UncheckedBounds {
			return memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
		}
		n = min(dAvail, sAvail)
	}
	to := d.data[doff : doff+n]
	from := s.data[soff : soff+n]
	return r.dispatch(req, func() { copy(to, from) })
}

func (r *Runtime) copyPitched(req request, dst, src memcpy.PitchedPtr, ext memcpy.Extent) error {
	if done, err := r.precheck(req, dst.Ptr, src.Ptr); done {
		return err
	}
	if ext.Width < 0 || ext.Height < 0 || ext.Depth < 0 || dst.Pitch < 0 || src.Pitch < 0 {
		return memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
	}
	if ext.Width > dst.Pitch || ext.Width > src.Pitch {
		return memcpy.Fail(req.op, memcpy.ErrorInvalidPitchValue)
	}
	if ext.IsZero() {
		return r.zeroSize(req)
	}
	d, doff, s, soff, err := r.resolve(req, dst.Ptr, src.Ptr)
	if err != nil {
		return err
	}

	dSlice := dst.Pitch * max(dst.YSize, ext.Height)
	sSlice := src.Pitch * max(src.YSize, ext.Height)
	dAvail := int64(len(d.data)) - doff
	sAvail := int64(len(s.data)) - soff

	height := ext.Height
	if r.opts.Faults.OverCopy && ext.Depth == 1 {
		height = min(rowsFit(dAvail, dst.Pitch, ext.Width), rowsFit(sAvail, src.Pitch, ext.Width))
	}
	if footprint(ext.Width, height, ext.Depth, dst.Pitch, dSlice) > dAvail ||
		footprint(ext.Width, height, ext.Depth, src.Pitch, sSlice) > sAvail {
		if !r.opts.Faults.UncheckedBounds {
			return memcpy.Fail(req.op, memcpy.ErrorInvalidValue)
		}
		height = min(height, rowsFit(dAvail, dst.Pitch, ext.Width), rowsFit(sAvail, src.Pitch, ext.Width))
	}

	to := d.data[doff:]
	from := s.data[soff:]
	width, depth := ext.Width, ext.Depth
	return r.dispatch(req, func() {
		for z := int64(0); z < depth; z++ {
			for y := int64(0); y < height; y++ {
				do := z*dSlice + y*dst.Pitch
				so := z*sSlice + y*src.Pitch
				if do+width > int64(len(to)) || so+width > int64(len(from)) {
					return
				}
				copy(to[do:do+width], from[so:so+width])
			}
		}
	})
}

// footprint is the number of bytes from the region start to the last byte
// the copy touches.
func footprint(width, height, depth, pitch, slice int64) int64 {
	if height == 0 || depth == 0 {
		return 0
	}
	return (depth-1)*slice + (height-1)*pitch + width
}

func rowsFit(avail, pitch, width int64) int64 {
	if avail < width {
		return 0
	}
	if pitch == 0 {
		return 1
	}
	return (avail-width)/pitch + 1
}

// dispatch runs job now for blocking calls or queues it on the request's
// stream.
func (r *Runtime) dispatch(req request, job func()) error {
	if !req.async {
		r.syncAll()
		job()
		return nil
	}
	if r.opts.Faults.DropAsync {
		return nil
	}
	return r.submit(req.op, req.stream, job)
}
