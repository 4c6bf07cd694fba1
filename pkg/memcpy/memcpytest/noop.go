package memcpytest

import (
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// noop is a copy that must succeed without changing the destination.
type noop struct {
	group    Group
	name     string
	doc      string
	v        variant
	dst, src endpoint
	ext      func(f *Fixture) memcpy.Extent
}

func (n noop) toCase() Case {
	return Case{
		Group: n.group,
		Name:  n.name,
		Doc:   n.doc,
		Run:   n.run,
	}
}

func (n noop) run(f *Fixture) error {
	dstEnd, srcEnd := n.dst, n.src
	if dstEnd == nil {
		dstEnd = n.v.dst
	}
	if srcEnd == nil {
		srcEnd = n.v.src
	}
	dst, src, err := resolve(f, dstEnd, srcEnd)
	if err != nil {
		return err
	}
	if err := f.prepare(dst, src); err != nil {
		return err
	}
	before, err := f.Snapshot(dst.Ptr, dst.Size)
	if err != nil {
		return err
	}
	callErr, syncErr := n.v.issue(f, n.v.call(f, dst, src, n.ext(f)))
	if err := expectSuccess(callErr); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}
	return f.Unchanged(dst.Ptr, before)
}

func halfBytes(f *Fixture) memcpy.Extent {
	return memcpy.Extent{Width: f.Bytes() / 2, Height: 1, Depth: 1}
}

func samePointerCases() []Case {
	const doc = "A copy whose source and destination are the same buffer succeeds and leaves it unchanged."
	same := func(name string, v variant, buf endpoint, ext func(*Fixture) memcpy.Extent) Case {
		return noop{group: GroupSamePointer, name: name, doc: doc, v: v, dst: buf, src: buf, ext: ext}.toCase()
	}
	return []Case{
		same("Memcpy/device", vMemcpy, devA, halfBytes),
		same("Memcpy/host", vMemcpy, hostA, halfBytes),
		same("MemcpyAsync/device", vMemcpyAsync, devA, halfBytes),
		same("MemcpyAsync/host", vMemcpyAsync, hostA, halfBytes),
		same("MemcpyDtoD", vDtoD, devA, vDtoD.full),
		same("MemcpyDtoDAsync", vDtoDAsync, devA, vDtoDAsync.full),
		same("Memcpy2D", v2D, pitchedBuf, v2D.full),
		same("Memcpy2DAsync", v2DAsync, pitchedBuf, v2DAsync.full),
		same("Memcpy3D", v3D, volumeBuf, v3D.full),
		same("Memcpy3DAsync", v3DAsync, volumeBuf, v3DAsync.full),
	}
}

func nullSizeCases() []Case {
	var out []Case
	for _, v := range variants() {
		out = append(out, noop{
			group: GroupNullSize,
			name:  v.name,
			doc:   v.name + " of zero bytes succeeds and leaves the destination unchanged.",
			v:     v,
			ext:   func(*Fixture) memcpy.Extent { return v.zero() },
		}.toCase())
	}
	return out
}

func zeroExtentCases() []Case {
	type dim struct {
		name string
		zero func(memcpy.Extent) memcpy.Extent
	}
	width := dim{"zero-width", func(e memcpy.Extent) memcpy.Extent { e.Width = 0; return e }}
	height := dim{"zero-height", func(e memcpy.Extent) memcpy.Extent { e.Height = 0; return e }}
	depth := dim{"zero-depth", func(e memcpy.Extent) memcpy.Extent { e.Depth = 0; return e }}

	var out []Case
	add := func(v variant, dims ...dim) {
		for _, d := range dims {
			out = append(out, noop{
				group: GroupZeroExtent,
				name:  v.name + "/" + d.name,
				doc:   v.name + " with a single zero extent dimension succeeds as a no-op.",
				v:     v,
				ext:   func(f *Fixture) memcpy.Extent { return d.zero(v.full(f)) },
			}.toCase())
		}
	}
	add(v2D, width, height)
	add(v2DAsync, width, height)
	add(v3D, width, height, depth)
	add(v3DAsync, width, height, depth)
	return out
}
