package memcpytest

import (
	"fmt"
	"slices"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

func halfCopyCases() []Case {
	linear := func(v variant) Case {
		return Case{
			Group: GroupHalfCopy,
			Name:  v.name,
			Doc:   v.name + " of half a buffer transfers exactly the first half and leaves the rest as it was.",
			Run: func(f *Fixture) error {
				return runHalfCopy(f, v, v.dst, v.src, halfBytes(f))
			},
		}
	}
	pitched := func(v variant, src endpoint) Case {
		return Case{
			Group: GroupHalfCopy,
			Name:  v.name,
			Doc:   v.name + " of half the rows of a populated pitched buffer into a packed device buffer.",
			Run: func(f *Fixture) error {
				ext := v.full(f)
				ext.Height /= 2
				return runHalfCopy(f, v, devA, src, ext)
			},
		}
	}
	return []Case{
		linear(vHtoD),
		linear(vHtoDAsync),
		linear(vDtoH),
		linear(vDtoHAsync),
		linear(vDtoD),
		linear(vDtoDAsync),
		linear(vMemcpy.with(hostB, devA)),
		linear(vMemcpyAsync.with(hostB, devA)),
		pitched(v2D, pitchedBuf),
		pitched(v2DAsync, pitchedBuf),
		pitched(v3D, volumeBuf),
		pitched(v3DAsync, volumeBuf),
	}
}

// with returns v using other default endpoints.
func (v variant) with(dst, src endpoint) variant {
	v.dst, v.src = dst, src
	return v
}

func runHalfCopy(f *Fixture, v variant, dstEnd, srcEnd endpoint, ext memcpy.Extent) error {
	dst, src, err := resolve(f, dstEnd, srcEnd)
	if err != nil {
		return err
	}
	if err := f.prepare(dst, src); err != nil {
		return err
	}
	raw, err := f.Snapshot(dst.Ptr, dst.Size)
	if err != nil {
		return err
	}
	before := bytesToFloats(raw)
	a, err := f.Floats(f.AH)
	if err != nil {
		return err
	}

	callErr, syncErr := v.issue(f, v.call(f, dst, src, ext))
	if err := expectSuccess(callErr); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}

	raw, err = f.Snapshot(dst.Ptr, dst.Size)
	if err != nil {
		return err
	}
	got := bytesToFloats(raw)

	if v.shape == linearShape {
		return checkPrefix(got, a, before, int(ext.Width/floatSize))
	}
	want := slices.Clone(before)
	w, h := f.Config.Width, f.Config.Height
	for z := range int(ext.Depth) {
		for y := range int(ext.Height) {
			i := (z*h + y) * w
			copy(want[i:i+w], a[i:i+w])
		}
	}
	if err := CheckFloats(want, got, len(want)); err != nil {
		return fmt.Errorf("%d of %d rows per slice: %w", ext.Height, h, err)
	}
	return nil
}
