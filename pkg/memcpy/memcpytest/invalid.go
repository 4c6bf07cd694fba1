package memcpytest

import (
	"fmt"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// badKind is outside every runtime's memcpy kind enumeration.
const badKind = memcpy.Kind(42)

func copyTooBigCases() []Case {
	var out []Case
	for _, v := range []variant{vMemcpy, vHtoD, vDtoH, vDtoD} {
		out = append(out, Case{
			Group:     GroupCopyTooBig,
			Name:      v.name,
			Doc:       v.name + " of twice the allocation size fails.",
			Hazardous: true,
			Run: func(f *Fixture) error {
				dst, src, err := resolve(f, v.dst, v.src)
				if err != nil {
					return err
				}
				ext := v.full(f)
				ext.Width *= 2
				callErr, syncErr := v.issue(f, v.call(f, dst, src, ext))
				if err := expectFailure(callErr); err != nil {
					return err
				}
				return syncErr
			},
		})
	}
	return out
}

func badOffsetCases() []Case {
	type offsetCase struct {
		v      variant
		dstOff bool
	}
	var out []Case
	for _, c := range []offsetCase{
		{vMemcpy, true},
		{vHtoD, true},
		{vDtoH, false},
		{vDtoD, false},
		{vDtoD, true},
	} {
		side := "src"
		if c.dstOff {
			side = "dst"
		}
		out = append(out, Case{
			Group:     GroupBadOffset,
			Name:      c.v.name + "/" + side,
			Doc:       fmt.Sprintf("%s of a full buffer starting halfway into the %s allocation fails.", c.v.name, side),
			Hazardous: true,
			Run: func(f *Fixture) error {
				dst, src, err := resolve(f, c.v.dst, c.v.src)
				if err != nil {
					return err
				}
				if c.dstOff {
					dst.Ptr = dst.Ptr.Add(f.Bytes() / 2)
				} else {
					src.Ptr = src.Ptr.Add(f.Bytes() / 2)
				}
				callErr, syncErr := c.v.issue(f, c.v.call(f, dst, src, c.v.full(f)))
				if err := expectFailure(callErr); err != nil {
					return err
				}
				return syncErr
			},
		})
	}
	return out
}

func incorrectKindCases() []Case {
	var out []Case
	for _, v := range []variant{vMemcpy, vMemcpyAsync, v2D, v2DAsync, v3D, v3DAsync} {
		out = append(out, Case{
			Group: GroupIncorrectKind,
			Name:  v.name,
			Doc:   v.name + " with an out of range kind is rejected and transfers nothing.",
			Run: func(f *Fixture) error {
				dst, src, err := resolve(f, v.dst, v.src)
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
				c := v.call(f, dst, src, v.full(f))
				c.Kind = badKind
				callErr, syncErr := v.issue(f, c)
				if err := expectStatus(callErr, memcpy.ErrorInvalidMemcpyDirection, memcpy.ErrorInvalidValue); err != nil {
					return err
				}
				if syncErr != nil {
					return syncErr
				}
				return f.Unchanged(dst.Ptr, before)
			},
		})
	}
	return out
}

func invalidStreamCases() []Case {
	var out []Case
	for _, v := range variants() {
		if !v.async {
			continue
		}
		out = append(out, Case{
			Group:     GroupInvalidStream,
			Name:      v.name,
			Doc:       v.name + " on a destroyed stream fails.",
			Hazardous: true,
			Run: func(f *Fixture) error {
				dst, src, err := resolve(f, v.dst, v.src)
				if err != nil {
					return err
				}
				s, err := f.RT.StreamCreate()
				if err != nil {
					return fmt.Errorf("stream create: %w", err)
				}
				if err := f.RT.StreamDestroy(s); err != nil {
					return fmt.Errorf("stream destroy: %w", err)
				}
				c := v.call(f, dst, src, v.full(f))
				c.Stream = s
				callErr, syncErr := v.issue(f, c)
				if err := expectFailure(callErr); err != nil {
					return err
				}
				return syncErr
			},
		})
	}
	return out
}
