package memcpytest

import (
	"fmt"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

type nullMode int

const (
	nullDst nullMode = iota
	nullSrc
	nullBoth
)

func (m nullMode) String() string {
	switch m {
	case nullDst:
		return "null-dst"
	case nullSrc:
		return "null-src"
	default:
		return "null-both"
	}
}

func negativeCases() []Case {
	var out []Case
	for _, v := range variants() {
		for _, m := range []nullMode{nullDst, nullSrc, nullBoth} {
			out = append(out, Case{
				Group: GroupNegative,
				Name:  v.name + "/" + m.String(),
				Doc:   fmt.Sprintf("%s with a %s pointer fails with %s and transfers nothing.", v.name, m, memcpy.ErrorInvalidValue),
				Run: func(f *Fixture) error {
					return runNullPointer(f, v, m)
				},
			})
		}
	}
	return out
}

func runNullPointer(f *Fixture, v variant, m nullMode) error {
	dst, src, err := resolve(f, v.dst, v.src)
	if err != nil {
		return err
	}
	if err := f.prepare(dst, src); err != nil {
		return err
	}

	// Whichever buffers stay non-null must come out untouched.
	var watched []target
	switch m {
	case nullDst:
		dst = dst.null()
		watched = append(watched, src)
	case nullSrc:
		src = src.null()
		watched = append(watched, dst)
	default:
		dst, src = dst.null(), src.null()
	}
	before := make([][]byte, len(watched))
	for i, t := range watched {
		if before[i], err = f.Snapshot(t.Ptr, t.Size); err != nil {
			return err
		}
	}

	callErr, syncErr := v.issue(f, v.call(f, dst, src, v.full(f)))
	if err := expectStatus(callErr, memcpy.ErrorInvalidValue); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}
	for i, t := range watched {
		if err := f.Unchanged(t.Ptr, before[i]); err != nil {
			return err
		}
	}
	return nil
}
