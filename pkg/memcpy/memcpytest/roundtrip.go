package memcpytest

import (
	"fmt"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

type hop struct {
	v        variant
	dst, src endpoint
}

func roundTripCases() []Case {
	trip := func(name, doc string, hops ...hop) Case {
		return Case{Group: GroupRoundTrip, Name: name, Doc: doc, Run: func(f *Fixture) error {
			return runRoundTrip(f, hops)
		}}
	}
	return []Case{
		trip("Memcpy", "A host buffer copied to the device and back arrives byte for byte.",
			hop{vMemcpy, devA, hostA}, hop{vMemcpy, hostB, devA}),
		trip("MemcpyAsync", "The same round trip through stream ordered copies.",
			hop{vMemcpyAsync, devA, hostA}, hop{vMemcpyAsync, hostB, devA}),
		trip("MemcpyHtoD-DtoH", "Round trip through the direction specific entry points.",
			hop{vHtoD, devA, hostA}, hop{vDtoH, hostB, devA}),
		trip("MemcpyHtoD-DtoD-DtoH", "Round trip with a device to device hop in the middle.",
			hop{vHtoD, devA, hostA}, hop{vDtoD, devB, devA}, hop{vDtoH, hostB, devB}),
		trip("MemcpyAsync-DtoDAsync", "Asynchronous round trip with a device to device hop.",
			hop{vHtoDAsync, devC, hostA}, hop{vDtoDAsync, devB, devC}, hop{vDtoHAsync, hostC, devB}),
	}
}

// runRoundTrip chains the hops and checks that the last destination holds
// exactly the content of A.
func runRoundTrip(f *Fixture, hops []hop) error {
	var last target
	for i, h := range hops {
		dst, src, err := resolve(f, h.dst, h.src)
		if err != nil {
			return err
		}
		ext := memcpy.Extent{Width: f.Bytes(), Height: 1, Depth: 1}
		c := h.v.call(f, dst, src, ext)
		switch h.v.name {
		case vMemcpy.name, vMemcpyAsync.name:
			c.Kind = memcpy.DeviceToHost
			if i == 0 {
				c.Kind = memcpy.HostToDevice
			}
		}
		callErr, syncErr := h.v.issue(f, c)
		if callErr != nil {
			return fmt.Errorf("hop %d (%s): %w", i+1, h.v.name, callErr)
		}
		if syncErr != nil {
			return fmt.Errorf("hop %d (%s): %w", i+1, h.v.name, syncErr)
		}
		last = dst
	}
	want, err := f.Snapshot(f.AH, f.Bytes())
	if err != nil {
		return err
	}
	got, err := f.Snapshot(last.Ptr, f.Bytes())
	if err != nil {
		return err
	}
	if err := CheckBytes(want, got); err != nil {
		return fmt.Errorf("round trip: %w", err)
	}
	return nil
}
