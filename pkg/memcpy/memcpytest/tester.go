package memcpytest

import (
	"runtime"
	"testing"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// Tester runs the catalogue as Go subtests.
//
//	func TestConformance(t *testing.T) {
//		rt := newRuntime(t)
//		tester := &memcpytest.Tester{Runtime: rt}
//		tester.TestAll(t)
//	}
type Tester struct {
	Runtime memcpy.Runtime
	// Config sizes the buffers. Zero fields take DefaultConfig values.
	Config Config
	// Hazardous also runs cases that may crash a non-conforming runtime.
	Hazardous bool
}

// TestAll runs every group.
func (tr *Tester) TestAll(t *testing.T) {
	for _, g := range Groups() {
		t.Run(string(g), func(t *testing.T) {
			tr.TestGroup(t, g)
		})
	}
}

func (tr *Tester) TestNegative(t *testing.T)      { tr.TestGroup(t, GroupNegative) }
func (tr *Tester) TestSamePointer(t *testing.T)   { tr.TestGroup(t, GroupSamePointer) }
func (tr *Tester) TestNullSize(t *testing.T)      { tr.TestGroup(t, GroupNullSize) }
func (tr *Tester) TestZeroExtent(t *testing.T)    { tr.TestGroup(t, GroupZeroExtent) }
func (tr *Tester) TestHalfCopy(t *testing.T)      { tr.TestGroup(t, GroupHalfCopy) }
func (tr *Tester) TestCopyTooBig(t *testing.T)    { tr.TestGroup(t, GroupCopyTooBig) }
func (tr *Tester) TestBadOffset(t *testing.T)     { tr.TestGroup(t, GroupBadOffset) }
func (tr *Tester) TestIncorrectKind(t *testing.T) { tr.TestGroup(t, GroupIncorrectKind) }
func (tr *Tester) TestInvalidStream(t *testing.T) { tr.TestGroup(t, GroupInvalidStream) }
func (tr *Tester) TestRoundTrip(t *testing.T)     { tr.TestGroup(t, GroupRoundTrip) }

// TestGroup runs each case of g as a subtest named after the case.
func (tr *Tester) TestGroup(t *testing.T, g Group) {
	cfg := tr.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cases, err := Select(Filter{Groups: []Group{g}, Hazardous: true})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			if c.Hazardous && !tr.Hazardous {
				t.Skip("hazardous case not enabled")
			}
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := tr.Runtime.SetDevice(cfg.Device); err != nil {
				t.Fatalf("SetDevice(%d): %v", cfg.Device, err)
			}
			if err := runCase(tr.Runtime, cfg, c); err != nil {
				t.Fatal(err)
			}
		})
	}
}
