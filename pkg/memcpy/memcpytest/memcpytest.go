// Package memcpytest is a conformance suite for memcpy.Runtime
// implementations.
//
// Every case allocates a fresh Fixture, drives one or more copy entry points
// and checks both the returned status and the observable memory. The suite can
// be run from go test through Tester or programmatically through Runner.
package memcpytest

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
)

// Config sizes the buffers used by every case.
type Config struct {
	// Elements is the number of float32 values in each linear buffer.
	Elements int `json:"elements" yaml:"elements"`
	// Width, Height and Depth size the pitched and 3D buffers in floats.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	Depth  int `json:"depth" yaml:"depth"`
	// Device is the ordinal selected before each case runs.
	Device int `json:"device" yaml:"device"`
}

// DefaultConfig is 1M floats with a 1024x1024x1 volume.
func DefaultConfig() Config {
	return Config{Elements: 1 << 20, Width: 1024, Height: 1024, Depth: 1}
}

// WithDefaults fills zero fields from DefaultConfig. When only Elements is
// set the volume is shrunk to fit it.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Elements == 0 {
		c.Elements = d.Elements
	}
	if c.Width == 0 && c.Height == 0 {
		c.Width, c.Height = d.Width, d.Height
		for c.Width*c.Height > c.Elements && c.Width > 1 {
			c.Width /= 2
			c.Height /= 2
		}
	}
	if c.Depth == 0 {
		c.Depth = d.Depth
	}
	return c
}

// Validate reports configurations the cases cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Elements < 2 || c.Elements%2 != 0 {
		errs = append(errs, fmt.Errorf("elements must be even and at least 2, got %d", c.Elements))
	}
	if c.Width < 1 || c.Height < 2 || c.Depth < 1 {
		errs = append(errs, fmt.Errorf("volume %dx%dx%d: width and depth must be positive and height at least 2", c.Width, c.Height, c.Depth))
	} else if c.Width*c.Height*c.Depth > c.Elements {
		errs = append(errs, fmt.Errorf("volume %dx%dx%d exceeds %d elements", c.Width, c.Height, c.Depth, c.Elements))
	}
	if c.Device < 0 {
		errs = append(errs, fmt.Errorf("device must not be negative, got %d", c.Device))
	}
	return errors.Join(errs...)
}

// Group names a family of cases.
type Group string

const (
	GroupNegative      Group = "negative"
	GroupSamePointer   Group = "same-pointer"
	GroupNullSize      Group = "null-size"
	GroupZeroExtent    Group = "zero-extent"
	GroupHalfCopy      Group = "half-copy"
	GroupCopyTooBig    Group = "copy-too-big"
	GroupBadOffset     Group = "bad-offset"
	GroupIncorrectKind Group = "incorrect-kind"
	GroupInvalidStream Group = "invalid-stream"
	GroupRoundTrip     Group = "round-trip"
)

var groupOrder = []Group{
	GroupNegative,
	GroupSamePointer,
	GroupNullSize,
	GroupZeroExtent,
	GroupHalfCopy,
	GroupCopyTooBig,
	GroupBadOffset,
	GroupIncorrectKind,
	GroupInvalidStream,
	GroupRoundTrip,
}

// Groups lists every group in catalogue order.
func Groups() []Group {
	return slices.Clone(groupOrder)
}

// ParseGroup accepts a group name in any case, with '_' or '-' separators.
func ParseGroup(s string) (Group, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, g := range groupOrder {
		if string(g) == norm || strings.ReplaceAll(string(g), "-", "") == norm {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown case group %q", s)
}

// Case is one conformance check.
type Case struct {
	Group Group
	Name  string
	Doc   string
	// Hazardous cases hand the runtime out of bounds sizes or dead
	// handles. A non-conforming runtime may crash the process instead of
	// returning an error.
	Hazardous bool
	Run       func(f *Fixture) error
}

// ID is "group/name".
func (c Case) ID() string {
	return string(c.Group) + "/" + c.Name
}

var catalogue = sync.OnceValue(func() []Case {
	var all []Case
	all = append(all, negativeCases()...)
	all = append(all, samePointerCases()...)
	all = append(all, nullSizeCases()...)
	all = append(all, zeroExtentCases()...)
	all = append(all, halfCopyCases()...)
	all = append(all, copyTooBigCases()...)
	all = append(all, badOffsetCases()...)
	all = append(all, incorrectKindCases()...)
	all = append(all, invalidStreamCases()...)
	all = append(all, roundTripCases()...)
	return all
})

// Cases returns the full catalogue.
func Cases() []Case {
	return slices.Clone(catalogue())
}

// Filter selects cases for a run.
type Filter struct {
	// Groups restricts the run to these groups. Empty means all.
	Groups []Group
	// Patterns are path.Match globs against Case.ID. Empty means all.
	Patterns []string
	// Hazardous includes hazardous cases.
	Hazardous bool
}

// Select returns the catalogue entries matching f, in catalogue order.
func Select(f Filter) ([]Case, error) {
	for _, p := range f.Patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("case pattern %q: %w", p, err)
		}
	}
	var out []Case
	for _, c := range catalogue() {
		if c.Hazardous && !f.Hazardous {
			continue
		}
		if len(f.Groups) > 0 && !slices.Contains(f.Groups, c.Group) {
			continue
		}
		if len(f.Patterns) > 0 && !matchAny(f.Patterns, c.ID()) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, id); ok {
			return true
		}
		// A bare group name or case id prefix selects everything below it.
		if strings.HasPrefix(id, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}
