// Package backend selects a memcpy.Runtime by name.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/copyconf/internal/backend/sim"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const (
	Sim  = "sim"
	CUDA = "cuda"
	HIP  = "hip"
	Auto = "auto"
)

// Options configures runtime construction. Sim is only consulted when the
// reference runtime is chosen.
type Options struct {
	Sim sim.Options
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case Sim, CUDA, HIP, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected auto, sim, cuda, or hip)", backend)
	}
}

// Names lists every backend name in preference order for auto.
func Names() []string {
	return []string{CUDA, HIP, Sim}
}

// Has reports whether name was compiled into this binary.
func Has(name string) bool {
	switch name {
	case Sim:
		return true
	case CUDA:
		return cudaEnabled
	case HIP:
		return hipEnabled
	default:
		return false
	}
}

// Available returns a comma-separated list of compiled-in backends.
func Available() string {
	var entries []string
	for _, name := range Names() {
		if Has(name) {
			entries = append(entries, name)
		}
	}
	return strings.Join(entries, ",")
}

// New opens the named runtime. Auto tries each compiled-in GPU runtime and
// falls back to sim when none has a usable device.
func New(name string, opts Options) (memcpy.Runtime, error) {
	name, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case Sim:
		return sim.New(opts.Sim), nil
	case CUDA:
		return newCUDA()
	case HIP:
		return newHIP()
	}

	var errs []error
	for _, candidate := range []string{CUDA, HIP} {
		if !Has(candidate) {
			continue
		}
		rt, err := New(candidate, opts)
		if err == nil {
			return rt, nil
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return sim.New(opts.Sim), &FallbackError{Err: errors.Join(errs...)}
	}
	return sim.New(opts.Sim), nil
}

// FallbackError accompanies a usable sim runtime when auto selection found a
// compiled-in GPU backend that could not be opened.
type FallbackError struct {
	Err error
}

func (e *FallbackError) Error() string {
	return "falling back to sim: " + e.Err.Error()
}

func (e *FallbackError) Unwrap() error { return e.Err }
