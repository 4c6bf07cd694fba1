//go:build !hip

package backend

import (
	"errors"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const hipEnabled = false

var errHIPUnavailable = errors.New("hip backend is not available in this build")

func newHIP() (memcpy.Runtime, error) {
	return nil, errHIPUnavailable
}
