//go:build !cuda

package backend

import (
	"errors"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const cudaEnabled = false

var errCUDAUnavailable = errors.New("cuda backend is not available in this build")

func newCUDA() (memcpy.Runtime, error) {
	return nil, errCUDAUnavailable
}
