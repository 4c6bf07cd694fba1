//go:build cuda

package backend

import (
	"github.com/samcharles93/copyconf/internal/backend/cuda"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const cudaEnabled = true

func newCUDA() (memcpy.Runtime, error) {
	rt, err := cuda.New()
	if err != nil {
		return nil, err
	}
	return rt, nil
}
