//go:build hip

package backend

import (
	"github.com/samcharles93/copyconf/internal/backend/hip"
	"github.com/samcharles93/copyconf/pkg/memcpy"
)

const hipEnabled = true

func newHIP() (memcpy.Runtime, error) {
	rt, err := hip.New()
	if err != nil {
		return nil, err
	}
	return rt, nil
}
