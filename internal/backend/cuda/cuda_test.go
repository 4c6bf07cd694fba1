//go:build cuda

package cuda

import (
	"testing"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func TestConformance(t *testing.T) {
	rt, err := New()
	if err != nil {
		t.Skip("no cuda device available")
	}
	defer rt.Close()
	tester := &memcpytest.Tester{Runtime: rt}
	tester.TestAll(t)
}
