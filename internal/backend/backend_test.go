package backend

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"", Auto, false},
		{"  SIM ", Sim, false},
		{"Cuda", CUDA, false},
		{"hip", HIP, false},
		{"auto", Auto, false},
		{"cpu", "", true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Normalize(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestAvailable(t *testing.T) {
	list := Available()
	if !strings.HasSuffix(list, Sim) {
		t.Fatalf("Available() = %q, want sim last", list)
	}
	if strings.Contains(list, CUDA) != cudaEnabled || strings.Contains(list, HIP) != hipEnabled {
		t.Fatalf("Available() = %q disagrees with build tags", list)
	}
	if Has("cpu") {
		t.Fatalf("Has(cpu) = true")
	}
}

func TestNewSim(t *testing.T) {
	rt, err := New("sim", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()
	if rt.Name() != Sim {
		t.Fatalf("Name() = %q", rt.Name())
	}
}

func TestNewAutoFallsBack(t *testing.T) {
	rt, err := New(Auto, Options{})
	if rt == nil {
		t.Fatalf("New(auto) returned no runtime: %v", err)
	}
	defer rt.Close()
	var fb *FallbackError
	if err != nil && !errors.As(err, &fb) {
		t.Fatalf("New(auto): %v", err)
	}
	if !cudaEnabled && !hipEnabled && rt.Name() != Sim {
		t.Fatalf("auto picked %q without gpu build tags", rt.Name())
	}
}

func TestNewUnavailable(t *testing.T) {
	if cudaEnabled {
		t.Skip("cuda compiled in")
	}
	if _, err := New(CUDA, Options{}); !errors.Is(err, errCUDAUnavailable) {
		t.Fatalf("New(cuda) = %v", err)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("opencl", Options{}); err == nil {
		t.Fatalf("expected error")
	}
}
