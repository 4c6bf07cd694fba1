package report

import (
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func writeJSON(w io.Writer, rep *memcpytest.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeYAML(w io.Writer, rep *memcpytest.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a JSON report as produced by Write.
func Decode(r io.Reader) (*memcpytest.Report, error) {
	var rep memcpytest.Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
