// Package report encodes memcpytest reports for people and for CI.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

type Format string

const (
	Text  Format = "text"
	JSON  Format = "json"
	YAML  Format = "yaml"
	JUnit Format = "junit"
	CSV   Format = "csv"
	XLSX  Format = "xlsx"
	PB    Format = "pb"
)

var formats = []Format{Text, JSON, YAML, JUnit, CSV, XLSX, PB}

// Formats lists every supported encoding.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "", "txt":
		return Text, nil
	case "yml":
		return YAML, nil
	case "xml":
		return JUnit, nil
	case "excel":
		return XLSX, nil
	case "proto", "protobuf":
		return PB, nil
	}
	for _, f := range formats {
		if Format(name) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (expected %s)", s, joinFormats())
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	case JUnit:
		return "application/xml"
	case CSV:
		return "text/csv"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PB:
		return "application/x-protobuf"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension is the file suffix, without the dot, for f.
func (f Format) Extension() string {
	switch f {
	case Text:
		return "txt"
	case JUnit:
		return "xml"
	default:
		return string(f)
	}
}

// Binary reports whether f should not be written to a terminal.
func (f Format) Binary() bool {
	return f == XLSX || f == PB
}

// Write encodes rep to w in format f.
func Write(w io.Writer, rep *memcpytest.Report, f Format) error {
	if rep == nil {
		return fmt.Errorf("report: nil report")
	}
	var err error
	switch f {
	case Text:
		err = writeText(w, rep)
	case JSON:
		err = writeJSON(w, rep)
	case YAML:
		err = writeYAML(w, rep)
	case JUnit:
		err = writeJUnit(w, rep)
	case CSV:
		err = writeCSV(w, rep)
	case XLSX:
		err = writeXLSX(w, rep)
	case PB:
		err = writePB(w, rep)
	default:
		return fmt.Errorf("unknown report format %q (expected %s)", f, joinFormats())
	}
	if err != nil {
		return fmt.Errorf("write %s report: %w", f, err)
	}
	return nil
}

// Filename suggests a download name for rep.
func Filename(rep *memcpytest.Report, f Format) string {
	id := rep.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("copyconf-%s-%s.%s", rep.Runtime, id, f.Extension())
}

func joinFormats() string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// rows flattens results into the column order shared by CSV and XLSX.
func rows(rep *memcpytest.Report) (header []string, data [][]string) {
	header = []string{"ID", "Group", "Name", "Outcome", "Duration", "Message"}
	for _, r := range rep.Results {
		data = append(data, []string{r.ID, string(r.Group), r.Name, string(r.Outcome), r.Duration.String(), r.Message})
	}
	return header, data
}
