package report

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func sample() *memcpytest.Report {
	rep := &memcpytest.Report{
		ID:      "2f1c9a6e-0b7d-4f55-9a55-4f1d7a0e9c11",
		Runtime: "sim",
		Device:  0,
		Config:  memcpytest.Config{Elements: 4096, Width: 64, Height: 64, Depth: 1},
		Started: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
	}
	rep.Add(memcpytest.Result{ID: "negative/Memcpy/null-dst", Group: memcpytest.GroupNegative, Name: "Memcpy/null-dst", Outcome: memcpytest.Pass, Duration: 120 * time.Microsecond})
	rep.Add(memcpytest.Result{ID: "half-copy/MemcpyDtoD", Group: memcpytest.GroupHalfCopy, Name: "MemcpyDtoD", Outcome: memcpytest.Fail, Message: "untouched suffix: mismatch at 2048", Duration: 2 * time.Millisecond})
	rep.Add(memcpytest.Result{ID: "bad-offset/MemcpyHtoD/dst", Group: memcpytest.GroupBadOffset, Name: "MemcpyHtoD/dst", Outcome: memcpytest.Skip, Message: "hazardous case not enabled"})
	rep.Duration = 5 * time.Millisecond
	return rep
}

func encode(t *testing.T, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample(), f))
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":         Text,
		"JSON":     JSON,
		"yml":      YAML,
		"xml":      JUnit,
		"junit":    JUnit,
		"protobuf": PB,
		" xlsx ":   XLSX,
		"csv":      CSV,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("html")
	require.ErrorContains(t, err, "unknown report format")
}

func TestText(t *testing.T) {
	out := string(encode(t, Text))
	require.Contains(t, out, "runtime=sim")
	require.Contains(t, out, "half-copy/MemcpyDtoD")
	require.Contains(t, out, "1 passed, 1 failed, 1 skipped")
}

func TestJSONRoundTrip(t *testing.T) {
	got, err := Decode(bytes.NewReader(encode(t, JSON)))
	require.NoError(t, err)
	require.Equal(t, sample(), got)
}

func TestYAML(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(encode(t, YAML), &doc))
	require.Equal(t, "sim", doc["runtime"])
	require.Len(t, doc["results"], 3)
}

func TestJUnit(t *testing.T) {
	var doc junitSuites
	require.NoError(t, xml.Unmarshal(encode(t, JUnit), &doc))
	require.Equal(t, 3, doc.Tests)
	require.Equal(t, 1, doc.Failures)
	require.Len(t, doc.Suites, 3)

	half := doc.Suites[1]
	require.Equal(t, "half-copy", half.Name)
	require.NotNil(t, half.Cases[0].Failure)
	require.Equal(t, "0.002000", half.Cases[0].Time)
	require.NotNil(t, doc.Suites[2].Cases[0].Skipped)
}

func TestCSV(t *testing.T) {
	records, err := csv.NewReader(bytes.NewReader(encode(t, CSV))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, "Outcome", records[0][3])
	require.Equal(t, "fail", records[2][3])
}

func TestXLSX(t *testing.T) {
	f, err := excelize.OpenReader(bytes.NewReader(encode(t, XLSX)))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{summarySheet, resultsSheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "half-copy/MemcpyDtoD", rows[2][0])

	failed, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	require.Equal(t, "1", failed)
}

func TestPBRoundTrip(t *testing.T) {
	got, err := DecodePB(encode(t, PB))
	require.NoError(t, err)
	require.Equal(t, sample(), got)
}

func TestWriteRejectsUnknown(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, sample(), Format("html")))
	require.Error(t, Write(&bytes.Buffer{}, nil, JSON))
}

func TestFilename(t *testing.T) {
	require.Equal(t, "copyconf-sim-2f1c9a6e.xml", Filename(sample(), JUnit))
	require.True(t, XLSX.Binary())
	require.False(t, YAML.Binary())
}
