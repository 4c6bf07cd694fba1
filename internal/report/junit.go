package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Skipped  int          `xml:"skipped,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// writeJUnit emits one testsuite per case group.
func writeJUnit(w io.Writer, rep *memcpytest.Report) error {
	doc := junitSuites{
		Name:     fmt.Sprintf("copyconf %s device %d", rep.Runtime, rep.Device),
		Tests:    len(rep.Results),
		Failures: rep.Totals.Fail,
		Skipped:  rep.Totals.Skip,
		Time:     seconds(rep.Duration),
	}
	index := map[memcpytest.Group]int{}
	var elapsed []time.Duration
	for _, r := range rep.Results {
		i, ok := index[r.Group]
		if !ok {
			i = len(doc.Suites)
			index[r.Group] = i
			doc.Suites = append(doc.Suites, junitSuite{Name: string(r.Group), Timestamp: rep.Started.Format(time.RFC3339)})
			elapsed = append(elapsed, 0)
		}
		s := &doc.Suites[i]
		tc := junitCase{Name: r.Name, Classname: rep.Runtime + "." + string(r.Group), Time: seconds(r.Duration)}
		switch r.Outcome {
		case memcpytest.Fail:
			tc.Failure = &junitMessage{Message: r.Message, Body: r.ID + ": " + r.Message}
			s.Failures++
		case memcpytest.Skip:
			tc.Skipped = &junitMessage{Message: r.Message}
			s.Skipped++
		}
		s.Tests++
		elapsed[i] += r.Duration
		s.Cases = append(s.Cases, tc)
	}
	for i := range doc.Suites {
		doc.Suites[i].Time = seconds(elapsed[i])
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}
