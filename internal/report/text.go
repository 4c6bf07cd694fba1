package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

func writeText(w io.Writer, rep *memcpytest.Report) error {
	fmt.Fprintf(w, "run %s  runtime=%s device=%d elements=%d volume=%dx%dx%d\n\n",
		rep.ID, rep.Runtime, rep.Device, rep.Config.Elements, rep.Config.Width, rep.Config.Height, rep.Config.Depth)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tRESULT\tTIME\tDETAIL")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Outcome, r.Duration.Round(time.Microsecond), r.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped in %s\n",
		rep.Totals.Pass, rep.Totals.Fail, rep.Totals.Skip, rep.Duration.Round(time.Millisecond))
	return err
}
