package report

import (
	"encoding/csv"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

func writeCSV(w io.Writer, rep *memcpytest.Report) error {
	header, data := rows(rep)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(data); err != nil {
		return err
	}
	return cw.Error()
}

// writeXLSX produces a workbook with a summary sheet and a results sheet.
func writeXLSX(w io.Writer, rep *memcpytest.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	index, err := f.NewSheet(resultsSheet)
	if err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	failStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFC7CE"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	summary := [][]any{
		{"Run", rep.ID},
		{"Runtime", rep.Runtime},
		{"Device", rep.Device},
		{"Started", rep.Started.Format("2006-01-02 15:04:05")},
		{"Elements", rep.Config.Elements},
		{"Volume", rep.Config.Width * rep.Config.Height * rep.Config.Depth},
		{"Passed", rep.Totals.Pass},
		{"Failed", rep.Totals.Fail},
		{"Skipped", rep.Totals.Skip},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 12); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 40); err != nil {
		return err
	}

	header, data := rows(rep)
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range data {
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, start, &row); err != nil {
			return err
		}
		if rep.Results[i].Outcome == memcpytest.Fail {
			end, err := excelize.CoordinatesToCellName(len(header), i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(resultsSheet, start, end, failStyle); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(resultsSheet, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "B", "E", 14); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "F", "F", 80); err != nil {
		return err
	}
	if err := f.AutoFilter(resultsSheet, "A1:"+last, nil); err != nil {
		return err
	}
	return f.Write(w)
}
