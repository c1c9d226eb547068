package interfaces

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"entsoe-bridge/internal/importer/application"
	timeseries "entsoe-bridge/internal/timeseries/domain"
)

const reportTimeLayout = "2006-01-02 15:04 MST"

// BuildReportXLSX renders an import result as a workbook with a summary sheet and a
// values sheet holding one row per sensor and interval.
func BuildReportXLSX(result application.Result) ([]byte, error) {
	if len(result.Sensors) == 0 {
		return nil, errors.New("import report: no sensors")
	}
	loc := result.Window.From.Location()
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	valuesSheet := "values"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(valuesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "ENTSO-E Import")
	_ = f.SetCellValue(summarySheet, "A3", "Kind")
	_ = f.SetCellValue(summarySheet, "B3", string(result.Kind))
	_ = f.SetCellValue(summarySheet, "A4", "Country")
	_ = f.SetCellValue(summarySheet, "B4", result.Country)
	_ = f.SetCellValue(summarySheet, "A5", "From")
	_ = f.SetCellValue(summarySheet, "B5", result.Window.From.Format(reportTimeLayout))
	_ = f.SetCellValue(summarySheet, "A6", "Until")
	_ = f.SetCellValue(summarySheet, "B6", result.Window.Until.Format(reportTimeLayout))
	_ = f.SetCellValue(summarySheet, "A7", "Status")
	_ = f.SetCellValue(summarySheet, "B7", string(result.Status))
	_ = f.SetCellValue(summarySheet, "A8", "Inserted")
	_ = f.SetCellValue(summarySheet, "B8", result.Inserted)
	_ = f.SetCellValue(summarySheet, "A9", "Skipped")
	_ = f.SetCellValue(summarySheet, "B9", result.Skipped)

	_ = f.SetCellValue(summarySheet, "A11", "Sensor")
	_ = f.SetCellValue(summarySheet, "B11", "Unit")
	_ = f.SetCellValue(summarySheet, "C11", "Resolution")
	_ = f.SetCellValue(summarySheet, "D11", "Source")
	_ = f.SetCellValue(summarySheet, "E11", "State")
	_ = f.SetCellValue(summarySheet, "F11", "Inserted")
	_ = f.SetCellValue(summarySheet, "G11", "Skipped")
	for i, s := range result.Sensors {
		row := i + 12
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), s.Name)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.Unit)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), timeseries.FormatResolution(s.Resolution))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), s.Source)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), string(s.State))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), s.Inserted)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), s.Skipped)
	}

	_ = f.SetCellValue(valuesSheet, "A1", "Sensor")
	_ = f.SetCellValue(valuesSheet, "B1", "Start")
	_ = f.SetCellValue(valuesSheet, "C1", "Value")
	_ = f.SetCellValue(valuesSheet, "D1", "Unit")
	row := 2
	for _, s := range result.Sensors {
		for _, p := range s.Points {
			_ = f.SetCellValue(valuesSheet, fmt.Sprintf("A%d", row), s.Name)
			_ = f.SetCellValue(valuesSheet, fmt.Sprintf("B%d", row), p.At.In(loc).Format(reportTimeLayout))
			if p.Valid {
				_ = f.SetCellValue(valuesSheet, fmt.Sprintf("C%d", row), p.Value)
			}
			_ = f.SetCellValue(valuesSheet, fmt.Sprintf("D%d", row), s.Unit)
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportPDF renders an import result as a PDF with one table per sensor.
func BuildReportPDF(result application.Result) ([]byte, error) {
	if len(result.Sensors) == 0 {
		return nil, errors.New("import report: no sensors")
	}
	loc := result.Window.From.Location()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("ENTSO-E %s import", result.Kind))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Country: %s", result.Country))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", result.Window.From.Format(reportTimeLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Until: %s", result.Window.Until.Format(reportTimeLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", result.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Inserted: %d, skipped: %d", result.Inserted, result.Skipped))
	pdf.Ln(8)

	for _, s := range result.Sensors {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s (%s, %s, %s)", s.Name, s.Unit, timeseries.FormatResolution(s.Resolution), s.Source))
		pdf.Ln(7)
		pdf.CellFormat(60, 6, "Start", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, p := range s.Points {
			value := "-"
			if p.Valid {
				value = fmt.Sprintf("%.2f", p.Value)
			}
			pdf.CellFormat(60, 6, p.At.In(loc).Format(reportTimeLayout), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, value, "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
