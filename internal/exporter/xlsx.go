package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// SheetName is the worksheet XLSX exports are written to.
const SheetName = "Churn"

// WriteXLSX writes the view as a single-sheet workbook. Normalized numeric
// columns are stored as numbers; everything else as text. An empty view
// produces a workbook with an empty sheet.
func WriteXLSX(w io.Writer, columns []string, view []domain.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if len(view) > 0 {
		sw, err := f.NewStreamWriter(SheetName)
		if err != nil {
			return fmt.Errorf("failed to open sheet writer: %w", err)
		}

		header := make([]interface{}, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		if err := sw.SetRow("A1", header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}

		for i, r := range view {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, xlsxRow(r, columns)); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}

		if err := sw.Flush(); err != nil {
			return fmt.Errorf("failed to flush sheet: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func xlsxRow(r domain.Record, columns []string) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		switch c {
		case domain.FieldTenure:
			row[i] = r.Tenure
		case domain.FieldMonthlyCharges:
			row[i] = r.MonthlyCharges
		case domain.FieldTotalCharges:
			row[i] = r.TotalCharges
		default:
			row[i] = cellValue(r, c)
		}
	}
	return row
}
