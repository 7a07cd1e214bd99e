package render

import (
	"fmt"

	"github.com/harrison/qadocs/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of a test-case workbook.
const SheetName = "Test Cases"

// HeaderFill is the accent color behind the header row.
const HeaderFill = "4472C4"

// Column is one spreadsheet column.
type Column struct {
	Header string
	Width  float64
	Value  func(tc models.TestCase) string
}

// Columns are the ten test-case columns in sheet order.
var Columns = []Column{
	{"Test Case ID", 15, func(tc models.TestCase) string { return string(tc.ID) }},
	{"Module", 25, func(tc models.TestCase) string { return string(tc.Module) }},
	{"Test Case Title", 35, func(tc models.TestCase) string { return string(tc.Title) }},
	{"Description", 40, func(tc models.TestCase) string { return string(tc.Description) }},
	{"Pre-conditions", 30, func(tc models.TestCase) string { return string(tc.Preconditions) }},
	{"Test Steps", 50, func(tc models.TestCase) string { return string(tc.Steps) }},
	{"Expected Results", 50, func(tc models.TestCase) string { return string(tc.Expected) }},
	{"Priority", 10, func(tc models.TestCase) string { return string(tc.Priority) }},
	{"Test Type", 15, func(tc models.TestCase) string { return string(tc.Type) }},
	{"Platform", 12, func(tc models.TestCase) string { return string(tc.Platform) }},
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// TestCaseWorkbook renders cases into a workbook with one header row and
// one row per case in input order. Defaults are applied to each case by
// position before rendering. The caller must Close the returned file.
func TestCaseWorkbook(cases []models.TestCase) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{HeaderFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dataStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thinBorder(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create data style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return nil, err
	}

	for i, col := range Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, col.Width); err != nil {
			return nil, fmt.Errorf("failed to set width of column %s: %w", name, err)
		}
		if err := f.SetCellStr(SheetName, name+"1", col.Header); err != nil {
			return nil, fmt.Errorf("failed to write header %q: %w", col.Header, err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	for i, tc := range models.ApplyCaseDefaults(cases) {
		row := i + 2
		for j, col := range Columns {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(SheetName, cell, col.Value(tc)); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(Columns), row)
		if err := f.SetCellStyle(SheetName, first, last, dataStyle); err != nil {
			return nil, fmt.Errorf("failed to style row %d: %w", row, err)
		}
	}

	ok = true
	return f, nil
}
