package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

const (
	sheetName     = "Sheet1"
	firstDataArea = 3 // row of the column header; data follows below
)

// Column headers of the spreadsheet report, matching the board's field
// vocabulary.
var spreadsheetColumns = [...]string{
	"Submitted", "Scheduled", "Taken by", "Site number",
	"Site name", "Site address", "Defect", "Technician",
}

// Spreadsheet builds the consolidated ticket report file. Unlike the text
// digest it is never split: every ticket of the pass lands in one file.
type Spreadsheet struct {
	f           *excelize.File
	nextRow     int
	rows        int
	headerStyle int
	cellStyle   int
}

// NewSpreadsheet creates a workbook with the report title on top.
func NewSpreadsheet(day time.Time) (*Spreadsheet, error) {
	f := excelize.NewFile()

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	thin := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: thin,
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Border:    thin,
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, err
	}

	if err := f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Emergency tickets %s", day.Format(domain.DateLayout))
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", "H1", titleStyle); err != nil {
		return nil, err
	}

	widths := map[string]float64{
		"A": 20, "B": 20, "C": 25, "D": 20, "E": 25, "F": 30, "G": 30, "H": 30,
	}
	for col, w := range widths {
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	return &Spreadsheet{
		f:           f,
		nextRow:     firstDataArea,
		headerStyle: headerStyle,
		cellStyle:   cellStyle,
	}, nil
}

// AddRow appends one ticket row, emitting the column header row before
// the first data row.
func (s *Spreadsheet) AddRow(t domain.Ticket) error {
	if s.rows == 0 {
		header := make([]interface{}, len(spreadsheetColumns))
		for i, h := range spreadsheetColumns {
			header[i] = h
		}
		if err := s.writeRow(s.nextRow, header, s.headerStyle); err != nil {
			return err
		}
		s.nextRow++
	}

	cells := []interface{}{
		t.SubmittedAt, t.ScheduledAt, t.TakenBy, t.SiteNumber,
		t.SiteName, t.SiteAddress, t.Defect, t.Technician,
	}
	if err := s.writeRow(s.nextRow, cells, s.cellStyle); err != nil {
		return err
	}
	s.nextRow++
	s.rows++
	return nil
}

// StampGeneratedAt writes the report generation timestamp below the last
// data row.
func (s *Spreadsheet) StampGeneratedAt(ts time.Time) error {
	row := s.nextRow
	if err := s.f.MergeCell(sheetName, cell("A", row), cell("H", row)); err != nil {
		return err
	}
	footer := fmt.Sprintf("Report generated: %s", ts.Format(domain.DateTimeLayout))
	return s.f.SetCellValue(sheetName, cell("A", row), footer)
}

// RowCount returns the number of data rows written so far.
func (s *Spreadsheet) RowCount() int {
	return s.rows
}

// Save writes the workbook into dir (created if missing) and returns the
// full file path. The file name carries the generation timestamp.
func (s *Spreadsheet) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_emergency_tickets.xlsx", time.Now().Format("2006-01-02-15-04-05"))
	path := filepath.Join(dir, name)
	if err := s.f.SaveAs(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Spreadsheet) writeRow(row int, values []interface{}, style int) error {
	if err := s.f.SetSheetRow(sheetName, cell("A", row), &values); err != nil {
		return err
	}
	return s.f.SetCellStyle(sheetName, cell("A", row), cell("H", row), style)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
