package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
)

func TestSpreadsheetLayout(t *testing.T) {
	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	sheet, err := NewSpreadsheet(day)
	require.NoError(t, err)

	tickets := []domain.Ticket{
		{
			ID: "1", Technician: "ivanov", SubmittedAt: "27.08.2026 18:45:00",
			ScheduledAt: "28.08.2026 09:00:00", TakenBy: "dispatcher",
			SiteNumber: "17", SiteName: "Substation north",
			SiteAddress: "Lenina 5", Defect: "*** pump failure",
		},
		{
			ID: "2", Technician: "petrov", SubmittedAt: "28.08.2026 07:10:00",
			ScheduledAt: "28.08.2026 11:00:00", TakenBy: "dispatcher",
			SiteNumber: "3", SiteName: "Boiler room", SiteAddress: "Mira 12",
			Defect: "*** sensor drift",
		},
	}
	for _, tk := range tickets {
		require.NoError(t, sheet.AddRow(tk))
	}
	require.NoError(t, sheet.StampGeneratedAt(time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, sheet.RowCount())

	dir := t.TempDir()
	path, err := sheet.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Emergency tickets 28.08.2026", title)

	// Header row sits at row 3, data follows.
	header, err := f.GetCellValue("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Submitted", header)

	firstSubmitted, err := f.GetCellValue("Sheet1", "A4")
	require.NoError(t, err)
	assert.Equal(t, "27.08.2026 18:45:00", firstSubmitted)

	secondTechnician, err := f.GetCellValue("Sheet1", "H5")
	require.NoError(t, err)
	assert.Equal(t, "petrov", secondTechnician)

	footer, err := f.GetCellValue("Sheet1", "A6")
	require.NoError(t, err)
	assert.Equal(t, "Report generated: 28.08.2026 08:00:00", footer)
}

func TestSpreadsheetEmptyPass(t *testing.T) {
	sheet, err := NewSpreadsheet(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, sheet.RowCount())
}
