package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"studio/internal/domain"
)

// ListingSheet renders the listing text and completed asset locations into an
// XLSX workbook with a Listing sheet and an Assets sheet.
func ListingSheet(analysis domain.Analysis, records []domain.AssetJob) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const listing = "Listing"
	if err := f.SetSheetName("Sheet1", listing); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][2]string{
		{"Title", analysis.Title},
		{"Tags", strings.Join(analysis.Tags, ", ")},
		{"Style", analysis.Style},
		{"Description", analysis.Description},
		{"SEO Notes", analysis.SEOReasoning},
	}
	for i, r := range rows {
		_ = f.SetCellValue(listing, cellName(1, i+1), r[0])
		_ = f.SetCellValue(listing, cellName(2, i+1), r[1])
	}
	_ = f.SetColWidth(listing, "A", "A", 16)
	_ = f.SetColWidth(listing, "B", "B", 100)

	const assets = "Assets"
	if _, err := f.NewSheet(assets); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	headers := []string{"ID", "Type", "Prompt", "File", "URL"}
	for i, h := range headers {
		_ = f.SetCellValue(assets, cellName(i+1, 1), h)
	}

	var completed []domain.AssetJob
	for _, r := range records {
		if r.Status == domain.StatusCompleted {
			completed = append(completed, r)
		}
	}
	names := EntryNames(completed)
	for i, r := range completed {
		row := i + 2
		_ = f.SetCellValue(assets, cellName(1, row), r.ID)
		_ = f.SetCellValue(assets, cellName(2, row), string(r.Kind))
		_ = f.SetCellValue(assets, cellName(3, row), r.Prompt)
		_ = f.SetCellValue(assets, cellName(4, row), names[i])
		_ = f.SetCellValue(assets, cellName(5, row), r.ResultLocation)
	}
	_ = f.SetColWidth(assets, "A", "A", 24)
	_ = f.SetColWidth(assets, "C", "C", 48)
	_ = f.SetColWidth(assets, "D", "D", 28)
	_ = f.SetColWidth(assets, "E", "E", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
