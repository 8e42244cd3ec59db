package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/FranksOps/scholar/internal/storage"
)

// SheetName is the worksheet holding exported records.
const SheetName = "Results"

// WriteXLSX writes records to an Excel workbook, one row per record under a
// header row.
func WriteXLSX(path string, records []storage.PaperRecord) error {
	return writeFile(path, records, EncodeXLSX)
}

// EncodeXLSX streams an .xlsx workbook to w.
func EncodeXLSX(w io.Writer, records []storage.PaperRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("export: xlsx sheet: %w", err)
	}

	header := make([]any, len(storage.Fields))
	for i, name := range storage.Fields {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx header: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: xlsx cell: %w", err)
		}
		vals := r.Values()
		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: xlsx row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}
