package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/FranksOps/scholar/internal/storage"
)

// WriteCSV writes records as UTF-8 CSV with a header row of field names.
func WriteCSV(path string, records []storage.PaperRecord) error {
	return writeFile(path, records, EncodeCSV)
}

// EncodeCSV streams records as CSV to w.
func EncodeCSV(w io.Writer, records []storage.PaperRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(storage.Fields); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("export: csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: csv flush: %w", err)
	}
	return nil
}
