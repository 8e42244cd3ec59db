// Package export writes paper records to files in the formats researchers
// feed into spreadsheets and reference managers.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/scholar/internal/storage"
)

// ErrNoRecords is returned by every writer when there is nothing to write.
// No file is created in that case.
var ErrNoRecords = errors.New("export: no records to write")

// Format identifies an output format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatBibTeX Format = "bibtex"
)

// FormatFor picks the format from path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".bib":
		return FormatBibTeX, nil
	default:
		return "", fmt.Errorf("export: unsupported file type %q", filepath.Ext(path))
	}
}

// Write writes records to path in the format implied by its extension.
func Write(path string, records []storage.PaperRecord) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	switch f {
	case FormatCSV:
		return WriteCSV(path, records)
	case FormatXLSX:
		return WriteXLSX(path, records)
	case FormatJSON:
		return WriteJSON(path, records)
	case FormatYAML:
		return WriteYAML(path, records)
	default:
		return WriteBibTeX(path, records)
	}
}

// WriteFiles writes records to every path concurrently. All extensions are
// checked before any file is touched. The first failure cancels the rest.
func WriteFiles(ctx context.Context, records []storage.PaperRecord, paths ...string) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	for _, p := range paths {
		if _, err := FormatFor(p); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return Write(p, records)
		})
	}
	return g.Wait()
}

// writeFile creates path and streams encode into it. A failed encode removes
// the partial file.
func writeFile(path string, records []storage.PaperRecord, encode func(io.Writer, []storage.PaperRecord) error) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := encode(f, records); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
