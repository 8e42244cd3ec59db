package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/scholar/internal/storage"
)

// AbstractPreview is the number of abstract characters shown per listing entry.
const AbstractPreview = 200

var separator = strings.Repeat("-", 80)

// WriteListing renders records as a numbered, human-readable list. Abstracts
// are cut to AbstractPreview characters; stored records are never modified.
func WriteListing(w io.Writer, records []storage.PaperRecord) error {
	bw := bufio.NewWriter(w)
	for i, r := range records {
		fmt.Fprintf(bw, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(bw, "   Authors: %s\n", r.Authors)
		fmt.Fprintf(bw, "   Year: %s\n", r.Year)
		fmt.Fprintf(bw, "   Citations: %s\n", r.Citations)
		fmt.Fprintf(bw, "   URL: %s\n", r.URL)
		fmt.Fprintf(bw, "   Abstract: %s...\n", preview(r.Abstract, AbstractPreview))
		fmt.Fprintf(bw, "%s\n\n", separator)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("report: listing: %w", err)
	}
	return nil
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
