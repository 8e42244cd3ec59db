package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/FranksOps/scholar/internal/storage"
)

// WriteBibTeX writes one @misc entry per record.
func WriteBibTeX(path string, records []storage.PaperRecord) error {
	return writeFile(path, records, EncodeBibTeX)
}

// EncodeBibTeX streams records as BibTeX. Citation keys are made unique
// within the output by suffixing a, b, c and so on.
func EncodeBibTeX(w io.Writer, records []storage.PaperRecord) error {
	bw := bufio.NewWriter(w)
	seen := make(map[string]int)

	for i, r := range records {
		key := citeKey(r)
		if n := seen[key]; n > 0 {
			seen[key]++
			key += suffix(n)
		} else {
			seen[key] = 1
		}

		if i > 0 {
			bw.WriteString("\n")
		}
		fmt.Fprintf(bw, "@misc{%s,\n", key)
		writeField(bw, "title", r.Title)
		writeField(bw, "author", bibAuthors(r.Authors))
		writeField(bw, "howpublished", bibVenue(r.Authors))
		writeField(bw, "year", r.Year)
		writeField(bw, "doi", r.DOI)
		writeField(bw, "url", r.URL)
		if r.Citations != "" {
			writeField(bw, "note", "Cited by "+r.Citations)
		}
		writeField(bw, "abstract", r.Abstract)
		bw.WriteString("}\n")
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: bibtex: %w", err)
	}
	return nil
}

func writeField(w *bufio.Writer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s = {%s},\n", name, bibEscape(value))
}

// bibAuthors turns the byline's leading author list into "A and B" form.
func bibAuthors(byline string) string {
	names, _, _ := strings.Cut(byline, " - ")
	names = strings.TrimSuffix(strings.TrimSpace(names), "…")
	var parts []string
	for _, n := range strings.Split(names, ",") {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " and ")
}

// bibVenue returns the byline segment after the author list.
func bibVenue(byline string) string {
	segs := strings.Split(byline, " - ")
	if len(segs) < 2 {
		return ""
	}
	return strings.TrimSpace(segs[1])
}

func citeKey(r storage.PaperRecord) string {
	var b strings.Builder

	first := bibAuthors(r.Authors)
	first, _, _ = strings.Cut(first, " and ")
	if fields := strings.Fields(first); len(fields) > 0 {
		b.WriteString(alnum(fields[len(fields)-1]))
	}
	b.WriteString(r.Year)
	for _, word := range strings.Fields(r.Title) {
		if w := alnum(word); len(w) > 3 {
			b.WriteString(w)
			break
		}
	}

	if b.Len() == 0 {
		return "record"
	}
	return strings.ToLower(b.String())
}

func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, s)
}

func suffix(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('a' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

var bibReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`,
	"}", `\}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
)

func bibEscape(s string) string {
	return bibReplacer.Replace(s)
}
