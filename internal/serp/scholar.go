package serp

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/scholar/internal/storage"
)

var (
	yearPattern = regexp.MustCompile(`\b(20\d{2}|19\d{2})\b`)
	doiPattern  = regexp.MustCompile(`10\.\d{4,9}/[^\s?#&]+`)
)

const citedByPhrase = "Cited by"

// field reads one part of a record out of a result block.
type field struct {
	name string
	read func(sel Selectors, scope *goquery.Selection, rec *storage.PaperRecord)
}

var scholarFields = []field{
	{"title", readTitle},
	{"authors", readByline},
	{"citations", readCitations},
	{"abstract", readSnippet},
	{"doi", readDOI},
}

// Extractor pulls paper records out of a results page.
type Extractor struct {
	sel    Selectors
	fields []field
	log    *slog.Logger
}

// NewExtractor returns an extractor for sel. A zero Selectors means
// ScholarSelectors.
func NewExtractor(sel Selectors, logger *slog.Logger) *Extractor {
	if sel == (Selectors{}) {
		sel = ScholarSelectors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{sel: sel, fields: scholarFields, log: logger}
}

// Extract parses html and reads every result block. A block that fails keeps
// the fields read before the failure and does not affect its siblings. The
// error is non-nil only when the document itself cannot be parsed.
func (e *Extractor) Extract(html []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("serp: parse page: %w", err)
	}

	var page Page
	doc.Find(e.sel.Block).Each(func(i int, s *goquery.Selection) {
		rec, err := e.extractBlock(i, s)
		if err != nil {
			e.log.Warn("block extraction failed", "block", i, "err", err)
		}
		page.Blocks = append(page.Blocks, Block{Record: rec, Err: err})
	})
	return page, nil
}

func (e *Extractor) extractBlock(i int, s *goquery.Selection) (rec storage.PaperRecord, err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			err = &BlockError{Index: i, Field: current, Cause: r}
		}
	}()

	for _, f := range e.fields {
		current = f.name
		f.read(e.sel, s, &rec)
	}
	return rec, nil
}

// first returns the first match of selector within scope, or nil.
func first(scope *goquery.Selection, selector string) *goquery.Selection {
	m := scope.Find(selector).First()
	if m.Length() == 0 {
		return nil
	}
	return m
}

func readTitle(sel Selectors, scope *goquery.Selection, rec *storage.PaperRecord) {
	title := first(scope, sel.Title)
	if title == nil {
		return
	}
	rec.Title = strings.TrimSpace(title.Text())
	if link := first(title, sel.TitleLink); link != nil {
		rec.URL, _ = link.Attr("href")
	}
}

func readByline(sel Selectors, scope *goquery.Selection, rec *storage.PaperRecord) {
	byline := first(scope, sel.Byline)
	if byline == nil {
		return
	}
	text := byline.Text()
	rec.Authors = strings.TrimSpace(text)
	if m := yearPattern.FindStringSubmatch(text); m != nil {
		rec.Year = m[1]
	}
}

func readCitations(sel Selectors, scope *goquery.Selection, rec *storage.PaperRecord) {
	actions := first(scope, sel.Actions)
	if actions == nil {
		return
	}
	actions.Find(sel.ActionLink).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		if !strings.Contains(text, citedByPhrase) {
			return true
		}
		rec.Citations = strings.TrimSpace(strings.ReplaceAll(text, citedByPhrase+" ", ""))
		return false
	})
}

func readSnippet(sel Selectors, scope *goquery.Selection, rec *storage.PaperRecord) {
	if snippet := first(scope, sel.Snippet); snippet != nil {
		rec.Abstract = strings.TrimSpace(snippet.Text())
	}
}

// readDOI fills the DOI when the title link embeds one, e.g. a doi.org or
// publisher URL.
func readDOI(_ Selectors, _ *goquery.Selection, rec *storage.PaperRecord) {
	if m := doiPattern.FindString(rec.URL); m != "" {
		rec.DOI = strings.TrimRight(m, ".")
	}
}
