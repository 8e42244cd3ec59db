// Package serp turns keyword lists into results-site queries and results
// pages into paper records.
package serp

import (
	"fmt"
	"strings"

	"github.com/FranksOps/scholar/internal/storage"
)

// Mode is the boolean operator joining keywords.
type Mode string

const (
	ModeAnd   Mode = "AND"
	ModeOr    Mode = "OR"
	ModePlain Mode = "PLAIN"
)

// ParseMode normalises s. Anything other than and/or (any case) is ModePlain.
func ParseMode(s string) Mode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ModeAnd):
		return ModeAnd
	case string(ModeOr):
		return ModeOr
	default:
		return ModePlain
	}
}

// BuildQuery combines keywords into one query string. AND and OR quote each
// trimmed keyword and join them with the operator; any other mode joins the
// raw keywords with single spaces.
func BuildQuery(keywords []string, mode Mode) string {
	var op string
	switch ParseMode(string(mode)) {
	case ModeAnd:
		op = " AND "
	case ModeOr:
		op = " OR "
	default:
		return strings.Join(keywords, " ")
	}

	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = `"` + strings.TrimSpace(k) + `"`
	}
	return strings.Join(quoted, op)
}

// Selectors names the CSS selectors the extractor looks up. Every lookup is
// scoped to the enclosing Block, or to Title/Actions for the link selectors.
type Selectors struct {
	Block      string
	Title      string
	TitleLink  string
	Byline     string
	Actions    string
	ActionLink string
	Snippet    string
}

// ScholarSelectors matches the results-page markup of scholar.google.com.
var ScholarSelectors = Selectors{
	Block:      "div.gs_ri",
	Title:      "h3.gs_rt",
	TitleLink:  "a",
	Byline:     "div.gs_a",
	Actions:    "div.gs_fl",
	ActionLink: "a",
	Snippet:    "div.gs_rs",
}

// Block is the outcome of extracting one result block. Record always holds
// every field that was read before Err, if any, occurred.
type Block struct {
	Record storage.PaperRecord
	Err    error
}

// Page is the extraction of one results page, blocks in document order.
type Page struct {
	Blocks []Block
}

// Records returns the records with a non-empty title, in block order.
func (p Page) Records() []storage.PaperRecord {
	out := make([]storage.PaperRecord, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if b.Record.Title != "" {
			out = append(out, b.Record)
		}
	}
	return out
}

// Failed counts blocks that ended in an error.
func (p Page) Failed() int {
	n := 0
	for _, b := range p.Blocks {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// BlockError wraps a failure while reading one block.
type BlockError struct {
	Index int
	Field string
	Cause any
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("serp: block %d: %s: %v", e.Index, e.Field, e.Cause)
}
