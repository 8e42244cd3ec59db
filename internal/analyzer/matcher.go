// Package analyzer measures how the search keywords show up in the records a
// run collected.
package analyzer

import (
	"strings"
	"unicode"

	"github.com/FranksOps/scholar/internal/storage"
)

// MaxSentences caps the example sentences kept per keyword.
const MaxSentences = 3

// KeywordCoverage reports one keyword's presence across a record set.
type KeywordCoverage struct {
	Keyword     string   `json:"keyword"`
	Records     int      `json:"records"`     // records mentioning the keyword in title or abstract
	Occurrences int      `json:"occurrences"` // total case-insensitive hits
	Sentences   []string `json:"sentences,omitempty"`
}

// Share is the fraction of total records that mention the keyword.
func (k KeywordCoverage) Share(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(k.Records) / float64(total)
}

type indexedRecord struct {
	text      string // lower-cased title + abstract
	sentences []sentence
}

type sentence struct {
	original string
	lower    string
}

// Coverage scans titles and abstracts for each keyword, case-insensitively.
// Keywords are trimmed; blank ones are skipped. Results follow keyword order.
func Coverage(records []storage.PaperRecord, keywords []string) []KeywordCoverage {
	if len(keywords) == 0 {
		return nil
	}

	// Lower-case and split every record once, not once per keyword.
	index := make([]indexedRecord, len(records))
	for i, r := range records {
		index[i] = indexedRecord{
			text:      strings.ToLower(r.Title + "\n" + r.Abstract),
			sentences: splitIntoSentences(r.Abstract),
		}
	}

	out := make([]KeywordCoverage, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lower := strings.ToLower(kw)

		cov := KeywordCoverage{Keyword: kw}
		for _, rec := range index {
			n := strings.Count(rec.text, lower)
			if n == 0 {
				continue
			}
			cov.Records++
			cov.Occurrences += n
			for _, s := range rec.sentences {
				if len(cov.Sentences) >= MaxSentences {
					break
				}
				if strings.Contains(s.lower, lower) {
					cov.Sentences = append(cov.Sentences, s.original)
				}
			}
		}
		out = append(out, cov)
	}
	return out
}

// splitIntoSentences splits on '.', '!' and '?', keeping the delimiter.
func splitIntoSentences(text string) []sentence {
	if len(text) == 0 {
		return nil
	}

	var out []sentence
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, sentence{original: s, lower: strings.ToLower(s)})
		}
	}

	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(text) && unicode.IsSpace(rune(text[end])) {
			end++
		}
		add(text[start:end])
		start = end
	}
	if start < len(text) {
		add(text[start:])
	}
	return out
}
