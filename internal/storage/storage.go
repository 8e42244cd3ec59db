package storage

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRunNotFound is returned when a requested run does not exist in a backend.
var ErrRunNotFound = errors.New("run not found")

// PaperRecord is one paper located on a search-results page. Every field is
// always present; an unmatched field is the empty string.
type PaperRecord struct {
	Title     string `json:"title" yaml:"title"`
	Authors   string `json:"authors" yaml:"authors"`
	Year      string `json:"year" yaml:"year"`
	Citations string `json:"citations" yaml:"citations"`
	DOI       string `json:"doi" yaml:"doi"`
	URL       string `json:"url" yaml:"url"`
	Abstract  string `json:"abstract" yaml:"abstract"`
}

// Fields lists the record field names in their fixed export order.
var Fields = []string{"title", "authors", "year", "citations", "doi", "url", "abstract"}

// Values returns the record's fields in the order of Fields.
func (r PaperRecord) Values() []string {
	return []string{r.Title, r.Authors, r.Year, r.Citations, r.DOI, r.URL, r.Abstract}
}

// PageResult is the outcome of fetching a single results page.
type PageResult struct {
	URL          string
	Page         int
	Offset       int
	StatusCode   int
	Headers      http.Header
	Body         []byte
	UserAgent    string
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Scholar", "Cloudflare"
	CreatedAt    time.Time
	Error        string // non-empty if the fetch failed before an HTTP response
}

// OK reports whether the page produced a usable body.
func (p *PageResult) OK() bool {
	return p != nil && p.Error == "" && p.StatusCode == http.StatusOK
}

// Run is one completed search invocation together with the records it found.
type Run struct {
	ID        string        `json:"id"`
	Query     string        `json:"query"`
	Keywords  []string      `json:"keywords"`
	Mode      string        `json:"mode"`
	YearFrom  int           `json:"year_from"`
	YearTo    int           `json:"year_to"`
	CreatedAt time.Time     `json:"created_at"`
	Records   []PaperRecord `json:"records"`
}

// Filter allows querying for specific runs.
type Filter struct {
	RunID  string
	Query  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether run satisfies the filter's field predicates.
// Limit and Offset are applied by the backend.
func (f Filter) Match(run *Run) bool {
	if f.RunID != "" && run.ID != f.RunID {
		return false
	}
	if f.Query != "" && run.Query != f.Query {
		return false
	}
	if f.Since != nil && run.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend defines the interface for storing and querying search runs.
type Backend interface {
	Save(ctx context.Context, run *Run) error
	Query(ctx context.Context, filter Filter) ([]*Run, error)
	Close() error
}

// Latest returns the run matching id, or the most recent run when id is empty.
func Latest(ctx context.Context, b Backend, id string) (*Run, error) {
	runs, err := b.Query(ctx, Filter{RunID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return runs[0], nil
}
