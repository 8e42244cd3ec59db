package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"strconv"
	"text/template"
	"time"

	"github.com/FranksOps/scholar/internal/analyzer"
	"github.com/FranksOps/scholar/internal/pipeline"
)

// YearCount is one bar of the publication-year histogram.
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// Summary contains aggregated figures about one search run.
type Summary struct {
	RunID           string                     `json:"run_id"`
	Query           string                     `json:"query"`
	StopReason      string                     `json:"stop_reason"`
	StartTime       time.Time                  `json:"start_time"`
	EndTime         time.Time                  `json:"end_time"`
	Duration        time.Duration              `json:"duration"`
	PagesPlanned    int                        `json:"pages_planned"`
	PagesAttempted  int                        `json:"pages_attempted"`
	PagesFailed     int                        `json:"pages_failed"`
	PagesBlocked    int                        `json:"pages_blocked"`
	FailedBlocks    int                        `json:"failed_blocks"`
	Records         int                        `json:"records"`
	TotalCitations  int                        `json:"total_citations"`
	WithYear        int                        `json:"with_year"`
	Years           []YearCount                `json:"years"`
	StatusCodes     map[int]int                `json:"status_codes"`
	DetectionsBySrc map[string]int             `json:"detections_by_src"`
	Keywords        []analyzer.KeywordCoverage `json:"keywords"`
}

// GenerateSummary aggregates a finished run.
func GenerateSummary(res *pipeline.Result) Summary {
	s := Summary{
		StatusCodes:     make(map[int]int),
		DetectionsBySrc: make(map[string]int),
	}
	if res == nil {
		return s
	}

	s.RunID = res.RunID
	s.Query = res.Query
	s.StopReason = string(res.StopReason)
	s.StartTime = res.StartedAt
	s.EndTime = res.FinishedAt
	s.Duration = res.FinishedAt.Sub(res.StartedAt)
	s.PagesPlanned = res.PageCount
	s.PagesAttempted = len(res.Pages)
	s.Records = len(res.Records)

	for _, p := range res.Pages {
		if p.Skipped() {
			s.PagesFailed++
		}
		if p.Blocked {
			s.PagesBlocked++
			s.DetectionsBySrc[p.DetectionSrc]++
		}
		if p.StatusCode > 0 {
			s.StatusCodes[p.StatusCode]++
		}
		s.FailedBlocks += p.FailedBlocks
	}

	years := make(map[string]int)
	for _, r := range res.Records {
		if n, err := strconv.Atoi(r.Citations); err == nil {
			s.TotalCitations += n
		}
		if r.Year != "" {
			years[r.Year]++
			s.WithYear++
		}
	}
	for y, c := range years {
		s.Years = append(s.Years, YearCount{Year: y, Count: c})
	}
	sort.Slice(s.Years, func(i, j int) bool { return s.Years[i].Year < s.Years[j].Year })

	s.Keywords = analyzer.Coverage(res.Records, res.Request.Keywords)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: json: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"pct": func(k analyzer.KeywordCoverage, total int) string {
		return fmt.Sprintf("%.0f%%", 100*k.Share(total))
	},
}

const textTmpl = `Search Summary
--------------
Run:           {{.RunID}}
Query:         {{.Query}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Stopped:       {{.StopReason}}
Pages:         {{.PagesAttempted}} of {{.PagesPlanned}} fetched, {{.PagesFailed}} failed, {{.PagesBlocked}} blocked
Records:       {{.Records}} ({{.FailedBlocks}} blocks failed extraction)
Citations:     {{.TotalCitations}}

Status Codes:
{{- range $code, $count := .StatusCodes}}
  {{$code}}: {{$count}}
{{- else}}
  None
{{- end}}

Years:
{{- range .Years}}
  {{.Year}}: {{.Count}}
{{- else}}
  None
{{- end}}

Keywords:
{{- range .Keywords}}
  {{.Keyword}}: {{.Records}} records ({{pct . $.Records}}), {{.Occurrences}} mentions
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: text: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Search Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .blocked { color: red; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Search Report</h1>
  <p><strong>Query:</strong> <code>{{.Query}}</code></p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}}), stopped on <em>{{.StopReason}}</em></p>

  <div class="stat-card">
    <div>Records</div>
    <div class="stat-val">{{.Records}}</div>
  </div>
  <div class="stat-card">
    <div>Pages</div>
    <div class="stat-val">{{.PagesAttempted}} / {{.PagesPlanned}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Pages</div>
    <div class="stat-val">{{.PagesFailed}}</div>
  </div>
  <div class="stat-card">
    <div>Blocked Pages</div>
    <div class="stat-val{{if gt .PagesBlocked 0}} blocked{{end}}">{{.PagesBlocked}}</div>
  </div>
  <div class="stat-card">
    <div>Citations</div>
    <div class="stat-val">{{.TotalCitations}}</div>
  </div>

  <h3>Publication Years</h3>
  <table>
    <tr><th>Year</th><th>Records</th></tr>
    {{- range .Years}}
    <tr><td>{{.Year}}</td><td>{{.Count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Keyword Coverage</h3>
  <table>
    <tr><th>Keyword</th><th>Records</th><th>Share</th><th>Mentions</th></tr>
    {{- range .Keywords}}
    <tr><td>{{.Keyword}}</td><td>{{.Records}}</td><td>{{pct . $.Records}}</td><td>{{.Occurrences}}</td></tr>
    {{- else}}
    <tr><td colspan="4">None</td></tr>
    {{- end}}
  </table>

  <h3>Blocks By Source</h3>
  <table>
    <tr><th>Source</th><th>Pages</th></tr>
    {{- range $src, $count := .DetectionsBySrc}}
    <tr><td>{{$src}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a standalone HTML report. Query text and keywords are
// escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := htmltemplate.New("htmlReport").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: html: %w", err)
	}
	return nil
}

// Write renders summary in format: "text", "json" or "html".
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
