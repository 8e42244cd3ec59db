// Package pipeline drives a search run: it walks results pages one at a time,
// extracts records and stops on the result cap or an exhausted result set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/FranksOps/scholar/internal/metrics"
	"github.com/FranksOps/scholar/internal/scraper"
	"github.com/FranksOps/scholar/internal/serp"
	"github.com/FranksOps/scholar/internal/storage"
)

// DefaultPageSize is the number of results the remote site is assumed to
// serve per page.
const DefaultPageSize = 10

// Dispatcher fetches one results page. *scraper.Fetcher implements it.
type Dispatcher interface {
	FetchPage(ctx context.Context, q scraper.PageQuery) *storage.PageResult
}

// Notifier receives progress messages.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// SearchRequest is the input to one run.
type SearchRequest struct {
	Keywords   []string  `validate:"required,min=1,dive,required"`
	Mode       serp.Mode `validate:"-"`
	YearFrom   int       `validate:"-"`
	YearTo     int       `validate:"-"`
	MaxResults int       `validate:"gt=0"`
	Notifier   Notifier  `validate:"-"`
}

// StopReason says why a run ended.
type StopReason string

const (
	StopMaxResults StopReason = "max_results"
	StopExhausted  StopReason = "exhausted"
	StopPagesDone  StopReason = "pages_done"
	StopCanceled   StopReason = "canceled"
)

// PageStat summarises what happened to one page.
type PageStat struct {
	Page         int    `json:"page"`
	Offset       int    `json:"offset"`
	StatusCode   int    `json:"status_code"`
	Error        string `json:"error,omitempty"`
	Blocked      bool   `json:"blocked"`
	DetectionSrc string `json:"detection_src,omitempty"`
	Blocks       int    `json:"blocks"`
	FailedBlocks int    `json:"failed_blocks"`
	Accepted     int    `json:"accepted"`
}

// Skipped reports whether the page contributed nothing because it failed.
func (s PageStat) Skipped() bool {
	return s.Error != "" || s.StatusCode != 200
}

// Result is the outcome of a run. Records is owned by the caller once Run
// returns.
type Result struct {
	RunID      string
	Query      string
	Request    SearchRequest
	PageCount  int
	Records    []storage.PaperRecord
	Pages      []PageStat
	StartedAt  time.Time
	FinishedAt time.Time
	StopReason StopReason
}

// StoredRun converts the result into its persisted form.
func (r *Result) StoredRun() *storage.Run {
	return &storage.Run{
		ID:        r.RunID,
		Query:     r.Query,
		Keywords:  append([]string(nil), r.Request.Keywords...),
		Mode:      string(r.Request.Mode),
		YearFrom:  r.Request.YearFrom,
		YearTo:    r.Request.YearTo,
		CreatedAt: r.StartedAt,
		Records:   r.Records,
	}
}

// Config wires a Pipeline.
type Config struct {
	Dispatcher Dispatcher
	Extractor  *serp.Extractor
	// PageSize is the remote page size; zero means DefaultPageSize.
	PageSize int
	Logger   *slog.Logger
}

// Pipeline runs searches. A Pipeline may run several searches in sequence;
// each Run owns its own accumulator.
type Pipeline struct {
	dispatcher Dispatcher
	extractor  *serp.Extractor
	pageSize   int
	validate   *validator.Validate
	log        *slog.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("pipeline: dispatcher is required")
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("pipeline: invalid page size %d", cfg.PageSize)
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = serp.NewExtractor(serp.ScholarSelectors, cfg.Logger)
	}

	return &Pipeline{
		dispatcher: cfg.Dispatcher,
		extractor:  cfg.Extractor,
		pageSize:   cfg.PageSize,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        cfg.Logger,
	}, nil
}

// PageCount returns how many pages a cap of maxResults needs.
func (p *Pipeline) PageCount(maxResults int) int {
	if maxResults <= 0 {
		return 0
	}
	return (maxResults + p.pageSize - 1) / p.pageSize
}

// Run executes req. Pages are fetched strictly one after another. A page that
// fails or returns a non-200 status is skipped; a page with no result blocks
// ends the run, as does reaching req.MaxResults. If ctx is canceled the
// partial result is returned alongside the context error.
func (p *Pipeline) Run(ctx context.Context, req SearchRequest) (*Result, error) {
	if err := p.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("pipeline: invalid request: %w", err)
	}

	query := serp.BuildQuery(req.Keywords, req.Mode)
	res := &Result{
		RunID:      uuid.New().String(),
		Query:      query,
		Request:    req,
		PageCount:  p.PageCount(req.MaxResults),
		Records:    make([]storage.PaperRecord, 0, req.MaxResults),
		StartedAt:  time.Now().UTC(),
		StopReason: StopPagesDone,
	}
	log := p.log.With("run_id", res.RunID)
	log.Info("search started", "query", query, "max_results", req.MaxResults, "pages", res.PageCount)

	defer func() {
		res.FinishedAt = time.Now().UTC()
		metrics.RunsTotal.WithLabelValues(string(res.StopReason)).Inc()
		log.Info("search finished", "records", len(res.Records), "stop_reason", res.StopReason,
			"duration", res.FinishedAt.Sub(res.StartedAt))
	}()

	for page := 0; page < res.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			res.StopReason = StopCanceled
			return res, fmt.Errorf("pipeline: %w", err)
		}

		if req.Notifier != nil {
			req.Notifier.Notify(fmt.Sprintf("Scraping page %d of %d...", page+1, res.PageCount))
		}

		offset := page * p.pageSize
		fetched := p.dispatcher.FetchPage(ctx, scraper.PageQuery{
			Query:    query,
			YearFrom: req.YearFrom,
			YearTo:   req.YearTo,
			Offset:   offset,
			Page:     page,
		})

		stat := PageStat{Page: page, Offset: offset}
		if fetched != nil {
			stat.StatusCode = fetched.StatusCode
			stat.Error = fetched.Error
			stat.Blocked = fetched.DetectedBot
			stat.DetectionSrc = fetched.DetectionSrc
		} else {
			stat.Error = "no response"
		}

		if !fetched.OK() {
			log.Warn("failed to get page", "page", page+1, "status", stat.StatusCode, "err", stat.Error)
			res.Pages = append(res.Pages, stat)
			continue
		}

		extracted, err := p.extractor.Extract(fetched.Body)
		if err != nil {
			stat.Error = err.Error()
			log.Warn("failed to parse page", "page", page+1, "err", err)
			res.Pages = append(res.Pages, stat)
			continue
		}

		stat.Blocks = len(extracted.Blocks)
		stat.FailedBlocks = extracted.Failed()
		metrics.BlockErrorsTotal.Add(float64(stat.FailedBlocks))

		if stat.Blocks == 0 {
			log.Info("no more results found", "page", page+1)
			res.Pages = append(res.Pages, stat)
			res.StopReason = StopExhausted
			return res, nil
		}

		full := false
		for _, rec := range extracted.Records() {
			res.Records = append(res.Records, rec)
			stat.Accepted++
			if len(res.Records) >= req.MaxResults {
				full = true
				break
			}
		}
		metrics.RecordsExtractedTotal.Add(float64(stat.Accepted))
		res.Pages = append(res.Pages, stat)

		if full {
			res.StopReason = StopMaxResults
			return res, nil
		}
	}

	return res, nil
}

// Outcome is what Background hands back when a run completes.
type Outcome struct {
	Result *Result
	Err    error
}

// Background runs req on its own goroutine. The returned channel receives
// exactly one Outcome and is then closed.
func (p *Pipeline) Background(ctx context.Context, req SearchRequest) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := p.Run(ctx, req)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}
