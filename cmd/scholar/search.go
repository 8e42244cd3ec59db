package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/scholar/internal/config"
	"github.com/FranksOps/scholar/internal/export"
	"github.com/FranksOps/scholar/internal/fingerprint"
	"github.com/FranksOps/scholar/internal/metrics"
	"github.com/FranksOps/scholar/internal/pipeline"
	"github.com/FranksOps/scholar/internal/report"
	"github.com/FranksOps/scholar/internal/scraper"
	"github.com/FranksOps/scholar/internal/serp"
	"github.com/FranksOps/scholar/pkg/proxy"
	"github.com/FranksOps/scholar/pkg/ratelimit"
	"github.com/FranksOps/scholar/pkg/useragent"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a keyword search and collect paper records",
	Long: `Search builds a boolean query from comma-separated keywords, fetches as
many results pages as the result cap needs, one at a time with a randomised
pause between requests, and prints every paper found. Records can be written
to one or more files (.csv, .xlsx, .json, .yaml, .bib) and saved to a store.`,
	Example: `  scholar search --keywords "graph neural networks, drug discovery" --max-results 30 --out papers.csv
  scholar search --keywords "llm, agents" --mode OR --out papers.xlsx --out papers.bib --store sqlite:scholar.db`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("keywords", "", "comma-separated keywords")
	f.String("mode", "AND", "how keywords combine: AND, OR, or anything else for a plain phrase")
	f.Int("year-from", 2015, "earliest publication year")
	f.Int("year-to", 2025, "latest publication year")
	f.Int("max-results", 50, "stop after this many records")
	f.StringArray("out", nil, "export file; repeat for several formats")
	f.String("store", "", "run store DSN (sqlite:<path>, json:<path>, postgres://...); overrides storage.dsn")
	f.String("summary", "", "print a run summary: text, json or html")
	f.String("summary-out", "", "write the summary to this file instead of stderr")
	f.Bool("quiet", false, "do not print the record listing")

	rootCmd.AddCommand(searchCmd)
}

// searchOptions is everything the search command reads from its flags.
type searchOptions struct {
	Keywords   []string
	Mode       serp.Mode
	YearFrom   int
	YearTo     int
	MaxResults int
	Out        []string
	Store      string
	Summary    string
	SummaryOut string
	Quiet      bool
}

func runSearch(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("keywords")
	keywords := splitKeywords(raw)
	if len(keywords) == 0 {
		return errors.New("please enter keywords")
	}

	mode, _ := cmd.Flags().GetString("mode")
	opts := searchOptions{Keywords: keywords, Mode: serp.ParseMode(mode)}
	opts.YearFrom, _ = cmd.Flags().GetInt("year-from")
	opts.YearTo, _ = cmd.Flags().GetInt("year-to")
	opts.MaxResults, _ = cmd.Flags().GetInt("max-results")
	opts.Out, _ = cmd.Flags().GetStringArray("out")
	opts.Store, _ = cmd.Flags().GetString("store")
	opts.Summary, _ = cmd.Flags().GetString("summary")
	opts.SummaryOut, _ = cmd.Flags().GetString("summary-out")
	opts.Quiet, _ = cmd.Flags().GetBool("quiet")

	if opts.Store == "" {
		opts.Store = cfg.Storage.DSN
	}
	if opts.MaxResults <= 0 {
		return fmt.Errorf("--max-results must be positive, got %d", opts.MaxResults)
	}
	for _, p := range opts.Out {
		if _, err := export.FormatFor(p); err != nil {
			return err
		}
	}

	fetcher, err := newFetcher(cfg.Search, logger)
	if err != nil {
		return err
	}
	pl, err := pipeline.New(pipeline.Config{
		Dispatcher: fetcher,
		PageSize:   cfg.Search.PageSize,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	return search(cmd.Context(), pl, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// search runs one search and renders its outputs. stdout receives the
// listing and the completion line; stderr receives progress and warnings.
func search(ctx context.Context, pl *pipeline.Pipeline, opts searchOptions, stdout, stderr io.Writer) error {
	req := pipeline.SearchRequest{
		Keywords:   opts.Keywords,
		Mode:       opts.Mode,
		YearFrom:   opts.YearFrom,
		YearTo:     opts.YearTo,
		MaxResults: opts.MaxResults,
		Notifier: pipeline.NotifierFunc(func(msg string) {
			fmt.Fprintln(stderr, msg)
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, finished := context.WithCancel(gctx)
	defer finished()

	if cfg != nil && cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Port, logger)
		g.Go(func() error { return srv.Serve(runCtx) })
	}

	var outcome pipeline.Outcome
	g.Go(func() error {
		defer finished()
		outcome = <-pl.Background(runCtx, req)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	res := outcome.Result
	if res == nil {
		return outcome.Err
	}
	if outcome.Err != nil {
		fmt.Fprintf(stderr, "Search interrupted: %v\n", outcome.Err)
	}

	if !opts.Quiet {
		if err := report.WriteListing(stdout, res.Records); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "Scraping completed! Found %d papers.\n", len(res.Records))

	// Outputs are written even after an interrupt so partial work is kept.
	// The parent context may already be done, so they run on a fresh one.
	saveCtx := context.WithoutCancel(ctx)

	if len(opts.Out) > 0 {
		switch err := export.WriteFiles(saveCtx, res.Records, opts.Out...); {
		case errors.Is(err, export.ErrNoRecords):
			fmt.Fprintln(stderr, "No results to save")
		case err != nil:
			return err
		default:
			fmt.Fprintf(stderr, "Results saved to %s\n", strings.Join(opts.Out, ", "))
		}
	}

	if opts.Store != "" {
		if err := saveRun(saveCtx, opts.Store, res); err != nil {
			return err
		}
	}

	if opts.Summary != "" {
		if err := writeSummary(opts.Summary, opts.SummaryOut, res, stderr); err != nil {
			return err
		}
	}

	return outcome.Err
}

func saveRun(ctx context.Context, dsn string, res *pipeline.Result) error {
	store, err := openStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, res.StoredRun()); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	slog.Info("run saved", "run_id", res.RunID, "store", dsn, "records", len(res.Records))
	return nil
}

func writeSummary(format, path string, res *pipeline.Result, stderr io.Writer) error {
	summary := report.GenerateSummary(res)
	if path == "" {
		return report.Write(stderr, format, summary)
	}
	return writeFileWith(path, func(w io.Writer) error {
		return report.Write(w, format, summary)
	})
}

// splitKeywords splits s on commas, trims each piece and drops empties.
func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// newFetcher builds the page dispatcher from search settings.
func newFetcher(sc config.SearchConfig, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(sc.Fingerprint)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if sc.ProxiesFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(sc.ProxiesFile); err != nil {
			return nil, err
		}
		logger.Info("proxy pool loaded", "proxies", pool.Len())
	}

	return scraper.NewFetcher(scraper.FetchConfig{
		Endpoint:      sc.Endpoint,
		Timeout:       sc.Timeout,
		UseCookieJar:  sc.UseCookieJar,
		ProxyPool:     pool,
		UAPool:        useragent.NewPool(sc.UserAgents),
		Fingerprint:   profile,
		Limiter:       ratelimit.NewLimiter(sc.MinDelay, sc.MaxDelay, sc.MaxPerMinute),
		RespectRobots: sc.RespectRobots,
		Logger:        logger,
	})
}
