package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/scholar/internal/bypass"
	"github.com/FranksOps/scholar/internal/fingerprint"
	"github.com/FranksOps/scholar/internal/metrics"
	"github.com/FranksOps/scholar/internal/storage"
	"github.com/FranksOps/scholar/pkg/httpclient"
	"github.com/FranksOps/scholar/pkg/proxy"
	"github.com/FranksOps/scholar/pkg/ratelimit"
	"github.com/FranksOps/scholar/pkg/useragent"
)

// DefaultEndpoint is the results page queried when FetchConfig.Endpoint is empty.
const DefaultEndpoint = "https://scholar.google.com/scholar"

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchConfig configures the dispatcher.
type FetchConfig struct {
	Endpoint     string
	Timeout      time.Duration
	UseCookieJar bool
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	// Limiter paces requests. Nil means the 2-5s default.
	Limiter *ratelimit.Limiter
	// RespectRobots refuses pages the endpoint's robots.txt disallows.
	RespectRobots bool
	Logger        *slog.Logger
}

// PageQuery addresses one results page.
type PageQuery struct {
	Query    string
	YearFrom int
	YearTo   int
	Offset   int
	Page     int
}

// Fetcher issues one GET per results page. A single client is held for the
// Fetcher's lifetime so the cookie jar spans every page of a run.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	robots *RobotsTxtAuditor
	log    *slog.Logger
}

// NewFetcher fills defaults and builds the transport.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpclient.DefaultTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewLimiter(2*time.Second, 5*time.Second, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// The proxy for each request rides on its context so one transport
	// can rotate proxies without being rebuilt.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{Proxy: proxyFunc})
	if err != nil {
		return nil, fmt.Errorf("scraper: transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: client: %w", err)
	}

	f := &Fetcher{config: cfg, client: client, log: cfg.Logger}
	if cfg.RespectRobots {
		f.robots = NewRobotsTxtAuditor(f, cfg.Logger)
	}
	return f, nil
}

// PageURL renders the results-page URL for q.
func (f *Fetcher) PageURL(q PageQuery) (string, error) {
	u, err := url.Parse(f.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("scraper: endpoint: %w", err)
	}
	v := u.Query()
	v.Set("q", q.Query)
	v.Set("as_ylo", strconv.Itoa(q.YearFrom))
	v.Set("as_yhi", strconv.Itoa(q.YearTo))
	v.Set("start", strconv.Itoa(q.Offset))
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// FetchPage fetches one results page. Failures are reported on the returned
// result, never as an error. Every attempt that reaches the network is
// followed by the limiter's pause, whatever the outcome; the pause is cut
// short only if ctx is canceled.
func (f *Fetcher) FetchPage(ctx context.Context, q PageQuery) *storage.PageResult {
	target, err := f.PageURL(q)
	if err != nil {
		return &storage.PageResult{Page: q.Page, Offset: q.Offset, CreatedAt: time.Now().UTC(), Error: err.Error()}
	}

	ua := f.config.UAPool.GetRandom()

	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, target, ua)
		if err == nil && !allowed {
			f.log.Warn("page disallowed by robots.txt", "page", q.Page+1, "url", target)
			return &storage.PageResult{
				URL: target, Page: q.Page, Offset: q.Offset, UserAgent: ua,
				CreatedAt: time.Now().UTC(),
				Error:     "disallowed by robots.txt",
			}
		}
	}

	if err := f.config.Limiter.Wait(ctx); err != nil {
		return &storage.PageResult{
			URL: target, Page: q.Page, Offset: q.Offset, UserAgent: ua,
			CreatedAt: time.Now().UTC(),
			Error:     fmt.Sprintf("rate limiter: %v", err),
		}
	}

	res := f.get(ctx, target, ua)
	res.Page = q.Page
	res.Offset = q.Offset

	bypass.Analyze(res, bypass.DefaultDetectors())
	metrics.RecordPage(res)

	switch {
	case res.Error != "":
		f.log.Warn("page request failed", "page", q.Page+1, "url", target, "err", res.Error)
	case res.DetectedBot:
		f.log.Warn("page blocked", "page", q.Page+1, "status", res.StatusCode, "source", res.DetectionSrc)
	default:
		f.log.Debug("page fetched", "page", q.Page+1, "status", res.StatusCode, "bytes", len(res.Body), "duration", res.Duration)
	}

	if err := f.config.Limiter.Pause(ctx); err != nil {
		f.log.Debug("pause interrupted", "err", err)
	}
	return res
}

// get performs a single GET with the browser header profile. It neither
// waits on nor pauses the limiter.
func (f *Fetcher) get(ctx context.Context, target, ua string) *storage.PageResult {
	start := time.Now()
	res := &storage.PageResult{URL: target, UserAgent: ua, CreatedAt: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Error = fmt.Sprintf("build request: %v", err)
		return res
	}
	useragent.Apply(req.Header, ua)

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	resp, err := f.client.Do(req.Context(), req)
	if activeProxy != nil {
		_ = f.config.ProxyPool.Report(activeProxy, err)
		if err != nil {
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
	}
	if err != nil {
		res.Error = fmt.Sprintf("request failed: %v", err)
		res.Duration = time.Since(start)
		return res
	}

	body, err := httpclient.ReadBody(resp)
	if err != nil {
		res.Error = fmt.Sprintf("read body: %v", err)
	}

	// The final URL after redirects; a /sorry/ hop marks a block page.
	if resp.Request != nil && resp.Request.URL != nil {
		res.URL = resp.Request.URL.String()
	}
	res.StatusCode = resp.StatusCode
	res.Headers = resp.Header
	res.Body = body
	res.Duration = time.Since(start)
	return res
}
