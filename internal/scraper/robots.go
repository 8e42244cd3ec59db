package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor answers whether a results URL may be fetched, caching one
// robots.txt per host for the auditor's lifetime.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed tests targetURL's path and query against the group for
// userAgent. An unreachable or missing robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("scraper: robots target: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, errors.New("scraper: robots target must be absolute")
	}

	data, err := r.load(ctx, u.Scheme+"://"+u.Host, userAgent)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "host", u.Host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}
	return data.FindGroup(userAgent).Test(u.RequestURI()), nil
}

func (r *RobotsTxtAuditor) load(ctx context.Context, origin, userAgent string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data, nil
	}

	res := r.fetcher.get(ctx, origin+"/robots.txt", userAgent)
	if res.Error != "" {
		// Transport failures are not cached.
		return nil, errors.New(res.Error)
	}

	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, res.Body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	r.cache[origin] = data
	return data, nil
}
