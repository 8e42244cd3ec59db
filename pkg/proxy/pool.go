// Package proxy rotates outbound requests across a list of HTTP or SOCKS
// proxies, benching the ones that keep failing.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var ErrUnknownProxy = errors.New("proxy: not in pool")

// Endpoint is one proxy with its health counters.
type Endpoint struct {
	URL       *url.URL
	Failures  int
	Successes int
	LastUsed  time.Time
	BenchedAt time.Time
	benched   bool
}

// Config tunes when a failing endpoint is taken out of rotation.
type Config struct {
	// MaxFailures consecutive-ish failures bench an endpoint. Default 3.
	MaxFailures int
	// Cooldown is how long a benched endpoint sits out. Default 5m.
	Cooldown time.Duration
}

// Pool hands out endpoints round-robin. Safe for concurrent use.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*Endpoint
	cursor      int
	maxFailures int
	cooldown    time.Duration
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown}
}

// LoadFile adds one proxy per line. Blank lines and # comments are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: open list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: read list: %w", err)
	}
	return p.Add(lines...)
}

// Add parses and appends endpoints. A missing scheme means http.
func (p *Pool) Add(raw ...string) error {
	parsed := make([]*Endpoint, 0, len(raw))
	for _, r := range raw {
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", r, err)
		}
		parsed = append(parsed, &Endpoint{URL: u})
	}

	p.mu.Lock()
	p.endpoints = append(p.endpoints, parsed...)
	p.mu.Unlock()
	return nil
}

// Len reports how many endpoints the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next endpoint in rotation, or nil when the pool is empty
// or every endpoint is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.endpoints)
	now := time.Now()
	for i := 0; i < n; i++ {
		ep := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % n

		if ep.benched && now.Sub(ep.BenchedAt) >= p.cooldown {
			ep.benched = false
			ep.Failures = 0
		}
		if !ep.benched {
			ep.LastUsed = now
			return ep.URL
		}
	}
	return nil
}

// Report feeds the outcome of a request made through u back into the pool.
// A nil reqErr counts as a success.
func (p *Pool) Report(u *url.URL, reqErr error) error {
	if u == nil {
		return errors.New("proxy: nil url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ep := p.lookup(u)
	if ep == nil {
		return ErrUnknownProxy
	}

	if reqErr == nil {
		ep.Successes++
		if ep.Failures > 0 {
			ep.Failures--
		}
		return nil
	}

	ep.Failures++
	if ep.Failures >= p.maxFailures {
		ep.benched = true
		ep.BenchedAt = time.Now()
	}
	return nil
}

func (p *Pool) lookup(u *url.URL) *Endpoint {
	key := u.String()
	for _, ep := range p.endpoints {
		if ep.URL.String() == key {
			return ep
		}
	}
	return nil
}
