package proxy

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPool_RoundRobin(t *testing.T) {
	pool := NewPool(Config{})

	if err := pool.Add("127.0.0.1:8080", "http://127.0.0.1:8081", "socks5://127.0.0.1:9050"); err != nil {
		t.Fatalf("unexpected error adding proxies: %v", err)
	}

	want := []string{
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
		"socks5://127.0.0.1:9050",
		"http://127.0.0.1:8080",
	}
	for i, w := range want {
		got := pool.Next()
		if got == nil || got.String() != w {
			t.Errorf("draw %d: expected %s, got %v", i, w, got)
		}
	}
	if pool.Len() != 3 {
		t.Errorf("expected 3 endpoints, got %d", pool.Len())
	}
}

func TestPool_BenchAndRecover(t *testing.T) {
	pool := NewPool(Config{MaxFailures: 2, Cooldown: 10 * time.Millisecond})
	_ = pool.Add("http://a", "http://b")

	a := pool.Next()
	_ = pool.Report(a, errors.New("refused"))
	_ = pool.Report(a, errors.New("refused"))

	for i := 0; i < 2; i++ {
		if got := pool.Next(); got.String() != "http://b" {
			t.Fatalf("expected http://b while a is benched, got %v", got)
		}
	}

	time.Sleep(15 * time.Millisecond)

	if got := pool.Next(); got.String() != "http://a" {
		t.Fatalf("expected http://a after cooldown, got %v", got)
	}
}

func TestPool_SuccessOffsetsFailure(t *testing.T) {
	pool := NewPool(Config{MaxFailures: 2, Cooldown: time.Hour})
	_ = pool.Add("http://a")

	a := pool.Next()
	_ = pool.Report(a, errors.New("timeout"))
	_ = pool.Report(a, nil)
	_ = pool.Report(a, errors.New("timeout"))

	if got := pool.Next(); got == nil {
		t.Fatal("expected endpoint to stay in rotation")
	}
}

func TestPool_AllBenched(t *testing.T) {
	pool := NewPool(Config{MaxFailures: 1, Cooldown: time.Hour})
	_ = pool.Add("http://a")

	_ = pool.Report(pool.Next(), errors.New("down"))

	if u := pool.Next(); u != nil {
		t.Errorf("expected nil when every endpoint is benched, got %v", u)
	}
}

func TestPool_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := `
# residential
http://proxy1.com
proxy2.com:80

socks5://proxy3.com:1080
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write proxy file: %v", err)
	}

	pool := NewPool(Config{})
	if err := pool.LoadFile(path); err != nil {
		t.Fatalf("failed to load file: %v", err)
	}

	expected := []string{"http://proxy1.com", "http://proxy2.com:80", "socks5://proxy3.com:1080"}
	for _, e := range expected {
		u := pool.Next()
		if u == nil || u.String() != e {
			t.Errorf("expected %s, got %v", e, u)
		}
	}
}

func TestPool_LoadFileMissing(t *testing.T) {
	pool := NewPool(Config{})
	if err := pool.LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPool_ReportUnknown(t *testing.T) {
	pool := NewPool(Config{})
	_ = pool.Add("http://a")

	u, _ := url.Parse("http://unknown")
	if err := pool.Report(u, nil); !errors.Is(err, ErrUnknownProxy) {
		t.Errorf("expected ErrUnknownProxy, got %v", err)
	}
	if err := pool.Report(nil, nil); err == nil {
		t.Error("expected error for nil url")
	}
}

func TestPool_Empty(t *testing.T) {
	pool := NewPool(Config{})
	if u := pool.Next(); u != nil {
		t.Errorf("expected nil on empty pool, got %v", u)
	}
}
