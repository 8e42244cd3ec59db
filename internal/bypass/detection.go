// Package bypass recognises pages where the results site refused to serve
// results: CAPTCHA interstitials, rate-limit responses and CDN challenges.
// Detection only labels a page; it never retries or solves anything.
package bypass

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/FranksOps/scholar/internal/storage"
)

// Detector inspects a fetched page and names the blocker, if any.
type Detector func(page *storage.PageResult) (detected bool, source string)

// DefaultDetectors returns the detectors applied to every fetched page.
func DefaultDetectors() []Detector {
	return []Detector{
		detectScholar,
		detectRateLimit,
		detectCloudflare,
	}
}

// Analyze runs page through detectors in order, recording the first hit on
// the page itself. It returns whether any detector fired.
func Analyze(page *storage.PageResult, detectors []Detector) bool {
	if page == nil {
		return false
	}
	for _, d := range detectors {
		if detected, source := d(page); detected {
			page.DetectedBot = true
			page.DetectionSrc = source
			return true
		}
	}
	page.DetectedBot = false
	page.DetectionSrc = ""
	return false
}

var scholarMarkers = [][]byte{
	[]byte("gs_captcha_f"),
	[]byte("gs_captcha_ccl"),
	[]byte("Our systems have detected unusual traffic"),
	[]byte("Please show you're not a robot"),
	[]byte("id=\"recaptcha\""),
}

// detectScholar spots the results site's own "unusual traffic" interstitial,
// which may come back with status 200 or via a /sorry/ redirect.
func detectScholar(page *storage.PageResult) (bool, string) {
	if strings.Contains(page.URL, "/sorry/") {
		return true, "Scholar"
	}
	for _, m := range scholarMarkers {
		if bytes.Contains(page.Body, m) {
			return true, "Scholar"
		}
	}
	return false, ""
}

func detectRateLimit(page *storage.PageResult) (bool, string) {
	if page.StatusCode == http.StatusTooManyRequests {
		return true, "RateLimit"
	}
	return false, ""
}

func detectCloudflare(page *storage.PageResult) (bool, string) {
	if page.StatusCode != http.StatusForbidden && page.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(page.Headers.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	if bytes.Contains(page.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(page.Body, []byte("cf-turnstile")) ||
		bytes.Contains(page.Body, []byte("Attention Required! | Cloudflare")) {
		return true, "Cloudflare"
	}
	return false, ""
}
