// Package fingerprint builds HTTP transports whose TLS ClientHello mimics a
// real browser.
package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS fingerprint.
type Profile string

const (
	ProfileGo      Profile = "go" // stock crypto/tls
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	// The NoALPN variant keeps the connection on HTTP/1.1.
	ProfileRandom: utls.HelloRandomizedNoALPN,
}

// Profiles lists every accepted profile name.
func Profiles() []Profile {
	out := []Profile{ProfileGo}
	for p := range helloIDs {
		out = append(out, p)
	}
	sort.Slice(out[1:], func(i, j int) bool { return out[i+1] < out[j+1] })
	return out
}

// ParseProfile validates a profile name. An empty name selects ProfileGo.
func ParseProfile(name string) (Profile, error) {
	p := Profile(name)
	if p == "" || p == ProfileGo {
		return ProfileGo, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("fingerprint: unknown profile %q", name)
	}
	return p, nil
}

// Options adjusts the transport returned by Transport.
type Options struct {
	// Proxy selects a proxy per request, as http.Transport.Proxy does.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Transport returns a RoundTripper presenting the given profile's
// ClientHello. Browser profiles advertise only http/1.1 in ALPN because
// http.Transport cannot speak h2 over a custom DialTLSContext conn.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		base.Proxy = opts.Proxy
	}

	if p == ProfileGo || p == "" {
		if opts.InsecureSkipVerify {
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return base, nil
	}

	id, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	dial := base.DialContext
	base.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		conn, err := handshake(ctx, raw, host, id, opts.InsecureSkipVerify)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("fingerprint: %s handshake: %w", p, err)
		}
		return conn, nil
	}
	return base, nil
}

func handshake(ctx context.Context, raw net.Conn, host string, id utls.ClientHelloID, insecure bool) (*utls.UConn, error) {
	cfg := &utls.Config{ServerName: host, InsecureSkipVerify: insecure}

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		// Randomized ids have no static spec.
		uc := utls.UClient(raw, cfg, id)
		return uc, uc.HandshakeContext(ctx)
	}

	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uc := utls.UClient(raw, cfg, utls.HelloCustom)
	if err := uc.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return uc, uc.HandshakeContext(ctx)
}
