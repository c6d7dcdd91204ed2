package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello the transport presents.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // crypto/tls, no mimicry
	ProfileRandom  Profile = "random" // randomized uTLS hello
)

// Profiles lists every accepted profile name.
var Profiles = []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}

// ParseProfile maps a config string to a Profile. The empty string selects
// ProfileChrome.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProfileChrome, nil
	}
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

type options struct {
	insecure bool
}

// Option tweaks the transport built by Transport.
type Option func(*options)

// WithInsecureSkipVerify disables certificate verification. Only for tests
// against self-signed servers.
func WithInsecureSkipVerify() Option {
	return func(o *options) { o.insecure = true }
}

// Transport returns an http.RoundTripper presenting the ClientHello of p.
// ProfileGo yields a cloned http.DefaultTransport. Every other profile
// performs the handshake with utls and pins ALPN to http/1.1, since
// http.Transport cannot speak h2 over a custom DialTLSContext conn.
func Transport(p Profile, opts ...Option) (http.RoundTripper, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if p == ProfileGo {
		if o.insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	var helloID utls.ClientHelloID
	switch p {
	case ProfileChrome:
		helloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		helloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		helloID = utls.HelloIOS_Auto
	case ProfileRandom:
		helloID = utls.HelloRandomizedNoALPN
	default:
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	// No proxies: the transport always dials the search host directly.
	transport.Proxy = nil
	transport.ForceAttemptHTTP2 = false

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := handshakeConn(tcpConn, host, helloID, o.insecure)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s failed: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

func handshakeConn(conn net.Conn, host string, id utls.ClientHelloID, insecure bool) (*utls.UConn, error) {
	cfg := &utls.Config{ServerName: host, InsecureSkipVerify: insecure}

	if id == utls.HelloRandomizedNoALPN {
		return utls.UClient(conn, cfg, id), nil
	}

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: build spec for %s: %w", id.Str(), err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("fingerprint: apply %s preset: %w", id.Str(), err)
	}
	return uConn, nil
}
