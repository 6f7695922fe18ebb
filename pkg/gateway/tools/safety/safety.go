// Package safety restricts outbound tool HTTP traffic to public
// destinations. Tool arguments come from model output, so every target
// is treated as untrusted: private, loopback, and link-local ranges are
// refused, every DNS answer is checked, and the dialer pins the
// validated address so a rebinding resolver cannot swap it afterwards.
package safety

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxRedirectHops bounds redirect chains on the restricted client.
const MaxRedirectHops = 3

// ErrBlockedTarget marks a URL or resolved address that points at a
// non-public destination.
var ErrBlockedTarget = errors.New("destination is not allowed")

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"), // link-local, incl. cloud metadata
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ValidateTargetURL parses and vets a URL for outbound tool use. It
// returns the normalized URL (lowercased host) or an error describing
// why the target is refused. Hostnames are resolved and every record
// must be public.
func ValidateTargetURL(ctx context.Context, raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is required")
	}

	// Unwrap repeated percent-encoding so an encoded loopback literal
	// cannot slip past the checks below.
	decoded := raw
	for i := 0; i < 3; i++ {
		next, err := url.PathUnescape(decoded)
		if err != nil {
			return nil, errors.New("invalid percent-encoding in url")
		}
		if next == decoded {
			break
		}
		decoded = next
	}

	u, err := url.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.User != nil {
		return nil, errors.New("url credentials are not allowed")
	}

	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	switch {
	case host == "", strings.Contains(host, "%"):
		return nil, errors.New("invalid url host")
	case !isASCII(host):
		// No IDNA normalization layer, so non-ASCII hosts are refused
		// outright rather than resolved.
		return nil, errors.New("url host must be ascii")
	}
	if port := u.Port(); port != "" {
		if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
			return nil, errors.New("invalid url port")
		}
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]" // bare IPv6 literal keeps its brackets
	} else {
		u.Host = host
	}

	if _, err := resolvePinned(ctx, host); err != nil {
		return nil, err
	}
	return u, nil
}

// NewRestrictedHTTPClient wraps base with the outbound policy: proxies
// are stripped, the dialer re-validates and pins addresses, and
// redirects are bounded and re-vetted. base is not mutated.
func NewRestrictedHTTPClient(base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	out := *base
	if out.Transport == nil {
		out.Transport = http.DefaultTransport
	}

	if tr, ok := out.Transport.(*http.Transport); ok {
		clone := tr.Clone()
		clone.Proxy = nil
		clone.ProxyConnectHeader = nil
		clone.GetProxyConnectHeader = nil
		clone.DialTLSContext = nil
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		clone.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(address)
			if err != nil {
				return nil, err
			}
			pinned, err := resolvePinned(ctx, strings.ToLower(host))
			if err != nil {
				return nil, err
			}
			return dialer.DialContext(ctx, network, net.JoinHostPort(pinned.String(), port))
		}
		out.Transport = clone
	}

	out.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > MaxRedirectHops {
			return fmt.Errorf("redirect limit exceeded (max %d)", MaxRedirectHops)
		}
		if req != nil && req.URL != nil {
			if _, err := ValidateTargetURL(req.Context(), req.URL.String()); err != nil {
				return err
			}
		}
		return nil
	}
	return &out
}

// resolvePinned vets host and returns the address the dialer must use.
// IP literals are checked directly; hostnames are resolved and every
// answer must pass, not just the first.
func resolvePinned(ctx context.Context, host string) (netip.Addr, error) {
	if host == "" || strings.Contains(host, "%") || !isASCII(host) {
		return netip.Addr{}, errors.New("invalid host")
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if blockedAddr(addr) {
			return netip.Addr{}, ErrBlockedTarget
		}
		return addr, nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("dns resolution failed: %w", err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, errors.New("dns resolution returned no records")
	}
	for _, addr := range addrs {
		if blockedAddr(addr) {
			return netip.Addr{}, ErrBlockedTarget
		}
	}
	return addrs[0], nil
}

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
