package safeurl

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Resolver is the DNS lookup capability the validator needs. *net.Resolver
// satisfies it; tests substitute a fixture.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator decides whether a URL is safe to fetch from this process. A URL is
// safe only when every address its hostname resolves to is publicly routable.
// Validation happens before every network hop, including each redirect.
type Validator struct {
	Resolver Resolver
	// LookupTimeout bounds a single DNS resolution. Zero means default (3s).
	LookupTimeout time.Duration
}

const defaultLookupTimeout = 3 * time.Second

// maxDecodePasses bounds iterative percent-decoding when scanning for
// traversal markers. Attackers double-encode; unbounded decoding is a DoS.
const maxDecodePasses = 3

// reservedV4 covers IPv4 ranges that net.IP's own predicates miss.
var reservedV4 = []struct{ base, mask net.IP }{
	{net.IPv4(0, 0, 0, 0), net.IPv4(255, 0, 0, 0)},       // "this network"
	{net.IPv4(100, 64, 0, 0), net.IPv4(255, 192, 0, 0)},  // CGNAT
	{net.IPv4(192, 0, 0, 0), net.IPv4(255, 255, 255, 0)}, // IETF protocol assignments
	{net.IPv4(198, 18, 0, 0), net.IPv4(255, 254, 0, 0)},  // benchmarking
	{net.IPv4(240, 0, 0, 0), net.IPv4(240, 0, 0, 0)},     // class E
}

// IsPublicIP reports whether ip is publicly routable. Private, loopback,
// link-local, multicast, unspecified, and reserved ranges are all rejected,
// for both IPv4 and IPv6.
func IsPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		for _, r := range reservedV4 {
			if v4.Mask(net.IPMask(r.mask.To4())).Equal(r.base.To4().Mask(net.IPMask(r.mask.To4()))) {
				return false
			}
		}
		return true
	}
	return true
}

// ValidateURL reports whether raw is safe to fetch: http(s) scheme, no
// traversal markers after bounded decoding, and every resolved address
// public. DNS failure, an unparsable URL, or any single private address in
// the resolved set all fail closed.
func (v *Validator) ValidateURL(ctx context.Context, raw string) bool {
	host, ok := v.checkAndHost(raw)
	if !ok {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return IsPublicIP(ip)
	}
	addrs, err := v.lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		log.Warn().Str("host", host).Err(err).Msg("dns resolution failed")
		return false
	}
	// Strict: if any resolved address is non-public, reject the whole URL so
	// a host that round-robins public and private answers cannot slip through.
	for _, a := range addrs {
		if !IsPublicIP(a.IP) {
			log.Warn().Str("host", host).Str("ip", a.IP.String()).Msg("blocked non-public address")
			return false
		}
	}
	return true
}

// ResolveSafeIP returns the first public address raw's hostname resolves to.
// Callers that connect to the returned address directly (IP pinning) are not
// exposed to DNS answers changing between validation and connect time.
func (v *Validator) ResolveSafeIP(ctx context.Context, raw string) (net.IP, bool) {
	host, ok := v.checkAndHost(raw)
	if !ok {
		return nil, false
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsPublicIP(ip) {
			return ip, true
		}
		return nil, false
	}
	addrs, err := v.lookup(ctx, host)
	if err != nil {
		log.Warn().Str("host", host).Err(err).Msg("dns resolution failed")
		return nil, false
	}
	for _, a := range addrs {
		if IsPublicIP(a.IP) {
			return a.IP, true
		}
	}
	log.Warn().Str("host", host).Msg("no public address in resolved set")
	return nil, false
}

func (v *Validator) checkAndHost(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if hasTraversal(u.Path) || hasTraversal(u.RawQuery) {
		log.Warn().Str("url", raw).Msg("blocked traversal marker")
		return "", false
	}
	return u.Hostname(), true
}

func (v *Validator) lookup(ctx context.Context, host string) ([]net.IPAddr, error) {
	r := v.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	timeout := v.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.LookupIPAddr(ctx, host)
}

// hasTraversal scans s for path traversal markers, percent-decoding up to
// maxDecodePasses times so double-encoded sequences are still caught.
func hasTraversal(s string) bool {
	cur := s
	for i := 0; i <= maxDecodePasses; i++ {
		lower := strings.ToLower(cur)
		if strings.Contains(lower, "../") || strings.Contains(lower, "..\\") {
			return true
		}
		dec, err := url.PathUnescape(cur)
		if err != nil || dec == cur {
			return false
		}
		cur = dec
	}
	return false
}
