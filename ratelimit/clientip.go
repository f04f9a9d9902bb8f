package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPResolver finds the address a request came from. X-Forwarded-For is only
// read when the direct peer is one of the trusted proxies.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses proxies as CIDR blocks or bare addresses.
func NewIPResolver(proxies []string) (*IPResolver, error) {
	r := &IPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q is not an IP address", p)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			r.trusted = append(r.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, block, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		r.trusted = append(r.trusted, block)
	}
	return r, nil
}

func (r *IPResolver) isTrusted(addr string) bool {
	if r == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, block := range r.trusted {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the remote host, or when that host is a trusted proxy the
// right-most X-Forwarded-For hop that is not itself trusted.
func (r *IPResolver) ClientIP(req *http.Request) string {
	peer := remoteHost(req)
	if !r.isTrusted(peer) {
		return peer
	}
	var hops []string
	for _, h := range req.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(h, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if net.ParseIP(hop) == nil {
			return peer
		}
		if !r.isTrusted(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

// ClientIP returns the remote host of r, ignoring forwarding headers.
func ClientIP(r *http.Request) string {
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
