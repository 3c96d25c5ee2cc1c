package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver picks the address a request is rate limited under.
// Forwarding headers are honoured only when the direct peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses proxies, each a bare IP or a CIDR. Blank entries are skipped.
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, raw := range proxies {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if ip := net.ParseIP(value); ip != nil {
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			r.trusted = append(r.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

// Resolve returns the client address of req. A nil resolver trusts no proxy.
func (r *ClientIPResolver) Resolve(req *http.Request) string {
	peer := remoteIP(req.RemoteAddr)
	if peer == nil {
		return req.RemoteAddr
	}
	if r != nil && r.isTrusted(peer) {
		if ip := firstIP(req.Header.Get("X-Forwarded-For")); ip != nil {
			return ip.String()
		}
		if ip := net.ParseIP(strings.TrimSpace(req.Header.Get("X-Real-Ip"))); ip != nil {
			return ip.String()
		}
	}
	return peer.String()
}

func (r *ClientIPResolver) isTrusted(ip net.IP) bool {
	for _, network := range r.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// firstIP returns the left-most parseable hop of an X-Forwarded-For value.
func firstIP(header string) net.IP {
	for _, part := range strings.Split(header, ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip
		}
	}
	return nil
}

func remoteIP(remoteAddr string) net.IP {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(remoteAddr)
}
