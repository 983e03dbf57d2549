package handlers

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	gorillahandlers "github.com/gorilla/handlers"
)

const forwardedForHeader = "X-Forwarded-For"

// TrustedProxyHeaders applies the forwarding headers only to requests whose
// socket peer is in trusted. Requests from anywhere else keep their
// RemoteAddr, so a client cannot pick the address it is throttled under.
//
// Behind a trusted proxy the client is the rightmost X-Forwarded-For hop that
// is not itself a trusted proxy; earlier hops are whatever the client sent.
func TrustedProxyHeaders(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		proxied := gorillahandlers.ProxyHeaders(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isTrusted(peerAddr(r.RemoteAddr), trusted) {
				next.ServeHTTP(w, r)
				return
			}
			if xff := r.Header.Get(forwardedForHeader); xff != "" {
				if hop := clientHop(xff, trusted); hop != "" {
					r.Header.Set(forwardedForHeader, hop)
				} else {
					r.Header.Del(forwardedForHeader)
				}
			}
			proxied.ServeHTTP(w, r)
		})
	}
}

func clientHop(xff string, trusted []netip.Prefix) string {
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return ""
		}
		if !isTrusted(addr, trusted) {
			return addr.String()
		}
	}
	return ""
}

func peerAddr(remote string) netip.Addr {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
